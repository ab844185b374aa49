package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-str/internal/report"
)

// PeakCall is one stored, classified peak.
type PeakCall struct {
	File   string
	Line   int
	Sample string
	Marker string
	Dye    string
	Size   sql.NullFloat64
	Allele string
	Height sql.NullFloat64
	NOC    int
	Type   string
}

// WritePeakCalls replaces the stored calls of a report file with peaks, using
// the Appender API, and records the file fingerprint. The delete, the append
// and the file record commit together.
func (s *Store) WritePeakCalls(fp FileFingerprint, peaks []*report.Peak) error {
	return s.replaceFile(fp, len(peaks), func(a *goduckdb.Appender) error {
		for _, p := range peaks {
			var size, height any
			if p.HasSize {
				size = p.Size
			}
			if p.HasHeight {
				height = p.Height
			}
			if err := a.AppendRow(
				fp.Path, int32(p.Line), p.Sample, p.Marker, p.Dye,
				size, p.Allele, height, int32(p.NOC), p.Type,
			); err != nil {
				return fmt.Errorf("append peak call: %w", err)
			}
		}
		return nil
	})
}

// replaceFile runs one transaction on a dedicated connection: clear the
// file, fill peak_calls through an appender, record the fingerprint. Any
// error rolls the whole unit back, leaving the previous calls in place.
func (s *Store) replaceFile(fp FileFingerprint, peaks int, fill func(*goduckdb.Appender) error) (err error) {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			conn.ExecContext(ctx, "ROLLBACK")
		}
	}()

	if _, err := conn.ExecContext(ctx, "DELETE FROM peak_calls WHERE file=?", fp.Path); err != nil {
		return fmt.Errorf("clear peak calls: %w", err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "peak_calls")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	if err := fill(appender); err != nil {
		appender.Close()
		return err
	}
	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush peak calls: %w", err)
	}

	if _, err := conn.ExecContext(ctx, `INSERT OR REPLACE INTO report_files
		(path, size, mod_time, peaks, classified_at) VALUES (?, ?, ?, ?, ?)`,
		fp.Path, fp.Size, fp.ModTime, peaks, time.Now().UTC()); err != nil {
		return fmt.Errorf("record report file: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit peak calls: %w", err)
	}
	return nil
}

// ClearFile removes the stored calls and file record of a report.
func (s *Store) ClearFile(path string) error {
	if _, err := s.db.Exec("DELETE FROM peak_calls WHERE file=?", path); err != nil {
		return fmt.Errorf("clear peak calls: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM report_files WHERE path=?", path); err != nil {
		return fmt.Errorf("clear report file: %w", err)
	}
	return nil
}

// IsCurrent reports whether the file was classified at exactly this size and
// modification time.
func (s *Store) IsCurrent(fp FileFingerprint) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM report_files
		WHERE path=? AND size=? AND mod_time=?`, fp.Path, fp.Size, fp.ModTime).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query report file: %w", err)
	}
	return n > 0, nil
}

// Files returns the classified report files ordered by path.
func (s *Store) Files() ([]FileRecord, error) {
	rows, err := s.db.Query(`SELECT path, size, mod_time, peaks, classified_at
		FROM report_files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("query report files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.Path, &f.Size, &f.ModTime, &f.Peaks, &f.ClassifiedAt); err != nil {
			return nil, fmt.Errorf("scan report file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report files: %w", err)
	}
	return files, nil
}

// CountByCode tallies individual classification codes, splitting combined
// types such as "b,pullup". An empty file counts every stored call.
func (s *Store) CountByCode(file string) (map[string]int, error) {
	query := "SELECT type, count(*) FROM peak_calls"
	var args []any
	if file != "" {
		query += " WHERE file=?"
		args = append(args, file)
	}
	query += " GROUP BY type"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan type count: %w", err)
		}
		for _, code := range strings.Split(typ, ",") {
			counts[code] += n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate type counts: %w", err)
	}
	return counts, nil
}

// CallsForSample returns every stored call of a sample in file and line order.
func (s *Store) CallsForSample(sample string) ([]PeakCall, error) {
	rows, err := s.db.Query(`SELECT
		file, line, sample, marker, dye, size, allele, height, noc, type
		FROM peak_calls
		WHERE sample=?
		ORDER BY file, line`, sample)
	if err != nil {
		return nil, fmt.Errorf("query sample: %w", err)
	}
	defer rows.Close()

	var calls []PeakCall
	for rows.Next() {
		var c PeakCall
		if err := rows.Scan(
			&c.File, &c.Line, &c.Sample, &c.Marker, &c.Dye,
			&c.Size, &c.Allele, &c.Height, &c.NOC, &c.Type,
		); err != nil {
			return nil, fmt.Errorf("scan peak call: %w", err)
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate peak calls: %w", err)
	}
	return calls, nil
}
