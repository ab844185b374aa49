package profile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-str/internal/locus"
)

// ErrSchemaMismatch is returned when a table header lacks a required column.
var ErrSchemaMismatch = errors.New("schema mismatch")

// SchemaError reports a missing column.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s table: required column %q not found in header", e.Table, e.Column)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchemaMismatch
}

// ParseError is an error in a table row, with line context.
type ParseError struct {
	Table string
	Line  int
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s table parse error at line %d: %v", e.Table, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// tableReader yields tab-separated rows, skipping blank lines.
type tableReader struct {
	reader     *bufio.Reader
	lineNumber int
}

func newTableReader(r io.Reader) *tableReader {
	return &tableReader{reader: bufio.NewReader(r)}
}

// next returns the fields of the next non-blank line, or nil at EOF.
func (t *tableReader) next() ([]string, error) {
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read line: %w", err)
		}
		if err == io.EOF && line == "" {
			return nil, nil
		}
		t.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			if err == io.EOF {
				return nil, nil
			}
			continue
		}
		return strings.Split(line, "\t"), nil
	}
}

// ReadReferenceTable parses a reference profile table. The first column holds
// the sample name; locus columns are matched by header name, so their order in
// the file does not matter.
func ReadReferenceTable(r io.Reader, catalog *locus.Catalog) ([]*Profile, error) {
	tr := newTableReader(r)

	header, err := tr.next()
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, &ParseError{Table: "reference", Line: tr.lineNumber, Err: errors.New("no header line found")}
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	order := make([]int, 0, catalog.Len())
	for _, name := range catalog.Names() {
		i, ok := cols[name]
		if !ok {
			return nil, &SchemaError{Table: "reference", Column: name}
		}
		order = append(order, i)
	}

	var profiles []*Profile
	for {
		fields, err := tr.next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			break
		}

		row := make([]string, 0, len(order)+1)
		row = append(row, strings.TrimSpace(fields[0]))
		for _, i := range order {
			cell := ""
			if i < len(fields) {
				cell = fields[i]
			}
			row = append(row, cell)
		}

		p, err := FromRows([][]string{row}, catalog)
		if err != nil {
			return nil, &ParseError{Table: "reference", Line: tr.lineNumber, Err: err}
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// LoadStore reads a reference table file into a new store.
func LoadStore(path string, catalog *locus.Catalog, opts ...StoreOption) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference table: %w", err)
	}
	defer f.Close()

	profiles, err := ReadReferenceTable(f, catalog)
	if err != nil {
		return nil, err
	}

	s := NewStore(catalog)
	for _, opt := range opts {
		opt(s)
	}
	for _, p := range profiles {
		if err := s.Add(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// StoreOption configures a store built by LoadStore.
type StoreOption func(*Store)

// WithLogger sets the store logger before any profile is added, so duplicate
// names in the reference table are reported.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// ReadMixtureTable parses a mixture definition table: a header line followed
// by rows of group, contributor count and contributor names.
func ReadMixtureTable(r io.Reader) ([]MixDefinition, error) {
	tr := newTableReader(r)

	header, err := tr.next()
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, nil
	}

	var defs []MixDefinition
	for {
		fields, err := tr.next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			break
		}

		for len(fields) > 0 && strings.TrimSpace(fields[len(fields)-1]) == "" {
			fields = fields[:len(fields)-1]
		}
		if len(fields) < 2 {
			return nil, &ParseError{Table: "mixture", Line: tr.lineNumber,
				Err: fmt.Errorf("expected group and contributor count, found %d fields", len(fields))}
		}

		count, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil || count < 1 {
			return nil, &ParseError{Table: "mixture", Line: tr.lineNumber,
				Err: fmt.Errorf("invalid contributor count %q", fields[1])}
		}

		names := make([]string, 0, len(fields)-2)
		for _, f := range fields[2:] {
			names = append(names, strings.TrimSpace(f))
		}
		if len(names) < count {
			return nil, &ParseError{Table: "mixture", Line: tr.lineNumber,
				Err: fmt.Errorf("count %d but %d contributors listed", count, len(names))}
		}

		defs = append(defs, MixDefinition{
			Group:        strings.TrimSpace(fields[0]),
			Count:        count,
			Contributors: names[:count],
		})
	}
	return defs, nil
}

// LoadMixtureTable reads a mixture definition file.
func LoadMixtureTable(path string) ([]MixDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mixture table: %w", err)
	}
	defer f.Close()
	return ReadMixtureTable(f)
}

// WriteTable writes every stored profile in reference-table layout.
func WriteTable(w io.Writer, s *Store) error {
	bw := bufio.NewWriter(w)
	header := append([]string{"Sample Name"}, s.catalog.Names()...)
	if _, err := bw.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return err
	}
	for _, p := range s.profiles {
		if _, err := bw.WriteString(strings.Join(p.Row(), "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
