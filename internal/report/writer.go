package report

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Appended output columns
const (
	ColNOC  = "NOC"
	ColType = "Type"
)

// Writer re-emits a report with the NOC and Type columns appended.
type Writer struct {
	w      *bufio.Writer
	header []string
}

// NewWriter creates a writer for a report with the given input header.
func NewWriter(w io.Writer, header []string) *Writer {
	columns := make([]string, 0, len(header)+2)
	columns = append(columns, header...)
	columns = append(columns, ColNOC, ColType)
	return &Writer{
		w:      bufio.NewWriter(w),
		header: columns,
	}
}

// WriteHeader writes the header line.
func (rw *Writer) WriteHeader() error {
	_, err := rw.w.WriteString(strings.Join(rw.header, "\t") + "\n")
	return err
}

// Write writes a single classified peak.
func (rw *Writer) Write(p *Peak) error {
	values := make([]string, 0, len(p.Fields)+2)
	values = append(values, p.Fields...)
	values = append(values, strconv.Itoa(p.NOC), p.Type)

	_, err := rw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteAll writes the header followed by every peak, then flushes.
func (rw *Writer) WriteAll(peaks []*Peak) error {
	if err := rw.WriteHeader(); err != nil {
		return err
	}
	for _, p := range peaks {
		if err := rw.Write(p); err != nil {
			return err
		}
	}
	return rw.Flush()
}

// Flush flushes any buffered data to the underlying writer.
func (rw *Writer) Flush() error {
	return rw.w.Flush()
}
