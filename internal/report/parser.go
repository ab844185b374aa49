package report

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Standard report column names
const (
	ColMarker         = "Marker"
	ColDye            = "Dye"
	ColSize           = "Size"
	ColAllele         = "Allele"
	ColSampleComments = "Sample Comments"
	ColHeight         = "Height"

	// DefaultSampleColumn identifies the sample a peak belongs to.
	DefaultSampleColumn = "Sample Name"
)

// ErrSchemaMismatch is returned when the report header lacks a required column.
var ErrSchemaMismatch = errors.New("schema mismatch")

// SchemaError reports a required column missing from the header.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required column %q not found in report header", e.Column)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchemaMismatch
}

// ColumnIndices holds the indices of the report columns used for classification.
type ColumnIndices struct {
	Sample         int
	Marker         int
	Dye            int
	Size           int
	Allele         int
	SampleComments int
	Height         int
}

// Parser reads peaks from an instrument report.
type Parser struct {
	reader       *bufio.Reader
	file         *os.File
	gzipReader   *gzip.Reader
	lineNumber   int
	columns      ColumnIndices
	header       []string
	sampleColumn string
}

// NewParser opens a report file. Plain and gzipped reports are supported.
// An empty sampleColumn selects DefaultSampleColumn.
func NewParser(path, sampleColumn string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin, sampleColumn)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}

	p := &Parser{file: file, sampleColumn: sampleColumn}

	br := bufio.NewReader(file)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = br
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader.
func NewParserFromReader(r io.Reader, sampleColumn string) (*Parser, error) {
	p := &Parser{
		reader:       bufio.NewReader(r),
		sampleColumn: sampleColumn,
	}
	if err := p.parseHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseHeader reads the first non-empty line and resolves column indices.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return &ParseError{Line: p.lineNumber, Message: "no header line found"}
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		p.header = strings.Split(line, "\t")
		return p.parseColumnIndices()
	}
}

// parseColumnIndices locates the required columns in the header.
func (p *Parser) parseColumnIndices() error {
	sampleColumn := p.sampleColumn
	if sampleColumn == "" {
		sampleColumn = DefaultSampleColumn
	}

	index := make(map[string]int, len(p.header))
	for i, col := range p.header {
		col = strings.TrimSpace(col)
		if _, seen := index[col]; !seen {
			index[col] = i
		}
	}

	lookup := func(name string) (int, error) {
		i, ok := index[name]
		if !ok {
			return -1, &SchemaError{Column: name}
		}
		return i, nil
	}

	var err error
	if p.columns.Sample, err = lookup(sampleColumn); err != nil {
		return err
	}
	if p.columns.Marker, err = lookup(ColMarker); err != nil {
		return err
	}
	if p.columns.Dye, err = lookup(ColDye); err != nil {
		return err
	}
	if p.columns.Size, err = lookup(ColSize); err != nil {
		return err
	}
	if p.columns.Allele, err = lookup(ColAllele); err != nil {
		return err
	}
	if p.columns.SampleComments, err = lookup(ColSampleComments); err != nil {
		return err
	}
	if p.columns.Height, err = lookup(ColHeight); err != nil {
		return err
	}
	return nil
}

// Next reads the next peak. Returns nil, nil when there are no more peaks.
func (p *Parser) Next() (*Peak, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read peak line: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		return p.parseLine(line)
	}
}

// ReadAll reads every remaining peak.
func (p *Parser) ReadAll() ([]*Peak, error) {
	var peaks []*Peak
	for {
		pk, err := p.Next()
		if err != nil {
			return nil, err
		}
		if pk == nil {
			return peaks, nil
		}
		peaks = append(peaks, pk)
	}
}

// parseLine parses a single report data line into a Peak.
func (p *Parser) parseLine(line string) (*Peak, error) {
	fields := strings.Split(line, "\t")

	minCols := max(p.columns.Sample, p.columns.Marker, p.columns.Dye, p.columns.Size,
		p.columns.Allele, p.columns.SampleComments, p.columns.Height)
	if len(fields) <= minCols {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least %d columns, found %d", minCols+1, len(fields)),
		}
	}
	if len(fields) > len(p.header) {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at most %d columns, found %d", len(p.header), len(fields)),
		}
	}
	// trailing optional cells may be dropped by the exporter; Fields always
	// lines up with the header so appended columns stay in place
	for len(fields) < len(p.header) {
		fields = append(fields, "")
	}

	pk := &Peak{
		Line:    p.lineNumber,
		Fields:  fields,
		Sample:  strings.TrimSpace(fields[p.columns.Sample]),
		Marker:  strings.TrimSpace(fields[p.columns.Marker]),
		Dye:     strings.TrimSpace(fields[p.columns.Dye]),
		Allele:  strings.TrimSpace(fields[p.columns.Allele]),
		Comment: strings.TrimSpace(fields[p.columns.SampleComments]),
	}

	var err error
	if pk.Size, pk.HasSize, err = parseOptionalFloat(fields[p.columns.Size]); err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid size: %s", fields[p.columns.Size]),
		}
	}
	if pk.Height, pk.HasHeight, err = parseOptionalFloat(fields[p.columns.Height]); err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid height: %s", fields[p.columns.Height]),
		}
	}

	return pk, nil
}

// parseOptionalFloat parses a numeric cell; an empty cell is not an error.
func parseOptionalFloat(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return f, true, nil
}

// Header returns the report header fields.
func (p *Parser) Header() []string {
	return p.header
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error during report parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("report parse error at line %d: %s", e.Line, e.Message)
}
