// Package report reads and writes genotyping instrument reports: one
// tab-separated row per electropherogram peak.
package report

import "strings"

// Peak is one report row. Fields keeps the original cells so the row can be
// re-emitted unchanged; NOC and Type are filled in by classification.
type Peak struct {
	Line   int
	Fields []string

	Sample  string
	Marker  string
	Dye     string
	Allele  string
	Comment string

	Size      float64
	HasSize   bool
	Height    float64
	HasHeight bool

	NOC  int
	Type string
}

// Unclassified is the code held by a peak that no pass has claimed.
const Unclassified = "X"

// SetType replaces the classification code.
func (p *Peak) SetType(code string) {
	p.Type = code
}

// Annotate adds a code to the classification. An unclassified peak takes the
// code; otherwise codes accumulate comma-separated.
func (p *Peak) Annotate(code string) {
	if p.Type == "" || p.Type == Unclassified {
		p.Type = code
		return
	}
	p.Type += "," + code
}

// Codes returns the individual classification codes.
func (p *Peak) Codes() []string {
	if p.Type == "" {
		return nil
	}
	return strings.Split(p.Type, ",")
}
