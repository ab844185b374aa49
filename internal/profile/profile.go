// Package profile provides reference genotypes and the store that resolves
// sample names to them, including synthesized mixture genotypes.
package profile

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-str/internal/allele"
	"github.com/inodb/vibe-str/internal/locus"
)

// Profile is a sample genotype: for every catalog locus, the distinct alleles
// sorted ascending. One allele is homozygous, two heterozygous, more a mixture.
type Profile struct {
	Name    string
	catalog *locus.Catalog
	alleles map[string][]allele.Allele
}

// New creates a profile with no alleles at any locus.
func New(name string, catalog *locus.Catalog) *Profile {
	p := &Profile{
		Name:    name,
		catalog: catalog,
		alleles: make(map[string][]allele.Allele, catalog.Len()),
	}
	for _, n := range catalog.Names() {
		p.alleles[n] = nil
	}
	return p
}

// FromRows builds a profile from reference rows laid out as the sample name
// followed by one comma-separated allele cell per catalog locus, in catalog
// order. Several rows are joined locus by locus before deduplication; the
// resulting name is the row names joined with commas.
func FromRows(rows [][]string, catalog *locus.Catalog) (*Profile, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("build profile: no rows")
	}

	n := catalog.Len()
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) < n+1 {
			return nil, fmt.Errorf("build profile: expected %d fields, found %d", n+1, len(row))
		}
		names = append(names, row[0])
	}

	p := New(strings.Join(names, ","), catalog)
	for i, l := range catalog.Loci() {
		cells := make([]string, 0, len(rows))
		for _, row := range rows {
			if cell := strings.TrimSpace(row[i+1]); cell != "" {
				cells = append(cells, cell)
			}
		}
		set, err := allele.ParseList(strings.Join(cells, ","), l.RepeatLength)
		if err != nil {
			return nil, fmt.Errorf("profile %s locus %s: %w", p.Name, l.Name, err)
		}
		p.alleles[l.Name] = allele.Normalize(set)
	}
	return p, nil
}

// Alleles returns the expected alleles at a locus. The returned slice must not
// be modified. ok is false for loci outside the catalog.
func (p *Profile) Alleles(name string) ([]allele.Allele, bool) {
	set, ok := p.alleles[name]
	return set, ok
}

// Has reports whether a is an expected allele at the locus.
func (p *Profile) Has(name string, a allele.Allele) bool {
	return allele.Contains(p.alleles[name], a)
}

// Clone returns a deep copy of the profile under a new name.
func (p *Profile) Clone(name string) *Profile {
	c := New(name, p.catalog)
	for k, set := range p.alleles {
		c.alleles[k] = append([]allele.Allele(nil), set...)
	}
	return c
}

// CombineWith unions other's alleles into p locus by locus. A resolved call
// supersedes INC: after the union, INC is dropped from any locus holding
// another allele.
func (p *Profile) CombineWith(other *Profile) {
	for _, name := range p.catalog.Names() {
		merged := make([]allele.Allele, 0, len(p.alleles[name])+len(other.alleles[name]))
		merged = append(merged, p.alleles[name]...)
		merged = append(merged, other.alleles[name]...)
		merged = allele.Normalize(merged)

		if len(merged) > 1 {
			kept := merged[:0]
			for _, a := range merged {
				if !a.IsCode(allele.CodeInconclusive) {
					kept = append(kept, a)
				}
			}
			merged = kept
		}
		p.alleles[name] = merged
	}
}

// Row formats the profile as a reference-table row.
func (p *Profile) Row() []string {
	row := make([]string, 0, p.catalog.Len()+1)
	row = append(row, p.Name)
	for _, name := range p.catalog.Names() {
		row = append(row, allele.Join(p.alleles[name]))
	}
	return row
}
