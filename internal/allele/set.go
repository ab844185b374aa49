package allele

import (
	"slices"
	"strings"
)

// Normalize returns the distinct alleles of in, sorted with Compare.
// The first occurrence of each allele is kept.
func Normalize(in []Allele) []Allele {
	seen := make(map[string]bool, len(in))
	out := make([]Allele, 0, len(in))
	for _, a := range in {
		k := a.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, a)
	}
	slices.SortStableFunc(out, Compare)
	return out
}

// Contains reports whether set holds an allele equal to a.
func Contains(set []Allele, a Allele) bool {
	for _, s := range set {
		if s.Equal(a) {
			return true
		}
	}
	return false
}

// Join formats alleles as a comma-separated list, e.g. "11,12.3".
func Join(set []Allele) string {
	keys := make([]string, len(set))
	for i, a := range set {
		keys[i] = a.Key()
	}
	return strings.Join(keys, ",")
}

// ParseList parses a comma-separated allele cell.
func ParseList(cell string, repeatLength int) ([]Allele, error) {
	tokens := strings.Split(cell, ",")
	out := make([]Allele, 0, len(tokens))
	for _, tok := range tokens {
		a, err := Parse(tok, repeatLength)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
