// Package locus provides the STR locus catalog: dye channel and repeat-unit
// length for each marker in the amplification kit.
package locus

import "strings"

// Dye is a fluorescent dye channel.
type Dye string

// Dye channels.
const (
	DyeNone   Dye = ""
	DyeBlue   Dye = "Blue"
	DyeGreen  Dye = "Green"
	DyeYellow Dye = "Yellow"
	DyeRed    Dye = "Red"
)

// Dyes lists the analysed channels in panel order.
var Dyes = []Dye{DyeBlue, DyeGreen, DyeYellow, DyeRed}

// ParseDye maps a report Dye cell to a channel. Matching is case-insensitive;
// unknown names (e.g. the size standard channel) return DyeNone.
func ParseDye(s string) Dye {
	for _, d := range Dyes {
		if strings.EqualFold(strings.TrimSpace(s), string(d)) {
			return d
		}
	}
	return DyeNone
}

// SexMarker is the amelogenin marker, which carries X/Y calls instead of repeats.
const SexMarker = "AMEL"

// Locus describes one marker.
type Locus struct {
	Name         string
	Dye          Dye
	RepeatLength int // base pairs per repeat unit
}

// Catalog is an immutable, ordered set of loci.
type Catalog struct {
	loci  []Locus
	index map[string]int
}

// NewCatalog builds a catalog from loci in column order.
func NewCatalog(loci []Locus) *Catalog {
	c := &Catalog{
		loci:  make([]Locus, len(loci)),
		index: make(map[string]int, len(loci)),
	}
	copy(c.loci, loci)
	for i, l := range c.loci {
		c.index[l.Name] = i
	}
	return c
}

// defaultLoci is the 24-locus panel in reference-table column order.
var defaultLoci = []Locus{
	{"AMEL", DyeBlue, 4},
	{"D3S1358", DyeBlue, 4},
	{"D1S1656", DyeBlue, 4},
	{"D2S441", DyeBlue, 4},
	{"D10S1248", DyeBlue, 4},
	{"D13S317", DyeBlue, 4},
	{"Penta E", DyeBlue, 5},
	{"D16S539", DyeGreen, 4},
	{"D18S51", DyeGreen, 4},
	{"D2S1338", DyeGreen, 4},
	{"CSF1PO", DyeGreen, 4},
	{"Penta D", DyeGreen, 5},
	{"TH01", DyeYellow, 4},
	{"vWA", DyeYellow, 4},
	{"D21S11", DyeYellow, 4},
	{"D7S820", DyeYellow, 4},
	{"D5S818", DyeYellow, 4},
	{"TPOX", DyeYellow, 4},
	{"DYS391", DyeYellow, 4},
	{"D8S1179", DyeRed, 4},
	{"D12S391", DyeRed, 4},
	{"D19S433", DyeRed, 4},
	{"FGA", DyeRed, 4},
	{"D22S1045", DyeRed, 3},
}

var defaultCatalog = NewCatalog(defaultLoci)

// Default returns the standard 24-locus catalog.
func Default() *Catalog {
	return defaultCatalog
}

// Loci returns the loci in column order. The slice is a copy.
func (c *Catalog) Loci() []Locus {
	out := make([]Locus, len(c.loci))
	copy(out, c.loci)
	return out
}

// Names returns the locus names in column order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.loci))
	for i, l := range c.loci {
		names[i] = l.Name
	}
	return names
}

// Len returns the number of loci.
func (c *Catalog) Len() int {
	return len(c.loci)
}

// Lookup returns the locus with the given name.
func (c *Catalog) Lookup(name string) (Locus, bool) {
	i, ok := c.index[name]
	if !ok {
		return Locus{}, false
	}
	return c.loci[i], true
}

// RepeatLength returns the repeat-unit length of the locus in base pairs,
// or 0 if the locus is unknown.
func (c *Catalog) RepeatLength(name string) int {
	l, ok := c.Lookup(name)
	if !ok {
		return 0
	}
	return l.RepeatLength
}

// Channel returns the dye channel of the locus, or DyeNone if unknown.
func (c *Catalog) Channel(name string) Dye {
	l, ok := c.Lookup(name)
	if !ok {
		return DyeNone
	}
	return l.Dye
}

// IsSexMarker reports whether name is the sex-determining marker.
func (c *Catalog) IsSexMarker(name string) bool {
	return name == SexMarker
}

// IsTetramer reports whether the locus has a four base pair repeat unit.
func (c *Catalog) IsTetramer(name string) bool {
	return c.RepeatLength(name) == 4
}
