package classify

import (
	"github.com/inodb/vibe-str/internal/allele"
	"github.com/inodb/vibe-str/internal/locus"
)

// parentPeak is a recorded true allele call.
type parentPeak struct {
	allele  allele.Allele
	size    float64
	hasSize bool
}

// locusState accumulates the parent calls at one locus.
type locusState struct {
	parents []parentPeak
	dye     locus.Dye
}

// sampleContext is owned by one sample's classification. Only the parent pass
// writes to it.
type sampleContext struct {
	loci   map[string]*locusState
	pullup map[locus.Dye][]float64
}

func newSampleContext() *sampleContext {
	return &sampleContext{
		loci:   make(map[string]*locusState),
		pullup: make(map[locus.Dye][]float64),
	}
}

// recordParent stores a parent call at marker, seen on dye.
func (c *sampleContext) recordParent(marker string, dye locus.Dye, p parentPeak) {
	st, ok := c.loci[marker]
	if !ok {
		st = &locusState{}
		c.loci[marker] = st
	}
	st.parents = append(st.parents, p)
	st.dye = dye

	if p.hasSize && dye != locus.DyeNone {
		c.pullup[dye] = append(c.pullup[dye], p.size)
	}
}

// parents returns the parent calls recorded at marker, in recording order.
func (c *sampleContext) parents(marker string) []parentPeak {
	st, ok := c.loci[marker]
	if !ok {
		return nil
	}
	return st.parents
}

// otherChannelSizes returns the parent sizes recorded on every channel but dye.
func (c *sampleContext) otherChannelSizes(dye locus.Dye) []float64 {
	var sizes []float64
	for _, d := range locus.Dyes {
		if d == dye {
			continue
		}
		sizes = append(sizes, c.pullup[d]...)
	}
	return sizes
}
