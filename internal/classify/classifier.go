// Package classify labels STR electropherogram peaks as parent alleles, stutter
// artifacts or pullup by comparing them with reference genotypes.
package classify

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-str/internal/allele"
	"github.com/inodb/vibe-str/internal/locus"
	"github.com/inodb/vibe-str/internal/profile"
	"github.com/inodb/vibe-str/internal/report"
)

// Classification codes
const (
	CodeParent       = "Par"
	CodeUnclassified = report.Unclassified
	CodeFail         = "Fail"
	CodeBack         = "b"
	CodeDoubleBack   = "db"
	CodeHalfBack     = "hb"
	CodeForward      = "f"
	CodePullup       = "pullup"
)

// sizeTolerance is the half-width in bp of every size window.
const sizeTolerance = 0.5

// qualityFailures are sample comments that suppress evaluation of a peak.
var qualityFailures = map[string]bool{
	"ILS Failure":      true,
	"ILS Fails":        true,
	"Misplating Fails": true,
	"Size Call Failed": true,
}

// ErrUnknownLocus is returned for an evaluated peak whose marker is not in
// the catalog.
var ErrUnknownLocus = errors.New("unknown locus")

// SampleError is a fatal classification error for one sample.
type SampleError struct {
	Sample string
	Marker string
	Line   int
	Err    error
}

func (e *SampleError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sample %q", e.Sample)
	if e.Marker != "" {
		fmt.Fprintf(&b, " marker %q", e.Marker)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *SampleError) Unwrap() error {
	return e.Err
}

// Classifier marks parent, stutter and pullup peaks.
type Classifier struct {
	catalog *locus.Catalog
	store   *profile.Store
	workers int
	logger  *zap.Logger
}

// NewClassifier creates a classifier resolving expected genotypes from store.
func NewClassifier(catalog *locus.Catalog, store *profile.Store) *Classifier {
	return &Classifier{
		catalog: catalog,
		store:   store,
		workers: runtime.NumCPU(),
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and debug messages.
func (c *Classifier) SetLogger(l *zap.Logger) {
	c.logger = l
}

// SetWorkers sets the number of samples classified concurrently by
// ClassifyAll. Values below 1 select runtime.NumCPU().
func (c *Classifier) SetWorkers(n int) {
	if n < 1 {
		n = runtime.NumCPU()
	}
	c.workers = n
}

// ClassifySample classifies the peaks of one sample in place. All peaks must
// share the same sample identifier. The parent, stutter and pullup passes run
// in that order; each reads what the previous one recorded.
func (c *Classifier) ClassifySample(peaks []*report.Peak) error {
	if len(peaks) == 0 {
		return nil
	}
	name := peaks[0].Sample

	id, err := DecodeSampleID(name)
	if err != nil {
		return &SampleError{Sample: name, Line: peaks[0].Line, Err: err}
	}

	ctx := newSampleContext()
	parsed, err := c.markParents(id, peaks, ctx)
	if err != nil {
		return err
	}
	c.markStutter(peaks, parsed, ctx)
	c.markPullup(peaks, ctx)

	c.logger.Debug("classified sample",
		zap.String("sample", name),
		zap.String("kind", id.Kind.String()),
		zap.Int("peaks", len(peaks)))
	return nil
}

// markParents runs the parent pass. It returns the parsed allele of every
// evaluated peak, indexed like peaks.
func (c *Classifier) markParents(id SampleID, peaks []*report.Peak, ctx *sampleContext) ([]*allele.Allele, error) {
	parsed := make([]*allele.Allele, len(peaks))
	var expected *profile.Profile

	for i, pk := range peaks {
		pk.NOC = id.NOC

		if pk.Marker == "" || !id.Evaluated() || qualityFailures[pk.Comment] {
			if strings.Contains(pk.Comment, "Fail") {
				pk.SetType(CodeFail)
			} else {
				pk.SetType(CodeUnclassified)
			}
			continue
		}

		if expected == nil {
			p, err := c.store.Get(id.ProfileName)
			if err != nil {
				return nil, &SampleError{Sample: id.Name, Marker: pk.Marker, Line: pk.Line, Err: err}
			}
			expected = p
		}

		if _, ok := expected.Alleles(pk.Marker); !ok {
			return nil, &SampleError{Sample: id.Name, Marker: pk.Marker, Line: pk.Line, Err: ErrUnknownLocus}
		}

		a, err := allele.Parse(pk.Allele, c.catalog.RepeatLength(pk.Marker))
		if err != nil {
			return nil, &SampleError{Sample: id.Name, Marker: pk.Marker, Line: pk.Line, Err: err}
		}
		parsed[i] = &a

		if !expected.Has(pk.Marker, a) {
			pk.SetType(CodeUnclassified)
			continue
		}

		pk.SetType(CodeParent)
		ctx.recordParent(pk.Marker, c.peakDye(pk), parentPeak{
			allele:  a,
			size:    pk.Size,
			hasSize: pk.HasSize,
		})
	}
	return parsed, nil
}

// peakDye returns the channel a peak was detected on. A missing or unknown Dye
// cell falls back to the catalog channel of the marker.
func (c *Classifier) peakDye(pk *report.Peak) locus.Dye {
	want := c.catalog.Channel(pk.Marker)
	dye := locus.ParseDye(pk.Dye)
	if dye == locus.DyeNone {
		return want
	}
	if want != locus.DyeNone && dye != want {
		c.logger.Warn("peak dye differs from marker channel",
			zap.String("sample", pk.Sample),
			zap.String("marker", pk.Marker),
			zap.String("dye", pk.Dye),
			zap.String("expected", string(want)),
			zap.Int("line", pk.Line))
	}
	return dye
}

// hypothesis is one stutter position relative to a parent allele.
type hypothesis struct {
	code    string
	repeats float64
	// only tested at loci with a four base pair repeat
	tetramerOnly bool
}

// stutterHypotheses in priority order. The first satisfied hypothesis for a
// parent wins.
var stutterHypotheses = []hypothesis{
	{code: CodeBack, repeats: -1},
	{code: CodeDoubleBack, repeats: -2},
	{code: CodeHalfBack, repeats: -0.5, tetramerOnly: true},
	{code: CodeForward, repeats: 1},
}

// window is a size range around a parent peak.
type window struct {
	code   string
	offset float64 // bp from the parent size
}

// stutterWindows returns the hypotheses that apply at a locus, as bp offsets
// from the parent.
func (c *Classifier) stutterWindows(marker string) []window {
	return windowsFor(c.catalog.RepeatLength(marker), c.catalog.IsTetramer(marker))
}

func windowsFor(repeatLength int, tetramer bool) []window {
	if repeatLength <= 0 {
		return nil
	}
	var out []window
	for _, h := range stutterHypotheses {
		if h.tetramerOnly && !tetramer {
			continue
		}
		out = append(out, window{code: h.code, offset: h.repeats * float64(repeatLength)})
	}
	return out
}

// withinTolerance reports whether size lies within ±0.5 bp of center.
func withinTolerance(size, center float64) bool {
	return center-sizeTolerance <= size && size <= center+sizeTolerance
}

// markStutter runs the stutter pass over peaks the parent pass left
// unclassified.
func (c *Classifier) markStutter(peaks []*report.Peak, parsed []*allele.Allele, ctx *sampleContext) {
	for i, pk := range peaks {
		if pk.Type != CodeUnclassified || parsed[i] == nil {
			continue
		}
		if pk.Marker == "" || c.catalog.IsSexMarker(pk.Marker) {
			continue
		}
		a := *parsed[i]
		if a.IsCode(allele.CodeOffLadder) {
			continue
		}

		windows := c.stutterWindows(pk.Marker)
		for _, parent := range ctx.parents(pk.Marker) {
			if code, ok := matchStutter(parent, pk, a, windows); ok {
				pk.Annotate(code)
			}
		}
	}
}

// matchStutter tests the windows in priority order against one parent. A
// window matches on size, or when the peak allele is exactly the window's
// offset away from the parent allele.
func matchStutter(parent parentPeak, pk *report.Peak, a allele.Allele, windows []window) (string, bool) {
	for _, w := range windows {
		if parent.hasSize && pk.HasSize && withinTolerance(pk.Size, parent.size+w.offset) {
			return w.code, true
		}
		if shifted, ok := parent.allele.ShiftBasepairs(int(math.Round(w.offset))); ok && shifted.Equal(a) {
			return w.code, true
		}
	}
	return "", false
}

// markPullup runs the pullup pass: every peak within tolerance of a parent
// peak on another channel of the same sample gets one pullup annotation per
// such parent.
func (c *Classifier) markPullup(peaks []*report.Peak, ctx *sampleContext) {
	for _, pk := range peaks {
		if !pk.HasSize {
			continue
		}
		dye := locus.ParseDye(pk.Dye)
		if dye == locus.DyeNone {
			dye = c.catalog.Channel(pk.Marker)
		}
		if dye == locus.DyeNone {
			continue
		}
		for _, size := range ctx.otherChannelSizes(dye) {
			if withinTolerance(size, pk.Size) {
				pk.Annotate(CodePullup)
			}
		}
	}
}
