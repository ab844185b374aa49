package classify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SampleKind classifies a sample identifier.
type SampleKind int

const (
	KindReference SampleKind = iota
	KindMixture
	KindPositiveControl
	KindNegativeControl
	KindLadder
)

func (k SampleKind) String() string {
	switch k {
	case KindReference:
		return "reference"
	case KindMixture:
		return "mixture"
	case KindPositiveControl:
		return "positive-control"
	case KindNegativeControl:
		return "negative-control"
	case KindLadder:
		return "ladder"
	}
	return "unknown"
}

// Profile names used for control samples.
const (
	PositiveControlProfile = "Amp Pos"
	NegativeControlProfile = "Amp Neg"
	LadderProfile          = "Ladder"
)

// ErrSampleID is returned for sample identifiers that cannot be decoded.
var ErrSampleID = errors.New("undecodable sample identifier")

// SampleID is a decoded sample identifier.
type SampleID struct {
	Name        string
	Kind        SampleKind
	ProfileName string
	NOC         int
}

// Evaluated reports whether peaks of the sample are compared with a profile.
// Ladders and negative controls pass through unevaluated.
func (s SampleID) Evaluated() bool {
	return s.Kind != KindLadder && s.Kind != KindNegativeControl
}

// DecodeSampleID resolves which reference profile applies to a sample.
// Identifiers are underscore-separated, e.g. "Run1_S12_01" for reference S12 or
// "Run1_MixA_S1-S2_01" for the two-person mixture MixA-2.
func DecodeSampleID(name string) (SampleID, error) {
	id := SampleID{Name: name, NOC: 1}
	parts := strings.Split(name, "_")

	switch {
	case len(parts) > 1 && strings.Contains(parts[1], "Mix"):
		if len(parts) < 3 {
			return id, fmt.Errorf("%w: %q has no contributor field", ErrSampleID, name)
		}
		contributors := parts[2]
		if !strings.Contains(contributors, "-") {
			if len(parts) < 4 {
				return id, fmt.Errorf("%w: %q has no contributor field", ErrSampleID, name)
			}
			contributors = parts[3]
		}
		id.Kind = KindMixture
		id.NOC = len(strings.Split(contributors, "-"))
		id.ProfileName = parts[1] + "-" + strconv.Itoa(id.NOC)
	case strings.Contains(name, "Amp_Pos"), strings.Contains(name, "Positive"):
		id.Kind = KindPositiveControl
		id.ProfileName = PositiveControlProfile
	case strings.Contains(name, "Amp_Neg"):
		id.Kind = KindNegativeControl
		id.ProfileName = NegativeControlProfile
	case strings.Contains(name, "Ladder"):
		id.Kind = KindLadder
		id.ProfileName = LadderProfile
	default:
		if len(parts) < 2 || parts[1] == "" {
			return id, fmt.Errorf("%w: %q has no reference field", ErrSampleID, name)
		}
		id.Kind = KindReference
		id.ProfileName = parts[1]
	}
	return id, nil
}
