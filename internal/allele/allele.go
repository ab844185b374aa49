// Package allele provides the STR allele value type with repeat-unit arithmetic.
package allele

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind distinguishes numeric repeat calls from categorical codes.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

// Categorical codes reported by the genotyping software.
const (
	CodeX            = "X"
	CodeY            = "Y"
	CodeInconclusive = "INC"
	CodeOutOfBin     = "OB"
	CodeOffLadder    = "OL"
)

var categoricalCodes = map[string]bool{
	CodeX:            true,
	CodeY:            true,
	CodeInconclusive: true,
	CodeOutOfBin:     true,
	CodeOffLadder:    true,
}

// IsCategoricalCode reports whether s is one of the categorical allele codes.
func IsCategoricalCode(s string) bool {
	return categoricalCodes[s]
}

// ErrMalformed is returned for tokens that are neither a categorical code nor a
// non-negative decimal number.
var ErrMalformed = errors.New("malformed allele")

// ParseError describes a token that could not be parsed.
type ParseError struct {
	Token string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed allele %q", e.Token)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformed
}

// Allele is one called allele at one locus. The zero value is the numeric
// allele 0 with arithmetic disabled.
type Allele struct {
	kind      Kind
	code      string
	repeats   int
	basepairs int
	// bp per repeat unit; 0 disables arithmetic
	repeatLength int
}

// Parse parses an allele token. repeatLength is the locus repeat-unit length
// in base pairs; pass 0 when the locus is unknown.
//
// A numeric token is split into whole repeats and a single decimal digit holding
// the microvariant offset in base pairs: "11.2" is 11 repeats plus 2 bp.
func Parse(token string, repeatLength int) (Allele, error) {
	token = strings.TrimSpace(token)
	if IsCategoricalCode(token) {
		return Allele{kind: Categorical, code: token}, nil
	}

	f, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return Allele{}, &ParseError{Token: token}
	}

	whole, frac := math.Modf(f)
	repeats := int(whole)
	bp := int(math.Round(frac * 10))
	if bp == 10 {
		repeats++
		bp = 0
	}

	return Allele{
		kind:         Numeric,
		repeats:      repeats,
		basepairs:    bp,
		repeatLength: repeatLength,
	}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(token string, repeatLength int) Allele {
	a, err := Parse(token, repeatLength)
	if err != nil {
		panic(err)
	}
	return a
}

// Code returns the categorical code for a categorical allele.
func Code(code string) Allele {
	return Allele{kind: Categorical, code: code}
}

// Kind returns the allele variant.
func (a Allele) Kind() Kind { return a.kind }

// IsNumeric reports whether a is a repeat call.
func (a Allele) IsNumeric() bool { return a.kind == Numeric }

// IsCode reports whether a is the categorical allele with the given code.
func (a Allele) IsCode(code string) bool {
	return a.kind == Categorical && a.code == code
}

// Repeats returns the whole repeat count of a numeric allele.
func (a Allele) Repeats() int { return a.repeats }

// Basepairs returns the microvariant offset of a numeric allele.
func (a Allele) Basepairs() int { return a.basepairs }

// RepeatLength returns the base pairs per repeat unit used for arithmetic.
func (a Allele) RepeatLength() int { return a.repeatLength }

// Key returns the canonical text form, e.g. "12", "11.2" or "INC".
// Two alleles are equal exactly when their keys are equal.
func (a Allele) Key() string {
	if a.kind == Categorical {
		return a.code
	}
	if a.basepairs != 0 {
		return strconv.Itoa(a.repeats) + "." + strconv.Itoa(a.basepairs)
	}
	return strconv.Itoa(a.repeats)
}

func (a Allele) String() string {
	return a.Key()
}

// Equal reports whether a and b denote the same call. The repeat length is
// not part of identity.
func (a Allele) Equal(b Allele) bool {
	if a.kind != b.kind {
		return false
	}
	if a.kind == Categorical {
		return a.code == b.code
	}
	return a.repeats == b.repeats && a.basepairs == b.basepairs
}

// Compare orders alleles. Numeric alleles compare by value and categorical
// alleles lexicographically by code; every numeric allele sorts before every
// categorical one.
func Compare(a, b Allele) int {
	switch {
	case a.kind == Numeric && b.kind == Categorical:
		return -1
	case a.kind == Categorical && b.kind == Numeric:
		return 1
	case a.kind == Categorical:
		return strings.Compare(a.code, b.code)
	}
	if a.repeats != b.repeats {
		if a.repeats < b.repeats {
			return -1
		}
		return 1
	}
	switch {
	case a.basepairs < b.basepairs:
		return -1
	case a.basepairs > b.basepairs:
		return 1
	}
	return 0
}

// Less reports whether a sorts before b.
func (a Allele) Less(b Allele) bool {
	return Compare(a, b) < 0
}

// canShift reports whether repeat arithmetic is defined for a.
func (a Allele) canShift() bool {
	return a.kind == Numeric && a.repeatLength > 0
}

// encode returns the absolute base-pair offset of a numeric allele.
func (a Allele) encode() int {
	return a.repeats*a.repeatLength + a.basepairs
}

// decode returns the allele at total base pairs, using a's repeat length.
func (a Allele) decode(total int) Allele {
	q, r := floorDivMod(total, a.repeatLength)
	return Allele{kind: Numeric, repeats: q, basepairs: r, repeatLength: a.repeatLength}
}

// ShiftBasepairs returns a moved by n base pairs. ok is false when arithmetic is
// disabled (categorical allele or unknown repeat length).
func (a Allele) ShiftBasepairs(n int) (Allele, bool) {
	if !a.canShift() {
		return Allele{}, false
	}
	return a.decode(a.encode() + n), true
}

// ShiftRepeats returns a moved by k whole repeat units.
func (a Allele) ShiftRepeats(k int) (Allele, bool) {
	return a.ShiftBasepairs(k * a.repeatLength)
}

// Add returns a + b in base pairs, decomposed using a's repeat length.
// b's own repeat length is used to encode b.
func (a Allele) Add(b Allele) (Allele, bool) {
	if !a.canShift() || !b.canShift() {
		return Allele{}, false
	}
	return a.decode(a.encode() + b.encode()), true
}

// Sub returns a - b in base pairs, decomposed using a's repeat length.
func (a Allele) Sub(b Allele) (Allele, bool) {
	if !a.canShift() || !b.canShift() {
		return Allele{}, false
	}
	return a.decode(a.encode() - b.encode()), true
}

// floorDivMod returns the floor quotient and non-negative remainder of a / b.
func floorDivMod(a, b int) (int, int) {
	q, r := a/b, a%b
	if r < 0 {
		q--
		r += b
	}
	return q, r
}
