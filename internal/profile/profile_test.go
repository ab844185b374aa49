package profile

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/vibe-str/internal/allele"
	"github.com/inodb/vibe-str/internal/locus"
)

// row builds a reference row with every locus set to def, then applies
// per-locus overrides.
func row(name, def string, overrides map[string]string) []string {
	c := locus.Default()
	r := []string{name}
	for _, n := range c.Names() {
		cell := def
		if v, ok := overrides[n]; ok {
			cell = v
		}
		r = append(r, cell)
	}
	return r
}

func mustProfile(t *testing.T, rows ...[]string) *Profile {
	t.Helper()
	p, err := FromRows(rows, locus.Default())
	require.NoError(t, err)
	return p
}

func keys(t *testing.T, p *Profile, name string) string {
	t.Helper()
	set, ok := p.Alleles(name)
	require.True(t, ok, "locus %s", name)
	return allele.Join(set)
}

func TestFromRows_Single(t *testing.T) {
	p := mustProfile(t, row("S1", "12", map[string]string{
		"AMEL":    "X,Y",
		"CSF1PO":  "12,10,12.0",
		"D21S11":  "30.2,29",
		"Penta D": "INC",
	}))

	assert.Equal(t, "S1", p.Name)
	assert.Equal(t, "X,Y", keys(t, p, "AMEL"))
	assert.Equal(t, "10,12", keys(t, p, "CSF1PO"))
	assert.Equal(t, "29,30.2", keys(t, p, "D21S11"))
	assert.Equal(t, "INC", keys(t, p, "Penta D"))

	set, _ := p.Alleles("Penta E")
	assert.Equal(t, 5, set[0].RepeatLength())
	set, _ = p.Alleles("D22S1045")
	assert.Equal(t, 3, set[0].RepeatLength())

	assert.True(t, p.Has("CSF1PO", allele.MustParse("10.0", 0)))
	assert.False(t, p.Has("CSF1PO", allele.MustParse("11", 0)))

	_, ok := p.Alleles("Nope")
	assert.False(t, ok)
}

func TestFromRows_MultipleRowsJoinColumnwise(t *testing.T) {
	p := mustProfile(t,
		row("A", "12", map[string]string{"TPOX": "8,11"}),
		row("B", "13", map[string]string{"TPOX": "8"}),
	)
	assert.Equal(t, "A,B", p.Name)
	assert.Equal(t, "12,13", keys(t, p, "FGA"))
	assert.Equal(t, "8,11", keys(t, p, "TPOX"))
}

func TestFromRows_Errors(t *testing.T) {
	_, err := FromRows(nil, locus.Default())
	assert.Error(t, err)

	_, err = FromRows([][]string{{"short", "12"}}, locus.Default())
	assert.Error(t, err)

	_, err = FromRows([][]string{row("S1", "12", map[string]string{"vWA": "fourteen"})}, locus.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, allele.ErrMalformed))
	assert.Contains(t, err.Error(), "vWA")
}

func TestCombineWith_SuppressesInconclusive(t *testing.T) {
	a := mustProfile(t, row("A", "12", map[string]string{"TH01": "INC"}))
	b := mustProfile(t, row("B", "12", map[string]string{"TH01": "12"}))

	a.CombineWith(b)
	assert.Equal(t, "12", keys(t, a, "TH01"))

	// INC alone survives
	c := mustProfile(t, row("C", "INC", nil))
	d := mustProfile(t, row("D", "INC", nil))
	c.CombineWith(d)
	assert.Equal(t, "INC", keys(t, c, "FGA"))
}

func TestCombineWith_Idempotent(t *testing.T) {
	p := mustProfile(t, row("P", "12", map[string]string{"FGA": "21,24.2", "AMEL": "X,Y"}))
	before := strings.Join(p.Row(), "\t")

	p.CombineWith(p.Clone("copy"))
	assert.Equal(t, before, strings.Join(p.Row(), "\t"))
}

func TestCombineWith_OrderIndependent(t *testing.T) {
	a := mustProfile(t, row("A", "12", map[string]string{"FGA": "21,22"}))
	b := mustProfile(t, row("B", "13", map[string]string{"FGA": "20,22"}))

	ab := a.Clone("ab")
	ab.CombineWith(b)
	ba := b.Clone("ab")
	ba.CombineWith(a)

	assert.Equal(t, ab.Row(), ba.Row())
	assert.Equal(t, "20,21,22", keys(t, ab, "FGA"))
	assert.Equal(t, "12,13", keys(t, ab, "CSF1PO"))
}

func TestStore_GetAndNotFound(t *testing.T) {
	s := NewStore(locus.Default())
	require.NoError(t, s.Add(mustProfile(t, row("S1", "12", nil))))

	p, err := s.Get("S1")
	require.NoError(t, err)
	assert.Equal(t, "S1", p.Name)

	_, err = s.Get("s1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "s1", nf.Name)
}

func TestStore_DuplicateLastWriteWinsWithWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := NewStore(locus.Default())
	s.SetLogger(zap.New(core))

	require.NoError(t, s.Add(mustProfile(t, row("S1", "12", nil))))
	require.NoError(t, s.Add(mustProfile(t, row("S1", "13", nil))))

	p, err := s.Get("S1")
	require.NoError(t, err)
	assert.Equal(t, "13", keys(t, p, "FGA"))
	assert.Equal(t, 1, s.Len())
	assert.Len(t, s.Profiles(), 2)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "S1", logs.All()[0].ContextMap()["sample"])
}

func TestStore_AddMixes(t *testing.T) {
	s := NewStore(locus.Default())
	require.NoError(t, s.Add(mustProfile(t, row("A", "12", map[string]string{"vWA": "INC"}))))
	require.NoError(t, s.Add(mustProfile(t, row("B", "13", map[string]string{"vWA": "17"}))))
	require.NoError(t, s.Add(mustProfile(t, row("C", "14", nil))))

	err := s.AddMixes([]MixDefinition{
		{Group: "Mix1", Count: 2, Contributors: []string{"A", "B"}},
		{Group: "Mix2", Count: 3, Contributors: []string{"A", "B", "C"}},
	})
	require.NoError(t, err)

	m, err := s.Get("Mix1-2")
	require.NoError(t, err)
	assert.Equal(t, "12,13", keys(t, m, "FGA"))
	assert.Equal(t, "17", keys(t, m, "vWA"))

	m3, err := s.Get("Mix2-3")
	require.NoError(t, err)
	assert.Equal(t, "12,13,14", keys(t, m3, "FGA"))

	// contributors untouched
	a, err := s.Get("A")
	require.NoError(t, err)
	assert.Equal(t, "A", a.Name)
	assert.Equal(t, "12", keys(t, a, "FGA"))
	assert.Equal(t, "INC", keys(t, a, "vWA"))
}

func TestStore_AddMixesMissingContributor(t *testing.T) {
	s := NewStore(locus.Default())
	require.NoError(t, s.Add(mustProfile(t, row("A", "12", nil))))

	err := s.AddMixes([]MixDefinition{{Group: "Mix1", Count: 2, Contributors: []string{"A", "Z"}}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "Mix1-2")

	_, err = s.Get("Mix1-2")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.AddMixes([]MixDefinition{{Group: "Mix1", Count: 3, Contributors: []string{"A"}}})
	assert.Error(t, err)
}

func TestStore_Freeze(t *testing.T) {
	s := NewStore(locus.Default())
	s.Freeze()
	assert.True(t, s.Frozen())
	assert.ErrorIs(t, s.Add(mustProfile(t, row("A", "12", nil))), ErrFrozen)
	assert.ErrorIs(t, s.AddMixes(nil), ErrFrozen)
}

func TestReadReferenceTable(t *testing.T) {
	c := locus.Default()
	names := c.Names()

	// reverse the locus columns to check header-based lookup
	header := []string{"Sample Name"}
	for i := len(names) - 1; i >= 0; i-- {
		header = append(header, names[i])
	}
	var buf strings.Builder
	buf.WriteString(strings.Join(header, "\t") + "\r\n")

	cells := []string{"S1"}
	for i := len(names) - 1; i >= 0; i-- {
		cell := "12"
		if names[i] == "D22S1045" {
			cell = "15,16"
		}
		cells = append(cells, cell)
	}
	buf.WriteString(strings.Join(cells, "\t") + "\r\n\n")

	profiles, err := ReadReferenceTable(strings.NewReader(buf.String()), c)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "S1", profiles[0].Name)
	assert.Equal(t, "15,16", keys(t, profiles[0], "D22S1045"))
	assert.Equal(t, "12", keys(t, profiles[0], "AMEL"))
}

func TestReadReferenceTable_Errors(t *testing.T) {
	c := locus.Default()

	_, err := ReadReferenceTable(strings.NewReader("Sample Name\tAMEL\n"), c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))

	_, err = ReadReferenceTable(strings.NewReader(""), c)
	assert.Error(t, err)

	header := strings.Join(append([]string{"Sample Name"}, c.Names()...), "\t")
	bad := strings.Join(row("S1", "12", map[string]string{"FGA": "??"}), "\t")
	_, err = ReadReferenceTable(strings.NewReader(header+"\n"+bad+"\n"), c)
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
	assert.True(t, errors.Is(err, allele.ErrMalformed))
}

func TestReadMixtureTable(t *testing.T) {
	in := "Group\tCount\tNames\n" +
		"Mix1\t2\tA\tB\t\n" +
		"Mix2\t1\tC\tD\n"
	defs, err := ReadMixtureTable(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "Mix1-2", defs[0].Name())
	assert.Equal(t, []string{"A", "B"}, defs[0].Contributors)
	assert.Equal(t, []string{"C"}, defs[1].Contributors)

	_, err = ReadMixtureTable(strings.NewReader("h\nMix1\ttwo\tA\n"))
	assert.Error(t, err)

	_, err = ReadMixtureTable(strings.NewReader("h\nMix1\t3\tA\tB\n"))
	assert.Error(t, err)
}

func TestWriteTable(t *testing.T) {
	s := NewStore(locus.Default())
	require.NoError(t, s.Add(mustProfile(t, row("A", "12", map[string]string{"FGA": "22,21"}))))
	require.NoError(t, s.Add(mustProfile(t, row("B", "13", nil))))
	require.NoError(t, s.AddMixes([]MixDefinition{{Group: "Mix", Count: 2, Contributors: []string{"A", "B"}}}))

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, s))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Sample Name\tAMEL\t"))
	assert.Contains(t, lines[1], "\t21,22\t")
	assert.True(t, strings.HasPrefix(lines[3], "Mix-2\t12,13\t"))
}
