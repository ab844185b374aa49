package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-str/internal/config"
	"github.com/inodb/vibe-str/internal/locus"
)

const testReport = "Sample File\tSample Name\tPanel\tMarker\tDye\tAllele\tSize\tHeight\tSample Comments\n" +
	"A01.fsa\t2019-01_S1_01\tGF\tCSF1PO\tGreen\t12\t200.00\t1500\t\n" +
	"A01.fsa\t2019-01_S1_01\tGF\tCSF1PO\tGreen\t11\t196.03\t120\t\n" +
	"A01.fsa\t2019-01_S1_01\tGF\tAMEL\tBlue\tX\t98.50\t2000\t\n" +
	"A02.fsa\t2019-01_Ladder_02\tGF\t\tOrange\t\t\t\tILS Failure\n"

// writeProfiles writes a reference table with profiles S1 and S2; every
// locus is 12 except AMEL (X for S1, X,Y for S2).
func writeProfiles(t *testing.T, dir string) string {
	t.Helper()
	names := locus.Default().Names()

	var b strings.Builder
	b.WriteString("Sample Name\t" + strings.Join(names, "\t") + "\n")
	for _, sample := range []string{"S1", "S2"} {
		row := []string{sample}
		for _, n := range names {
			switch {
			case n == locus.SexMarker && sample == "S1":
				row = append(row, "X")
			case n == locus.SexMarker:
				row = append(row, "X,Y")
			default:
				row = append(row, "12")
			}
		}
		b.WriteString(strings.Join(row, "\t") + "\n")
	}

	path := filepath.Join(dir, "Profiles.tsv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

// testConfig writes the profile table outside the report directory.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Profiles:     writeProfiles(t, t.TempDir()),
		SampleColumn: "Sample Name",
		Workers:      2,
		OutputSuffix: config.DefaultOutputSuffix,
	}
}

func readTypes(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	header := strings.Split(lines[0], "\t")
	require.Equal(t, "Type", header[len(header)-1])
	require.Equal(t, "NOC", header[len(header)-2])

	var types []string
	for _, line := range lines[1:] {
		fields := strings.Split(line, "\t")
		types = append(types, fields[len(fields)-1])
	}
	return types
}

func TestDiscoverReports(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"run1.txt", "run2.txt", ".hidden.txt", "run1_newoutput.tsv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	single := filepath.Join(t.TempDir(), "single.txt")
	require.NoError(t, os.WriteFile(single, []byte("x"), 0644))

	cfg := config.Config{OutputSuffix: config.DefaultOutputSuffix}
	paths, err := discoverReports([]string{dir, single, "-"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "run1.txt"),
		filepath.Join(dir, "run2.txt"),
		single,
		"-",
	}, paths)

	_, err = discoverReports([]string{filepath.Join(dir, "missing")}, cfg)
	assert.Error(t, err)
}

func TestRunClassify(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	reportPath := filepath.Join(dir, "run1.txt")
	require.NoError(t, os.WriteFile(reportPath, []byte(testReport), 0644))

	require.NoError(t, runClassify(&bytes.Buffer{}, cfg, []string{reportPath}))

	types := readTypes(t, filepath.Join(dir, "run1_newoutput.tsv"))
	assert.Equal(t, []string{"Par", "b", "Par", "Fail"}, types)
}

func TestRunClassify_OutputDirAndDB(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.DB = filepath.Join(dir, "calls.duckdb")
	reportPath := filepath.Join(dir, "run1.txt")
	require.NoError(t, os.WriteFile(reportPath, []byte(testReport), 0644))

	require.NoError(t, runClassify(&bytes.Buffer{}, cfg, []string{dir}))
	_, err := os.Stat(filepath.Join(cfg.OutputDir, "run1_newoutput.tsv"))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runSummary(&out, cfg, "", ""))
	assert.Contains(t, out.String(), "run1.txt\t4\t")
	assert.Contains(t, out.String(), "Par\t2\n")
	assert.Contains(t, out.String(), "b\t1\n")
	assert.Contains(t, out.String(), "Fail\t1\n")

	out.Reset()
	require.NoError(t, runSummary(&out, cfg, "", "2019-01_S1_01"))
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "File\tLine\tMarker"))
	assert.True(t, strings.HasSuffix(lines[2], "\t3\tCSF1PO\tGreen\t11\t196.03\t120\t1\tb"))
	assert.Error(t, runSummary(&out, cfg, "", "2019-01_S7_01"))

	cfg.SkipCurrent = true
	require.NoError(t, runClassify(&bytes.Buffer{}, cfg, []string{reportPath}))
}

func TestRunClassify_Stdin(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)

	stdin, err := os.CreateTemp(dir, "stdin")
	require.NoError(t, err)
	_, err = stdin.WriteString(testReport)
	require.NoError(t, err)
	_, err = stdin.Seek(0, 0)
	require.NoError(t, err)

	orig := os.Stdin
	os.Stdin = stdin
	t.Cleanup(func() { os.Stdin = orig; stdin.Close() })

	var out bytes.Buffer
	require.NoError(t, runClassify(&out, cfg, []string{"-"}))
	assert.Contains(t, out.String(), "\tNOC\tType\n")
	assert.Contains(t, out.String(), "\t11\t196.03\t120\t\t1\tb\n")
}

func TestRunClassify_Errors(t *testing.T) {
	dir := t.TempDir()

	assert.ErrorIs(t, runClassify(&bytes.Buffer{}, config.Config{}, []string{dir}), config.ErrNoProfiles)

	cfg := testConfig(t)
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0755))
	assert.Error(t, runClassify(&bytes.Buffer{}, cfg, []string{empty}))

	unknown := filepath.Join(dir, "unknown.txt")
	require.NoError(t, os.WriteFile(unknown, []byte(
		"Sample Name\tMarker\tDye\tAllele\tSize\tHeight\tSample Comments\n"+
			"2019-01_S9_01\tFGA\tRed\t22\t250.1\t900\t\n"), 0644))
	err := runClassify(&bytes.Buffer{}, cfg, []string{unknown})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S9")
}

func TestRunProfiles(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Mixtures = filepath.Join(dir, "Mixtures.tsv")
	require.NoError(t, os.WriteFile(cfg.Mixtures, []byte("Group\tNOC\tContributors\nMixA\t2\tS1\tS2\n"), 0644))

	var out bytes.Buffer
	require.NoError(t, runProfiles(&out, cfg))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Sample Name\t"))
	assert.True(t, strings.HasPrefix(lines[1], "S1\t"))
	assert.True(t, strings.HasPrefix(lines[3], "MixA-2\t"))
	assert.Contains(t, lines[3], "\tX,Y\t")

	assert.ErrorIs(t, runProfiles(&out, config.Config{}), config.ErrNoProfiles)
}

func TestConfigValue(t *testing.T) {
	assert.Equal(t, true, configValue("yes"))
	assert.Equal(t, false, configValue("off"))
	assert.Equal(t, 4, configValue("4"))
	assert.Equal(t, "Profiles.tsv", configValue("Profiles.tsv"))
}

func TestRunConfigSet(t *testing.T) {
	t.Cleanup(viper.Reset)
	path := filepath.Join(t.TempDir(), "vibe-str.yaml")
	viper.SetConfigFile(path)

	var out bytes.Buffer
	err := runConfigSet(&out, "annotations.alphamissense", "true")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, runConfigSet(&out, config.KeyWorkers, "4"))
	assert.Contains(t, out.String(), "Set workers = 4 in "+path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "workers: 4")

	out.Reset()
	require.NoError(t, runConfigGet(&out, config.KeyWorkers))
	assert.Equal(t, "4\n", out.String())

	p, err := configPath()
	require.NoError(t, err)
	assert.Equal(t, path, p)
}

func TestVersionCommand(t *testing.T) {
	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "vibe-str version dev")
}
