package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-str/internal/config"
	"github.com/inodb/vibe-str/internal/duckdb"
)

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary [report]",
		Short: "Summarize classified calls stored in a DuckDB database",
		Long: `List the reports stored by "classify --db" and count classification codes,
for every report or for the one given. With --sample, list the stored calls of
one sample instead.`,
		Example: `  vibe-str summary --db calls.duckdb
  vibe-str summary --db calls.duckdb reports/run1.txt
  vibe-str summary --db calls.duckdb --sample 2019-01_S1_01`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, config.KeyDB)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			file := ""
			if len(args) == 1 {
				if file, err = filepath.Abs(args[0]); err != nil {
					return err
				}
			}
			sample, _ := cmd.Flags().GetString("sample")
			return runSummary(cmd.OutOrStdout(), cfg, file, sample)
		},
	}

	cmd.Flags().String(config.KeyDB, "", "DuckDB database written by classify --db")
	cmd.Flags().String("sample", "", "List the stored calls of this sample")

	return cmd
}

func runSummary(w io.Writer, cfg config.Config, file, sample string) error {
	if cfg.DB == "" {
		return errors.New("no database given (--db or db in ~/.vibe-str.yaml)")
	}
	db, err := duckdb.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if sample != "" {
		return writeSampleCalls(w, db, sample)
	}

	files, err := db.Files()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "File\tPeaks\tClassified")
	for _, f := range files {
		if file != "" && f.Path != file {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", f.Path, f.Peaks, f.ClassifiedAt.Format(time.RFC3339))
	}

	counts, err := db.CountByCode(file)
	if err != nil {
		return err
	}
	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Type\tCount")
	for _, code := range codes {
		fmt.Fprintf(w, "%s\t%d\n", code, counts[code])
	}
	return nil
}

func writeSampleCalls(w io.Writer, db *duckdb.Store, sample string) error {
	calls, err := db.CallsForSample(sample)
	if err != nil {
		return err
	}
	if len(calls) == 0 {
		return fmt.Errorf("no stored calls for sample %q", sample)
	}

	fmt.Fprintln(w, "File\tLine\tMarker\tDye\tAllele\tSize\tHeight\tNOC\tType")
	for _, c := range calls {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			c.File, c.Line, c.Marker, c.Dye, c.Allele,
			formatOptional(c.Size), formatOptional(c.Height), c.NOC, c.Type)
	}
	return nil
}

func formatOptional(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}
