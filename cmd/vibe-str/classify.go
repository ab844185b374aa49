package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-str/internal/classify"
	"github.com/inodb/vibe-str/internal/config"
	"github.com/inodb/vibe-str/internal/duckdb"
	"github.com/inodb/vibe-str/internal/locus"
	"github.com/inodb/vibe-str/internal/profile"
	"github.com/inodb/vibe-str/internal/report"
)

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [flags] <report|dir>...",
		Short: "Classify the peaks of electropherogram reports",
		Long: `Classify every peak of one or more tab-separated reports as Par, b, db, hb,
f, pullup, Fail or X. Directories are scanned one level deep. Each report is
written back with NOC and Type columns appended, as <stem>_newoutput.tsv.`,
		Example: `  vibe-str classify -p Profiles.tsv -m Mixtures.tsv run1.txt
  vibe-str classify -p Profiles.tsv --db calls.duckdb reports/
  vibe-str classify -p Profiles.tsv -o classified/ run1.txt run2.txt
  cat run1.txt | vibe-str classify -p Profiles.tsv - > run1_newoutput.tsv`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd,
				config.KeyProfiles, config.KeyMixtures, config.KeySampleColumn,
				config.KeyWorkers, config.KeyOutputDir, config.KeyOutputSuffix,
				config.KeyDB, config.KeySkipCurrent)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			return runClassify(cmd.OutOrStdout(), cfg, args)
		},
	}

	f := cmd.Flags()
	f.StringP(config.KeyProfiles, "p", "", "Reference profile table")
	f.StringP(config.KeyMixtures, "m", "", "Mixture definition table")
	f.String(config.KeySampleColumn, report.DefaultSampleColumn, "Report column holding the sample name")
	f.IntP(config.KeyWorkers, "w", 0, "Samples classified concurrently (0 = one per CPU)")
	f.StringP(config.KeyOutputDir, "o", "", "Output directory (default: next to each report)")
	f.String(config.KeyOutputSuffix, config.DefaultOutputSuffix, "Suffix replacing the report extension")
	f.String(config.KeyDB, "", "DuckDB database to store classified calls in")
	f.Bool(config.KeySkipCurrent, false, "Skip reports already stored in --db unchanged")

	return cmd
}

func runClassify(stdout io.Writer, cfg config.Config, args []string) error {
	start := time.Now()
	if err := cfg.Validate(); err != nil {
		return err
	}

	paths, err := discoverReports(args, cfg)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no reports found in %s", strings.Join(args, ", "))
	}

	catalog := locus.Default()
	store, err := loadStore(cfg, catalog)
	if err != nil {
		return err
	}
	store.Freeze()
	logger.Info("loaded profiles",
		zap.String("profiles", cfg.Profiles),
		zap.String("mixtures", cfg.Mixtures),
		zap.Int("count", store.Len()))

	var db *duckdb.Store
	if cfg.DB != "" {
		if db, err = duckdb.Open(cfg.DB); err != nil {
			return err
		}
		defer db.Close()
	}

	c := classify.NewClassifier(catalog, store)
	c.SetLogger(logger)
	c.SetWorkers(cfg.Workers)

	for _, path := range paths {
		if err := classifyReport(stdout, cfg, c, db, path); err != nil {
			return err
		}
	}

	logger.Info("classification complete",
		zap.Int("reports", len(paths)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// loadStore reads the reference table and, when configured, adds mixtures.
func loadStore(cfg config.Config, catalog *locus.Catalog) (*profile.Store, error) {
	store, err := profile.LoadStore(cfg.Profiles, catalog, profile.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if cfg.Mixtures == "" {
		return store, nil
	}
	defs, err := profile.LoadMixtureTable(cfg.Mixtures)
	if err != nil {
		return nil, err
	}
	if err := store.AddMixes(defs); err != nil {
		return nil, err
	}
	return store, nil
}

// discoverReports expands directory arguments one level deep, skipping hidden
// entries, subdirectories and reports this tool wrote.
func discoverReports(args []string, cfg config.Config) ([]string, error) {
	var paths []string
	for _, arg := range args {
		if arg == "-" {
			paths = append(paths, arg)
			continue
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read directory: %w", err)
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || strings.HasPrefix(name, ".") || cfg.IsOutput(name) {
				continue
			}
			paths = append(paths, filepath.Join(arg, name))
		}
	}
	return paths, nil
}

func classifyReport(stdout io.Writer, cfg config.Config, c *classify.Classifier, db *duckdb.Store, path string) error {
	start := time.Now()
	log := logger.With(zap.String("file", path))

	var fp duckdb.FileFingerprint
	if db != nil && path != "-" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if fp, err = duckdb.StatFile(abs); err != nil {
			return err
		}
		if cfg.SkipCurrent {
			current, err := db.IsCurrent(fp)
			if err != nil {
				return err
			}
			if current {
				log.Info("report unchanged since last run, skipping")
				return nil
			}
		}
	}

	parser, err := report.NewParser(path, cfg.SampleColumn)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	defer parser.Close()

	peaks, err := parser.ReadAll()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := c.ClassifyAll(peaks); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	output := "-"
	if path == "-" {
		if err := report.NewWriter(stdout, parser.Header()).WriteAll(peaks); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	} else {
		output = cfg.OutputPath(path)
		if err := writeReport(output, parser.Header(), peaks); err != nil {
			return err
		}
	}

	if db != nil && path != "-" {
		if err := db.WritePeakCalls(fp, peaks); err != nil {
			return err
		}
	} else if db != nil {
		log.Warn("standard input is not stored in the database")
	}

	log.Info("classified report",
		zap.String("output", output),
		zap.Int("peaks", len(peaks)),
		zap.Any("codes", classify.CountCodes(peaks)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func writeReport(path string, header []string, peaks []*report.Peak) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := report.NewWriter(f, header).WriteAll(peaks); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
