package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-str/internal/config"
	"github.com/inodb/vibe-str/internal/locus"
	"github.com/inodb/vibe-str/internal/profile"
)

func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Print the loaded reference profiles",
		Long: `Load the reference table and optional mixture table, then print every
profile in reference-table layout. Mixtures appear under their group-count name.`,
		Example: `  vibe-str profiles -p Profiles.tsv
  vibe-str profiles -p Profiles.tsv -m Mixtures.tsv > combined.tsv`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, config.KeyProfiles, config.KeyMixtures)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			return runProfiles(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().StringP(config.KeyProfiles, "p", "", "Reference profile table")
	cmd.Flags().StringP(config.KeyMixtures, "m", "", "Mixture definition table")

	return cmd
}

func runProfiles(w io.Writer, cfg config.Config) error {
	if cfg.Profiles == "" {
		return config.ErrNoProfiles
	}
	store, err := loadStore(cfg, locus.Default())
	if err != nil {
		return err
	}
	return profile.WriteTable(w, store)
}
