package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/cargo-hold/internal/app"
	"go.trai.ch/cargo-hold/internal/core/domain"
)

func (c *CLI) newHeaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heave",
		Short: "Garbage-collect the target directory and cargo home",
		Long: "Evicts whole crate units oldest-first until the target directory fits the\n" +
			"size cap, then removes units older than the age threshold. Crate units from\n" +
			"the most recent recorded build are kept only while that build is younger\n" +
			"than a nonzero age threshold; incremental/ is removed regardless. Without --max-target-size\n" +
			"the cap is chosen adaptively from the GC history recorded in the manifest.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gcOpts, err := gcOptions(cmd)
			if err != nil {
				return err
			}
			return c.app.Heave(cmd.Context(), commonOptions(cmd), gcOpts)
		},
	}
	addGCFlags(cmd)
	return cmd
}

// addGCFlags registers the flags shared by heave and voyage.
func addGCFlags(cmd *cobra.Command) {
	cmd.Flags().String("max-target-size", "", "Maximum total size of eviction-eligible artifacts (e.g. 5G, 500M, 1024K, raw bytes; default adaptive)")
	cmd.Flags().Uint32("age-threshold-days", 7, "Evict crate units older than this many days")
	cmd.Flags().StringSlice("preserve-cargo-binaries", nil, "Extra binary name prefixes kept in the cargo bin directory")
	cmd.Flags().Bool("dry-run", false, "Print the deletion plan without removing anything")
	cmd.Flags().Bool("debug", false, "Log per-profile eviction details")
}

// gcOptions reads and validates the GC flags.
func gcOptions(cmd *cobra.Command) (app.GCOptions, error) {
	maxSize, _ := cmd.Flags().GetString("max-target-size")
	ageDays, _ := cmd.Flags().GetUint32("age-threshold-days")
	preserve, _ := cmd.Flags().GetStringSlice("preserve-cargo-binaries")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	debug, _ := cmd.Flags().GetBool("debug")

	opts := app.GCOptions{
		AgeThresholdDays: ageDays,
		PreserveBinaries: preserve,
		DryRun:           dryRun,
		Debug:            debug,
	}

	if maxSize != "" {
		bytes, err := domain.ParseSize(maxSize)
		if err != nil {
			return app.GCOptions{}, err
		}
		opts.MaxTargetSize = &bytes
	}

	return opts, nil
}
