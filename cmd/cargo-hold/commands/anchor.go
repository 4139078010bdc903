package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newAnchorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "anchor",
		Short: "Restore mtimes, rescan, and persist the manifest",
		Long: "The canonical CI entry point. Unchanged files get their recorded mtimes\n" +
			"back, changed and new files get fresh monotonic mtimes, and the successor\n" +
			"manifest is persisted with an updated last-build watermark.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Anchor(cmd.Context(), commonOptions(cmd))
		},
	}
}
