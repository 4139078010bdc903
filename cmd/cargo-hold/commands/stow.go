package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newStowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stow",
		Short: "Scan the workspace and persist a baseline manifest",
		Long: "Records the current content hashes and on-disk mtimes of every tracked\n" +
			"file without modifying the filesystem.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Stow(cmd.Context(), commonOptions(cmd))
		},
	}
}
