package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newBilgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bilge",
		Short: "Delete the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Bilge(cmd.Context(), commonOptions(cmd))
		},
	}
}
