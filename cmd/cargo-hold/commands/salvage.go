package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newSalvageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "salvage",
		Short: "Restore mtimes from the manifest without persisting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Salvage(cmd.Context(), commonOptions(cmd))
		},
	}
}
