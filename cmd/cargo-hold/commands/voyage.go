package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newVoyageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voyage",
		Short: "Anchor, then heave",
		Long: "Runs a full anchor and garbage-collects against the watermark it just\n" +
			"persisted, so the generation captured moments ago is the one protected.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gcOpts, err := gcOptions(cmd)
			if err != nil {
				return err
			}
			return c.app.Voyage(cmd.Context(), commonOptions(cmd), gcOpts)
		},
	}
	addGCFlags(cmd)
	return cmd
}
