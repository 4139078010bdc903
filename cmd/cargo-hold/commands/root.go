// Package commands implements the CLI commands for cargo-hold.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/cargo-hold/internal/adapters/config"
	"go.trai.ch/cargo-hold/internal/app"
	"go.trai.ch/cargo-hold/internal/build"
	"go.trai.ch/cargo-hold/internal/core/ports"
)

// CLI represents the command line interface for cargo-hold.
type CLI struct {
	app     Application
	logger  ports.Logger
	cfg     *config.File
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Stow(ctx context.Context, opts app.Options) error
	Salvage(ctx context.Context, opts app.Options) error
	Anchor(ctx context.Context, opts app.Options) error
	Bilge(ctx context.Context, opts app.Options) error
	Heave(ctx context.Context, opts app.Options, gcOpts app.GCOptions) error
	Voyage(ctx context.Context, opts app.Options, gcOpts app.GCOptions) error
}

// New creates a new CLI instance from the resolved components.
func New(c *app.Components) *CLI {
	return newCLI(c.App, c.Logger, c.Config)
}

func newCLI(a Application, log ports.Logger, cfg *config.File) *CLI {
	rootCmd := &cobra.Command{
		Use:           "cargo-hold",
		Short:         "Stabilize Cargo mtimes across CI cache restores",
		Long: "cargo-hold keeps a content-addressed manifest of the workspace so that\n" +
			"restored caches keep their incremental-compilation value: unchanged files\n" +
			"get their previous mtimes back, changed files get strictly newer ones.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		logger:  log,
		cfg:     cfg,
		rootCmd: rootCmd,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("target-dir", "target", "Cargo target directory")
	pf.String("metadata-path", "", "Manifest location (default <target-dir>/"+app.MetadataFilename+")")
	pf.CountP("verbose", "v", "Increase log verbosity")
	pf.BoolP("quiet", "q", false, "Log errors only")
	pf.Bool("follow-symlinks", false, "Hash and retime symlink targets that resolve inside the workspace")
	pf.Bool("recurse-submodules", false, "Extend discovery into submodule working trees")

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := applyEnvironment(cmd); err != nil {
			return err
		}
		if err := applyConfigFile(cmd, c.cfg); err != nil {
			return err
		}
		verbose, _ := cmd.Flags().GetCount("verbose")
		quiet, _ := cmd.Flags().GetBool("quiet")
		c.logger.SetVerbosity(verbose, quiet)
		return nil
	}

	rootCmd.AddCommand(c.newAnchorCmd())
	rootCmd.AddCommand(c.newSalvageCmd())
	rootCmd.AddCommand(c.newStowCmd())
	rootCmd.AddCommand(c.newBilgeCmd())
	rootCmd.AddCommand(c.newHeaveCmd())
	rootCmd.AddCommand(c.newVoyageCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// commonOptions reads the global flags shared by every operation.
func commonOptions(cmd *cobra.Command) app.Options {
	targetDir, _ := cmd.Flags().GetString("target-dir")
	metadataPath, _ := cmd.Flags().GetString("metadata-path")
	followSymlinks, _ := cmd.Flags().GetBool("follow-symlinks")
	recurseSubmodules, _ := cmd.Flags().GetBool("recurse-submodules")

	return app.Options{
		TargetDir:         targetDir,
		MetadataPath:      metadataPath,
		FollowSymlinks:    followSymlinks,
		RecurseSubmodules: recurseSubmodules,
	}
}
