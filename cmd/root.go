package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/lyricgraph/cmd/analyze"
	"github.com/tphakala/lyricgraph/cmd/chat"
	"github.com/tphakala/lyricgraph/cmd/generate"
	"github.com/tphakala/lyricgraph/cmd/ingest"
	"github.com/tphakala/lyricgraph/cmd/search"
	"github.com/tphakala/lyricgraph/cmd/serve"
	"github.com/tphakala/lyricgraph/cmd/setup"
	"github.com/tphakala/lyricgraph/internal/app"
	"github.com/tphakala/lyricgraph/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lyricgraph",
		Short:         "Per-artist music knowledge graph for grounded song generation",
		Version:       ctx.Build.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, ctx.Settings)

	rootCmd.AddCommand(
		analyze.Command(ctx),
		ingest.Command(ctx),
		setup.Command(ctx),
		generate.Command(ctx),
		chat.Command(ctx),
		search.Command(ctx),
		serve.Command(ctx),
	)
	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Main.DataDir, "data-dir", settings.Main.DataDir, "Root of the raw, processed and graph store directories")
	rootCmd.PersistentFlags().StringVar(&settings.Graph.Backend, "backend", settings.Graph.Backend, "Graph store backend: sqlite or mysql")
}
