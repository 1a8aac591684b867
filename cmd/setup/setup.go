package setup

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/lyricgraph/internal/app"
)

// Command creates the setup command that runs the whole one-time pipeline.
func Command(ctx *app.Context) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "setup [artist...]",
		Short: "Analyze, ingest and embed artists",
		Long:  "Run analysis, graph ingestion, embeddings and vector index creation for each artist. A rerun replaces the artist's graph.",
		RunE: func(cmd *cobra.Command, args []string) error {
			artists := args
			if all {
				artists = ctx.Settings.ArtistSlugs()
			}
			if len(artists) == 0 {
				return fmt.Errorf("name at least one artist or pass --all")
			}
			return ctx.Run(cmd.Context(), func(c context.Context, a *app.App) error {
				for _, artist := range artists {
					report, err := a.Service.Setup(c, artist)
					if err != nil {
						return fmt.Errorf("setup %s: %w", artist, err)
					}
					if err := app.PrintJSON(cmd.OutOrStdout(), report); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Set up every configured artist")
	return cmd
}
