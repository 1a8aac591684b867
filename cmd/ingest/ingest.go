package ingest

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tphakala/lyricgraph/internal/app"
)

// Command creates the ingest command, which loads existing artifact files
// into a fresh graph store.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [artist]",
		Short: "Load analysis artifacts into the artist's graph store",
		Long:  "Recreate the artist's graph from previously written artifact files, embed its nodes and build the vector index.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.Run(cmd.Context(), func(c context.Context, a *app.App) error {
				report, err := a.Service.Ingest(c, args[0])
				if err != nil {
					return err
				}
				return app.PrintJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}
