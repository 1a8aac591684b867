package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/lyricgraph/internal/app"
	"github.com/tphakala/lyricgraph/internal/datastore"
	"github.com/tphakala/lyricgraph/internal/errors"
	graphsearch "github.com/tphakala/lyricgraph/internal/search"
)

// Command creates the search command.
func Command(ctx *app.Context) *cobra.Command {
	var (
		nodeType string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "search [artist] [query...]",
		Short: "Hybrid search over an artist's graph",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			artist, query := args[0], strings.Join(args[1:], " ")
			return ctx.Run(cmd.Context(), func(c context.Context, a *app.App) error {
				exists, err := a.Registry.GraphExists(c, artist)
				if err != nil {
					return err
				}
				if !exists {
					return errors.MissingData(artist+" graph", "run setup for this artist first")
				}
				store, err := a.Registry.Get(c, artist)
				if err != nil {
					return err
				}

				results, err := graphsearch.New(store, a.Embedder).
					Hybrid(c, query, datastore.ParseNodeType(nodeType), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for i, r := range results {
					fmt.Fprintf(out, "%d. [%.4f %s] %s\n", i+1, r.Score, r.Source, r.NodeID)
					fmt.Fprintf(out, "   %s\n", strings.ReplaceAll(r.Text, "\n", "\n   "))
				}
				if len(results) == 0 {
					fmt.Fprintln(out, "no results")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&nodeType, "type", "t", string(datastore.NodeSection), "Node type: song, section or line")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	return cmd
}
