package analyze

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/lyricgraph/internal/app"
)

// Command creates the analyze command, which writes an artist's artifact
// files without touching the graph store.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [artist]",
		Short: "Analyze an artist's raw lyrics into artifact files",
		Long:  "Run structural, rhyme, thematic and clustering analysis and write the graph data, advanced analysis and cluster files.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.Run(cmd.Context(), func(c context.Context, a *app.App) error {
				data, adv, clusters, err := a.Service.Analyze(c, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Analyzed %d songs for %s\n", data.Stats.TotalSongs, args[0])
				fmt.Fprintf(out, "  sections %d, lines %d, words %d\n",
					data.Stats.TotalSections, data.Stats.TotalLines, data.Stats.TotalWords)
				fmt.Fprintf(out, "  phrases %d, cultural refs %d, meter patterns %d, rhyme pairs %d\n",
					data.Stats.TotalPhrases, data.Stats.TotalCulturalRefs, data.Stats.TotalMeterPatterns, len(data.RhymePairs))
				fmt.Fprintf(out, "  themes %d, metaphors %d, emotional arcs %d, clusters %d\n",
					len(adv.Themes), len(adv.Metaphors), len(adv.EmotionalArcs), len(clusters))
				fmt.Fprintf(out, "Artifacts written to %s\n", a.Settings.ProcessedDir())
				return nil
			})
		},
	}
}
