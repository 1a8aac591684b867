package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/lyricgraph/internal/app"
)

// Command creates the generate command.
func Command(ctx *app.Context) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "generate [artist] [topic...]",
		Short: "Generate a song in an artist's voice",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args[1:], " ")
			return ctx.Run(cmd.Context(), func(c context.Context, a *app.App) error {
				song, err := a.Service.Generate(c, args[0], topic)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return app.PrintJSON(out, song)
				}

				fmt.Fprintln(out, song.Song)
				fmt.Fprintln(out)
				v := song.Validation
				fmt.Fprintf(out, "score %.2f (%s) after %d attempt(s), graph powered: %t\n",
					v.OverallScore, v.Recommendation, v.Attempts, song.GraphPowered)
				fmt.Fprintf(out, "vocabulary %.2f  originality %.2f  rhyme %.2f  arc %.2f  structure %.2f\n",
					v.VocabularyScore, v.OriginalityScore, v.RhymeScore, v.EmotionalArcScore, v.StructureScore)
				for _, fl := range v.FlaggedLines {
					fmt.Fprintf(out, "  flagged line %d: %s\n", fl.LineIndex+1, fl.Reason)
				}
				for _, ref := range song.References {
					fmt.Fprintf(out, "  reference: %s (%s)\n", ref.SongTitle, ref.SectionType)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}
