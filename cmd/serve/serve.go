package serve

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tphakala/lyricgraph/internal/api"
	"github.com/tphakala/lyricgraph/internal/app"
)

// Command creates the serve command that runs the HTTP API.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.Run(cmd.Context(), func(c context.Context, a *app.App) error {
				server, err := api.New(a.Settings, a.Service, api.WithMetrics(a.Metrics))
				if err != nil {
					return err
				}
				return server.Run(c)
			})
		},
	}

	cmd.Flags().StringVar(&ctx.Settings.Server.Host, "host", ctx.Settings.Server.Host, "Address to bind to")
	cmd.Flags().StringVarP(&ctx.Settings.Server.Port, "port", "p", ctx.Settings.Server.Port, "Port to listen on")
	return cmd
}
