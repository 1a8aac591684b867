package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/lyricgraph/internal/app"
	"github.com/tphakala/lyricgraph/internal/generation"
	"github.com/tphakala/lyricgraph/internal/llm"
)

// Command creates the interactive chat command.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [artist]",
		Short: "Chat with an artist's creative persona",
		Long:  "Start an interactive session. Type exit or quit, or send EOF, to leave.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.Run(cmd.Context(), func(c context.Context, a *app.App) error {
				return Session(c, a.Service, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

// Session reads messages from in until EOF or an exit word and writes the
// persona's replies to out. Failed turns are reported and left out of the
// history.
func Session(ctx context.Context, svc *generation.Service, artist string, in io.Reader, out io.Writer) error {
	var history []llm.Message
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		msg := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(msg) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		reply, err := svc.Chat(ctx, artist, msg, history)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "%s> %s\n", artist, reply.Response)
		history = append(history, llm.User(msg), llm.Assistant(reply.Response))
	}
}
