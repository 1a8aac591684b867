package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tphakala/lyricgraph/cmd"
	"github.com/tphakala/lyricgraph/internal/app"
	"github.com/tphakala/lyricgraph/internal/buildinfo"
	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/errors"
)

// buildDate and version are set at build time with -ldflags.
var (
	buildDate string
	version   string
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cmd.RootCommand(app.NewContext(settings, buildinfo.NewContext(version, buildDate)))
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if hint := errors.HintOf(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		return 1
	}
	return 0
}
