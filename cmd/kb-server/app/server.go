// Package app builds the kb-server command.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/knowledge-x/cmd/kb-server/app/options"
	"github.com/kart-io/knowledge-x/pkg/infra/app"
)

// Name is the binary name of the server.
const Name = "kb-server"

const commandDesc = `The knowledge base server ingests uploaded documents
(parse, chunk, embed, index) and serves tenant-scoped semantic search
over the indexed chunks.`

// NewApp creates the kb-server application.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("Knowledge base ingestion and semantic search server"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return err
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return err
		}
		return server.Run(ctx)
	}
}

// setupSignalContext returns a context canceled on SIGINT/SIGTERM.
// A second signal forces immediate exit.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
		<-ch
		os.Exit(1)
	}()

	return ctx
}
