package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pedro-hbl/fraudshield-stream/internal/app"
	"github.com/pedro-hbl/fraudshield-stream/internal/web"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the stream behind the HTTP API",
		Long: `Run the transaction stream and serve it over a JSON API.

Examples:
  fraudshield serve --addr :8080
  FRAUDSHIELD_ARCHIVE_TYPE=dynamodb fraudshield serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Web.Addr = addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { logResult(a.Close()) }()

			if err := a.Start(); err != nil {
				return err
			}
			return web.NewServer(a.Monitor, a.Preferences).Run(ctx, cfg.Web.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides web.addr)")
	return cmd
}
