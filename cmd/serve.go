package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"exam-rag/internal/server"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			svc, err := newService(cfg, store)
			if err != nil {
				return err
			}
			h, err := server.NewHandler(svc)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Serve(ctx, cfg.Server.Addr, server.NewRouter(h))
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides server.addr)")
	return cmd
}
