package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/localrivet/latentfs"
	"github.com/localrivet/latentfs/internal/errortypes"
)

var (
	serveHTTP bool
	serveAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP stdio server or the HTTP API",
	Long: `Run latentfs as a long-lived server.

Without flags the MCP tools are served over stdio until stdin closes.
With --http the JSON API is served instead:

  POST   /ingest
  GET    /documents
  DELETE /documents/{id}
  GET    /cluster
  POST   /re-embed
  GET    /health`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.HTTPAddr = serveAddr
		}
		log := newLogger(cfg)
		log.Info("latentfs - Starting...", "http", serveHTTP)

		srv, err := latentfs.NewServer(latentfs.ServerOptions{Config: cfg, Logger: log})
		if err != nil {
			errortypes.LogError(log, err)
			return err
		}

		if serveHTTP {
			return runHTTP(cmd.Context(), srv, log)
		}

		setupSignalHandler(srv, log)
		if err := srv.Start(); err != nil {
			err = errortypes.APIError(err, "MCP server failed")
			errortypes.LogError(log, err)
			srv.Stop()
			return err
		}
		return srv.Stop()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveHTTP, "http", false, "serve the HTTP API instead of MCP stdio")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides server.http_addr)")
	rootCmd.AddCommand(serveCmd)
}

func runHTTP(parent context.Context, srv *latentfs.Server, log *slog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.StartHTTP() }()

	select {
	case err := <-errc:
		srv.Stop()
		return err
	case <-ctx.Done():
		log.Info("Received shutdown signal, terminating gracefully...")
	}

	if err := srv.Stop(); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("Shutdown complete")
	return nil
}

// setupSignalHandler closes the store when the MCP server is interrupted,
// since the stdio transport only returns once stdin closes.
func setupSignalHandler(srv *latentfs.Server, log *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Received shutdown signal, terminating gracefully...")

		if err := srv.Stop(); err != nil {
			errortypes.LogError(log, errortypes.DatabaseError(err, "Error closing store during shutdown"))
			os.Exit(1)
		}

		log.Info("Shutdown complete")
		os.Exit(0)
	}()
}
