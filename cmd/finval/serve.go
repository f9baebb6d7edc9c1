package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/finval/internal/api"
	"github.com/ShayCichocki/finval/internal/config"
	"github.com/ShayCichocki/finval/internal/orchestrator"
	"github.com/ShayCichocki/finval/internal/server"
)

// shutdownTimeout bounds how long in-flight requests may finish on exit.
const shutdownTimeout = 30 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the validation API over HTTP",
	Long: `Start the HTTP API.

Endpoints (under /v1):
  GET    /health              Health check
  POST   /validations         Validate a document (text or base64 upload)
  GET    /validations/stream  WebSocket run with live progress events
  GET    /runs                List recorded runs
  GET    /runs/{run_id}       Fetch a recorded report
  DELETE /runs/{run_id}       Delete a recorded run

Set server.jwt_secret (or FINVAL_JWT_SECRET) to require HS256 bearer tokens.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, cleanup, err := buildServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("[server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildServer wires configuration into the API handler. cleanup releases
// the completion client, history store and debug log.
func buildServer(ctx context.Context, cfg *config.Config) (http.Handler, func(), error) {
	kinds, err := cfg.EnabledAgents()
	if err != nil {
		return nil, nil, err
	}
	format, err := reportFormat(cfg, "")
	if err != nil {
		return nil, nil, err
	}

	debug := openDebugLogger(cfg)
	client, err := createCompleter(ctx, cfg, log.Default())
	if err != nil {
		debug.Close()
		return nil, nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		api.Close(client)
		debug.Close()
		return nil, nil, err
	}
	artifacts, err := openArtifacts(cfg)
	if err != nil {
		api.Close(client)
		debug.Close()
		if store != nil {
			store.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		api.Close(client)
		if store != nil {
			store.Close()
		}
		debug.Close()
	}

	base := runnerOptions(cfg, debug)
	srvCfg := server.Config{
		NewRunner: func(opts ...orchestrator.Option) (server.Runner, error) {
			all := append(append([]orchestrator.Option{}, base...), opts...)
			orch, err := orchestrator.New(orchestrator.RequiredConfig{Client: client}, all...)
			if err != nil {
				return nil, err
			}
			return orch, nil
		},
		Store:          store,
		Artifacts:      artifacts,
		ArtifactFormat: format,
		DefaultAgents:  kinds,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		Auth:           server.AuthConfig{JWTSecret: cfg.Server.JWTSecret},
		Logger:         log.Default(),
	}
	handler, err := server.New(srvCfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return handler, cleanup, nil
}
