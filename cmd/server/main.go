// Package main runs the boarding-house ledger HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/app"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/config"
)

const shutdownTimeout = 20 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured JSON logging.
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to initialize ledger", "error", err, "backend", cfg.Store.Backend)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("failed to close ledger", "error", err)
		}
	}()

	if err := a.SeedChart(ctx); err != nil {
		slog.Error("failed to seed chart of accounts", "error", err)
		a.Close()
		os.Exit(1)
	}

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		slog.Error("failed to listen", "error", err, "addr", cfg.HTTPAddr)
		a.Close()
		os.Exit(1)
	}

	server := &http.Server{
		Handler:      a.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("starting ledger server", "addr", ln.Addr().String(), "currency", cfg.Ledger.Currency)
	if err := serve(ctx, server, ln); err != nil {
		slog.Error("server error", "error", err)
		a.Close()
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// serve runs srv on ln until ctx is done, then waits for in-flight requests
// to finish before returning.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errc; !errors.Is(serveErr, http.ErrServerClosed) && err == nil {
		err = serveErr
	}
	return err
}
