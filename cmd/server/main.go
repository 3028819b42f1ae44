// Command server runs Presidente rooms over websockets without Nakama.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"presidente/internal/config"
	"presidente/internal/logging"
	"presidente/internal/ports/ws"
	"presidente/internal/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServerFromEnv()
	if err != nil {
		return err
	}

	logger, err := logging.NewProduction(cfg.Debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := config.LoadGameConfig(cfg.GameConfigPath); err != nil {
		logger.Warn("run: could not load game config %s, using defaults: %v", cfg.GameConfigPath, err)
	}

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open results store: %w", err)
	}
	defer store.Close()

	server := ws.NewServer(ws.Options{
		Logger:         logger,
		Results:        store,
		Standings:      store,
		Settings:       ws.SettingsFromConfig(config.GetGameConfig()),
		AllowedOrigins: cfg.AllowedOrigins,
	})
	// Rooms stop before the store closes so no timer records into a closed database.
	defer server.Close()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("run: listening on %s", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("run: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
