package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/thorbengrosser/eventheartbeat/internal/broadcast"
	"github.com/thorbengrosser/eventheartbeat/internal/config"
	"github.com/thorbengrosser/eventheartbeat/internal/eventmobi"
	"github.com/thorbengrosser/eventheartbeat/internal/logging"
	"github.com/thorbengrosser/eventheartbeat/internal/server"
	"github.com/thorbengrosser/eventheartbeat/internal/songs"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runGracefulShutdown(srv *server.Server, hub *broadcast.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		hub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	api := eventmobi.NewClient(cfg.APIBaseURL,
		eventmobi.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
	)

	library := songs.NewLibrary(cfg.SongDir)

	hub := broadcast.NewHub(clock, cfg.MaxClientsPerCollection)

	srv := server.NewServer(cfg, hub, api, library)

	done := runGracefulShutdown(srv, hub)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
