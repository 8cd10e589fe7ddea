// Package server wires the HTTP surface: the JSON API the dashboard calls,
// the platform webhook endpoint, the websocket upgrade and the
// observability endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/thorbengrosser/eventheartbeat/internal/broadcast"
	"github.com/thorbengrosser/eventheartbeat/internal/config"
	"github.com/thorbengrosser/eventheartbeat/internal/eventmobi"
	"github.com/thorbengrosser/eventheartbeat/internal/ingest"
	"github.com/thorbengrosser/eventheartbeat/internal/songs"
)

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	hub       *broadcast.Hub
	api       *eventmobi.Client
	songs     *songs.Library
	ingest    *ingest.Handler
	startTime time.Time
}

func NewServer(cfg *config.Config, hub *broadcast.Hub, api *eventmobi.Client, library *songs.Library) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:      e,
		config:    cfg,
		hub:       hub,
		api:       api,
		songs:     library,
		ingest:    ingest.NewHandler(hub),
		startTime: time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
