package server

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// handleSetup validates the caller's API key by listing its events. The
// dashboard calls this once after the key is entered.
func (s *Server) handleSetup(c echo.Context) error {
	ctx := c.Request().Context()

	events, err := s.api.Events(ctx, apiKey(c))
	if err != nil {
		slog.Warn("Setup validation failed", "error", err)
		return upstreamError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"events": events,
	})
}

func (s *Server) handleEvents(c echo.Context) error {
	ctx := c.Request().Context()

	events, err := s.api.Events(ctx, apiKey(c))
	if err != nil {
		return upstreamError(c, err)
	}

	return c.JSON(http.StatusOK, events)
}

func (s *Server) handleEventDetails(c echo.Context) error {
	ctx := c.Request().Context()

	details, err := s.api.EventDetails(ctx, apiKey(c), c.Param("id"))
	if err != nil {
		return upstreamError(c, err)
	}

	return c.JSON(http.StatusOK, details)
}

func (s *Server) handleEventStats(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := s.api.EventStats(ctx, apiKey(c), c.Param("id"))
	if err != nil {
		slog.Error("Failed to fetch event stats", "event_id", c.Param("id"), "error", err)
		return upstreamError(c, err)
	}

	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleActiveSessions(c echo.Context) error {
	ctx := c.Request().Context()

	sessions, err := s.api.ActiveSessions(ctx, apiKey(c), c.Param("id"))
	if err != nil {
		slog.Error("Failed to fetch active sessions", "event_id", c.Param("id"), "error", err)
		return upstreamError(c, err)
	}

	return c.JSON(http.StatusOK, sessions)
}

// handleCheckinMessage resolves one check-in resource id into a
// privacy-friendly display message. Concurrent lookups for the same id are
// coalesced upstream.
func (s *Server) handleCheckinMessage(c echo.Context) error {
	checkinID := c.QueryParam("checkin_id")
	if checkinID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "checkin_id query parameter is required"})
	}

	ctx := c.Request().Context()

	message, err := s.api.CheckinMessage(ctx, apiKey(c), c.Param("id"), checkinID)
	if err != nil {
		return upstreamError(c, err)
	}

	return c.JSON(http.StatusOK, message)
}

func (s *Server) handleRegisterWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	eventID := c.Param("id")
	callbackURL := s.config.WebhookBaseURL + "/webhook/eventmobi"

	registration, err := s.api.RegisterWebhook(ctx, apiKey(c), eventID, callbackURL)
	if err != nil {
		slog.Error("Webhook registration failed", "event_id", eventID, "error", err)
		return upstreamError(c, err)
	}

	slog.Info("Webhook registered", "event_id", eventID, "webhook_id", registration.WebhookID, "callback_url", callbackURL)
	return c.JSON(http.StatusOK, registration)
}
