package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Dashboard API (authenticated per request, credential passed through)
	api := s.echo.Group("/api", s.requireCredential)
	api.GET("/setup", s.handleSetup)
	api.GET("/events", s.handleEvents)
	api.GET("/event/:id/details", s.handleEventDetails)
	api.GET("/event/:id/stats", s.handleEventStats)
	api.GET("/event/:id/active-sessions", s.handleActiveSessions)
	api.GET("/event/:id/checkin-message", s.handleCheckinMessage)
	api.POST("/event/:id/register-webhook", s.handleRegisterWebhook)

	// Song assets (public, nothing sensitive in a tune)
	s.echo.GET("/api/songs", s.handleSongs)
	s.echo.GET("/api/songs/:id", s.handleSongText)

	// Platform webhook (NO auth; the platform sends none). GET answers
	// the registration verification probe.
	limiter := newRateLimiter(s.config.WebhookRateLimit, webhookBurst(s.config.WebhookRateLimit))
	s.echo.POST("/webhook/eventmobi", s.handleWebhook, limiter)
	s.echo.GET("/webhook/eventmobi", s.handleWebhookProbe)

	// Websocket endpoint, subscribe protocol happens after the upgrade
	s.echo.GET("/ws", s.handleWebSocket)
}

func webhookBurst(ratePerSecond float64) int {
	burst := int(ratePerSecond * 2)
	if burst < 1 {
		burst = 1
	}
	return burst
}
