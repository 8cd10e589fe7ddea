package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sony/gobreaker"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
)

const apiKeyContextKey = "apiKey"

// requireCredential extracts the caller's platform API key and stashes it in
// the request context. The key rides along on every upstream call and is
// never stored server-side.
func (s *Server) requireCredential(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := extractCredential(c)
		if key == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "missing API key: use Authorization: Bearer or api_key query parameter",
			})
		}
		c.Set(apiKeyContextKey, key)
		return next(c)
	}
}

func extractCredential(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return c.QueryParam("api_key")
}

func apiKey(c echo.Context) string {
	key, _ := c.Get(apiKeyContextKey).(string)
	return key
}

// upstreamError maps upstream failures onto HTTP statuses: the caller's
// fault (bad key, missing resource) keeps its own status, everything else
// reads as a gateway problem.
func upstreamError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidCredential):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid API key"})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "upstream temporarily unavailable"})
	default:
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "upstream request failed"})
	}
}
