package server

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// maxWebhookBody caps how much of a webhook delivery we read. Real payloads
// are a few hundred bytes.
const maxWebhookBody = 256 * 1024

// handleWebhook accepts a platform delivery. Always acknowledges with 200:
// a non-2xx answer makes the platform retry and eventually disable the
// webhook, which is worse than dropping one malformed payload.
func (s *Server) handleWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "received"})
	}

	s.ingest.Receive(body)

	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}

// handleWebhookProbe answers the platform's endpoint verification, which
// issues a GET before accepting a webhook registration.
func (s *Server) handleWebhookProbe(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
