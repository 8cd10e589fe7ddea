// Package ingest normalises inbound platform webhooks into pokes and
// publishes them to the hub. The endpoint itself stays fast: no enrichment
// happens here, clients resolve details afterwards.
package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
	"github.com/thorbengrosser/eventheartbeat/internal/metrics"
)

// Publisher fans a poke out to a collection's subscribers.
type Publisher interface {
	Broadcast(collectionID, msgType string, payload any)
}

// webhookPayload is the platform's delivery shape. Field aliases cover the
// drift observed between webhook versions.
type webhookPayload struct {
	Type           string      `json:"type"`
	EventType      string      `json:"event_type"`
	Operation      string      `json:"operation"`
	Action         string      `json:"action"`
	EventID        json.Number `json:"event_id"`
	ResourceIDs    []string    `json:"resource_ids"`
	ChangeDatetime string      `json:"change_datetime"`
	Timestamp      string      `json:"timestamp"`
}

func (p webhookPayload) webhookType() string {
	if p.Type != "" {
		return p.Type
	}
	return p.EventType
}

func (p webhookPayload) operation() string {
	if p.Operation != "" {
		return p.Operation
	}
	return p.Action
}

func (p webhookPayload) when() string {
	if p.ChangeDatetime != "" {
		return p.ChangeDatetime
	}
	return p.Timestamp
}

// Handler turns raw webhook bodies into pokes.
type Handler struct {
	publisher Publisher
}

func NewHandler(publisher Publisher) *Handler {
	return &Handler{publisher: publisher}
}

// Receive processes one webhook delivery. It never returns an error the
// transport should surface: malformed payloads are logged and acknowledged
// so the platform does not disable the webhook with a retry storm.
// Exactly one publish happens per valid notification; duplicates are
// tolerated downstream.
func (h *Handler) Receive(body []byte) {
	poke, err := Normalize(body)
	if err != nil {
		metrics.WebhooksReceivedTotal.WithLabelValues("malformed").Inc()
		slog.Warn("Malformed webhook payload", "error", err)
		return
	}
	if poke == nil {
		metrics.WebhooksReceivedTotal.WithLabelValues("ignored").Inc()
		slog.Debug("Webhook ignored (not a check-in creation)")
		return
	}

	metrics.WebhooksReceivedTotal.WithLabelValues("published").Inc()
	h.publisher.Broadcast(poke.EventID, domain.MsgCheckinPoke, poke)
}

// Normalize validates a webhook body and maps it onto a Poke. Returns
// (nil, nil) for well-formed payloads that are simply not check-in
// creations: checkout deletions, other webhook types.
func Normalize(body []byte) (*domain.Poke, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}

	if payload.webhookType() != "checkins" {
		return nil, nil
	}
	if payload.operation() != "create" {
		return nil, nil
	}
	if payload.EventID.String() == "" {
		return nil, fmt.Errorf("checkins webhook without event_id")
	}
	if len(payload.ResourceIDs) == 0 {
		return nil, nil
	}

	return &domain.Poke{
		EventID:     payload.EventID.String(),
		ResourceIDs: payload.ResourceIDs,
		Timestamp:   payload.when(),
	}, nil
}
