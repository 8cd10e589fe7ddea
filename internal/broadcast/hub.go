package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
	"github.com/thorbengrosser/eventheartbeat/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

type collectionClients map[*websocket.Conn]*clientWriter

// subscription is the registry record for one connection: its session
// handle, the collection it listens to and the caller's opaque credential.
// The credential lives only as long as the subscription; it is never
// persisted or forwarded.
type subscription struct {
	sessionHandle uuid.UUID
	collectionID  string
	credential    string
}

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type subscribeCmd struct {
	baseHubCmd
	collectionID string
	credential   string
	connection   *websocket.Conn
	errorChannel chan error
}

type sendCmd struct {
	baseHubCmd
	connection *websocket.Conn
	data       []byte
}

type unsubscribeCmd struct {
	baseHubCmd
	collectionID string
	connection   *websocket.Conn
}

type disconnectCmd struct {
	baseHubCmd
	connection *websocket.Conn
}

type broadcastCmd struct {
	baseHubCmd
	collectionID string
	msgType      string
	data         []byte
}

type clientCountCmd struct {
	baseHubCmd
	collectionID string
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub is the subscription registry and fan-out broadcaster. All state is
// owned by a single goroutine consuming the command channel.
type Hub struct {
	cmdCh                   chan hubCmd
	clock                   clockwork.Clock
	collections             map[string]collectionClients
	memberships             map[*websocket.Conn]subscription
	writers                 map[*websocket.Conn]*clientWriter
	done                    chan struct{}
	maxClientsPerCollection int
}

// NewHub creates the hub and starts its actor goroutine.
// maxClientsPerCollection limits subscribers per collection.
func NewHub(clock clockwork.Clock, maxClientsPerCollection int) *Hub {
	h := &Hub{
		cmdCh:                   make(chan hubCmd, 256),
		clock:                   clock,
		collections:             make(map[string]collectionClients),
		memberships:             make(map[*websocket.Conn]subscription),
		writers:                 make(map[*websocket.Conn]*clientWriter),
		done:                    make(chan struct{}),
		maxClientsPerCollection: maxClientsPerCollection,
	}
	go h.run()
	return h
}

// Subscribe registers the connection's interest in a collection. If the
// connection is already subscribed elsewhere, membership moves atomically
// (last write wins). The credential is retained only for the lifetime of
// the subscription.
func (h *Hub) Subscribe(collectionID, credential string, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- subscribeCmd{collectionID: collectionID, credential: credential, connection: conn, errorChannel: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("subscribe command timed out after %v", commandTimeout)
	}
}

// Unsubscribe removes the connection from a collection without closing it.
func (h *Hub) Unsubscribe(collectionID string, conn *websocket.Conn) {
	h.cmdCh <- unsubscribeCmd{collectionID: collectionID, connection: conn}
}

// Disconnect purges every registry entry for the connection and stops its
// writer. Safe to call for connections that never subscribed.
func (h *Hub) Disconnect(conn *websocket.Conn) {
	h.cmdCh <- disconnectCmd{connection: conn}
}

// Send delivers a message to a single connection through its writer, so it
// serialises with broadcasts and pings. No-op for unknown connections.
func (h *Hub) Send(conn *websocket.Conn, msgType string, payload any) {
	env := domain.NewEnvelope(msgType, payload)
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("Failed to marshal direct message", "error", err)
		return
	}
	h.cmdCh <- sendCmd{connection: conn, data: data}
}

// Broadcast delivers the payload to every subscriber of the collection, and
// to no others. The payload is marshalled once; delivery per client is
// fire-and-forget.
func (h *Hub) Broadcast(collectionID, msgType string, payload any) {
	env := domain.NewEnvelope(msgType, payload)
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("Failed to marshal broadcast message", "error", err)
		return
	}
	h.cmdCh <- broadcastCmd{collectionID: collectionID, msgType: msgType, data: data}
}

// ClientCount returns the number of subscribers of a collection.
// Returns -1 if the command times out.
func (h *Hub) ClientCount(collectionID string) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{collectionID: collectionID, replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts the hub down, closing every client connection. Blocks until
// the actor goroutine exits or the timeout elapses.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Hub stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (h *Hub) run() {
	defer close(h.done)

	depthTicker := h.clock.NewTicker(1 * time.Second)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			depth := len(h.cmdCh)
			metrics.HubCommandChannelDepth.Set(float64(depth))
			if depth > 200 {
				slog.Warn("Hub command channel near capacity", "depth", depth, "capacity", cap(h.cmdCh))
			}

		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case subscribeCmd:
				h.handleSubscribe(c)
			case unsubscribeCmd:
				h.handleUnsubscribe(c.collectionID, c.connection)
			case disconnectCmd:
				h.handleDisconnect(c.connection)
			case sendCmd:
				h.handleSend(c)
			case broadcastCmd:
				h.handleBroadcast(c)
			case clientCountCmd:
				c.replyChannel <- len(h.collections[c.collectionID])
			case stopCmd:
				h.handleStop()
				return
			default:
				slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

func (h *Hub) handleSubscribe(c subscribeCmd) {
	clients, exists := h.collections[c.collectionID]
	if !exists {
		clients = make(collectionClients)
		h.collections[c.collectionID] = clients
	}

	if _, already := clients[c.connection]; !already && len(clients) >= h.maxClientsPerCollection {
		slog.Warn("Rejecting client: max clients reached",
			"collection_id", c.collectionID,
			"max_clients", h.maxClientsPerCollection,
		)
		if len(clients) == 0 {
			delete(h.collections, c.collectionID)
		}
		c.errorChannel <- fmt.Errorf("max clients per collection (%d) reached", h.maxClientsPerCollection)
		return
	}

	// Re-subscription: leave the previous collection first so membership
	// replacement is atomic from the caller's point of view.
	prev, resubscribed := h.memberships[c.connection]
	if resubscribed && prev.collectionID != c.collectionID {
		h.removeMembership(prev.collectionID, c.connection)
	}

	writer, ok := h.writers[c.connection]
	if !ok {
		writer = newClientWriter(c.connection, h.clock)
		h.writers[c.connection] = writer
		metrics.HubConnectedClients.Inc()
	}

	handle := prev.sessionHandle
	if !resubscribed {
		handle = uuid.New()
	}

	clients[c.connection] = writer
	h.memberships[c.connection] = subscription{
		sessionHandle: handle,
		collectionID:  c.collectionID,
		credential:    c.credential,
	}
	metrics.HubActiveCollections.Set(float64(len(h.collections)))

	slog.Debug("Client subscribed",
		"session_handle", handle.String(),
		"collection_id", c.collectionID,
		"total_clients", len(clients),
	)
	c.errorChannel <- nil
}

func (h *Hub) handleUnsubscribe(collectionID string, conn *websocket.Conn) {
	if current, ok := h.memberships[conn]; !ok || current.collectionID != collectionID {
		return
	}
	h.removeMembership(collectionID, conn)
	delete(h.memberships, conn)
}

func (h *Hub) handleSend(c sendCmd) {
	writer, ok := h.writers[c.connection]
	if !ok {
		return
	}
	select {
	case writer.sendChannel <- c.data:
	default:
		slog.Warn("Dropping direct message: send buffer full")
	}
}

// removeMembership detaches the connection from one collection. The writer
// stays alive; callers decide whether the connection is going away.
func (h *Hub) removeMembership(collectionID string, conn *websocket.Conn) {
	clients, exists := h.collections[collectionID]
	if !exists {
		return
	}
	delete(clients, conn)
	if len(clients) == 0 {
		delete(h.collections, collectionID)
		metrics.HubActiveCollections.Set(float64(len(h.collections)))
		slog.Info("Last client left collection", "collection_id", collectionID)
	}
}

func (h *Hub) handleDisconnect(conn *websocket.Conn) {
	if sub, ok := h.memberships[conn]; ok {
		h.removeMembership(sub.collectionID, conn)
		delete(h.memberships, conn)
	}
	if writer, ok := h.writers[conn]; ok {
		writer.stop()
		delete(h.writers, conn)
		metrics.HubConnectedClients.Dec()
	}
}

func (h *Hub) handleBroadcast(c broadcastCmd) {
	clients, exists := h.collections[c.collectionID]
	if !exists {
		return
	}

	metrics.HubBroadcastsTotal.WithLabelValues(c.msgType).Inc()

	var slow []*websocket.Conn
	for conn, writer := range clients {
		select {
		case writer.sendChannel <- c.data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow client", "collection_id", c.collectionID)
		metrics.HubSlowClientsEvicted.Inc()
		h.handleDisconnect(conn)
	}
}

func (h *Hub) handleStop() {
	totalClients := len(h.writers)
	slog.Info("Hub shutting down", "collections", len(h.collections), "total_clients", totalClients)

	for conn, writer := range h.writers {
		writer.stopGraceful("Server shutting down")
		delete(h.writers, conn)
		delete(h.memberships, conn)
	}
	for collectionID := range h.collections {
		delete(h.collections, collectionID)
	}
	metrics.HubActiveCollections.Set(0)
	metrics.HubConnectedClients.Set(0)

	slog.Info("Hub shutdown complete", "disconnected_clients", totalClients)
}
