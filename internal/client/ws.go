package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second

	// Consecutive dial failures before the UI escalates from a soft
	// indicator to "please refresh".
	refreshThreshold = 10
)

// WSClient manages the websocket subscription to the distribution server.
// After every (re)connect it re-issues the subscribe request before the
// caller may assume delivery has resumed.
type WSClient struct {
	url        string
	credential string

	mu           sync.Mutex
	writeMu      sync.Mutex // serialises all conn writes (ping, subscribe)
	conn         *websocket.Conn
	collectionID string
	failures     int
	closed       bool
	pingCtx      context.CancelFunc // cancels the active ping goroutine
}

// NewWSClient creates a client for the given websocket URL
// (e.g. "ws://127.0.0.1:5001/ws").
func NewWSClient(url, credential string) *WSClient {
	return &WSClient{url: url, credential: credential}
}

// --- Bubble Tea messages ---

// ConnectedMsg is sent when the websocket connects and the subscribe
// request is on the wire.
type ConnectedMsg struct{}

// DisconnectedMsg is sent when the connection drops.
type DisconnectedMsg struct{ Err error }

// DegradedMsg is sent after too many consecutive connect failures; the UI
// should surface a "please refresh" hint. Retrying continues regardless.
type DegradedMsg struct{ Failures int }

// SubscribedMsg confirms the server applied the subscription.
type SubscribedMsg struct{ CollectionID string }

// CheckinMsg delivers one enriched check-in.
type CheckinMsg struct{ Event domain.CheckinEvent }

// PokeMsg delivers a fast-path notification.
type PokeMsg struct{ Poke domain.Poke }

// ServerErrorMsg wraps a server-side protocol error.
type ServerErrorMsg struct{ Message string }

// SetCollection changes the collection used for (re)subscribes. If a
// connection is live, the new subscribe is sent immediately; last write
// wins server-side.
func (c *WSClient) SetCollection(collectionID string) error {
	c.mu.Lock()
	c.collectionID = collectionID
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.writeSubscribe(conn, collectionID)
}

// Close tears the connection down for good: no reconnect, no error
// surfaced to the UI.
func (c *WSClient) Close() {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	if c.pingCtx != nil {
		c.pingCtx()
	}
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// Listen returns a Bubble Tea command that connects, subscribes and hands
// back ConnectedMsg. On dial failure it sleeps with capped exponential
// backoff and retries in place.
func (c *WSClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if c.isClosed() {
				return nil
			}

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
			if err != nil {
				c.mu.Lock()
				c.failures++
				failures := c.failures
				c.mu.Unlock()
				if failures == refreshThreshold {
					return DegradedMsg{Failures: failures}
				}

				time.Sleep(delay)
				delay = min(delay*2, reconnectMaxDelay)
				continue
			}

			// Subscribe before the connection is shared, so no write
			// mutex is needed yet.
			c.mu.Lock()
			collectionID := c.collectionID
			c.mu.Unlock()
			if collectionID != "" {
				if err := c.writeSubscribe(conn, collectionID); err != nil {
					_ = conn.Close()
					continue
				}
			}

			c.mu.Lock()
			if c.pingCtx != nil {
				c.pingCtx()
			}
			pingCtx, pingCancel := context.WithCancel(ctx)
			c.conn = conn
			c.failures = 0
			c.pingCtx = pingCancel
			c.mu.Unlock()

			go c.pingLoop(pingCtx, conn)

			return ConnectedMsg{}
		}
	}
}

// ReadLoop returns a Bubble Tea command that reads until the connection
// drops, dispatching typed messages. Start after ConnectedMsg.
func (c *WSClient) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			if c.isClosed() {
				return nil
			}
			return DisconnectedMsg{Err: fmt.Errorf("no connection")}
		}

		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongTimeout))
		})
		_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.mu.Lock()
				if c.conn == conn {
					c.conn = nil
				}
				c.mu.Unlock()
				_ = conn.Close()
				if c.isClosed() {
					return nil
				}
				return DisconnectedMsg{Err: err}
			}

			var env domain.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				continue
			}
			if teaMsg := dispatch(env); teaMsg != nil {
				return teaMsg
			}
		}
	}
}

func (c *WSClient) writeSubscribe(conn *websocket.Conn, collectionID string) error {
	env := domain.NewEnvelope(domain.MsgSubscribe, domain.SubscribeRequest{
		CollectionID: collectionID,
		Credential:   c.credential,
	})
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(env)
}

func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			current := c.conn
			c.mu.Unlock()
			if current != conn {
				return
			}
			c.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *WSClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func dispatch(env domain.Envelope) tea.Msg {
	switch env.Type {
	case domain.MsgSubscribed:
		var ack domain.SubscribeAck
		if json.Unmarshal(env.Payload, &ack) == nil {
			return SubscribedMsg{CollectionID: ack.CollectionID}
		}
	case domain.MsgCheckin:
		var ev domain.CheckinEvent
		if json.Unmarshal(env.Payload, &ev) == nil {
			return CheckinMsg{Event: ev}
		}
	case domain.MsgCheckinPoke:
		var poke domain.Poke
		if json.Unmarshal(env.Payload, &poke) == nil {
			return PokeMsg{Poke: poke}
		}
	case domain.MsgError:
		var body struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(env.Payload, &body)
		return ServerErrorMsg{Message: body.Error}
	}
	return nil
}
