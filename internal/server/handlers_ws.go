package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards connect from arbitrary origins
	},
}

const maxInboundFrame = 4 * 1024

// handleWebSocket upgrades the connection and runs the subscribe protocol:
// the client sends subscribe/unsubscribe envelopes, everything outbound
// goes through the hub's per-connection writer.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade websocket: %w", err)
	}
	conn.SetReadLimit(maxInboundFrame)

	// Read pump. Blocks until the connection closes; the hub owns all
	// writes after this point.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.dispatchClientMessage(conn, data)
	}

	s.hub.Disconnect(conn)
	return nil
}

func (s *Server) dispatchClientMessage(conn *websocket.Conn, data []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.hub.Send(conn, domain.MsgError, map[string]string{"error": "invalid message"})
		return
	}

	switch env.Type {
	case domain.MsgSubscribe:
		var req domain.SubscribeRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil || req.CollectionID == "" {
			s.hub.Send(conn, domain.MsgError, map[string]string{"error": "subscribe requires collection_id"})
			return
		}
		if err := s.hub.Subscribe(req.CollectionID, req.Credential, conn); err != nil {
			slog.Warn("Subscribe rejected", "collection_id", req.CollectionID, "error", err)
			s.hub.Send(conn, domain.MsgError, map[string]string{"error": err.Error()})
			return
		}
		s.hub.Send(conn, domain.MsgSubscribed, domain.SubscribeAck{CollectionID: req.CollectionID})

	case domain.MsgUnsubscribe:
		var req domain.UnsubscribeRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil || req.CollectionID == "" {
			s.hub.Send(conn, domain.MsgError, map[string]string{"error": "unsubscribe requires collection_id"})
			return
		}
		s.hub.Unsubscribe(req.CollectionID, conn)

	default:
		s.hub.Send(conn, domain.MsgError, map[string]string{"error": "unknown message type: " + env.Type})
	}
}
