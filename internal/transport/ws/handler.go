package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"tabletop/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	actionTimeout  = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; participants are not authenticated
	},
}

// Handler handles WebSocket connections
type Handler struct {
	hub   *Hub
	games *service.GameService
	scans *service.ScanService

	rateLimit rate.Limit
	rateBurst int
}

// NewHandler creates a new WebSocket handler. ratePerSec <= 0 disables throttling.
func NewHandler(hub *Hub, games *service.GameService, scans *service.ScanService, ratePerSec float64, burst int) *Handler {
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Handler{
		hub:       hub,
		games:     games,
		scans:     scans,
		rateLimit: limit,
		rateBurst: burst,
	}
}

// ServeWS handles GET /v1/ws
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := NewConnection(uuid.NewString())
	h.hub.Register(conn)
	h.hub.SendTo(conn.ID, MsgConnected, nil, map[string]string{"connectionId": conn.ID})

	log.Info().Str("conn", conn.ID).Str("remote", r.RemoteAddr).Msg("connection opened")

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()

		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		h.games.Disconnect(ctx, conn.ID)
		log.Info().Str("conn", conn.ID).Msg("connection closed")
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	limiter := rate.NewLimiter(h.rateLimit, h.rateBurst)
	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn", conn.ID).Msg("websocket read error")
			}
			return
		}
		wsConn.SetReadDeadline(time.Now().Add(pongWait))

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Str("conn", conn.ID).Msg("dropping malformed message")
			continue
		}
		if !limiter.Allow() {
			h.reply(conn, msg.AckID, failure(errRateLimited))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		result, err := h.dispatch(ctx, conn, &msg)
		cancel()
		if err != nil {
			log.Debug().Err(err).Str("conn", conn.ID).Str("event", string(msg.Type)).Msg("action rejected")
			h.reply(conn, msg.AckID, failure(err))
			continue
		}
		h.reply(conn, msg.AckID, result)
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply acknowledges an action when the client asked for it
func (h *Handler) reply(conn *Connection, ackID *int64, a *Ack) {
	if ackID == nil {
		return
	}
	h.hub.SendTo(conn.ID, MsgAck, ackID, a)
}

// errors surfaced only by the transport
var (
	errBadRequest   = errors.New("bad request")
	errRateLimited  = errors.New("rate limited")
	errUnknownEvent = errors.New("unknown event")
)
