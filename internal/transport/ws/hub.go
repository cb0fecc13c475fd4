package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Control message types. Game events use the names in the model package.
const (
	MsgConnected MessageType = "connected"
	MsgAck       MessageType = "ack"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	AckID   *int64          `json:"ackId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Connection represents a WebSocket connection
type Connection struct {
	ID   string
	Send chan []byte
}

// NewConnection creates a connection with a buffered outbound queue
func NewConnection(id string) *Connection {
	return &Connection{
		ID:   id,
		Send: make(chan []byte, 256),
	}
}

// BroadcastMessage is a message to deliver
type BroadcastMessage struct {
	Channel string
	ToConn  string // Non-empty means only this connection
	Except  string // Connection skipped on a channel broadcast
	Data    []byte
}

// Hub tracks live connections and the channels (rooms, pairing sessions)
// they subscribe to. All deliveries go through one queue so a connection
// observes messages in the order they were enqueued. A connection whose
// send queue is full is unregistered rather than silently losing messages;
// its client reconnects and resyncs.
type Hub struct {
	conns    map[string]*Connection
	channels map[string]map[string]*Connection // channel -> connID -> conn
	joined   map[string]map[string]struct{}    // connID -> channels

	mu sync.RWMutex

	broadcast chan *BroadcastMessage
	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		conns:     make(map[string]*Connection),
		channels:  make(map[string]map[string]*Connection),
		joined:    make(map[string]map[string]struct{}),
		broadcast: make(chan *BroadcastMessage, 1024),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case msg := <-h.broadcast:
			h.deliver(msg)
		case <-h.done:
			return
		}
	}
}

func (h *Hub) deliver(msg *BroadcastMessage) {
	for _, conn := range h.fanOut(msg) {
		log.Warn().Str("conn", conn.ID).Msg("send buffer full, dropping connection")
		h.Unregister(conn)
	}
}

// fanOut pushes msg to its recipients and returns those whose queue was full.
func (h *Hub) fanOut(msg *BroadcastMessage) []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var slow []*Connection
	if msg.ToConn != "" {
		if conn, ok := h.conns[msg.ToConn]; ok && !push(conn, msg.Data) {
			slow = append(slow, conn)
		}
		return slow
	}
	for id, conn := range h.channels[msg.Channel] {
		if id == msg.Except {
			continue
		}
		if !push(conn, msg.Data) {
			slow = append(slow, conn)
		}
	}
	return slow
}

func push(conn *Connection, data []byte) bool {
	select {
	case conn.Send <- data:
		return true
	default:
		return false
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn.ID] = conn
	h.joined[conn.ID] = make(map[string]struct{})
}

// Unregister removes a connection from the hub and all of its channels
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	existing, ok := h.conns[conn.ID]
	if !ok || existing != conn {
		return
	}
	for channel := range h.joined[conn.ID] {
		h.leaveLocked(channel, conn.ID)
	}
	delete(h.joined, conn.ID)
	delete(h.conns, conn.ID)
	close(conn.Send)
}

// Subscribe adds a registered connection to a channel (implements service.Broadcaster)
func (h *Hub) Subscribe(channel, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[connID]
	if !ok {
		return
	}
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[string]*Connection)
	}
	h.channels[channel][connID] = conn
	h.joined[connID][channel] = struct{}{}
}

// DisconnectRoom drops every subscription to a channel (implements service.Broadcaster)
func (h *Hub) DisconnectRoom(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for connID := range h.channels[channel] {
		delete(h.joined[connID], channel)
	}
	delete(h.channels, channel)
}

// Subscribers returns the number of connections on a channel
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// BroadcastToRoom sends a message to every connection on a channel (implements service.Broadcaster)
func (h *Hub) BroadcastToRoom(channel string, msgType string, payload interface{}) {
	data, ok := encode(MessageType(msgType), nil, payload)
	if !ok {
		return
	}
	h.enqueue(&BroadcastMessage{Channel: channel, Data: data})
}

// BroadcastExcept sends a message to every connection on a channel but one (implements service.Broadcaster)
func (h *Hub) BroadcastExcept(channel, exceptConnID string, msgType string, payload interface{}) {
	data, ok := encode(MessageType(msgType), nil, payload)
	if !ok {
		return
	}
	h.enqueue(&BroadcastMessage{Channel: channel, Except: exceptConnID, Data: data})
}

// SendTo sends a message to one connection
func (h *Hub) SendTo(connID string, msgType MessageType, ackID *int64, payload interface{}) {
	data, ok := encode(msgType, ackID, payload)
	if !ok {
		return
	}
	h.enqueue(&BroadcastMessage{ToConn: connID, Data: data})
}

// Close stops the delivery loop
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

func (h *Hub) leaveLocked(channel, connID string) {
	members, ok := h.channels[channel]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.channels, channel)
	}
}

func encode(msgType MessageType, ackID *int64, payload interface{}) ([]byte, bool) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(msgType)).Msg("failed to encode payload")
		return nil, false
	}
	data, err := json.Marshal(&Message{Type: msgType, AckID: ackID, Payload: body})
	if err != nil {
		log.Error().Err(err).Str("type", string(msgType)).Msg("failed to encode message")
		return nil, false
	}
	return data, true
}
