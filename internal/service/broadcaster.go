package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	// Subscribe adds a connection to a channel. It takes effect before the
	// next broadcast on that channel.
	Subscribe(channel, connID string)
	BroadcastToRoom(channel string, msgType string, payload interface{})
	BroadcastExcept(channel, exceptConnID string, msgType string, payload interface{})
	DisconnectRoom(channel string)
}
