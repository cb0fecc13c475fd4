package model

import "time"

// GameState is the full-state payload of game-state-update
type GameState struct {
	Players        []Player `json:"players"`
	ActivePlayerID *string  `json:"activePlayerId"`
	TurnCount      int      `json:"turnCount"`
	FirstPlayerID  *string  `json:"firstPlayerId"`
}

// FinalState is the terminal summary sent with game-over
type FinalState struct {
	Players         []Player   `json:"players" bson:"players"`
	DurationSeconds int64      `json:"durationSeconds" bson:"durationSeconds"`
	StartedAt       time.Time  `json:"startedAt" bson:"startedAt"`
	EndedAt         time.Time  `json:"endedAt" bson:"endedAt"`
	Logs            []LogEntry `json:"logs" bson:"logs"`
}

// RoomMeta is the immutable description of a room, cached on creation
type RoomMeta struct {
	RoomID    string    `json:"roomId"`
	Pin       string    `json:"pin"`
	HostID    *string   `json:"hostId"`
	Lazy      bool      `json:"lazy"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoomSummary is the operator view of a live room
type RoomSummary struct {
	RoomID         string    `json:"roomId"`
	Pin            string    `json:"pin"`
	HostID         *string   `json:"hostId"`
	PlayerCount    int       `json:"playerCount"`
	TurnCount      int       `json:"turnCount"`
	StartedAt      time.Time `json:"startedAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// RoomDetail is the operator view of a live room including its log
type RoomDetail struct {
	RoomSummary
	State GameState  `json:"state"`
	Logs  []LogEntry `json:"logs"`
}

// Outbound event names
const (
	EventGameStateUpdate = "game-state-update"
	EventGameLogEntry    = "game-log-entry"
	EventGameOver        = "game-over"
	EventRemoteCard      = "remote-card"
)

// GameLogEntryEvent is the payload of game-log-entry
type GameLogEntryEvent struct {
	RoomID string   `json:"roomId"`
	Entry  LogEntry `json:"entry"`
}

// GameOverEvent is the payload of game-over
type GameOverEvent struct {
	FinalState FinalState `json:"finalState"`
}
