package model

import "encoding/json"

// LogType tags a LogEntry
type LogType string

const (
	LogLife            LogType = "life"
	LogCounter         LogType = "counter"
	LogCommanderDamage LogType = "commander_damage"
	LogTurn            LogType = "turn"
	LogNote            LogType = "note"
)

// DefaultNoteEmoji is used when add-log-note omits an emoji
const DefaultNoteEmoji = "📝"

// LogEntry is one record in a room's event log. Only the fields relevant to
// Type are encoded on the wire.
type LogEntry struct {
	Type      LogType `json:"type" bson:"type"`
	Timestamp int64   `json:"timestamp" bson:"timestamp"` // unix millis
	Turn      int     `json:"turn" bson:"turn"`

	PlayerID    string `json:"playerId,omitempty" bson:"playerId,omitempty"`
	Change      int    `json:"change,omitempty" bson:"change,omitempty"`
	CurrentLife int    `json:"currentLife,omitempty" bson:"currentLife,omitempty"`
	CounterType string `json:"counterType,omitempty" bson:"counterType,omitempty"`
	NewValue    int    `json:"newValue,omitempty" bson:"newValue,omitempty"`

	// DamageFromID is the opposing commander dealing damage, DamageReceivedBy
	// the player tracking it. On the wire they keep the sourceId/targetId names.
	DamageFromID     string `json:"sourceId,omitempty" bson:"sourceId,omitempty"`
	DamageReceivedBy string `json:"targetId,omitempty" bson:"targetId,omitempty"`

	ActivePlayerID string `json:"activePlayerId,omitempty" bson:"activePlayerId,omitempty"`
	Note           string `json:"note,omitempty" bson:"note,omitempty"`
	Emoji          string `json:"emoji,omitempty" bson:"emoji,omitempty"`
}

type lifeEntry struct {
	Type        LogType `json:"type"`
	Timestamp   int64   `json:"timestamp"`
	PlayerID    string  `json:"playerId"`
	Change      int     `json:"change"`
	CurrentLife int     `json:"currentLife"`
	Turn        int     `json:"turn"`
}

type counterEntry struct {
	Type        LogType `json:"type"`
	Timestamp   int64   `json:"timestamp"`
	PlayerID    string  `json:"playerId"`
	CounterType string  `json:"counterType"`
	Change      int     `json:"change"`
	NewValue    int     `json:"newValue"`
	Turn        int     `json:"turn"`
}

type commanderDamageEntry struct {
	Type      LogType `json:"type"`
	Timestamp int64   `json:"timestamp"`
	SourceID  string  `json:"sourceId"`
	TargetID  string  `json:"targetId"`
	Change    int     `json:"change"`
	NewValue  int     `json:"newValue"`
	Turn      int     `json:"turn"`
}

type turnEntry struct {
	Type           LogType `json:"type"`
	Timestamp      int64   `json:"timestamp"`
	Turn           int     `json:"turn"`
	ActivePlayerID string  `json:"activePlayerId"`
}

type noteEntry struct {
	Type      LogType `json:"type"`
	Timestamp int64   `json:"timestamp"`
	PlayerID  string  `json:"playerId"`
	Note      string  `json:"note"`
	Emoji     string  `json:"emoji"`
	Turn      int     `json:"turn"`
}

// MarshalJSON encodes the variant selected by Type, keeping zero values
// (a change of 0 is still reported).
func (e LogEntry) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case LogLife:
		return json.Marshal(lifeEntry{e.Type, e.Timestamp, e.PlayerID, e.Change, e.CurrentLife, e.Turn})
	case LogCounter:
		return json.Marshal(counterEntry{e.Type, e.Timestamp, e.PlayerID, e.CounterType, e.Change, e.NewValue, e.Turn})
	case LogCommanderDamage:
		return json.Marshal(commanderDamageEntry{e.Type, e.Timestamp, e.DamageFromID, e.DamageReceivedBy, e.Change, e.NewValue, e.Turn})
	case LogTurn:
		return json.Marshal(turnEntry{e.Type, e.Timestamp, e.Turn, e.ActivePlayerID})
	case LogNote:
		return json.Marshal(noteEntry{e.Type, e.Timestamp, e.PlayerID, e.Note, e.Emoji, e.Turn})
	}
	type plain LogEntry
	return json.Marshal(plain(e))
}
