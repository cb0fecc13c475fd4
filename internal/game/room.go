package game

import (
	"fmt"
	"time"

	"tabletop/internal/model"
)

// Room is the state of one live session. It is not safe for concurrent use;
// the Store only touches it from the room's actor goroutine.
type Room struct {
	id        string
	pin       string
	hostID    *string
	players   map[string]*model.Player
	turnOrder []string

	activePlayerIndex int
	firstPlayerIndex  int
	// turnCount counts rounds, not individual turns
	turnCount int

	startTime time.Time
	logs      []model.LogEntry
	now       func() time.Time
}

func newRoom(id, pin string, hostID *string, now func() time.Time) *Room {
	return &Room{
		id:        id,
		pin:       pin,
		hostID:    hostID,
		players:   make(map[string]*model.Player),
		turnOrder: make([]string, 0, 8),
		startTime: now(),
		logs:      make([]model.LogEntry, 0, 64),
		now:       now,
	}
}

// ID returns the room id
func (r *Room) ID() string { return r.id }

// Pin returns the join PIN. Lazily created rooms use their id as PIN.
func (r *Room) Pin() string { return r.pin }

// StartTime is when the room was created
func (r *Room) StartTime() time.Time { return r.startTime }

// TurnCount is the number of turns passed so far
func (r *Room) TurnCount() int { return r.turnCount }

// LogCount is the number of entries in the event log
func (r *Room) LogCount() int { return len(r.logs) }

// HostID returns nil for lazily created rooms
func (r *Room) HostID() *string { return r.hostID }

// HasPlayer reports whether connID is in the roster
func (r *Room) HasPlayer(connID string) bool {
	_, ok := r.players[connID]
	return ok
}

// Player returns a copy of the player with id connID
func (r *Room) Player(connID string) (model.Player, bool) {
	p, ok := r.players[connID]
	if !ok {
		return model.Player{}, false
	}
	return p.Clone(), true
}

// Join adds connID to the roster and turn order. A connection that is already
// seated keeps its existing player and is not appended to the turn order again.
func (r *Room) Join(connID, name string, userID, deckID *string) (model.Player, bool) {
	if p, ok := r.players[connID]; ok {
		return p.Clone(), true
	}
	if name == "" {
		name = fmt.Sprintf("Player %d", len(r.players)+1)
	}
	p := &model.Player{
		ID:              connID,
		UserID:          nonEmpty(userID),
		Name:            name,
		DeckID:          nonEmpty(deckID),
		Life:            model.DefaultLife,
		CommanderDamage: make(map[string]int),
		IsHost:          r.hostID != nil && *r.hostID == connID,
	}
	r.players[connID] = p
	r.turnOrder = append(r.turnOrder, connID)
	return p.Clone(), false
}

// UpdateLife sets life to absolute when given, otherwise adds change.
func (r *Room) UpdateLife(connID string, change int, absolute *int) (model.LogEntry, error) {
	p, ok := r.players[connID]
	if !ok {
		return model.LogEntry{}, ErrPlayerNotFound
	}
	old := p.Life
	if absolute != nil {
		p.Life = *absolute
	} else {
		p.Life += change
	}
	return r.appendLog(model.LogEntry{
		Type:        model.LogLife,
		PlayerID:    connID,
		Change:      p.Life - old,
		CurrentLife: p.Life,
		Turn:        r.turnCount,
	}), nil
}

// UpdateCounter adds change to one of the four named counters.
func (r *Room) UpdateCounter(connID, counterType string, change int) (model.LogEntry, error) {
	p, ok := r.players[connID]
	if !ok {
		return model.LogEntry{}, ErrPlayerNotFound
	}
	newValue, ok := p.Counters.Add(counterType, change)
	if !ok {
		return model.LogEntry{}, fmt.Errorf("%w: %q", ErrUnknownCounter, counterType)
	}
	return r.appendLog(model.LogEntry{
		Type:        model.LogCounter,
		PlayerID:    connID,
		CounterType: counterType,
		Change:      change,
		NewValue:    newValue,
		Turn:        r.turnCount,
	}), nil
}

// UpdateCommanderDamage records damage received by connID from the commander
// of damageFromID. damageFromID is not required to be seated.
func (r *Room) UpdateCommanderDamage(connID, damageFromID string, change int) (model.LogEntry, error) {
	p, ok := r.players[connID]
	if !ok {
		return model.LogEntry{}, ErrPlayerNotFound
	}
	p.CommanderDamage[damageFromID] += change
	return r.appendLog(model.LogEntry{
		Type:             model.LogCommanderDamage,
		DamageFromID:     damageFromID,
		DamageReceivedBy: connID,
		Change:           change,
		NewValue:         p.CommanderDamage[damageFromID],
		Turn:             r.turnCount,
	}), nil
}

// AddNote appends a user annotation to the log
func (r *Room) AddNote(connID, note, emoji string) (model.LogEntry, error) {
	if _, ok := r.players[connID]; !ok {
		return model.LogEntry{}, ErrPlayerNotFound
	}
	if emoji == "" {
		emoji = model.DefaultNoteEmoji
	}
	return r.appendLog(model.LogEntry{
		Type:     model.LogNote,
		PlayerID: connID,
		Note:     note,
		Emoji:    emoji,
		Turn:     r.turnCount,
	}), nil
}

// State is the full-state broadcast payload
func (r *Room) State() model.GameState {
	s := model.GameState{
		Players:   r.snapshotPlayers(),
		TurnCount: r.turnCount,
	}
	if len(r.turnOrder) > 0 {
		active := r.turnOrder[r.activePlayerIndex]
		first := r.turnOrder[r.firstPlayerIndex]
		s.ActivePlayerID = &active
		s.FirstPlayerID = &first
	}
	return s
}

// Final builds the end-of-session summary. The room stays usable afterwards.
func (r *Room) Final() model.FinalState {
	end := r.now()
	return model.FinalState{
		Players:         r.snapshotPlayers(),
		DurationSeconds: int64(end.Sub(r.startTime) / time.Second),
		StartedAt:       r.startTime.UTC(),
		EndedAt:         end.UTC(),
		Logs:            r.Logs(),
	}
}

// Logs returns a copy of the event log
func (r *Room) Logs() []model.LogEntry {
	out := make([]model.LogEntry, len(r.logs))
	copy(out, r.logs)
	return out
}

func (r *Room) snapshotPlayers() []model.Player {
	out := make([]model.Player, 0, len(r.turnOrder))
	for _, id := range r.turnOrder {
		out = append(out, r.players[id].Clone())
	}
	return out
}

func (r *Room) appendLog(e model.LogEntry) model.LogEntry {
	e.Timestamp = r.now().UnixMilli()
	r.logs = append(r.logs, e)
	return e
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
