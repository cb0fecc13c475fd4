package game

import "tabletop/internal/model"

// Start makes firstPlayerID the active player and opens round 1.
func (r *Room) Start(firstPlayerID string) (model.LogEntry, error) {
	idx := -1
	for i, id := range r.turnOrder {
		if id == firstPlayerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return model.LogEntry{}, ErrPlayerNotFound
	}
	r.activePlayerIndex = idx
	r.firstPlayerIndex = idx
	r.turnCount = 1
	return r.appendLog(model.LogEntry{
		Type:           model.LogTurn,
		Turn:           1,
		ActivePlayerID: firstPlayerID,
	}), nil
}

// PassTurn advances to the next seat. Landing back on the first player's seat
// completes a round.
func (r *Room) PassTurn() (model.LogEntry, error) {
	if len(r.turnOrder) == 0 {
		return model.LogEntry{}, ErrEmptyTurnOrder
	}
	next := (r.activePlayerIndex + 1) % len(r.turnOrder)
	r.activePlayerIndex = next
	if next == r.firstPlayerIndex {
		// passing before start-game counts from round 1
		if r.turnCount == 0 {
			r.turnCount = 1
		}
		r.turnCount++
	}
	return r.appendLog(model.LogEntry{
		Type:           model.LogTurn,
		Turn:           r.turnCount,
		ActivePlayerID: r.turnOrder[next],
	}), nil
}
