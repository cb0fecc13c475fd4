package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tabletop/internal/game"
	"tabletop/internal/service"
)

// Inbound event names
const (
	EvHostGame              MessageType = "host-game"
	EvJoinGame              MessageType = "join-game"
	EvUpdateLife            MessageType = "update-life"
	EvUpdateCounters        MessageType = "update-counters"
	EvUpdateCommanderDamage MessageType = "update-commander-damage"
	EvStartGame             MessageType = "start-game"
	EvPassTurn              MessageType = "pass-turn"
	EvAddLogNote            MessageType = "add-log-note"
	EvEndGame               MessageType = "end-game"
	EvJoinPairing           MessageType = "join-pairing"
	EvCardScanned           MessageType = "card-scanned"
)

// Ack is the acknowledgement payload for every inbound action
type Ack struct {
	Success  bool   `json:"success"`
	RoomID   string `json:"roomId,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
	Pin      string `json:"pin,omitempty"`
	Rejoined bool   `json:"rejoined,omitempty"`
	Error    string `json:"error,omitempty"`
	Code     string `json:"code,omitempty"`
}

var ackOK = &Ack{Success: true}

type hostGamePayload struct {
	Pin string `json:"pin"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type updateLifePayload struct {
	RoomID   string `json:"roomId"`
	Change   *int   `json:"change"`
	Absolute *int   `json:"absolute"`
}

type updateCountersPayload struct {
	RoomID string `json:"roomId"`
	Type   string `json:"type"`
	Change int    `json:"change"`
}

// TargetID names the opposing commander that dealt the damage
type commanderDamagePayload struct {
	RoomID   string `json:"roomId"`
	TargetID string `json:"targetId"`
	Change   int    `json:"change"`
}

type startGamePayload struct {
	RoomID        string `json:"roomId"`
	FirstPlayerID string `json:"firstPlayerId"`
}

type notePayload struct {
	RoomID string `json:"roomId"`
	Note   string `json:"note"`
	Emoji  string `json:"emoji"`
}

type pairingPayload struct {
	SessionID string `json:"sessionId"`
}

type cardScannedPayload struct {
	SessionID string          `json:"sessionId"`
	Card      json.RawMessage `json:"card"`
}

func (h *Handler) dispatch(ctx context.Context, conn *Connection, msg *Message) (*Ack, error) {
	switch msg.Type {
	case EvHostGame:
		var p hostGamePayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		meta, err := h.games.HostGame(ctx, conn.ID, p.Pin)
		if err != nil {
			return nil, err
		}
		return &Ack{Success: true, RoomID: meta.RoomID, Pin: meta.Pin}, nil

	case EvJoinGame:
		var p service.JoinRequest
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		res, err := h.games.JoinGame(ctx, conn.ID, p)
		if err != nil {
			return nil, err
		}
		return &Ack{Success: true, RoomID: res.RoomID, PlayerID: res.PlayerID, Rejoined: res.Rejoined}, nil

	case EvUpdateLife:
		var p updateLifePayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		if p.Change == nil && p.Absolute == nil {
			return nil, fmt.Errorf("%w: change or absolute is required", errBadRequest)
		}
		change := 0
		if p.Change != nil {
			change = *p.Change
		}
		return ackOK, h.games.UpdateLife(ctx, conn.ID, p.RoomID, change, p.Absolute)

	case EvUpdateCounters:
		var p updateCountersPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return ackOK, h.games.UpdateCounters(ctx, conn.ID, p.RoomID, p.Type, p.Change)

	case EvUpdateCommanderDamage:
		var p commanderDamagePayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return ackOK, h.games.UpdateCommanderDamage(ctx, conn.ID, p.RoomID, p.TargetID, p.Change)

	case EvStartGame:
		var p startGamePayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return ackOK, h.games.StartGame(ctx, p.RoomID, p.FirstPlayerID)

	case EvPassTurn:
		var p roomPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return ackOK, h.games.PassTurn(ctx, p.RoomID)

	case EvAddLogNote:
		var p notePayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return ackOK, h.games.AddLogNote(ctx, conn.ID, p.RoomID, p.Note, p.Emoji)

	case EvEndGame:
		var p roomPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		_, err := h.games.EndGame(ctx, conn.ID, p.RoomID)
		return ackOK, err

	case EvJoinPairing:
		sessionID, err := decodeSessionID(msg.Payload)
		if err != nil {
			return nil, err
		}
		return ackOK, h.scans.JoinPairing(conn.ID, sessionID)

	case EvCardScanned:
		var p cardScannedPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return ackOK, h.scans.CardScanned(conn.ID, p.SessionID, p.Card)
	}
	return nil, fmt.Errorf("%w: %q", errUnknownEvent, msg.Type)
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// decodeSessionID accepts a bare string or {"sessionId": ...}
func decodeSessionID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return id, nil
	}
	var p pairingPayload
	if err := decode(raw, &p); err != nil {
		return "", err
	}
	return p.SessionID, nil
}

func failure(err error) *Ack {
	a := &Ack{Success: false, Error: err.Error(), Code: errorCode(err)}
	if errors.Is(err, game.ErrInvalidPIN) {
		a.Error = game.ErrInvalidPIN.Error()
	}
	return a
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomNotFound), errors.Is(err, game.ErrRoomClosed):
		return "room_not_found"
	case errors.Is(err, game.ErrInvalidPIN):
		return "invalid_pin"
	case errors.Is(err, game.ErrPlayerNotFound):
		return "player_not_found"
	case errors.Is(err, game.ErrUnknownCounter):
		return "unknown_counter"
	case errors.Is(err, game.ErrEmptyTurnOrder):
		return "empty_turn_order"
	case errors.Is(err, errBadRequest), errors.Is(err, service.ErrMissingSession):
		return "bad_request"
	case errors.Is(err, errRateLimited):
		return "rate_limited"
	case errors.Is(err, errUnknownEvent):
		return "unknown_event"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "internal"
}
