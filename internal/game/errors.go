package game

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrInvalidPIN     = errors.New("Invalid PIN")
	ErrPinExhausted   = errors.New("failed to generate unique pin")
	ErrIDExhausted    = errors.New("failed to allocate room id")
	ErrPlayerNotFound = errors.New("player not found")
	ErrUnknownCounter = errors.New("unknown counter type")
	ErrEmptyTurnOrder = errors.New("turn order is empty")
	ErrRoomClosed     = errors.New("room closed")
)
