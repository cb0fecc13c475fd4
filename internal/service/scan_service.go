package service

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"tabletop/internal/model"
)

// ErrMissingSession is returned when a scan action names no pairing session
var ErrMissingSession = errors.New("sessionId is required")

// ScanService relays cards scanned on a paired phone to the other devices of
// the same pairing session.
type ScanService struct {
	broadcaster Broadcaster
}

// NewScanService creates a new scan relay
func NewScanService() *ScanService {
	return &ScanService{}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *ScanService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// JoinPairing subscribes connID to a pairing session
func (s *ScanService) JoinPairing(connID, sessionID string) error {
	if sessionID == "" {
		return ErrMissingSession
	}
	s.broadcaster.Subscribe(scanChannel(sessionID), connID)
	log.Info().Str("conn", connID).Str("session", sessionID).Msg("joined pairing session")
	return nil
}

// CardScanned forwards card to every other member of the session
func (s *ScanService) CardScanned(connID, sessionID string, card json.RawMessage) error {
	if sessionID == "" {
		return ErrMissingSession
	}
	s.broadcaster.BroadcastExcept(scanChannel(sessionID), connID, model.EventRemoteCard, card)
	return nil
}

// scan channels never collide with room ids
func scanChannel(sessionID string) string {
	return "scan:pair-" + sessionID
}
