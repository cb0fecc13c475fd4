package game

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tabletop/internal/model"
)

// DefaultPairingPrefix marks pins that create their room on first join
const DefaultPairingPrefix = "pair-"

const (
	pinLen      = 6
	pinAttempts = 20
)

// Store is the process-wide registry of live rooms. Each room is served by
// its own actor, so mutations of one room are applied strictly in the order
// they are submitted.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*actor
	ids   []string // creation order, scanned by Resolve

	pairingPrefix string
	now           func() time.Time
	newID         func() string
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides room id generation for explicitly hosted rooms
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithPairingPrefix sets the prefix of lazily created tournament pins
func WithPairingPrefix(prefix string) Option {
	return func(s *Store) { s.pairingPrefix = prefix }
}

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		rooms:         make(map[string]*actor),
		pairingPrefix: DefaultPairingPrefix,
		now:           time.Now,
		newID:         func() string { return "game-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a hosted room. An empty pin is replaced by a fresh
// numeric pin not used by any live room.
func (s *Store) Create(pin, hostID string) (model.RoomMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pin == "" {
		generated, err := s.generatePinLocked()
		if err != nil {
			return model.RoomMeta{}, err
		}
		pin = generated
	}

	id := s.newID()
	for attempts := 0; s.rooms[id] != nil; attempts++ {
		if attempts >= 10 {
			return model.RoomMeta{}, ErrIDExhausted
		}
		id = s.newID()
	}

	host := hostID
	a := s.addLocked(id, pin, &host)
	return metaOf(a.room), nil
}

// Resolve finds the room for pin. Explicit rooms are matched by linear scan
// in creation order; unmatched pairing pins name their own room id, which is
// created on first use.
func (s *Store) Resolve(pin string) (meta model.RoomMeta, created bool, err error) {
	if pin == "" {
		return model.RoomMeta{}, false, ErrInvalidPIN
	}

	s.mu.RLock()
	if a := s.scanLocked(pin); a != nil {
		s.mu.RUnlock()
		return metaOf(a.room), false, nil
	}
	s.mu.RUnlock()

	if s.pairingPrefix == "" || !strings.HasPrefix(pin, s.pairingPrefix) {
		return model.RoomMeta{}, false, ErrInvalidPIN
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.scanLocked(pin); a != nil {
		return metaOf(a.room), false, nil
	}
	if a, ok := s.rooms[pin]; ok {
		return metaOf(a.room), false, nil
	}
	a := s.addLocked(pin, pin, nil)
	log.Info().Str("room", pin).Msg("lazy-created tournament room")
	return metaOf(a.room), true, nil
}

// Do runs fn against the room on its actor goroutine.
func (s *Store) Do(ctx context.Context, roomID string, fn func(*Room)) error {
	s.mu.RLock()
	a, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if !ok {
		return ErrRoomNotFound
	}
	return a.do(ctx, fn)
}

// Meta returns the immutable description of a room
func (s *Store) Meta(roomID string) (model.RoomMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.rooms[roomID]
	if !ok {
		return model.RoomMeta{}, ErrRoomNotFound
	}
	return metaOf(a.room), nil
}

// LastActivity returns when the room last applied a command
func (s *Store) LastActivity(roomID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.rooms[roomID]
	if !ok {
		return time.Time{}, ErrRoomNotFound
	}
	return a.lastActivity(), nil
}

// IDs returns room ids in creation order
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.ids...)
}

// Len returns the number of live rooms
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Remove stops a room's actor and forgets it
func (s *Store) Remove(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	delete(s.rooms, roomID)
	for i, id := range s.ids {
		if id == roomID {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	a.stop()
	return true
}

// IdleSince lists rooms whose last activity is before cutoff
func (s *Store) IdleSince(cutoff time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var idle []string
	for _, id := range s.ids {
		if s.rooms[id].lastActivity().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	return idle
}

// Close stops every room actor
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.rooms {
		a.stop()
	}
}

func (s *Store) addLocked(id, pin string, hostID *string) *actor {
	a := newActor(newRoom(id, pin, hostID, s.now))
	s.rooms[id] = a
	s.ids = append(s.ids, id)
	go a.loop()
	return a
}

func (s *Store) scanLocked(pin string) *actor {
	for _, id := range s.ids {
		if a := s.rooms[id]; a.room.pin == pin {
			return a
		}
	}
	return nil
}

// generatePinLocked creates a 6-digit numeric pin
func (s *Store) generatePinLocked() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < pinLen; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	for attempts := 0; attempts < pinAttempts; attempts++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		pin := n.String()
		pin = strings.Repeat("0", pinLen-len(pin)) + pin
		if s.scanLocked(pin) == nil {
			return pin, nil
		}
	}
	return "", ErrPinExhausted
}

func metaOf(r *Room) model.RoomMeta {
	return model.RoomMeta{
		RoomID:    r.id,
		Pin:       r.pin,
		HostID:    r.hostID,
		Lazy:      r.hostID == nil,
		CreatedAt: r.startTime,
	}
}
