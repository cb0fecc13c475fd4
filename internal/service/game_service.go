package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"tabletop/internal/cache"
	"tabletop/internal/game"
	"tabletop/internal/model"
	"tabletop/internal/repository"
)

// ErrSummaryNotFound is returned when no final summary exists for a room
var ErrSummaryNotFound = errors.New("summary not found")

const persistTimeout = 5 * time.Second

// JoinRequest is the join-game payload
type JoinRequest struct {
	Pin    string  `json:"pin"`
	RoomID string  `json:"roomId,omitempty"`
	Name   string  `json:"name"`
	UserID *string `json:"userId"`
	DeckID *string `json:"deckId"`
}

// GameService applies table actions to rooms and fans the results out
type GameService struct {
	store       *game.Store
	roomCache   cache.RoomCache
	matchRepo   repository.MatchRepo
	broadcaster Broadcaster

	pending sync.WaitGroup
}

// NewGameService creates a new game service. roomCache and matchRepo may be nil.
func NewGameService(store *game.Store, roomCache cache.RoomCache, matchRepo repository.MatchRepo) *GameService {
	return &GameService{
		store:     store,
		roomCache: roomCache,
		matchRepo: matchRepo,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *GameService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// HostGame creates a room owned by connID and subscribes connID to it
func (s *GameService) HostGame(ctx context.Context, connID, pin string) (model.RoomMeta, error) {
	meta, err := s.store.Create(pin, connID)
	if err != nil {
		return model.RoomMeta{}, fmt.Errorf("failed to create room: %w", err)
	}
	s.broadcaster.Subscribe(meta.RoomID, connID)
	s.cacheMeta(meta)

	log.Info().Str("room", meta.RoomID).Str("pin", meta.Pin).Str("conn", connID).Msg("created room")
	return meta, nil
}

// JoinGame seats connID in the room named by req.Pin (or req.RoomID)
func (s *GameService) JoinGame(ctx context.Context, connID string, req JoinRequest) (*model.JoinResult, error) {
	var (
		meta model.RoomMeta
		err  error
	)
	if req.Pin == "" && req.RoomID != "" {
		meta, err = s.store.Meta(req.RoomID)
	} else {
		var created bool
		meta, created, err = s.store.Resolve(req.Pin)
		if err == nil && created {
			s.cacheMeta(meta)
		}
	}
	if err != nil {
		return nil, err
	}

	result := &model.JoinResult{RoomID: meta.RoomID, PlayerID: connID}
	err = s.store.Do(ctx, meta.RoomID, func(r *game.Room) {
		p, rejoined := r.Join(connID, req.Name, req.UserID, req.DeckID)
		result.Rejoined = rejoined
		s.broadcaster.Subscribe(r.ID(), connID)
		s.broadcastState(r)

		deck := ""
		if p.DeckID != nil {
			deck = *p.DeckID
		}
		log.Info().Str("room", r.ID()).Str("conn", connID).Str("name", p.Name).
			Str("deck", deck).Bool("rejoined", rejoined).Msg("player joined")
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateLife changes the caller's life by change, or sets it to absolute
func (s *GameService) UpdateLife(ctx context.Context, connID, roomID string, change int, absolute *int) error {
	return s.mutate(ctx, roomID, func(r *game.Room) (model.LogEntry, error) {
		return r.UpdateLife(connID, change, absolute)
	})
}

// UpdateCounters changes one of the caller's named counters
func (s *GameService) UpdateCounters(ctx context.Context, connID, roomID, counterType string, change int) error {
	return s.mutate(ctx, roomID, func(r *game.Room) (model.LogEntry, error) {
		return r.UpdateCounter(connID, counterType, change)
	})
}

// UpdateCommanderDamage records damage the caller received from damageFromID's commander
func (s *GameService) UpdateCommanderDamage(ctx context.Context, connID, roomID, damageFromID string, change int) error {
	return s.mutate(ctx, roomID, func(r *game.Room) (model.LogEntry, error) {
		return r.UpdateCommanderDamage(connID, damageFromID, change)
	})
}

// StartGame opens round 1 with firstPlayerID active
func (s *GameService) StartGame(ctx context.Context, roomID, firstPlayerID string) error {
	return s.mutate(ctx, roomID, func(r *game.Room) (model.LogEntry, error) {
		return r.Start(firstPlayerID)
	})
}

// PassTurn hands the turn to the next seat
func (s *GameService) PassTurn(ctx context.Context, roomID string) error {
	return s.mutate(ctx, roomID, func(r *game.Room) (model.LogEntry, error) {
		return r.PassTurn()
	})
}

// AddLogNote appends an annotation and pushes it as a game-log-entry
func (s *GameService) AddLogNote(ctx context.Context, connID, roomID, note, emoji string) error {
	var opErr error
	err := s.store.Do(ctx, roomID, func(r *game.Room) {
		entry, err := r.AddNote(connID, note, emoji)
		if err != nil {
			opErr = err
			return
		}
		s.broadcaster.BroadcastToRoom(r.ID(), model.EventGameLogEntry, model.GameLogEntryEvent{
			RoomID: r.ID(),
			Entry:  entry,
		})
	})
	if err != nil {
		return err
	}
	return opErr
}

// EndGame emits the terminal summary. The room stays in the store.
func (s *GameService) EndGame(ctx context.Context, connID, roomID string) (*model.FinalState, error) {
	var (
		final model.FinalState
		pin   string
	)
	err := s.store.Do(ctx, roomID, func(r *game.Room) {
		final = r.Final()
		pin = r.Pin()
		s.broadcaster.BroadcastToRoom(r.ID(), model.EventGameOver, model.GameOverEvent{FinalState: final})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("room", roomID).Str("conn", connID).Int64("durationSeconds", final.DurationSeconds).
		Int("logs", len(final.Logs)).Msg("game over")
	s.persistFinal(roomID, pin, &final)
	return &final, nil
}

// Disconnect observes a closed connection. Rosters and turn order are left as they are.
func (s *GameService) Disconnect(ctx context.Context, connID string) {
	for _, roomID := range s.store.IDs() {
		err := s.store.Do(ctx, roomID, func(r *game.Room) {
			if r.HasPlayer(connID) {
				log.Info().Str("room", r.ID()).Str("conn", connID).Msg("player disconnected")
			}
		})
		if err != nil {
			log.Debug().Err(err).Str("room", roomID).Str("conn", connID).Msg("disconnect not observed")
		}
	}
}

// ListRooms summarizes every live room
func (s *GameService) ListRooms(ctx context.Context) []model.RoomSummary {
	ids := s.store.IDs()
	out := make([]model.RoomSummary, 0, len(ids))
	for _, id := range ids {
		detail, err := s.GetRoom(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, detail.RoomSummary)
	}
	return out
}

// GetRoom returns the live state and log of a room
func (s *GameService) GetRoom(ctx context.Context, roomID string) (*model.RoomDetail, error) {
	var detail model.RoomDetail
	err := s.store.Do(ctx, roomID, func(r *game.Room) {
		state := r.State()
		detail = model.RoomDetail{
			RoomSummary: model.RoomSummary{
				RoomID:      r.ID(),
				Pin:         r.Pin(),
				HostID:      r.HostID(),
				PlayerCount: len(state.Players),
				TurnCount:   r.TurnCount(),
				StartedAt:   r.StartTime(),
			},
			State: state,
			Logs:  r.Logs(),
		}
	})
	if err != nil {
		return nil, err
	}
	if last, err := s.store.LastActivity(roomID); err == nil {
		detail.LastActivityAt = last
	}
	return &detail, nil
}

// CloseRoom tears a room down and drops its subscribers
func (s *GameService) CloseRoom(ctx context.Context, roomID string) error {
	if !s.store.Remove(roomID) {
		return game.ErrRoomNotFound
	}
	s.broadcaster.DisconnectRoom(roomID)
	if s.roomCache != nil {
		if err := s.roomCache.DeleteMeta(ctx, roomID); err != nil {
			log.Warn().Err(err).Str("room", roomID).Msg("failed to drop cached room meta")
		}
	}
	log.Info().Str("room", roomID).Msg("closed room")
	return nil
}

// GetSummary returns the last final summary of a room from cache, then archive
func (s *GameService) GetSummary(ctx context.Context, roomID string) (*model.FinalState, error) {
	if s.roomCache != nil {
		final, err := s.roomCache.GetFinal(ctx, roomID)
		if err != nil {
			log.Warn().Err(err).Str("room", roomID).Msg("summary cache read failed")
		} else if final != nil {
			return final, nil
		}
	}
	if s.matchRepo != nil {
		match, err := s.matchRepo.GetByRoomID(ctx, roomID)
		if err != nil {
			return nil, fmt.Errorf("failed to get match: %w", err)
		}
		if match != nil {
			return &model.FinalState{
				Players:         match.Players,
				DurationSeconds: match.DurationSeconds,
				StartedAt:       match.StartedAt,
				EndedAt:         match.EndedAt,
				Logs:            match.Logs,
			}, nil
		}
	}
	return nil, ErrSummaryNotFound
}

// MatchesForUser lists archived matches that userID took part in
func (s *GameService) MatchesForUser(ctx context.Context, userID string, limit int64) ([]*model.Match, error) {
	if s.matchRepo == nil {
		return []*model.Match{}, nil
	}
	return s.matchRepo.ListByUser(ctx, userID, limit)
}

// Wait blocks until background persistence has finished
func (s *GameService) Wait() {
	s.pending.Wait()
}

// mutate applies op on the room actor and broadcasts the full state on success
func (s *GameService) mutate(ctx context.Context, roomID string, op func(*game.Room) (model.LogEntry, error)) error {
	var opErr error
	err := s.store.Do(ctx, roomID, func(r *game.Room) {
		if _, err := op(r); err != nil {
			opErr = err
			return
		}
		s.broadcastState(r)
	})
	if err != nil {
		return err
	}
	return opErr
}

func (s *GameService) broadcastState(r *game.Room) {
	s.broadcaster.BroadcastToRoom(r.ID(), model.EventGameStateUpdate, r.State())
}

func (s *GameService) cacheMeta(meta model.RoomMeta) {
	if s.roomCache == nil {
		return
	}
	s.background(func(ctx context.Context) {
		if err := s.roomCache.SetMeta(ctx, &meta); err != nil {
			log.Warn().Err(err).Str("room", meta.RoomID).Msg("failed to cache room meta")
		}
	})
}

func (s *GameService) persistFinal(roomID, pin string, final *model.FinalState) {
	if s.roomCache != nil {
		s.background(func(ctx context.Context) {
			if err := s.roomCache.SetFinal(ctx, roomID, final); err != nil {
				log.Warn().Err(err).Str("room", roomID).Msg("failed to cache final state")
			}
		})
	}
	if s.matchRepo != nil {
		s.background(func(ctx context.Context) {
			if err := s.matchRepo.Create(ctx, model.NewMatch(roomID, pin, final)); err != nil {
				log.Warn().Err(err).Str("room", roomID).Msg("failed to archive match")
			}
		})
	}
}

// background runs fn off the room actor with its own deadline
func (s *GameService) background(fn func(ctx context.Context)) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		fn(ctx)
	}()
}
