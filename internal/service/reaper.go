package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ReapIdle closes rooms with no activity for longer than ttl
func (s *GameService) ReapIdle(ctx context.Context, now time.Time, ttl time.Duration) []string {
	idle := s.store.IdleSince(now.Add(-ttl))
	reaped := make([]string, 0, len(idle))
	for _, roomID := range idle {
		if err := s.CloseRoom(ctx, roomID); err != nil {
			continue
		}
		reaped = append(reaped, roomID)
	}
	if len(reaped) > 0 {
		log.Info().Int("rooms", len(reaped)).Dur("ttl", ttl).Msg("reaped idle rooms")
	}
	return reaped
}

// RunReaper calls ReapIdle every interval until ctx is cancelled. A ttl of
// zero disables reaping.
func (s *GameService) RunReaper(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		log.Info().Msg("room reaper disabled")
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			s.ReapIdle(ctx, now, ttl)
		case <-ctx.Done():
			return
		}
	}
}
