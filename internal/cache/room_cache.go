package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tabletop/internal/model"
)

// RoomCache mirrors room descriptions and end-of-session summaries in Redis.
// The in-memory store remains the source of truth for live state.
type RoomCache interface {
	SetMeta(ctx context.Context, meta *model.RoomMeta) error
	GetMeta(ctx context.Context, roomID string) (*model.RoomMeta, error)
	DeleteMeta(ctx context.Context, roomID string) error
	SetFinal(ctx context.Context, roomID string, final *model.FinalState) error
	GetFinal(ctx context.Context, roomID string) (*model.FinalState, error)
}

type roomCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomCache creates a new room cache
func NewRoomCache(client *redis.Client, ttl time.Duration) RoomCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &roomCache{
		client: client,
		ttl:    ttl,
	}
}

func metaKey(roomID string) string {
	return fmt.Sprintf("room:%s", roomID)
}

func finalKey(roomID string) string {
	return fmt.Sprintf("room:%s:final", roomID)
}

func (c *roomCache) SetMeta(ctx context.Context, meta *model.RoomMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, metaKey(meta.RoomID), data, c.ttl).Err()
}

func (c *roomCache) GetMeta(ctx context.Context, roomID string) (*model.RoomMeta, error) {
	var meta model.RoomMeta
	ok, err := c.getJSON(ctx, metaKey(roomID), &meta)
	if err != nil || !ok {
		return nil, err
	}
	return &meta, nil
}

func (c *roomCache) DeleteMeta(ctx context.Context, roomID string) error {
	return c.client.Del(ctx, metaKey(roomID)).Err()
}

func (c *roomCache) SetFinal(ctx context.Context, roomID string, final *model.FinalState) error {
	data, err := json.Marshal(final)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, finalKey(roomID), data, c.ttl).Err()
}

func (c *roomCache) GetFinal(ctx context.Context, roomID string) (*model.FinalState, error) {
	var final model.FinalState
	ok, err := c.getJSON(ctx, finalKey(roomID), &final)
	if err != nil || !ok {
		return nil, err
	}
	return &final, nil
}

// getJSON returns ok=false when the key does not exist
func (c *roomCache) getJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}
