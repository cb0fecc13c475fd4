package service

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"tabletop/internal/model"
)

// --- RoomCache ---

type MockRoomCache struct {
	mock.Mock
}

func (m *MockRoomCache) SetMeta(ctx context.Context, meta *model.RoomMeta) error {
	args := m.Called(ctx, meta)
	return args.Error(0)
}

func (m *MockRoomCache) GetMeta(ctx context.Context, roomID string) (*model.RoomMeta, error) {
	args := m.Called(ctx, roomID)
	meta, _ := args.Get(0).(*model.RoomMeta)
	return meta, args.Error(1)
}

func (m *MockRoomCache) DeleteMeta(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *MockRoomCache) SetFinal(ctx context.Context, roomID string, final *model.FinalState) error {
	args := m.Called(ctx, roomID, final)
	return args.Error(0)
}

func (m *MockRoomCache) GetFinal(ctx context.Context, roomID string) (*model.FinalState, error) {
	args := m.Called(ctx, roomID)
	final, _ := args.Get(0).(*model.FinalState)
	return final, args.Error(1)
}

// --- MatchRepo ---

type MockMatchRepo struct {
	mock.Mock
}

func (m *MockMatchRepo) Create(ctx context.Context, match *model.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepo) GetByRoomID(ctx context.Context, roomID string) (*model.Match, error) {
	args := m.Called(ctx, roomID)
	match, _ := args.Get(0).(*model.Match)
	return match, args.Error(1)
}

func (m *MockMatchRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.Match, error) {
	args := m.Called(ctx, userID, limit)
	matches, _ := args.Get(0).([]*model.Match)
	return matches, args.Error(1)
}

func (m *MockMatchRepo) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Broadcaster ---

type sent struct {
	channel string
	except  string
	msgType string
	payload interface{}
}

// recorder is a Broadcaster that keeps everything it is asked to deliver
type recorder struct {
	mu           sync.Mutex
	subs         map[string][]string
	messages     []sent
	disconnected []string
}

func newRecorder() *recorder {
	return &recorder{subs: make(map[string][]string)}
}

func (r *recorder) Subscribe(channel, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.subs[channel] {
		if id == connID {
			return
		}
	}
	r.subs[channel] = append(r.subs[channel], connID)
}

func (r *recorder) BroadcastToRoom(channel, msgType string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, sent{channel: channel, msgType: msgType, payload: payload})
}

func (r *recorder) BroadcastExcept(channel, except, msgType string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, sent{channel: channel, except: except, msgType: msgType, payload: payload})
}

func (r *recorder) DisconnectRoom(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected = append(r.disconnected, channel)
	delete(r.subs, channel)
}

func (r *recorder) subscribers(channel string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.subs[channel]...)
}

func (r *recorder) all() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.messages...)
}

func (r *recorder) last() sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return sent{}
	}
	return r.messages[len(r.messages)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
