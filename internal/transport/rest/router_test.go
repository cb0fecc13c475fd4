package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop/internal/game"
	"tabletop/internal/model"
	"tabletop/internal/service"
	"tabletop/internal/transport/rest"
	"tabletop/internal/transport/ws"
)

// memoryCache keeps final states in a map
type memoryCache struct {
	mu     sync.Mutex
	metas  map[string]model.RoomMeta
	finals map[string]model.FinalState
}

func newMemoryCache() *memoryCache {
	return &memoryCache{metas: map[string]model.RoomMeta{}, finals: map[string]model.FinalState{}}
}

func (c *memoryCache) SetMeta(_ context.Context, meta *model.RoomMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metas[meta.RoomID] = *meta
	return nil
}

func (c *memoryCache) GetMeta(_ context.Context, roomID string) (*model.RoomMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.metas[roomID]
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

func (c *memoryCache) DeleteMeta(_ context.Context, roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.metas, roomID)
	return nil
}

func (c *memoryCache) SetFinal(_ context.Context, roomID string, final *model.FinalState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finals[roomID] = *final
	return nil
}

func (c *memoryCache) GetFinal(_ context.Context, roomID string) (*model.FinalState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	final, ok := c.finals[roomID]
	if !ok {
		return nil, nil
	}
	return &final, nil
}

type env struct {
	router http.Handler
	games  *service.GameService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := game.NewStore()
	hub := ws.NewHub()
	games := service.NewGameService(store, newMemoryCache(), nil)
	games.SetBroadcaster(hub)
	scans := service.NewScanService()
	scans.SetBroadcaster(hub)
	t.Cleanup(func() {
		games.Wait()
		hub.Close()
		store.Close()
	})

	router := rest.NewRouter(&rest.Container{
		AuthService: service.NewAuthService("judge", "s3cret", "signing-key"),
		GameService: games,
		WSHandler:   ws.NewHandler(hub, games, scans, 0, 0),
		CORSOrigins: "https://table.example",
	})
	return &env{router: router, games: games}
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) login(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/auth/login", "", model.LoginRequest{Username: "judge", Password: "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp model.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRouter_Health(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "https://table.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_Preflight(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodOptions, "/v1/rooms", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestRouter_Login(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		description  string
		body         interface{}
		expectedCode int
	}{
		{"valid", model.LoginRequest{Username: "judge", Password: "s3cret"}, http.StatusOK},
		{"wrong password", model.LoginRequest{Username: "judge", Password: "x"}, http.StatusUnauthorized},
		{"invalid body", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/v1/auth/login", "", tt.body)
			assert.Equal(t, tt.expectedCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestRouter_OperatorRoutesRequireToken(t *testing.T) {
	e := newEnv(t)
	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/rooms"},
		{http.MethodGet, "/v1/rooms/game-1"},
		{http.MethodDelete, "/v1/rooms/game-1"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, e.do(t, p.method, p.path, "", nil).Code)
			assert.Equal(t, http.StatusUnauthorized, e.do(t, p.method, p.path, "garbage", nil).Code)

			req := httptest.NewRequest(p.method, p.path, nil)
			req.Header.Set("Authorization", "Basic anVkZ2U6czNjcmV0")
			rec := httptest.NewRecorder()
			e.router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRouter_RoomLifecycle(t *testing.T) {
	e := newEnv(t)
	token := e.login(t)
	ctx := context.Background()

	meta, err := e.games.HostGame(ctx, "conn-1", "5150")
	require.NoError(t, err)
	_, err = e.games.JoinGame(ctx, "conn-1", service.JoinRequest{Pin: "5150", Name: "Ana"})
	require.NoError(t, err)
	require.NoError(t, e.games.UpdateLife(ctx, "conn-1", meta.RoomID, -2, nil))

	rec := e.do(t, http.MethodGet, "/v1/rooms", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rooms []model.RoomSummary `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, meta.RoomID, list.Rooms[0].RoomID)
	assert.Equal(t, "5150", list.Rooms[0].Pin)
	assert.Equal(t, 1, list.Rooms[0].PlayerCount)

	rec = e.do(t, http.MethodGet, "/v1/rooms/"+meta.RoomID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		State model.GameState          `json:"state"`
		Logs  []map[string]interface{} `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Len(t, detail.State.Players, 1)
	assert.Equal(t, 38, detail.State.Players[0].Life)
	require.Len(t, detail.Logs, 1)
	assert.Equal(t, "life", detail.Logs[0]["type"])

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/v1/rooms/game-missing", token, nil).Code)

	rec = e.do(t, http.MethodDelete, "/v1/rooms/"+meta.RoomID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"CLOSED"}`, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, "/v1/rooms/"+meta.RoomID, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/v1/rooms/"+meta.RoomID, token, nil).Code)
}

func TestRouter_Summary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec := e.do(t, http.MethodGet, "/v1/rooms/pair-1/summary", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := e.games.JoinGame(ctx, "conn-1", service.JoinRequest{Pin: "pair-1"})
	require.NoError(t, err)
	_, err = e.games.EndGame(ctx, "conn-1", "pair-1")
	require.NoError(t, err)
	e.games.Wait()

	rec = e.do(t, http.MethodGet, "/v1/rooms/pair-1/summary", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		FinalState model.FinalState `json:"finalState"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.FinalState.Players, 1)
	assert.NotNil(t, body.FinalState.Logs)
}

func TestRouter_MatchesWithoutArchive(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/v1/matches/user/user-1?limit=5", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"matches":[]}`, rec.Body.String())
}
