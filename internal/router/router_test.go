package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redcode-api/internal/cache"
	"redcode-api/internal/handler"
	"redcode-api/internal/middleware"
	"redcode-api/internal/model"
	"redcode-api/internal/repository"
	"redcode-api/internal/script"
	"redcode-api/internal/service"
	"redcode-api/internal/thumbnail"
)

const testLoginKey = "admin-key"

type stubImages struct{}

func (stubImages) FetchImage(ctx context.Context, assetID string) ([]byte, string, error) {
	if assetID == "bad" {
		return nil, "", thumbnail.ErrLookupFailed
	}
	return []byte("IMG" + assetID), "image/webp", nil
}

type testServer struct {
	srv   *httptest.Server
	store *repository.JSONFileStore
	users *service.UserService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	store, err := repository.NewJSONFileStore(filepath.Join(dir, "database.json"))
	require.NoError(t, err)

	scriptPath := filepath.Join(dir, "sc.lua")
	require.NoError(t, os.WriteFile(scriptPath, []byte("print('redcode')"), 0o644))

	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })

	users := service.NewUserService(store, service.UserConfig{JWTSecret: []byte("test-secret")})
	bots := service.NewBotService(store)
	reconciler := service.NewReconciler(store, service.NewNormalizer(nil, 0), nil)
	sweeper := service.NewLivenessSweeper(store, nil, service.SweeperConfig{})

	r := New(Config{
		Handler:          handler.New(),
		AuthHandler:      handler.NewAuthHandler(users),
		BotHandler:       handler.NewBotHandler(bots),
		GameDataHandler:  handler.NewGameDataHandler(reconciler),
		ThumbnailHandler: handler.NewThumbnailHandler(stubImages{}),
		ScriptHandler:    handler.NewScriptHandler(script.NewFileSource(scriptPath)),
		AdminHandler:     handler.NewAdminHandler(bots, mem, sweeper, "json"),
		RequireUser:      middleware.RequireUser(users.ParseSession),
		RequireLoginKey:  middleware.RequireLoginKey(testLoginKey),
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, store: store, users: users}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (*http.Response, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp, env
}

// login registers a user and returns a session token.
func (ts *testServer) login(t *testing.T, username string) string {
	t.Helper()

	resp, _ := ts.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": username, "password": "pw"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := ts.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": username, "password": "pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.Token)
	return session.Token
}

func TestHealthRoutes(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/health", "/api/v1/ready", "/api/status"} {
		resp, env := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.True(t, env.Success, path)
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "alice")

	resp, env := ts.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": "pw"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.False(t, env.Success)

	resp, _ = ts.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, env = ts.do(t, http.MethodPost, "/api/verify", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"valid":true`)

	resp, env = ts.do(t, http.MethodPost, "/api/verify", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "JWT token required", env.Error.Message)

	resp, _ = ts.do(t, http.MethodPut, "/api/user/settings", token, map[string]string{"username": "alicia"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = ts.do(t, http.MethodPost, "/api/user/apikey", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"apiKey":"ts_`)

	resp, env = ts.do(t, http.MethodPost, "/api/auth/token", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "User ID required", env.Error.Message)
}

func TestBotRoutes_RequireToken(t *testing.T) {
	ts := newTestServer(t)

	resp, env := ts.do(t, http.MethodGet, "/api/bots", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "JWT token required", env.Error.Message)

	resp, env = ts.do(t, http.MethodGet, "/api/bots", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Invalid JWT token", env.Error.Message)
}

func TestBotLifecycle(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "alice")
	mallory := ts.login(t, "mallory")

	resp, env := ts.do(t, http.MethodPost, "/api/bots", alice, map[string]string{"name": "bob", "token": "t", "gameId": "g"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Bot model.Bot `json:"bot"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, model.StatusOffline, created.Bot.Status)

	report := map[string]interface{}{
		"username": "Bob",
		"data": map[string]interface{}{
			"Player": map[string]interface{}{"Coins": 500},
			"Inventory": map[string]interface{}{
				"Fishes": []map[string]interface{}{
					{"Name": "Carp", "Tier": 1, "Quantity": 3},
					{"Name": "Kraken", "Rarity": "Secret", "Quantity": 1},
				},
			},
		},
	}
	resp, env = ts.do(t, http.MethodPost, "/api/gamedata", "", report)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ack struct {
		Message string              `json:"message"`
		Bot     handler.BotSnapshot `json:"bot"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	assert.Equal(t, "Game data updated", ack.Message)
	assert.Equal(t, handler.BotSnapshot{
		Name:            "bob",
		Status:          model.StatusOnline,
		Coin:            500,
		FishCaught:      4,
		BackpackCurrent: 4,
		RarestFish:      "Kraken",
		Rarity:          model.RaritySecret,
	}, ack.Bot)

	resp, env = ts.do(t, http.MethodGet, "/api/bots", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list handler.BotListResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Bots, 1)
	assert.Equal(t, 1, list.Summary.Online)
	assert.Equal(t, 1, list.Summary.SecretBots)
	assert.Equal(t, 1, list.Summary.SecretItems)

	resp, _ = ts.do(t, http.MethodGet, "/api/bots?userId=someone-else", alice, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env = ts.do(t, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats model.FleetStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, model.FleetStats{TotalUsers: 2, TotalBots: 1, TotalCoins: 500, TotalFish: 4}, stats)

	resp, env = ts.do(t, http.MethodDelete, "/api/bots/"+created.Bot.ID, mallory, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Bot not found", env.Error.Message)

	resp, _ = ts.do(t, http.MethodDelete, "/api/bots/"+created.Bot.ID, alice, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGameData_Errors(t *testing.T) {
	ts := newTestServer(t)

	resp, env := ts.do(t, http.MethodPost, "/api/gamedata", "", map[string]interface{}{"username": "Ghost", "data": map[string]interface{}{}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Bot not found in database", env.Error.Message)

	resp, env = ts.do(t, http.MethodPost, "/api/gamedata", "", map[string]interface{}{"username": "Ghost"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Missing username or data", env.Error.Message)
}

func TestScriptRoute(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/script", nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req.Header.Set("User-Agent", "Roblox/WinInet")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))

	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	assert.Equal(t, "print('redcode')", body.String())
}

func TestThumbnailRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, env := ts.do(t, http.MethodGet, "/api/thumbnail", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Asset ID required", env.Error.Message)

	resp, _ = ts.do(t, http.MethodGet, "/api/thumbnail?assetId=bad", "", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp, err := http.Get(ts.srv.URL + "/api/thumbnail?assetId=42")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/webp", resp.Header.Get("Content-Type"))
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	stale := model.NewBot("b1", "u1", "bob", time.Now())
	stale.Status = model.StatusOnline
	last := time.Now().Add(-time.Hour)
	stale.LastUpdate = &last
	require.NoError(t, ts.store.CreateBot(ctx, &stale))

	resp, _ := ts.do(t, http.MethodGet, "/api/admin/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, env := ts.do(t, http.MethodGet, "/api/admin/stats", "", nil, "X-Login-Key", testLoginKey)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	resp, env = ts.do(t, http.MethodPost, "/api/admin/sweep", "", nil, "X-Login-Key", testLoginKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"demoted":1`)

	got, err := ts.store.GetBot(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusOffline, got.Status)
}
