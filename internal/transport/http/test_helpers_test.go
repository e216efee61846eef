package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/pyrechat/pyre-server/internal/auth"
	"github.com/pyrechat/pyre-server/internal/config"
	"github.com/pyrechat/pyre-server/internal/core"
	"github.com/pyrechat/pyre-server/internal/proto"
	"github.com/pyrechat/pyre-server/internal/store/jsonfile"
)

const testSecret = "test-secret"

type testEnv struct {
	ts        *httptest.Server
	registry  *core.Registry
	usersPath string
	wsURL     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	usersPath := filepath.Join(t.TempDir(), "users.json")
	st, err := jsonfile.New(usersPath)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.JWTSecret = testSecret
	cfg.WriteTimeout = time.Second

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.TokenTTL,
	}, auth.WithPasswordCost(bcrypt.MinCost))

	disabledLogger := zerolog.Nop()
	registry := core.NewRegistry()
	sessions := core.NewSessionHandler(
		registry,
		core.NewBroadcaster(registry, &disabledLogger),
		authService,
		core.SessionConfig{Channel: cfg.Channel, QueueSize: cfg.SendQueueSize},
		&disabledLogger,
	)

	server := NewServer(sessions, authService, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{
		ts:        ts,
		registry:  registry,
		usersPath: usersPath,
		wsURL:     strings.Replace(ts.URL, "http", "ws", 1) + "/" + cfg.Channel,
	}
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()

	resp, err := e.ts.Client().PostForm(e.ts.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) register(t *testing.T, username, password string) {
	t.Helper()

	resp := e.postForm(t, "/register", url.Values{"username": {username}, "password": {password}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register %s: unexpected status %d", username, resp.StatusCode)
	}
}

func (e *testEnv) token(t *testing.T, username, password string) string {
	t.Helper()

	resp := e.postForm(t, "/token", url.Values{"username": {username}, "password": {password}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token %s: unexpected status %d", username, resp.StatusCode)
	}

	var body proto.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	return body.AccessToken
}

// connect registers username, fetches a token and opens the chat socket.
func (e *testEnv) connect(t *testing.T, ctx context.Context, username string) *websocket.Conn {
	t.Helper()

	e.register(t, username, "password123")
	tok := e.token(t, username, "password123")

	conn, _, err := websocket.Dial(ctx, e.wsURL+"?token="+url.QueryEscape(tok), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", username, err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) proto.Event {
	t.Helper()

	var ev proto.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}
