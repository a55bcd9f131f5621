// ABOUTME: Tests for the Gateway orchestrator wiring hub, tools, and MCP server
// ABOUTME: Uses a scripted WebSocket hub to exercise the full request path

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spruthub/sprut-gateway/internal/config"
)

// testConfig creates a minimal config backed by a temp database.
func testConfig(t *testing.T, hubURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Hub: config.HubConfig{
			URL:         hubURL,
			Email:       "user@example.com",
			Password:    "hunter2",
			Serial:      "SH-001",
			CallTimeout: 2 * time.Second,
			DialTimeout: 2 * time.Second,
		},
		Server: config.ServerConfig{
			HTTPAddr: "127.0.0.1:0",
		},
		Database: config.DatabaseConfig{
			Path: filepath.Join(t.TempDir(), "gateway.db"),
		},
	}
}

func newTestGateway(t *testing.T, hubURL string) *Gateway {
	t.Helper()
	gw, err := New(testConfig(t, hubURL), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err, "New failed")
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = gw.Shutdown(ctx)
	})
	return gw
}

// newFakeHub starts a WebSocket server that answers the 3-step auth exchange
// and then serves method calls via handle. The handler runs in the server
// goroutine, so it must not call t.Fatal.
func newFakeHub(t *testing.T, handle func(conn *websocket.Conn, frame map[string]any)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		// Auth step 1 wants an email, step 2 a password, step 3 issues the token.
		for _, reply := range []map[string]any{
			{"account": map[string]any{"auth": map[string]any{
				"status": "SUCCESS", "question": map[string]any{"type": "EMAIL"},
			}}},
			{"account": map[string]any{"answer": map[string]any{
				"status": "SUCCESS", "question": map[string]any{"type": "PASSWORD"},
			}}},
			{"account": map[string]any{"answer": map[string]any{
				"status": "SUCCESS", "token": "tok-test",
			}}},
		} {
			frame := map[string]any{}
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			id, _ := frame["id"].(float64)
			_ = conn.WriteJSON(map[string]any{"id": int64(id), "result": reply})
		}

		for {
			frame := map[string]any{}
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			handle(conn, frame)
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func replyTo(conn *websocket.Conn, frame map[string]any, result any) {
	id, _ := frame["id"].(float64)
	_ = conn.WriteJSON(map[string]any{"id": int64(id), "result": result})
}

func getHealth(t *testing.T, gw *Gateway) (int, healthStatus) {
	t.Helper()
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body healthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "decoding health body")
	return rec.Code, body
}

func TestHealthBeforeHubConnect(t *testing.T) {
	gw := newTestGateway(t, "ws://127.0.0.1:1/spruthub")

	code, body := getHealth(t, gw)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "sprut-gateway", body.Name)
	assert.Equal(t, "1.0.0", body.Version)
	assert.False(t, body.Connected, "expected connected=false before hub connect")
}

func TestHealthReflectsHubConnection(t *testing.T) {
	hubURL := newFakeHub(t, func(conn *websocket.Conn, frame map[string]any) {})
	gw := newTestGateway(t, hubURL)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, gw.hub.Connect(ctx), "hub connect failed")

	_, body := getHealth(t, gw)
	assert.True(t, body.Connected, "expected connected=true after hub connect")
}

func TestReadyUnavailableUntilHubConnected(t *testing.T) {
	hubURL := newFakeHub(t, func(conn *websocket.Conn, frame map[string]any) {})
	gw := newTestGateway(t, hubURL)

	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, gw.hub.Connect(ctx), "hub connect failed")

	rec = httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// postMCP sends one JSON-RPC request to the MCP endpoint.
func postMCP(t *testing.T, gw *Gateway, sessionID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)
	return rec
}

func TestMCPEndToEnd(t *testing.T) {
	hubURL := newFakeHub(t, func(conn *websocket.Conn, frame map[string]any) {
		params, _ := frame["params"].(map[string]any)
		if _, ok := params["room"]; ok {
			replyTo(conn, frame, map[string]any{"data": []any{
				map[string]any{"id": 1, "name": "Kitchen"},
				map[string]any{"id": 2, "name": "Hallway"},
			}})
			return
		}
		replyTo(conn, frame, map[string]any{"data": map[string]any{}})
	})
	gw := newTestGateway(t, hubURL)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, gw.hub.Connect(ctx), "hub connect failed")

	rec := postMCP(t, gw, "", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-11-25"}}`)
	require.Equal(t, http.StatusOK, rec.Code, "initialize: %s", rec.Body.String())
	sessionID := rec.Header().Get("Mcp-Session-Id")
	require.NotEmpty(t, sessionID, "initialize did not return a session ID")

	rec = postMCP(t, gw, sessionID, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"spruthub_list_rooms","arguments":{}}}`)
	require.Equal(t, http.StatusOK, rec.Code, "tools/call: %s", rec.Body.String())
	var resp struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "decoding tools/call response")
	require.False(t, resp.Result.IsError, "unexpected tool error: %s", rec.Body.String())
	require.NotEmpty(t, resp.Result.Content)
	assert.Contains(t, resp.Result.Content[0].Text, "Found 2 rooms")
}

func TestMCPToolErrorWhenHubDown(t *testing.T) {
	hubURL := newFakeHub(t, func(conn *websocket.Conn, frame map[string]any) {})
	gw := newTestGateway(t, hubURL)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, gw.hub.Connect(ctx), "hub connect failed")
	require.NoError(t, gw.hub.Close(), "hub close failed")

	rec := postMCP(t, gw, "", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-11-25"}}`)
	sessionID := rec.Header().Get("Mcp-Session-Id")

	rec = postMCP(t, gw, sessionID, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"spruthub_list_rooms","arguments":{}}}`)
	assert.Contains(t, rec.Body.String(), "hub connection unavailable")
}

func TestRunFailsWhenHubUnreachable(t *testing.T) {
	gw := newTestGateway(t, "ws://127.0.0.1:1/spruthub")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := gw.Run(ctx)
	require.Error(t, err, "expected Run to fail against unreachable hub")
	assert.Contains(t, err.Error(), "connecting to hub")
}

func TestRunServesUntilCanceled(t *testing.T) {
	hubURL := newFakeHub(t, func(conn *websocket.Conn, frame map[string]any) {})
	gw := newTestGateway(t, hubURL)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gw.Run(ctx) }()

	// Give the server a moment to bind before canceling.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "Run returned error on graceful shutdown")
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMintURLToken(t *testing.T) {
	gw := newTestGateway(t, "ws://127.0.0.1:1/spruthub")

	url := gw.MintURLToken("local")
	prefix := gw.MCPEndpoint() + "/"
	require.True(t, strings.HasPrefix(url, prefix), "expected token URL under %s, got %s", prefix, url)

	token := strings.TrimPrefix(url, prefix)
	name, ok := gw.mcpTokens.Lookup(token)
	require.True(t, ok, "minted token did not resolve")
	assert.Equal(t, "local", name)
}

func TestDetermineMCPEndpoint(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		env  string
		want string
	}{
		{
			name: "env override",
			cfg:  config.Config{Server: config.ServerConfig{HTTPAddr: "127.0.0.1:8080"}},
			env:  "https://gateway.example.com/mcp",
			want: "https://gateway.example.com/mcp",
		},
		{
			name: "plain tcp",
			cfg:  config.Config{Server: config.ServerConfig{HTTPAddr: "127.0.0.1:8080"}},
			want: "http://127.0.0.1:8080/mcp",
		},
		{
			name: "tailscale",
			cfg:  config.Config{Tailscale: config.TailscaleConfig{Enabled: true, Hostname: "sprut"}},
			want: "http://sprut/mcp",
		},
		{
			name: "tailscale funnel",
			cfg:  config.Config{Tailscale: config.TailscaleConfig{Enabled: true, Hostname: "sprut", Funnel: true}},
			want: "https://sprut/mcp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv("SPRUT_MCP_ENDPOINT", tt.env)
			}
			assert.Equal(t, tt.want, determineMCPEndpoint(&tt.cfg))
		})
	}
}

func TestInitStoreEnvOverride(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "override.db")
	t.Setenv("SPRUT_DB_PATH", envPath)

	cfg := &config.Config{Database: config.DatabaseConfig{Path: filepath.Join(dir, "ignored.db")}}
	s, err := initStore(cfg)
	require.NoError(t, err, "initStore failed")
	defer s.Close()

	_, err = os.Stat(envPath)
	assert.NoError(t, err, "expected database at override path")
	_, err = os.Stat(cfg.Database.Path)
	assert.True(t, os.IsNotExist(err), "expected no database at configured path, stat err: %v", err)
}

func TestShutdownIsIdempotentOnResources(t *testing.T) {
	hubURL := newFakeHub(t, func(conn *websocket.Conn, frame map[string]any) {})
	gw := newTestGateway(t, hubURL)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, gw.hub.Connect(ctx), "hub connect failed")

	require.NoError(t, gw.Shutdown(ctx), "Shutdown failed")
	assert.False(t, gw.hub.IsConnected(), "hub still connected after shutdown")
}
