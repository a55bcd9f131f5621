// ABOUTME: Gateway orchestrator wiring the hub client, tool registry, and MCP server
// ABOUTME: Manages listeners, health endpoints, and graceful shutdown lifecycle

package gateway

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/spruthub/sprut-gateway/internal/auth"
	"github.com/spruthub/sprut-gateway/internal/catalog"
	"github.com/spruthub/sprut-gateway/internal/config"
	"github.com/spruthub/sprut-gateway/internal/hub"
	"github.com/spruthub/sprut-gateway/internal/mcp"
	"github.com/spruthub/sprut-gateway/internal/store"
	"github.com/spruthub/sprut-gateway/internal/tools"
)

// Gateway orchestrates the sprut-gateway server components.
// It owns the hub WebSocket client and the HTTP server exposing MCP and health endpoints.
type Gateway struct {
	config      *config.Config
	hub         *hub.Client
	store       store.Store
	registry    *tools.Registry
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	// mcpTokens holds ephemeral URL tokens for clients that cannot set headers
	mcpTokens *mcp.TokenStore

	// mcpServer is the MCP-compatible HTTP server for external agents
	mcpServer *mcp.Server

	// mcpEndpoint is the base URL for the MCP endpoint (e.g. "http://localhost:8080/mcp")
	mcpEndpoint string
}

// initStore creates and returns a store based on config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("SPRUT_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// determineMCPEndpoint resolves the MCP endpoint URL from env or config.
// Priority: SPRUT_MCP_ENDPOINT env > derived from config.
func determineMCPEndpoint(cfg *config.Config) string {
	if envEndpoint := os.Getenv("SPRUT_MCP_ENDPOINT"); envEndpoint != "" {
		return envEndpoint
	}
	if cfg.Tailscale.Enabled {
		scheme := "http"
		if cfg.Tailscale.Funnel || cfg.Tailscale.CertFile != "" {
			scheme = "https"
		}
		return scheme + "://" + cfg.Tailscale.Hostname + "/mcp"
	}
	return "http://" + cfg.Server.HTTPAddr + "/mcp"
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("loading method catalog: %w", err)
	}
	registry := tools.NewRegistry(cat, logger.With("component", "tools"))

	hubClient := hub.New(hub.Config{
		URL:         cfg.Hub.URL,
		Email:       cfg.Hub.Email,
		Password:    cfg.Hub.Password,
		Serial:      cfg.Hub.Serial,
		CallTimeout: cfg.Hub.CallTimeout,
		DialTimeout: cfg.Hub.DialTimeout,
		Logger:      logger.With("component", "hub"),
	})

	var authn *auth.Authenticator
	if cfg.Auth.JWTSecret != "" {
		sqlStore, ok := s.(*store.SQLiteStore)
		if !ok {
			_ = s.Close()
			return nil, errors.New("unexpected store type: expected SQLiteStore")
		}
		authn = auth.NewAuthenticator(auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)), sqlStore)
		logger.Info("JWT auth enabled for MCP endpoint")
	} else if cfg.Auth.RequireAuth {
		logger.Info("auth required with no jwt_secret - only URL tokens will be accepted")
	} else {
		logger.Warn("auth disabled - no jwt_secret configured")
	}

	mcpTokens := mcp.NewTokenStore()
	mcpServer, err := mcp.NewServer(mcp.Config{
		Registry:      registry,
		Invoker:       hubClient,
		Logger:        logger.With("component", "mcp"),
		Authenticator: authn,
		TokenStore:    mcpTokens,
		RequireAuth:   cfg.Auth.RequireAuth,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	gw := &Gateway{
		config:      cfg,
		hub:         hubClient,
		store:       s,
		registry:    registry,
		logger:      logger.With("component", "gateway"),
		mcpTokens:   mcpTokens,
		mcpServer:   mcpServer,
		mcpEndpoint: determineMCPEndpoint(cfg),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", gw.handleHealth)
	mux.HandleFunc("/health/ready", gw.handleReady)
	gw.mcpServer.RegisterRoutes(mux)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Handler returns the gateway's HTTP handler. Exposed for tests.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// MCPEndpoint returns the resolved base URL of the MCP endpoint.
func (g *Gateway) MCPEndpoint() string {
	return g.mcpEndpoint
}

// MintURLToken creates an ephemeral URL token for clients that cannot set
// Authorization headers and returns the full tokenized endpoint URL.
// The token lives only for this process; restart invalidates it.
func (g *Gateway) MintURLToken(name string) string {
	token := g.mcpTokens.CreateToken(name)
	return g.mcpEndpoint + "/" + token
}

// Run starts the gateway and blocks until the context is canceled.
// It connects to the hub first, then serves HTTP until shutdown.
// Returns nil on graceful shutdown (context canceled), or an error if
// the hub connection or the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.hub.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to hub: %w", err)
	}
	g.logger.Info("hub connection established", "url", g.config.Hub.URL, "serial", g.config.Hub.Serial)

	httpLn, err := g.setupListener(ctx)
	if err != nil {
		return err
	}

	errCh := g.startServer(httpLn)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// setupListener creates a listener based on configuration (Tailscale or TCP).
func (g *Gateway) setupListener(ctx context.Context) (net.Listener, error) {
	if g.config.Tailscale.Enabled {
		if g.config.Server.HTTPAddr != "" {
			g.logger.Warn("server.http_addr is ignored when tailscale is enabled",
				"http_addr", g.config.Server.HTTPAddr,
			)
		}
		return g.setupTailscaleListener(ctx)
	}

	g.logger.Info("starting gateway", "http_addr", g.config.Server.HTTPAddr)
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// startServer starts the HTTP server in a goroutine, returning an error channel.
func (g *Gateway) startServer(httpLn net.Listener) chan error {
	errCh := make(chan error, 1)

	go func() {
		g.logger.Info("HTTP server listening", "addr", httpLn.Addr().String(), "mcp_endpoint", g.mcpEndpoint)
		if err := g.httpServer.Serve(httpLn); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation, hub loss, or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "sprut-gateway", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable (get one at https://login.tailscale.com/admin/settings/keys)")
	}
	return authKey, nil
}

// setupTailscaleListener creates a tsnet server and returns the HTTP listener.
func (g *Gateway) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := g.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	g.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	g.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := g.tsnetServer.Up(ctx)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}

	g.logTailscaleStatus(tsCfg.Hostname, status)
	g.updateMCPEndpointFromStatus(status)

	return g.createTailscaleHTTPListener(tsCfg)
}

// logTailscaleStatus logs info about the tailscale node status.
func (g *Gateway) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		g.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	g.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// updateMCPEndpointFromStatus updates the MCP endpoint to use the Tailscale DNS name.
func (g *Gateway) updateMCPEndpointFromStatus(status *ipnstate.Status) {
	if status.Self == nil || status.Self.DNSName == "" {
		return
	}
	cleanDNS := strings.TrimSuffix(status.Self.DNSName, ".")
	scheme := "http"
	if g.config.Tailscale.Funnel || g.config.Tailscale.CertFile != "" {
		scheme = "https"
	}
	newEndpoint := scheme + "://" + cleanDNS + "/mcp"
	if newEndpoint != g.mcpEndpoint {
		g.logger.Info("updated MCP endpoint to use Tailscale DNS name", "old", g.mcpEndpoint, "new", newEndpoint)
		g.mcpEndpoint = newEndpoint
	}
}

// createTailscaleHTTPListener creates the appropriate HTTP listener based on config.
func (g *Gateway) createTailscaleHTTPListener(tsCfg config.TailscaleConfig) (net.Listener, error) {
	switch {
	case tsCfg.Funnel:
		g.logger.Info("enabling tailscale funnel (public HTTPS) on :443")
		ln, err := g.tsnetServer.ListenFunnel("tcp", ":443")
		if err != nil {
			_ = g.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale HTTPS port: %w", err)
		}
		return ln, nil
	case tsCfg.CertFile != "":
		return g.createTailscaleTLSListener(tsCfg)
	default:
		ln, err := g.tsnetServer.Listen("tcp", ":80")
		if err != nil {
			_ = g.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
		}
		return ln, nil
	}
}

// createTailscaleTLSListener creates a TLS listener using configured cert files.
func (g *Gateway) createTailscaleTLSListener(tsCfg config.TailscaleConfig) (net.Listener, error) {
	g.logger.Info("enabling HTTPS on :443", "cert_file", tsCfg.CertFile)
	cert, err := tls.LoadX509KeyPair(tsCfg.CertFile, tsCfg.KeyFile)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("loading TLS certificate: %w", err)
	}
	ln, err := g.tsnetServer.Listen("tcp", ":443")
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTPS port: %w", err)
	}
	return tls.NewListener(ln, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}), nil
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	if g.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", g.tsnetServer.Close())
	}
	errs = appendCloseError(errs, "hub close", g.hub.Close())
	errs = appendCloseError(errs, "store close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// healthStatus is the response body of the /health endpoint.
type healthStatus struct {
	Status    string `json:"status"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Connected bool   `json:"connected"`
}

// handleHealth reports liveness and whether the hub session is up.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthStatus{
		Status:    "ok",
		Name:      mcp.ServerName,
		Version:   mcp.ServerVersion,
		Connected: g.hub.IsConnected(),
	})
}

// handleReady returns 200 only once the hub session is authenticated.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if !g.hub.IsConnected() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("hub not connected"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
