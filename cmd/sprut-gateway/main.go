// ABOUTME: Entry point for the sprut-gateway MCP server
// ABOUTME: Bridges MCP clients to a Sprut.hub smart home hub

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/spruthub/sprut-gateway/internal/auth"
	"github.com/spruthub/sprut-gateway/internal/catalog"
	"github.com/spruthub/sprut-gateway/internal/config"
	"github.com/spruthub/sprut-gateway/internal/gateway"
	"github.com/spruthub/sprut-gateway/internal/hub"
	"github.com/spruthub/sprut-gateway/internal/mcp"
	"github.com/spruthub/sprut-gateway/internal/store"
	"github.com/spruthub/sprut-gateway/internal/tools"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                          _                         _
 ___  _ __   _ __  _   _ | |_          __ _   __ _ | |_   ___ __      __  __ _  _   _
/ __|| '_ \ | '__|| | | || __| _____  / _' | / _' || __| / _ \\ \ /\ / / / _' || | | |
\__ \| |_) || |   | |_| || |_ |_____|| (_| || (_| || |_ |  __/ \ V  V / | (_| || |_| |
|___/| .__/ |_|    \__,_| \__|        \__, | \__,_| \__| \___|  \_/\_/   \__,_| \__, |
     |_|                              |___/                                     |___/
`

// getConfigPath returns the path to the gateway config file.
// Priority: SPRUT_CONFIG env var > XDG_CONFIG_HOME/sprut/gateway.yaml > ~/.config/sprut/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SPRUT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "sprut", "gateway.yaml")
}

// getDataPath returns the path to the sprut data directory.
// Priority: XDG_DATA_HOME/sprut > ~/.local/share/sprut
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "sprut")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: sprut-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                  Start the HTTP gateway server")
		fmt.Println("  stdio                  Speak MCP over stdin/stdout (for local clients)")
		fmt.Println("  init                   Create a new config file interactively")
		fmt.Println("  bootstrap --name NAME  Create config, first client, and access token")
		fmt.Println("  token <create|list|revoke>  Manage client access tokens")
		fmt.Println("  health                 Check gateway health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "stdio":
		err = runStdio(ctx)
	case "init":
		err = runInit()
	case "bootstrap":
		err = runBootstrap(ctx)
	case "token":
		err = runToken(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging, os.Stdout)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Hub:       %s\n", cfg.Hub.URL)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)

	// Tailscale status
	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}

	fmt.Println()

	logger.Info("starting sprut-gateway",
		"config", configPath,
		"hub_url", cfg.Hub.URL,
		"http_addr", cfg.Server.HTTPAddr,
	)

	// Create and run gateway
	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	// Clients that cannot set Authorization headers authenticate with a
	// process-scoped URL token instead.
	if cfg.Auth.RequireAuth {
		tokenURL := gw.MintURLToken("local")
		yellow.Print("    ▶ ")
		fmt.Printf("URL-token endpoint: %s\n\n", tokenURL)
	}

	return gw.Run(ctx)
}

// runStdio serves MCP over stdin/stdout. Logs go to stderr so protocol
// output stays clean on stdout.
func runStdio(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stderr)

	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("loading method catalog: %w", err)
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
	if err := hubClient.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to hub: %w", err)
	}
	defer hubClient.Close()

	srv := mcp.NewStdioServer(registry, hubClient, logger)
	return srv.Run(ctx, os.Stdin, os.Stdout)
}

func setupLogger(cfg config.LoggingConfig, out *os.File) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = &colorHandler{
			level: level,
			out:   out,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	out    io.Writer
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	_, _ = io.WriteString(h.out, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		out:    h.out,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		out:    h.out,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Make HTTP request to health endpoint with context
	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	fmt.Println(strings.TrimSpace(string(body)))
	return nil
}

// runToken manages client access tokens against the configured database.
func runToken(ctx context.Context) error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: sprut-gateway token <create|list|revoke>")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret not configured in %s", getConfigPath())
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	switch os.Args[2] {
	case "create":
		return tokenCreate(ctx, s, cfg, os.Args[3:])
	case "list":
		return tokenList(ctx, s)
	case "revoke":
		return tokenRevoke(ctx, s, os.Args[3:])
	default:
		return fmt.Errorf("unknown token subcommand: %s", os.Args[2])
	}
}

func tokenCreate(ctx context.Context, s *store.SQLiteStore, cfg *config.Config, args []string) error {
	name, err := parseNameFlag(args)
	if err != nil {
		return err
	}

	client := &store.Client{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateClient(ctx, client); err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	// Default TTL: 30 days
	tokenTTL := 30 * 24 * time.Hour
	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	token, err := verifier.Generate(client.ID, client.Name, tokenTTL)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Created client: %s\n", name)
	fmt.Printf("  ID:      %s\n", client.ID)
	fmt.Printf("  Token:   %s\n", token)
	fmt.Printf("  Expires: %s\n", time.Now().Add(tokenTTL).UTC().Format("Jan 02, 2006"))
	return nil
}

func tokenList(ctx context.Context, s *store.SQLiteStore) error {
	clients, err := s.ListClients(ctx)
	if err != nil {
		return fmt.Errorf("listing clients: %w", err)
	}
	if len(clients) == 0 {
		fmt.Println("no clients")
		return nil
	}

	for _, c := range clients {
		status := "active"
		if c.Revoked {
			status = "revoked"
		}
		lastSeen := "never"
		if c.LastSeenAt != nil {
			lastSeen = c.LastSeenAt.Format(time.RFC3339)
		}
		fmt.Printf("%s  %-20s  %-8s  last seen: %s\n", c.ID, c.Name, status, lastSeen)
	}
	return nil
}

func tokenRevoke(ctx context.Context, s *store.SQLiteStore, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: sprut-gateway token revoke <client-id>")
	}
	id := args[0]
	if err := s.RevokeClient(ctx, id); err != nil {
		return fmt.Errorf("revoking client: %w", err)
	}
	fmt.Printf("revoked %s\n", id)
	return nil
}

// parseNameFlag extracts --name from args, supporting both
// "--name value" and "--name=value" formats.
func parseNameFlag(args []string) (string, error) {
	var name string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--name" || arg == "-n":
			if i+1 >= len(args) {
				return "", fmt.Errorf("--name requires a value")
			}
			name = args[i+1]
			i++
		case strings.HasPrefix(arg, "--name="):
			name = strings.TrimPrefix(arg, "--name=")
		case strings.HasPrefix(arg, "-n="):
			name = strings.TrimPrefix(arg, "-n=")
		case strings.HasPrefix(arg, "-"):
			return "", fmt.Errorf("unknown flag: %s", arg)
		default:
			return "", fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("--name flag is required")
	}
	if len(name) > 100 {
		return "", fmt.Errorf("name exceeds maximum length of 100 characters")
	}
	return name, nil
}

// runBootstrap performs first-time setup of the gateway:
// 1. Creates config file with random JWT secret (if not exists)
// 2. Creates database and first client
// 3. Generates JWT token for that client
//
// This is a one-command setup: sprut-gateway bootstrap --name "Your Name"
func runBootstrap(ctx context.Context) error {
	displayName, err := parseNameFlag(os.Args[2:])
	if err != nil {
		return err
	}

	configPath := getConfigPath()
	dataPath := getDataPath()
	dbPath := filepath.Join(dataPath, "gateway.db")

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	var jwtSecret string

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Generate random JWT secret
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		jwtSecret = base64.StdEncoding.EncodeToString(secretBytes)

		// Create config directory
		configDir := filepath.Dir(configPath)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		// Create data directory
		if err := os.MkdirAll(dataPath, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}

		// Hub credentials come from the environment so the config file
		// stays free of secrets.
		configContent := fmt.Sprintf(`# sprut-gateway configuration
# Generated by sprut-gateway bootstrap

hub:
  url: "wss://web.spruthub.ru/spruthub"
  email: "${SPRUT_EMAIL}"
  password: "${SPRUT_PASSWORD}"
  serial: "${SPRUT_SERIAL}"

server:
  http_addr: "localhost:8080"

database:
  path: "%s"

auth:
  require_auth: true
  jwt_secret: "%s"

logging:
  level: "info"
  format: "text"
`, dbPath, jwtSecret)

		if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}

		green.Printf("  ✓ Created config: %s\n", configPath)
	} else {
		// Config exists, load it
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		// Check JWT secret is configured
		if cfg.Auth.JWTSecret == "" {
			return fmt.Errorf("jwt_secret not configured in %s (required for bootstrap)", configPath)
		}
		jwtSecret = cfg.Auth.JWTSecret
		dbPath = cfg.Database.Path

		cyan.Printf("  Using existing config: %s\n", configPath)
	}

	// Open the store directly
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	green.Printf("  ✓ Database: %s\n", dbPath)

	// Refuse to bootstrap twice
	existing, err := s.ListClients(ctx)
	if err != nil {
		return fmt.Errorf("checking clients: %w", err)
	}
	if len(existing) > 0 {
		return fmt.Errorf("bootstrap already complete: %d client(s) exist", len(existing))
	}

	clientID := uuid.New().String()
	client := &store.Client{
		ID:        clientID,
		Name:      displayName,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateClient(ctx, client); err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	green.Printf("  ✓ Created client: %s\n", displayName)

	// Generate JWT token
	verifier := auth.NewJWTVerifier([]byte(jwtSecret))

	// Default TTL: 30 days
	tokenTTL := 30 * 24 * time.Hour
	expiresAt := time.Now().Add(tokenTTL).UTC()

	token, err := verifier.Generate(clientID, displayName, tokenTTL)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	// Save token to file for CLI tools to read
	tokenPath := filepath.Join(filepath.Dir(configPath), "token")
	if err := os.WriteFile(tokenPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}

	green.Printf("  ✓ Saved token: %s\n", tokenPath)

	// Print results
	fmt.Println()
	green.Println("  Bootstrap complete!")
	fmt.Println()
	cyan.Println("  Client")
	cyan.Println("  ------")
	fmt.Printf("  ID:    %s\n", clientID)
	fmt.Printf("  Name:  %s\n", displayName)
	fmt.Printf("  Token: %s (expires %s)\n", tokenPath, expiresAt.Format("Jan 02, 2006"))
	fmt.Println()

	yellow.Println("  Ready to go:")
	fmt.Println("    export SPRUT_EMAIL=you@example.com SPRUT_PASSWORD=... SPRUT_SERIAL=...")
	fmt.Println("    sprut-gateway serve    # start the gateway")
	fmt.Println("    sprut-gateway health   # verify it is up")
	fmt.Println()

	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("sprut-gateway configuration setup")
	fmt.Println("=================================")
	fmt.Println()

	// Default paths
	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "gateway.db")

	// Output filename
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Hub configuration
	fmt.Println("\n--- Sprut.hub Configuration ---")
	hubURL := prompt(reader, "Hub WebSocket URL", "wss://web.spruthub.ru/spruthub")
	hubEmail := prompt(reader, "Hub account email", "${SPRUT_EMAIL}")
	hubPassword := prompt(reader, "Hub account password", "${SPRUT_PASSWORD}")
	hubSerial := prompt(reader, "Hub serial number", "${SPRUT_SERIAL}")

	// Server configuration
	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")

	// Database
	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	// Tailscale
	fmt.Println("\n--- Tailscale Configuration ---")
	enableTailscale := prompt(reader, "Enable Tailscale?", "no")
	tailscaleEnabled := strings.ToLower(enableTailscale) == "yes" || strings.ToLower(enableTailscale) == "y"

	var tsHostname, tsAuthKey string
	var tsEphemeral, tsFunnel bool
	if tailscaleEnabled {
		tsHostname = prompt(reader, "Tailscale hostname", "sprut-gateway")
		tsAuthKey = prompt(reader, "Tailscale auth key (leave empty for interactive)", "")
		ephemeralStr := prompt(reader, "Ephemeral node?", "no")
		tsEphemeral = strings.ToLower(ephemeralStr) == "yes" || strings.ToLower(ephemeralStr) == "y"
		funnelStr := prompt(reader, "Enable Funnel (public HTTPS)?", "no")
		tsFunnel = strings.ToLower(funnelStr) == "yes" || strings.ToLower(funnelStr) == "y"
	}

	// Auth
	fmt.Println("\n--- Auth Configuration ---")
	requireAuthStr := prompt(reader, "Require auth on the MCP endpoint?", "yes")
	requireAuth := strings.ToLower(requireAuthStr) == "yes" || strings.ToLower(requireAuthStr) == "y"
	var jwtSecret string
	if requireAuth {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		jwtSecret = base64.StdEncoding.EncodeToString(secretBytes)
		fmt.Println("Generated a random JWT secret.")
	}

	// Logging
	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Generate config
	var cfg strings.Builder
	cfg.WriteString("# sprut-gateway configuration\n")
	cfg.WriteString("# Generated by sprut-gateway init\n\n")

	cfg.WriteString("hub:\n")
	cfg.WriteString(fmt.Sprintf("  url: \"%s\"\n", hubURL))
	cfg.WriteString(fmt.Sprintf("  email: \"%s\"\n", hubEmail))
	cfg.WriteString(fmt.Sprintf("  password: \"%s\"\n", hubPassword))
	cfg.WriteString(fmt.Sprintf("  serial: \"%s\"\n", hubSerial))
	cfg.WriteString("  call_timeout: \"30s\"\n")
	cfg.WriteString("  dial_timeout: \"10s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", tailscaleEnabled))
	if tailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  hostname: \"%s\"\n", tsHostname))
		if tsAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: \"%s\"\n", tsAuthKey))
		}
		cfg.WriteString(fmt.Sprintf("  ephemeral: %t\n", tsEphemeral))
		cfg.WriteString(fmt.Sprintf("  funnel: %t\n", tsFunnel))
	}
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  require_auth: %t\n", requireAuth))
	if jwtSecret != "" {
		cfg.WriteString(fmt.Sprintf("  jwt_secret: \"%s\"\n", jwtSecret))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	// Ensure config directory exists
	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write config file
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// Ensure data directory exists
	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  sprut-gateway serve\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
