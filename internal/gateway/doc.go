// Package gateway orchestrates the sprut-gateway server components.
//
// # Overview
//
// The gateway package is the central coordinator of the sprut-gateway server.
// It owns and manages all major components: the hub WebSocket client, the
// method catalog and tool registry, the data store, and the HTTP server that
// exposes the MCP endpoint.
//
// # Gateway Struct
//
// The Gateway struct is the main entry point:
//
//	type Gateway struct {
//	    config      *config.Config
//	    hub         *hub.Client
//	    store       store.Store
//	    registry    *tools.Registry
//	    httpServer  *http.Server
//	    tsnetServer *tsnet.Server
//	    mcpTokens   *mcp.TokenStore
//	    mcpServer   *mcp.Server
//	    // ... and more
//	}
//
// # HTTP API
//
// The gateway exposes these HTTP endpoints:
//
//   - POST /mcp - MCP Streamable HTTP transport (JSON-RPC 2.0)
//   - POST /mcp/<token> - Same endpoint with URL-token auth
//   - GET /health - Liveness check with hub connection status
//   - GET /health/ready - Readiness check (503 until hub is authenticated)
//
// The /health body reports the hub session state:
//
//	{"status": "ok", "name": "sprut-gateway", "version": "1.0.0", "connected": true}
//
// # Hub Connection
//
// Run connects to the hub before serving HTTP and fails fast if the dial or
// the challenge-response authentication fails. A hub session lost mid-flight
// is surfaced to MCP clients as tool errors; the gateway keeps serving so
// health checks reflect the degraded state.
//
// # Listeners
//
// The gateway serves over a plain TCP listener by default. With
// tailscale.enabled it joins a tailnet via tsnet instead, optionally with
// Funnel (public HTTPS) or a configured TLS certificate pair.
//
// # Lifecycle
//
// Start the gateway:
//
//	gw, err := gateway.New(cfg, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	go gw.Run(ctx)
//
// Graceful shutdown:
//
//	cancel()
//	gw.Shutdown(shutdownCtx)
//
// Shutdown stops the HTTP server, closes the tsnet node if present, and
// closes the hub client and store.
package gateway
