// Package mcp implements the Model Context Protocol server for Sprut.hub access.
//
// # Overview
//
// MCP (Model Context Protocol) is a standard for AI tool integration. This
// package exposes the gateway's Sprut.hub tools to external AI clients (like
// the Claude desktop app, other LLMs, or custom applications) over two
// transports: Streamable HTTP and stdio.
//
// # HTTP Transport
//
// The HTTP server implements the Streamable HTTP transport (2025-11-25):
//
//   - POST /mcp - JSON-RPC requests (initialize, tools/list, tools/call)
//   - DELETE /mcp - session termination
//
// Sessions are created by initialize and carried in the Mcp-Session-Id
// header. Server-initiated SSE streams are not supported; every request is
// answered with a single JSON response.
//
// # Authentication
//
// Two mechanisms are accepted:
//
//	Authorization: Bearer <jwt>        issued via the token subcommand
//	POST /mcp/<token>                  ephemeral URL token minted at startup
//
// JWT subjects map to stored client records; revoked clients are rejected.
// When require_auth is disabled, unauthenticated callers get an anonymous
// session.
//
// # Stdio Transport
//
// StdioServer serves the identical tool surface over newline-delimited
// JSON-RPC on stdin/stdout for clients that launch the gateway as a
// subprocess. No sessions or auth apply there.
//
// # Tool Errors
//
// Caller mistakes (bad arguments, unknown IDs) and hub-reported errors are
// returned as tool results with isError set, so the model can read them.
// Transport failures (hub down, timeouts) become JSON-RPC errors.
package mcp
