// ABOUTME: MCP stdio transport reading JSONL requests and writing responses.
// ABOUTME: Serves the same tool registry as the HTTP transport, single client.

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spruthub/sprut-gateway/internal/hub"
	"github.com/spruthub/sprut-gateway/internal/tools"
)

// stdioMaxLineSize bounds a single JSONL frame on stdin.
const stdioMaxLineSize = MaxRequestBodySize

// StdioServer serves MCP over newline-delimited JSON on a reader/writer pair.
// Used when the gateway is launched directly by an MCP client such as the
// Claude desktop app. There is exactly one implicit session, so no session
// headers or auth apply.
type StdioServer struct {
	registry *tools.Registry
	invoker  tools.Invoker
	logger   *slog.Logger
}

// NewStdioServer creates a stdio transport over the given registry and invoker.
func NewStdioServer(registry *tools.Registry, invoker tools.Invoker, logger *slog.Logger) *StdioServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StdioServer{
		registry: registry,
		invoker:  invoker,
		logger:   logger.With("component", "mcp-stdio"),
	}
}

// Run reads requests until EOF or context cancellation. Each line is one
// JSON-RPC message; notifications produce no output.
func (s *StdioServer) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), stdioMaxLineSize)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeError(enc, nil, JSONRPCParseError, "invalid JSON")
			continue
		}

		if req.JSONRPC != "2.0" {
			s.writeError(enc, req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version")
			continue
		}

		if len(req.ID) == 0 || string(req.ID) == "null" {
			if !strings.HasPrefix(req.Method, "notifications/") {
				s.logger.Warn("received notification for non-notification method", "method", req.Method)
			}
			continue
		}

		s.handleRequest(ctx, enc, req)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	return nil
}

func (s *StdioServer) handleRequest(ctx context.Context, enc *json.Encoder, req JSONRPCRequest) {
	switch req.Method {
	case "initialize":
		s.writeResult(enc, req.ID, map[string]any{
			"protocolVersion": latestProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    ServerName,
				"version": ServerVersion,
			},
		})

	case "ping":
		s.writeResult(enc, req.ID, map[string]any{})

	case "tools/list":
		defs := s.registry.Definitions()
		result := MCPListToolsResult{Tools: make([]MCPToolInfo, len(defs))}
		for i, def := range defs {
			result.Tools[i] = MCPToolInfo{
				Name:        def.Name,
				Description: def.Description,
				InputSchema: def.InputSchema,
			}
		}
		s.writeResult(enc, req.ID, result)

	case "tools/call":
		s.handleToolsCall(ctx, enc, req)

	default:
		s.writeError(enc, req.ID, JSONRPCMethodNotFound, "method not found")
	}
}

func (s *StdioServer) handleToolsCall(ctx context.Context, enc *json.Encoder, req JSONRPCRequest) {
	var params MCPCallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.writeError(enc, req.ID, JSONRPCInvalidParams, "invalid params")
			return
		}
	}
	if params.Name == "" {
		s.writeError(enc, req.ID, JSONRPCInvalidParams, "tool name is required")
		return
	}

	var args map[string]any
	if len(params.Arguments) > 0 && string(params.Arguments) != "null" {
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			s.writeError(enc, req.ID, JSONRPCInvalidParams, "invalid arguments")
			return
		}
	}

	toolResult, err := s.registry.Call(ctx, params.Name, args, s.invoker)
	if err != nil {
		s.writeToolError(enc, req.ID, params.Name, err)
		return
	}

	s.writeResult(enc, req.ID, MCPCallToolResult{
		Content: toolResult.Content,
		Meta:    toolResult.Meta,
	})
}

// writeToolError mirrors the HTTP transport's error mapping.
func (s *StdioServer) writeToolError(enc *json.Encoder, id json.RawMessage, toolName string, err error) {
	s.logger.Warn("tool execution failed", "tool_name", toolName, "error", err)

	var usageErr *tools.UsageError
	var remoteErr *hub.RemoteError
	switch {
	case errors.As(err, &usageErr):
		s.writeResult(enc, id, MCPCallToolResult{
			Content: []tools.Content{{Type: "text", Text: usageErr.Error()}},
			IsError: true,
		})
		return
	case errors.As(err, &remoteErr):
		s.writeResult(enc, id, MCPCallToolResult{
			Content: []tools.Content{{Type: "text", Text: remoteErr.Error()}},
			IsError: true,
		})
		return
	}

	code := JSONRPCInternalError
	message := "tool execution failed"
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		code = JSONRPCInvalidParams
		message = "tool not found"
	case errors.Is(err, hub.ErrRequestTimeout):
		message = "hub request timed out"
	case errors.Is(err, hub.ErrNotConnected), errors.Is(err, hub.ErrConnectionLost):
		message = "hub connection unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		message = "tool execution timed out"
	case errors.Is(err, context.Canceled):
		message = "request cancelled"
	}
	s.writeError(enc, id, code, message)
}

func (s *StdioServer) writeResult(enc *json.Encoder, id json.RawMessage, result any) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
	if err := enc.Encode(resp); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *StdioServer) writeError(enc *json.Encoder, id json.RawMessage, code int, message string) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
	if err := enc.Encode(resp); err != nil {
		s.logger.Warn("failed to encode error response", "error", err)
	}
}
