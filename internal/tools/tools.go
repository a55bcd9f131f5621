// ABOUTME: Tool registry for the MCP surface over the Sprut.hub control plane.
// ABOUTME: Defines the invoker contract, tool definitions, and call dispatch.

// Package tools implements the MCP tools exposed by the gateway. Each tool
// wraps one or more hub method calls and renders the outcome as MCP content.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spruthub/sprut-gateway/internal/catalog"
	"github.com/spruthub/sprut-gateway/internal/hub"
)

// ErrUnknownTool is returned by Call for tool names outside the registry.
var ErrUnknownTool = errors.New("unknown tool")

// Invoker is the hub-facing contract the tools run against. Invoke takes a
// dotted method name with flat params; CallRaw sends an already-nested
// payload such as a characteristic update.
type Invoker interface {
	Invoke(ctx context.Context, method string, params map[string]any) (map[string]any, error)
	CallRaw(ctx context.Context, params map[string]any) (map[string]any, error)
}

// Content is one MCP content block.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is a tool call outcome destined for an MCP tools/call response.
type Result struct {
	Content []Content      `json:"content"`
	Meta    map[string]any `json:"_meta,omitempty"`
}

// Handler executes one tool against the hub.
type Handler func(ctx context.Context, args map[string]any, inv Invoker) (*Result, error)

// Definition describes one registered tool.
type Definition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	// RequiresHub marks tools that talk to the hub. Catalog-only tools
	// work even while the hub session is down.
	RequiresHub bool

	handler Handler
}

// UsageError marks a caller mistake (missing or invalid arguments, lookups
// that found nothing). The MCP layer renders these as tool errors rather
// than protocol errors.
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}

// Registry holds the gateway's tool set.
type Registry struct {
	logger  *slog.Logger
	catalog *catalog.Catalog

	defs   []Definition
	byName map[string]*Definition
}

// NewRegistry builds the full tool set backed by the given method catalog.
func NewRegistry(cat *catalog.Catalog, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger:  logger.With("component", "tools"),
		catalog: cat,
		byName:  map[string]*Definition{},
	}
	r.register(r.discoveryTools())
	r.register(r.accessoryTools())
	r.register(r.roomTools())
	r.register(r.scenarioTools())
	r.register(r.systemTools())
	return r
}

func (r *Registry) register(defs []Definition) {
	for _, def := range defs {
		r.defs = append(r.defs, def)
		// Index the loop copy, not a slice element: append regrows the
		// backing array and would leave the map aliasing stale memory.
		r.byName[def.Name] = &def
	}
}

// Definitions returns all tools in registration order.
func (r *Registry) Definitions() []Definition {
	return r.defs
}

// Lookup returns the definition for a tool name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	def, ok := r.byName[name]
	return def, ok
}

// Call dispatches a tool invocation. Unknown names return ErrUnknownTool;
// hub-backed tools fail fast when the invoker reports a down session, so
// catalog-only tools keep working while the hub is unreachable.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any, inv Invoker) (*Result, error) {
	def, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if def.RequiresHub {
		if conn, ok := inv.(interface{ IsConnected() bool }); ok && !conn.IsConnected() {
			return nil, hub.ErrNotConnected
		}
	}
	if args == nil {
		args = map[string]any{}
	}
	r.logger.Debug("tool call", "tool", name)
	return def.handler(ctx, args, inv)
}

// textResult builds a plain text-only result.
func textResult(parts ...string) *Result {
	content := make([]Content, len(parts))
	for i, p := range parts {
		content[i] = Content{Type: "text", Text: p}
	}
	return &Result{Content: content}
}

// jsonText renders a value as compact JSON for tool output.
func jsonText(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
