// ABOUTME: Wire frame types for the hub's JSON-RPC protocol.
// ABOUTME: Builds the nested params object the hub uses for method dispatch.

package hub

import (
	"encoding/json"
	"strings"
)

const protocolVersion = "2.0"

// request is the outbound frame. The token field is serialized as null until
// authentication completes; the hub rejects frames that omit it entirely.
type request struct {
	JSONRPC string         `json:"jsonrpc"`
	Params  map[string]any `json:"params"`
	ID      int64          `json:"id"`
	Token   *string        `json:"token"`
	Serial  string         `json:"serial"`
}

// reply is the inbound frame. A frame with no id, or an id with no pending
// request, is an unsolicited notification.
type reply struct {
	ID     *int64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// nestParams wraps a flat parameter map into the hub's nested dispatch shape:
// method "a.b.c" with params {x:1} becomes {a:{b:{c:{x:1}}}}.
func nestParams(method string, params map[string]any) map[string]any {
	if params == nil {
		params = map[string]any{}
	}
	segments := strings.Split(method, ".")
	nested := params
	for i := len(segments) - 1; i >= 0; i-- {
		nested = map[string]any{segments[i]: nested}
	}
	return nested
}
