// ABOUTME: System tools: fetching recent hub logs.
// ABOUTME: Clamps the requested entry count to the hub's maximum.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	defaultLogCount = 20
	maxLogCount     = 100
)

func (r *Registry) systemTools() []Definition {
	return []Definition{
		{
			Name:        "spruthub_get_logs",
			Description: "Get recent system logs. Default 20 entries, max 100.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"count":{"type":"number","description":"Number of log entries to retrieve (default: 20, max: 100)"}}}`),
			RequiresHub: true,
			handler:     r.getLogs,
		},
	}
}

func (r *Registry) getLogs(ctx context.Context, args map[string]any, inv Invoker) (*Result, error) {
	count := defaultLogCount
	if n, ok := asNumber(args["count"]); ok {
		count = int(n)
	}
	if count > maxLogCount {
		r.logger.Warn("requested log count exceeds maximum", "requested", count, "max", maxLogCount)
		count = maxLogCount
	}

	result, err := inv.Invoke(ctx, "log.list", map[string]any{"count": count})
	if err != nil {
		return nil, err
	}

	data := unwrapData(result)
	logs := asSlice(data)
	if logs == nil {
		logs = asSlice(asMap(data)["logs"])
	}

	return textResult(
		fmt.Sprintf("Retrieved %d log entries:", len(logs)),
		jsonText(logs),
	), nil
}
