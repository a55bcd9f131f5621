// ABOUTME: Scenario tools: listing, detail lookup, and execution.
// ABOUTME: Details come from scenario.search; runs use the pre-nested frame.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

func (r *Registry) scenarioTools() []Definition {
	return []Definition{
		{
			Name:        "spruthub_list_scenarios",
			Description: "List all automation scenarios with shallow data (id, name, enabled). Use this to discover scenario IDs before running them.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
			RequiresHub: true,
			handler:     r.listScenarios,
		},
		{
			Name:        "spruthub_get_scenario",
			Description: "Get full details for a single scenario including triggers, conditions, and actions. Requires scenario ID from spruthub_list_scenarios.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"number","description":"Scenario ID (use spruthub_list_scenarios to find IDs)"}},"required":["id"]}`),
			RequiresHub: true,
			handler:     r.getScenario,
		},
		{
			Name:        "spruthub_run_scenario",
			Description: "Execute an automation scenario. Requires scenario ID from spruthub_list_scenarios.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"number","description":"Scenario ID (use spruthub_list_scenarios to find IDs)"}},"required":["id"]}`),
			RequiresHub: true,
			handler:     r.runScenario,
		},
	}
}

func searchScenarios(ctx context.Context, inv Invoker) ([]any, error) {
	result, err := inv.Invoke(ctx, "scenario.search", map[string]any{
		"page":  1,
		"limit": 100,
	})
	if err != nil {
		return nil, err
	}
	data := asMap(unwrapData(result))
	return asSlice(data["scenarios"]), nil
}

func (r *Registry) listScenarios(ctx context.Context, _ map[string]any, inv Invoker) (*Result, error) {
	scenarios, err := searchScenarios(ctx, inv)
	if err != nil {
		return nil, err
	}

	summaries := make([]map[string]any, 0, len(scenarios))
	for _, raw := range scenarios {
		scen := asMap(raw)
		summaries = append(summaries, map[string]any{
			"id":      scen["id"],
			"name":    scen["name"],
			"enabled": boolOrDefault(scen, "enabled", true),
		})
	}

	r.logger.Debug("listed scenarios", "count", len(summaries))
	return textResult(
		fmt.Sprintf("Found %d scenarios:", len(summaries)),
		jsonText(summaries),
	), nil
}

func (r *Registry) getScenario(ctx context.Context, args map[string]any, inv Invoker) (*Result, error) {
	id, ok := asNumber(args["id"])
	if !ok {
		return nil, usageErrorf("id parameter is required. Use spruthub_list_scenarios to find scenario IDs.")
	}

	scenarios, err := searchScenarios(ctx, inv)
	if err != nil {
		return nil, err
	}

	for _, raw := range scenarios {
		scen := asMap(raw)
		if scenID, ok := asNumber(scen["id"]); ok && scenID == id {
			return textResult(
				fmt.Sprintf("Scenario %v:", args["id"]),
				jsonText(scen),
			), nil
		}
	}
	return nil, usageErrorf("Scenario with ID %v not found", args["id"])
}

func (r *Registry) runScenario(ctx context.Context, args map[string]any, inv Invoker) (*Result, error) {
	id, ok := asNumber(args["id"])
	if !ok {
		return nil, usageErrorf("id parameter is required. Use spruthub_list_scenarios to find scenario IDs.")
	}

	r.logger.Debug("running scenario", "id", id)

	payload := map[string]any{
		"scenario": map[string]any{"run": map[string]any{"id": args["id"]}},
	}
	if _, err := inv.CallRaw(ctx, payload); err != nil {
		return nil, err
	}

	return textResult(jsonText(map[string]any{
		"success":    true,
		"scenarioId": args["id"],
	})), nil
}
