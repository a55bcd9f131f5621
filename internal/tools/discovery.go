// ABOUTME: Discovery tools: browsing the method catalog and raw method invocation.
// ABOUTME: Raw calls are validated against the catalog before hitting the hub.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

func (r *Registry) discoveryTools() []Definition {
	return []Definition{
		{
			Name:        "spruthub_list_methods",
			Description: "List all available Sprut.hub JSON-RPC API methods with their categories and descriptions",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"category":{"type":"string","description":"Filter methods by category (hub, accessory, scenario, room, system)"}}}`),
			handler:     r.listMethods,
		},
		{
			Name:        "spruthub_get_method_schema",
			Description: "Get detailed schema for a specific Sprut.hub API method including parameters, return type, examples",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"methodName":{"type":"string","description":"The method name (e.g., \"accessory.search\", \"characteristic.update\")"}},"required":["methodName"]}`),
			handler:     r.getMethodSchema,
		},
		{
			Name:        "spruthub_call_method",
			Description: "Execute any Sprut.hub JSON-RPC API method. IMPORTANT: You MUST call spruthub_get_method_schema first to understand the exact parameter structure before calling this method. Never guess parameters.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"methodName":{"type":"string","description":"The method name to call (e.g., \"accessory.search\", \"characteristic.update\")"},"parameters":{"type":"object","description":"Method parameters exactly as defined in the method schema. MUST call spruthub_get_method_schema first to get the correct parameter structure. Do not guess parameter names or structure."}},"required":["methodName"]}`),
			RequiresHub: true,
			handler:     r.callMethod,
		},
	}
}

// methodPreview formats the first few method names for error messages.
func (r *Registry) methodPreview() string {
	methods := r.catalog.Methods()
	if len(methods) > 10 {
		return strings.Join(methods[:10], ", ") + "..."
	}
	return strings.Join(methods, ", ")
}

func (r *Registry) listMethods(_ context.Context, args map[string]any, _ Invoker) (*Result, error) {
	category := getString(args, "category")

	var names []string
	if category != "" {
		names = r.catalog.ByCategory(category)
		if len(names) == 0 {
			available := r.catalog.Categories()
			return nil, usageErrorf("Unknown category: %s. Available categories: %s",
				category, strings.Join(available, ", "))
		}
	} else {
		names = r.catalog.Methods()
	}

	summaries := make([]map[string]any, 0, len(names))
	for _, name := range names {
		m, _ := r.catalog.Schema(name)
		summaries = append(summaries, map[string]any{
			"name":        name,
			"category":    m.Category,
			"description": m.Description,
		})
	}

	header := fmt.Sprintf("Found %d available API methods:", len(summaries))
	if category != "" {
		header = fmt.Sprintf("Found %d methods in category '%s':", len(summaries), category)
	}

	scope := category
	if scope == "" {
		scope = "all"
	}
	result := textResult(header, jsonText(summaries))
	result.Meta = map[string]any{
		"methods":             summaries,
		"totalCount":          len(summaries),
		"category":            scope,
		"availableCategories": r.catalog.Categories(),
	}
	return result, nil
}

func (r *Registry) getMethodSchema(_ context.Context, args map[string]any, _ Invoker) (*Result, error) {
	methodName := getString(args, "methodName")
	if methodName == "" {
		return nil, usageErrorf("methodName parameter is required")
	}

	schema, ok := r.catalog.Schema(methodName)
	if !ok {
		return nil, usageErrorf("Method '%s' not found. Available methods: %s", methodName, r.methodPreview())
	}

	result := textResult(
		fmt.Sprintf("Schema for '%s':", methodName),
		jsonText(schema),
	)
	result.Meta = map[string]any{
		"methodName": methodName,
		"schema":     schema,
		"category":   schema.Category,
	}
	return result, nil
}

func (r *Registry) callMethod(ctx context.Context, args map[string]any, inv Invoker) (*Result, error) {
	methodName := getString(args, "methodName")
	if methodName == "" {
		return nil, usageErrorf("methodName parameter is required")
	}
	parameters := asMap(args["parameters"])

	schema, ok := r.catalog.Schema(methodName)
	if !ok {
		return nil, usageErrorf("Method '%s' not found. Available methods: %s", methodName, r.methodPreview())
	}

	r.logger.Debug("raw method call", "method", methodName)

	callResult, err := inv.Invoke(ctx, methodName, parameters)
	if err != nil {
		return nil, err
	}

	result := textResult(
		fmt.Sprintf("Called %s successfully", methodName),
		fmt.Sprintf("Result: %s", jsonText(callResult)),
	)
	result.Meta = map[string]any{
		"methodName": methodName,
		"parameters": parameters,
		"result":     callResult,
		"schema":     schema,
	}
	return result, nil
}
