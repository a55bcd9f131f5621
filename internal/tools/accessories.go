// ABOUTME: Accessory tools: listing, detail lookup, and single-device control.
// ABOUTME: Control resolves characteristic ids from a fresh accessory search.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

func (r *Registry) accessoryTools() []Definition {
	return []Definition{
		{
			Name:        "spruthub_list_accessories",
			Description: "List all smart home accessories with shallow data (id, name, room, online status). Use this first to discover accessory IDs before controlling devices.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
			RequiresHub: true,
			handler:     r.listAccessories,
		},
		{
			Name:        "spruthub_get_accessory",
			Description: "Get full details for a single accessory including all services and characteristics. Requires accessory ID from spruthub_list_accessories.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"number","description":"Accessory ID (use spruthub_list_accessories to find IDs)"}},"required":["id"]}`),
			RequiresHub: true,
			handler:     r.getAccessory,
		},
		{
			Name:        "spruthub_control_accessory",
			Description: "Control a single smart home device by setting a characteristic value. Requires accessory ID from spruthub_list_accessories.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"number","description":"Accessory ID (use spruthub_list_accessories to find IDs)"},"characteristic":{"type":"string","description":"Characteristic type to set (e.g., \"On\", \"Brightness\", \"TargetTemperature\")"},"value":{"description":"New value for the characteristic (type depends on characteristic)"}},"required":["id","characteristic","value"]}`),
			RequiresHub: true,
			handler:     r.controlAccessory,
		},
	}
}

// searchAccessories fetches one page of accessories at the given expansion
// level and unwraps the response envelope.
func searchAccessories(ctx context.Context, inv Invoker, expand string) ([]any, error) {
	result, err := inv.Invoke(ctx, "accessory.search", map[string]any{
		"page":   1,
		"limit":  100,
		"expand": expand,
	})
	if err != nil {
		return nil, err
	}
	data := asMap(unwrapData(result))
	return asSlice(data["accessories"]), nil
}

func findAccessory(accessories []any, id float64) map[string]any {
	for _, raw := range accessories {
		acc := asMap(raw)
		if accID, ok := asNumber(acc["id"]); ok && accID == id {
			return acc
		}
	}
	return nil
}

func (r *Registry) listAccessories(ctx context.Context, _ map[string]any, inv Invoker) (*Result, error) {
	accessories, err := searchAccessories(ctx, inv, "none")
	if err != nil {
		return nil, err
	}

	summaries := make([]map[string]any, 0, len(accessories))
	for _, raw := range accessories {
		acc := asMap(raw)

		var roomName, roomID any
		if room := asMap(acc["room"]); room != nil {
			roomName = room["name"]
			roomID = room["id"]
		}

		var serviceTypes []string
		for _, s := range asSlice(acc["services"]) {
			if t := getString(asMap(s), "type"); t != "" {
				serviceTypes = append(serviceTypes, t)
			}
		}

		summaries = append(summaries, map[string]any{
			"id":           acc["id"],
			"name":         acc["name"],
			"room":         roomName,
			"roomId":       roomID,
			"online":       boolOrDefault(acc, "online", true),
			"manufacturer": acc["manufacturer"],
			"serviceTypes": serviceTypes,
		})
	}

	r.logger.Debug("listed accessories", "count", len(summaries))
	return textResult(
		fmt.Sprintf("Found %d accessories:", len(summaries)),
		jsonText(summaries),
	), nil
}

func (r *Registry) getAccessory(ctx context.Context, args map[string]any, inv Invoker) (*Result, error) {
	id, ok := asNumber(args["id"])
	if !ok {
		return nil, usageErrorf("id parameter is required. Use spruthub_list_accessories to find accessory IDs.")
	}

	accessories, err := searchAccessories(ctx, inv, "characteristics")
	if err != nil {
		return nil, err
	}

	accessory := findAccessory(accessories, id)
	if accessory == nil {
		return nil, usageErrorf("Accessory with ID %v not found", args["id"])
	}

	return textResult(
		fmt.Sprintf("Accessory %v:", args["id"]),
		jsonText(accessory),
	), nil
}

// findCharacteristic scans an accessory's services for a characteristic whose
// type matches. A non-empty serviceType restricts the scan to matching
// services. The match key is control.type when present, falling back to the
// characteristic's own type.
func findCharacteristic(accessory map[string]any, characteristic, serviceType string) (char, service map[string]any) {
	for _, rawService := range asSlice(accessory["services"]) {
		svc := asMap(rawService)
		if serviceType != "" && getString(svc, "type") != serviceType {
			continue
		}
		for _, rawChar := range asSlice(svc["characteristics"]) {
			c := asMap(rawChar)
			charType := getString(asMap(c["control"]), "type")
			if charType == "" {
				charType = getString(c, "type")
			}
			if charType == characteristic {
				return c, svc
			}
		}
	}
	return nil, nil
}

// isReadOnly reports whether a characteristic explicitly refuses writes.
// Absent control metadata is treated as writable.
func isReadOnly(char map[string]any) bool {
	control := asMap(char["control"])
	if w, ok := control["write"].(bool); ok {
		return !w
	}
	return false
}

// updatePayload builds the pre-nested characteristic.update frame.
func updatePayload(char map[string]any, value any) map[string]any {
	return map[string]any{
		"characteristic": map[string]any{
			"update": map[string]any{
				"aId":     char["aId"],
				"sId":     char["sId"],
				"cId":     char["cId"],
				"control": map[string]any{"value": WrapValue(value)},
			},
		},
	}
}

func (r *Registry) controlAccessory(ctx context.Context, args map[string]any, inv Invoker) (*Result, error) {
	id, ok := asNumber(args["id"])
	if !ok {
		return nil, usageErrorf("id parameter is required. Use spruthub_list_accessories to find accessory IDs.")
	}
	characteristic := getString(args, "characteristic")
	if characteristic == "" {
		return nil, usageErrorf(`characteristic parameter is required (e.g., "On", "Brightness", "TargetTemperature").`)
	}
	value, hasValue := args["value"]
	if !hasValue || value == nil {
		return nil, usageErrorf("value parameter is required.")
	}
	serviceType := getString(args, "serviceType")

	r.logger.Debug("controlling accessory", "id", id, "characteristic", characteristic)

	accessories, err := searchAccessories(ctx, inv, "characteristics")
	if err != nil {
		return nil, err
	}
	accessory := findAccessory(accessories, id)
	if accessory == nil {
		return nil, usageErrorf("Accessory with ID %v not found", args["id"])
	}

	char, service := findCharacteristic(accessory, characteristic, serviceType)
	if char == nil {
		hint := ""
		if serviceType != "" {
			hint = fmt.Sprintf(" in service type %q", serviceType)
		}
		return nil, usageErrorf(
			"Characteristic %q not found on accessory %v%s. Use spruthub_get_accessory to see available characteristics.",
			characteristic, args["id"], hint)
	}
	if isReadOnly(char) {
		return nil, usageErrorf("Characteristic %q is read-only and cannot be controlled.", characteristic)
	}

	payload := updatePayload(char, value)
	if _, err := inv.CallRaw(ctx, payload); err != nil {
		return nil, err
	}

	return textResult(jsonText(map[string]any{
		"success":        true,
		"accessoryId":    args["id"],
		"accessoryName":  accessory["name"],
		"service":        service["type"],
		"characteristic": characteristic,
		"value":          value,
		"payload":        payload,
	})), nil
}
