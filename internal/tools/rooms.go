// ABOUTME: Room tools: listing rooms and controlling every device in a room.
// ABOUTME: Room control is best-effort per accessory with collected errors.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

func (r *Registry) roomTools() []Definition {
	return []Definition{
		{
			Name:        "spruthub_list_rooms",
			Description: "List all rooms in the smart home. Use this to discover room IDs before room-wide control.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
			RequiresHub: true,
			handler:     r.listRooms,
		},
		{
			Name:        "spruthub_control_room",
			Description: "Control all devices in a room at once. Optionally filter by device type. Requires room ID from spruthub_list_rooms.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"roomId":{"type":"number","description":"Room ID (use spruthub_list_rooms to find IDs)"},"characteristic":{"type":"string","description":"Characteristic type to set on all devices (e.g., \"On\", \"Brightness\")"},"value":{"description":"New value for the characteristic"},"serviceType":{"type":"string","description":"Optional: filter by device type (e.g., \"Lightbulb\", \"Switch\", \"Thermostat\")"}},"required":["roomId","characteristic","value"]}`),
			RequiresHub: true,
			handler:     r.controlRoom,
		},
	}
}

func (r *Registry) listRooms(ctx context.Context, _ map[string]any, inv Invoker) (*Result, error) {
	result, err := inv.Invoke(ctx, "room.list", map[string]any{})
	if err != nil {
		return nil, err
	}

	// The hub returns either a bare array or an object with a rooms key.
	data := unwrapData(result)
	rooms := asSlice(data)
	if rooms == nil {
		rooms = asSlice(asMap(data)["rooms"])
	}

	return textResult(
		fmt.Sprintf("Found %d rooms:", len(rooms)),
		jsonText(rooms),
	), nil
}

func (r *Registry) controlRoom(ctx context.Context, args map[string]any, inv Invoker) (*Result, error) {
	roomID, ok := asNumber(args["roomId"])
	if !ok {
		return nil, usageErrorf("roomId parameter is required. Use spruthub_list_rooms to find room IDs.")
	}
	characteristic := getString(args, "characteristic")
	if characteristic == "" {
		return nil, usageErrorf(`characteristic parameter is required (e.g., "On", "Brightness").`)
	}
	value, hasValue := args["value"]
	if !hasValue || value == nil {
		return nil, usageErrorf("value parameter is required.")
	}
	serviceType := getString(args, "serviceType")

	r.logger.Debug("controlling room", "roomId", roomID, "characteristic", characteristic)

	accessories, err := searchAccessories(ctx, inv, "characteristics")
	if err != nil {
		return nil, err
	}

	var roomAccessories []map[string]any
	for _, raw := range accessories {
		acc := asMap(raw)
		if id, ok := asNumber(asMap(acc["room"])["id"]); ok && id == roomID {
			roomAccessories = append(roomAccessories, acc)
		}
	}
	if len(roomAccessories) == 0 {
		return nil, usageErrorf("No accessories found in room %v", args["roomId"])
	}

	controlled := []map[string]any{}
	controlErrors := []map[string]any{}

	for _, accessory := range roomAccessories {
		char, service := findCharacteristic(accessory, characteristic, serviceType)
		if char == nil || isReadOnly(char) {
			// Devices without the characteristic simply do not participate.
			continue
		}

		if _, err := inv.CallRaw(ctx, updatePayload(char, value)); err != nil {
			r.logger.Error("failed to control accessory",
				"id", accessory["id"], "error", err)
			controlErrors = append(controlErrors, map[string]any{
				"id":    accessory["id"],
				"name":  accessory["name"],
				"error": err.Error(),
			})
			continue
		}

		controlled = append(controlled, map[string]any{
			"id":      accessory["id"],
			"name":    accessory["name"],
			"service": service["type"],
		})
	}

	return textResult(jsonText(map[string]any{
		"success":         true,
		"roomId":          args["roomId"],
		"characteristic":  characteristic,
		"value":           value,
		"controlled":      controlled,
		"controlledCount": len(controlled),
		"errors":          controlErrors,
	})), nil
}
