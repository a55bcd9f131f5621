// ABOUTME: Tests for the tool registry and handlers against a fake invoker.
// ABOUTME: Exercises dispatch, argument validation, and hub payload shapes.

package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spruthub/sprut-gateway/internal/catalog"
	"github.com/spruthub/sprut-gateway/internal/hub"
)

type invocation struct {
	method string
	params map[string]any
}

// fakeInvoker serves canned replies keyed by method name and records every
// call it receives.
type fakeInvoker struct {
	replies  map[string]map[string]any
	err      error
	invoked  []invocation
	rawCalls []map[string]any
}

func (f *fakeInvoker) Invoke(_ context.Context, method string, params map[string]any) (map[string]any, error) {
	f.invoked = append(f.invoked, invocation{method: method, params: params})
	if f.err != nil {
		return nil, f.err
	}
	if reply, ok := f.replies[method]; ok {
		return reply, nil
	}
	return map[string]any{}, nil
}

func (f *fakeInvoker) CallRaw(_ context.Context, params map[string]any) (map[string]any, error) {
	f.rawCalls = append(f.rawCalls, params)
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{}, nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	return NewRegistry(cat, nil)
}

// accessoryFixture mirrors an accessory.search reply decoded from JSON, so
// all numbers are float64.
func accessoryFixture() map[string]any {
	return map[string]any{
		"isSuccess": true,
		"data": map[string]any{
			"accessories": []any{
				map[string]any{
					"id":           float64(10),
					"name":         "Ceiling Light",
					"online":       true,
					"manufacturer": "Aqara",
					"room":         map[string]any{"id": float64(1), "name": "Kitchen"},
					"services": []any{
						map[string]any{
							"type": "Lightbulb",
							"characteristics": []any{
								map[string]any{
									"aId": float64(10), "sId": float64(1), "cId": float64(2),
									"type":    "On",
									"control": map[string]any{"type": "On", "write": true},
								},
								map[string]any{
									"aId": float64(10), "sId": float64(1), "cId": float64(3),
									"type":    "Brightness",
									"control": map[string]any{"type": "Brightness", "write": true},
								},
							},
						},
					},
				},
				map[string]any{
					"id":   float64(11),
					"name": "Temperature Sensor",
					"room": map[string]any{"id": float64(1), "name": "Kitchen"},
					"services": []any{
						map[string]any{
							"type": "TemperatureSensor",
							"characteristics": []any{
								map[string]any{
									"aId": float64(11), "sId": float64(1), "cId": float64(1),
									"type":    "CurrentTemperature",
									"control": map[string]any{"type": "CurrentTemperature", "write": false},
								},
							},
						},
					},
				},
			},
		},
	}
}

func TestRegistryExposesAllTools(t *testing.T) {
	r := newTestRegistry(t)

	defs := r.Definitions()
	require.Len(t, defs, 12)

	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
		assert.NotEmpty(t, d.Description, d.Name)
		assert.NotEmpty(t, d.InputSchema, d.Name)
	}
	assert.Contains(t, names, "spruthub_list_methods")
	assert.Contains(t, names, "spruthub_call_method")
	assert.Contains(t, names, "spruthub_control_accessory")
	assert.Contains(t, names, "spruthub_control_room")
	assert.Contains(t, names, "spruthub_run_scenario")
	assert.Contains(t, names, "spruthub_get_logs")
}

func TestCallUnknownTool(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Call(context.Background(), "spruthub_reboot", nil, &fakeInvoker{})
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestListMethods(t *testing.T) {
	r := newTestRegistry(t)

	result, err := r.Call(context.Background(), "spruthub_list_methods", nil, nil)
	require.NoError(t, err)
	require.Len(t, result.Content, 2)
	assert.Contains(t, result.Content[1].Text, "accessory.search")
	assert.Equal(t, "all", result.Meta["category"])
}

func TestListMethodsByCategory(t *testing.T) {
	r := newTestRegistry(t)

	result, err := r.Call(context.Background(), "spruthub_list_methods",
		map[string]any{"category": "scenario"}, nil)
	require.NoError(t, err)
	assert.Contains(t, result.Content[0].Text, "category 'scenario'")
	assert.Contains(t, result.Content[1].Text, "scenario.run")
	assert.NotContains(t, result.Content[1].Text, "accessory.search")
}

func TestListMethodsUnknownCategory(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Call(context.Background(), "spruthub_list_methods",
		map[string]any{"category": "plumbing"}, nil)
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.Contains(t, err.Error(), "Available categories")
}

func TestGetMethodSchema(t *testing.T) {
	r := newTestRegistry(t)

	result, err := r.Call(context.Background(), "spruthub_get_method_schema",
		map[string]any{"methodName": "characteristic.update"}, nil)
	require.NoError(t, err)
	assert.Contains(t, result.Content[0].Text, "characteristic.update")
	assert.Equal(t, "accessory", result.Meta["category"])

	_, err = r.Call(context.Background(), "spruthub_get_method_schema",
		map[string]any{"methodName": "no.such"}, nil)
	var usageErr *UsageError
	assert.ErrorAs(t, err, &usageErr)
}

func TestCallMethodValidatesAgainstCatalog(t *testing.T) {
	r := newTestRegistry(t)
	inv := &fakeInvoker{}

	_, err := r.Call(context.Background(), "spruthub_call_method",
		map[string]any{"methodName": "hub.selfdestruct"}, inv)
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.Empty(t, inv.invoked, "rejected methods must never reach the hub")
}

func TestCallMethodInvokesHub(t *testing.T) {
	r := newTestRegistry(t)
	inv := &fakeInvoker{replies: map[string]map[string]any{
		"room.list": {"rooms": []any{}},
	}}

	result, err := r.Call(context.Background(), "spruthub_call_method",
		map[string]any{"methodName": "room.list"}, inv)
	require.NoError(t, err)
	require.Len(t, inv.invoked, 1)
	assert.Equal(t, "room.list", inv.invoked[0].method)
	assert.Contains(t, result.Content[0].Text, "Called room.list successfully")
}

func TestListAccessoriesSummarizes(t *testing.T) {
	r := newTestRegistry(t)
	inv := &fakeInvoker{replies: map[string]map[string]any{
		"accessory.search": accessoryFixture(),
	}}

	result, err := r.Call(context.Background(), "spruthub_list_accessories", nil, inv)
	require.NoError(t, err)

	require.Len(t, inv.invoked, 1)
	assert.Equal(t, "none", inv.invoked[0].params["expand"])

	assert.Equal(t, "Found 2 accessories:", result.Content[0].Text)
	assert.Contains(t, result.Content[1].Text, "Ceiling Light")
	assert.Contains(t, result.Content[1].Text, `"room":"Kitchen"`)
	assert.Contains(t, result.Content[1].Text, "Lightbulb")
}

func TestGetAccessoryNotFound(t *testing.T) {
	r := newTestRegistry(t)
	inv := &fakeInvoker{replies: map[string]map[string]any{
		"accessory.search": accessoryFixture(),
	}}

	_, err := r.Call(context.Background(), "spruthub_get_accessory",
		map[string]any{"id": float64(999)}, inv)
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.Contains(t, err.Error(), "999")
}

func TestControlAccessorySendsUpdate(t *testing.T) {
	r := newTestRegistry(t)
	inv := &fakeInvoker{replies: map[string]map[string]any{
		"accessory.search": accessoryFixture(),
	}}

	result, err := r.Call(context.Background(), "spruthub_control_accessory",
		map[string]any{"id": float64(10), "characteristic": "On", "value": true}, inv)
	require.NoError(t, err)

	// Resolution searches with full expansion first.
	require.Len(t, inv.invoked, 1)
	assert.Equal(t, "characteristics", inv.invoked[0].params["expand"])

	require.Len(t, inv.rawCalls, 1)
	update := asMap(asMap(inv.rawCalls[0]["characteristic"])["update"])
	assert.Equal(t, float64(10), update["aId"])
	assert.Equal(t, float64(1), update["sId"])
	assert.Equal(t, float64(2), update["cId"])
	assert.Equal(t,
		map[string]any{"value": map[string]any{"boolValue": true}},
		update["control"])

	assert.Contains(t, result.Content[0].Text, `"success":true`)
}

func TestControlAccessoryRejectsReadOnly(t *testing.T) {
	r := newTestRegistry(t)
	inv := &fakeInvoker{replies: map[string]map[string]any{
		"accessory.search": accessoryFixture(),
	}}

	_, err := r.Call(context.Background(), "spruthub_control_accessory",
		map[string]any{"id": float64(11), "characteristic": "CurrentTemperature", "value": float64(20)}, inv)
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.Contains(t, err.Error(), "read-only")
	assert.Empty(t, inv.rawCalls)
}

func TestControlAccessoryUnknownCharacteristic(t *testing.T) {
	r := newTestRegistry(t)
	inv := &fakeInvoker{replies: map[string]map[string]any{
		"accessory.search": accessoryFixture(),
	}}

	_, err := r.Call(context.Background(), "spruthub_control_accessory",
		map[string]any{"id": float64(10), "characteristic": "TargetTemperature", "value": float64(20)}, inv)
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.Contains(t, err.Error(), "spruthub_get_accessory")
}

func TestControlRoomSkipsNonMatchingDevices(t *testing.T) {
	r := newTestRegistry(t)
	inv := &fakeInvoker{replies: map[string]map[string]any{
		"accessory.search": accessoryFixture(),
	}}

	result, err := r.Call(context.Background(), "spruthub_control_room",
		map[string]any{"roomId": float64(1), "characteristic": "On", "value": "true"}, inv)
	require.NoError(t, err)

	// Only the light has a writable On characteristic; the sensor is skipped.
	require.Len(t, inv.rawCalls, 1)
	update := asMap(asMap(inv.rawCalls[0]["characteristic"])["update"])
	assert.Equal(t,
		map[string]any{"value": map[string]any{"boolValue": true}},
		update["control"])

	assert.Contains(t, result.Content[0].Text, `"controlledCount":1`)
}

func TestControlRoomNoAccessories(t *testing.T) {
	r := newTestRegistry(t)
	inv := &fakeInvoker{replies: map[string]map[string]any{
		"accessory.search": accessoryFixture(),
	}}

	_, err := r.Call(context.Background(), "spruthub_control_room",
		map[string]any{"roomId": float64(8), "characteristic": "On", "value": true}, inv)
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.Contains(t, err.Error(), "No accessories found")
}

func TestListRoomsHandlesBareArray(t *testing.T) {
	r := newTestRegistry(t)
	inv := &fakeInvoker{replies: map[string]map[string]any{
		"room.list": {"data": []any{
			map[string]any{"id": float64(1), "name": "Kitchen"},
			map[string]any{"id": float64(2), "name": "Bedroom"},
		}},
	}}

	result, err := r.Call(context.Background(), "spruthub_list_rooms", nil, inv)
	require.NoError(t, err)
	assert.Equal(t, "Found 2 rooms:", result.Content[0].Text)
}

func TestListScenarios(t *testing.T) {
	r := newTestRegistry(t)
	inv := &fakeInvoker{replies: map[string]map[string]any{
		"scenario.search": {"data": map[string]any{"scenarios": []any{
			map[string]any{"id": float64(3), "name": "Good Night", "enabled": false},
		}}},
	}}

	result, err := r.Call(context.Background(), "spruthub_list_scenarios", nil, inv)
	require.NoError(t, err)
	assert.Equal(t, "Found 1 scenarios:", result.Content[0].Text)
	assert.Contains(t, result.Content[1].Text, `"enabled":false`)
}

func TestRunScenarioSendsNestedFrame(t *testing.T) {
	r := newTestRegistry(t)
	inv := &fakeInvoker{}

	result, err := r.Call(context.Background(), "spruthub_run_scenario",
		map[string]any{"id": float64(3)}, inv)
	require.NoError(t, err)

	require.Len(t, inv.rawCalls, 1)
	assert.Equal(t,
		map[string]any{"scenario": map[string]any{"run": map[string]any{"id": float64(3)}}},
		inv.rawCalls[0])
	assert.Contains(t, result.Content[0].Text, `"success":true`)
}

func TestGetLogsClampsCount(t *testing.T) {
	r := newTestRegistry(t)
	inv := &fakeInvoker{replies: map[string]map[string]any{
		"log.list": {"data": []any{map[string]any{"message": "boot"}}},
	}}

	_, err := r.Call(context.Background(), "spruthub_get_logs",
		map[string]any{"count": float64(500)}, inv)
	require.NoError(t, err)

	require.Len(t, inv.invoked, 1)
	assert.Equal(t, 100, inv.invoked[0].params["count"])
}

func TestGetLogsDefaultCount(t *testing.T) {
	r := newTestRegistry(t)
	inv := &fakeInvoker{}

	_, err := r.Call(context.Background(), "spruthub_get_logs", nil, inv)
	require.NoError(t, err)
	require.Len(t, inv.invoked, 1)
	assert.Equal(t, 20, inv.invoked[0].params["count"])
}

// offlineInvoker reports hub connectivity alongside the fake's canned replies.
type offlineInvoker struct {
	fakeInvoker
	connected bool
}

func (o *offlineInvoker) IsConnected() bool { return o.connected }

func TestHubToolsFailFastWhenDisconnected(t *testing.T) {
	r := newTestRegistry(t)
	inv := &offlineInvoker{}

	_, err := r.Call(context.Background(), "spruthub_list_rooms", nil, inv)
	assert.ErrorIs(t, err, hub.ErrNotConnected)
	assert.Empty(t, inv.invoked, "disconnected invoker must not be called")

	// Catalog-backed tools keep answering while the hub session is down.
	result, err := r.Call(context.Background(), "spruthub_list_methods", nil, inv)
	require.NoError(t, err)
	assert.Contains(t, result.Content[1].Text, "accessory.search")

	inv.connected = true
	inv.replies = map[string]map[string]any{"room.list": {"data": []any{}}}
	_, err = r.Call(context.Background(), "spruthub_list_rooms", nil, inv)
	require.NoError(t, err)
}

func TestLookupIndependentOfRegistrationGrowth(t *testing.T) {
	r := newTestRegistry(t)

	for i := range r.defs {
		def, ok := r.Lookup(r.defs[i].Name)
		require.True(t, ok, r.defs[i].Name)
		assert.Equal(t, r.defs[i].Name, def.Name)
		assert.Equal(t, r.defs[i].Description, def.Description)
	}

	// The lookup table must hold its own copies, not aliases into the
	// definitions slice.
	original := r.defs[0].Description
	r.defs[0].Description = "mutated"
	def, _ := r.Lookup(r.defs[0].Name)
	assert.Equal(t, original, def.Description)
	r.defs[0].Description = original
}

func TestHubErrorsPassThrough(t *testing.T) {
	r := newTestRegistry(t)
	hubErr := errors.New("hub: connection lost")
	inv := &fakeInvoker{err: hubErr}

	_, err := r.Call(context.Background(), "spruthub_list_accessories", nil, inv)
	assert.ErrorIs(t, err, hubErr)

	var usageErr *UsageError
	assert.False(t, errors.As(err, &usageErr), "transport failures are not usage errors")
}
