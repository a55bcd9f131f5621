// ABOUTME: Tests for the embedded hub method catalog.
// ABOUTME: Verifies parsing, category filtering, and schema lookup.

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParsesEmbeddedCatalog(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	names := c.Methods()
	assert.Contains(t, names, "accessory.search")
	assert.Contains(t, names, "characteristic.update")
	assert.Contains(t, names, "scenario.run")
	assert.Contains(t, names, "log.list")
	assert.IsIncreasing(t, names)
}

func TestCategories(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"accessory", "room", "scenario", "system"}, c.Categories())
}

func TestByCategory(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"scenario.get", "scenario.run", "scenario.search"}, c.ByCategory("scenario"))
	assert.Empty(t, c.ByCategory("nonexistent"))
}

func TestSchemaLookup(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	m, ok := c.Schema("accessory.search")
	require.True(t, ok)
	assert.Equal(t, "accessory", m.Category)
	assert.NotEmpty(t, m.Description)
	assert.Contains(t, m.Params, "page")
	assert.Contains(t, m.Params, "expand")

	_, ok = c.Schema("does.not.exist")
	assert.False(t, ok)
}

func TestRoomListHasNoParams(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	m, ok := c.Schema("room.list")
	require.True(t, ok)
	assert.Empty(t, m.Params)
}
