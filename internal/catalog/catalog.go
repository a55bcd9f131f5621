// ABOUTME: Embedded catalog of known Sprut.hub JSON-RPC methods.
// ABOUTME: Backs the discovery tools that list methods and describe their parameters.

// Package catalog ships a curated index of hub methods with the binary.
// The hub itself has no introspection endpoint, so the catalog is what
// clients browse before reaching for the raw method invoker.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

//go:embed methods.toml
var methodsTOML string

// Method describes one hub JSON-RPC method. Params maps parameter names to
// human-readable descriptions; it is documentation, not a validation schema.
type Method struct {
	Category    string            `toml:"category"`
	Description string            `toml:"description"`
	Params      map[string]string `toml:"params"`
}

// Catalog is an immutable set of method descriptions.
type Catalog struct {
	methods map[string]Method
}

type catalogFile struct {
	Methods map[string]Method `toml:"methods"`
}

// Load parses the embedded method catalog.
func Load() (*Catalog, error) {
	var file catalogFile
	if _, err := toml.Decode(methodsTOML, &file); err != nil {
		return nil, fmt.Errorf("parsing method catalog: %w", err)
	}
	if len(file.Methods) == 0 {
		return nil, fmt.Errorf("method catalog is empty")
	}
	return &Catalog{methods: file.Methods}, nil
}

// Methods returns all catalogued method names, sorted.
func (c *Catalog) Methods() []string {
	names := make([]string, 0, len(c.methods))
	for name := range c.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Categories returns the distinct method categories, sorted.
func (c *Catalog) Categories() []string {
	seen := map[string]struct{}{}
	for _, m := range c.methods {
		seen[m.Category] = struct{}{}
	}
	categories := make([]string, 0, len(seen))
	for cat := range seen {
		categories = append(categories, cat)
	}
	sort.Strings(categories)
	return categories
}

// ByCategory returns the names of all methods in a category, sorted.
// An unknown category yields an empty slice.
func (c *Catalog) ByCategory(category string) []string {
	var names []string
	for name, m := range c.methods {
		if m.Category == category {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Schema looks up a method description by name.
func (c *Catalog) Schema(name string) (Method, bool) {
	m, ok := c.methods[name]
	return m, ok
}
