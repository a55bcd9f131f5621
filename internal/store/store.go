// ABOUTME: Storage interfaces and types for MCP client credentials
// ABOUTME: Defines the Store contract implemented by SQLiteStore

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record doesn't exist
var ErrNotFound = errors.New("not found")

// Client represents an MCP client that was issued an access token.
// The JWT's sub claim carries the client ID; revocation is checked on
// every authenticated request.
type Client struct {
	ID         string
	Name       string
	CreatedAt  time.Time
	LastSeenAt *time.Time
	Revoked    bool
}

// Store defines the persistence interface for the gateway
type Store interface {
	// CreateClient registers a new MCP client identity
	CreateClient(ctx context.Context, client *Client) error

	// GetClient retrieves a client by ID
	GetClient(ctx context.Context, id string) (*Client, error)

	// ListClients returns all registered clients ordered by creation time
	ListClients(ctx context.Context) ([]*Client, error)

	// TouchClient records that a client was seen just now
	TouchClient(ctx context.Context, id string) error

	// RevokeClient marks a client's tokens as no longer accepted
	RevokeClient(ctx context.Context, id string) error

	// Close releases the underlying database
	Close() error
}
