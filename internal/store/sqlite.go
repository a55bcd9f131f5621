// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides client credential persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			last_seen_at DATETIME,
			revoked INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_clients_created_at
			ON clients(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// CreateClient registers a new MCP client identity
func (s *SQLiteStore) CreateClient(ctx context.Context, client *Client) error {
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, created_at, revoked) VALUES (?, ?, ?, ?)`,
		client.ID, client.Name, client.CreatedAt, boolToInt(client.Revoked))
	if err != nil {
		return fmt.Errorf("inserting client: %w", err)
	}
	s.logger.Info("client registered", "id", client.ID, "name", client.Name)
	return nil
}

// GetClient retrieves a client by ID
func (s *SQLiteStore) GetClient(ctx context.Context, id string) (*Client, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, last_seen_at, revoked FROM clients WHERE id = ?`, id)
	return scanClient(row)
}

// ListClients returns all registered clients ordered by creation time
func (s *SQLiteStore) ListClients(ctx context.Context) ([]*Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, last_seen_at, revoked FROM clients ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("querying clients: %w", err)
	}
	defer rows.Close()

	var clients []*Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// TouchClient records that a client was seen just now
func (s *SQLiteStore) TouchClient(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE clients SET last_seen_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating client: %w", err)
	}
	return requireRow(result)
}

// RevokeClient marks a client's tokens as no longer accepted
func (s *SQLiteStore) RevokeClient(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE clients SET revoked = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("revoking client: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}
	s.logger.Info("client revoked", "id", id)
	return nil
}

// Close releases the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*Client, error) {
	var c Client
	var lastSeen sql.NullTime
	var revoked int
	err := row.Scan(&c.ID, &c.Name, &c.CreatedAt, &lastSeen, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning client: %w", err)
	}
	if lastSeen.Valid {
		t := lastSeen.Time
		c.LastSeenAt = &t
	}
	c.Revoked = revoked != 0
	return &c, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
