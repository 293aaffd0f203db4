package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrGatewayNotFound = errors.New("gateway not found")

// Gateway sources
const (
	SourceREST     = "rest"
	SourceDatabase = "database"
)

// Gateway is a deCONZ gateway the migrator has talked to.
type Gateway struct {
	ID         int64
	Key        string // http://host:port or file:/path/to/zll.db
	Source     string
	Host       string
	Port       int
	DBPath     string
	APIKey     string
	Name       string
	Version    string
	LastUsedAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// GatewayStore provides gateway CRUD operations.
type GatewayStore interface {
	GetByKey(ctx context.Context, key string) (*Gateway, error)
	LastUsed(ctx context.Context) (*Gateway, error)
	List(ctx context.Context) ([]*Gateway, error)
	Upsert(ctx context.Context, g *Gateway) error
	SetAPIKey(ctx context.Context, key, apiKey string) error
}

// Gateways returns a GatewayStore for this database.
func (db *DB) Gateways() GatewayStore {
	return &gatewayStore{db: db}
}

type gatewayStore struct {
	db *DB
}

const gatewayColumns = `id, key, source, host, port, db_path, api_key, name, version, last_used_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGateway(row rowScanner) (*Gateway, error) {
	g := &Gateway{}
	var lastUsedAt, createdAt, updatedAt string
	err := row.Scan(&g.ID, &g.Key, &g.Source, &g.Host, &g.Port, &g.DBPath, &g.APIKey,
		&g.Name, &g.Version, &lastUsedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	g.LastUsedAt, _ = time.Parse(time.DateTime, lastUsedAt)
	g.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	g.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return g, nil
}

func (s *gatewayStore) GetByKey(ctx context.Context, key string) (*Gateway, error) {
	g, err := scanGateway(s.db.QueryRowContext(ctx,
		`SELECT `+gatewayColumns+` FROM gateways WHERE key = ?`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGatewayNotFound
	}
	return g, err
}

// LastUsed returns the gateway used most recently.
func (s *gatewayStore) LastUsed(ctx context.Context) (*Gateway, error) {
	g, err := scanGateway(s.db.QueryRowContext(ctx,
		`SELECT `+gatewayColumns+` FROM gateways ORDER BY last_used_at DESC, id DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGatewayNotFound
	}
	return g, err
}

func (s *gatewayStore) List(ctx context.Context) ([]*Gateway, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+gatewayColumns+` FROM gateways ORDER BY last_used_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var gateways []*Gateway
	for rows.Next() {
		g, err := scanGateway(rows)
		if err != nil {
			return nil, err
		}
		gateways = append(gateways, g)
	}
	return gateways, rows.Err()
}

// Upsert inserts g or updates the row with the same key, marking it as
// last used. An empty APIKey or Name never overwrites a stored one.
func (s *gatewayStore) Upsert(ctx context.Context, g *Gateway) error {
	if g.Key == "" {
		return errors.New("gateway key is required")
	}
	if g.Source == "" {
		g.Source = SourceREST
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO gateways (key, source, host, port, db_path, api_key, name, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			source = excluded.source,
			host = excluded.host,
			port = excluded.port,
			db_path = excluded.db_path,
			api_key = CASE WHEN excluded.api_key != '' THEN excluded.api_key ELSE gateways.api_key END,
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE gateways.name END,
			version = CASE WHEN excluded.version != '' THEN excluded.version ELSE gateways.version END,
			last_used_at = datetime('now'),
			updated_at = datetime('now')
		RETURNING id
	`, g.Key, g.Source, g.Host, g.Port, g.DBPath, g.APIKey, g.Name, g.Version).Scan(&g.ID)
	if err != nil {
		return fmt.Errorf("failed to save gateway: %w", err)
	}
	return nil
}

// SetAPIKey stores a credential for an existing gateway.
func (s *gatewayStore) SetAPIKey(ctx context.Context, key, apiKey string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE gateways SET api_key = ?, updated_at = datetime('now')
		WHERE key = ?
	`, apiKey, key)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrGatewayNotFound
	}
	return nil
}
