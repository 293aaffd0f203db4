package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNetworkParamsNotFound = errors.New("network parameters not found")

// NetworkParams are the radio parameters last written for a gateway.
// Hex fields are normalized (lowercase, no prefix).
type NetworkParams struct {
	ID                  int64
	GatewayID           int64
	Channel             int
	PanID               string
	ExtPanID            string
	NetworkKey          string
	ExtPanIDGenerated   bool
	NetworkKeyGenerated bool
	UpdatedAt           time.Time
}

// NetworkParamsStore persists network parameters per gateway.
type NetworkParamsStore interface {
	Get(ctx context.Context, gatewayID int64) (*NetworkParams, error)
	Save(ctx context.Context, p *NetworkParams) error
}

// NetworkParams returns a NetworkParamsStore for this database.
func (db *DB) NetworkParams() NetworkParamsStore {
	return &networkParamsStore{db: db}
}

type networkParamsStore struct {
	db *DB
}

func (s *networkParamsStore) Get(ctx context.Context, gatewayID int64) (*NetworkParams, error) {
	p := &NetworkParams{}
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, gateway_id, channel, pan_id, ext_pan_id, network_key,
		       ext_pan_id_generated, network_key_generated, updated_at
		FROM network_params WHERE gateway_id = ?
	`, gatewayID).Scan(&p.ID, &p.GatewayID, &p.Channel, &p.PanID, &p.ExtPanID, &p.NetworkKey,
		&p.ExtPanIDGenerated, &p.NetworkKeyGenerated, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNetworkParamsNotFound
	}
	if err != nil {
		return nil, err
	}
	p.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return p, nil
}

// Save inserts or replaces the parameters of p.GatewayID.
func (s *networkParamsStore) Save(ctx context.Context, p *NetworkParams) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO network_params (gateway_id, channel, pan_id, ext_pan_id, network_key,
		                            ext_pan_id_generated, network_key_generated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(gateway_id) DO UPDATE SET
			channel = excluded.channel,
			pan_id = excluded.pan_id,
			ext_pan_id = excluded.ext_pan_id,
			network_key = excluded.network_key,
			ext_pan_id_generated = excluded.ext_pan_id_generated,
			network_key_generated = excluded.network_key_generated,
			updated_at = datetime('now')
		RETURNING id
	`, p.GatewayID, p.Channel, p.PanID, p.ExtPanID, p.NetworkKey,
		p.ExtPanIDGenerated, p.NetworkKeyGenerated).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to save network parameters: %w", err)
	}
	return nil
}
