package db

import (
	"context"
	"errors"
	"fmt"
)

// GatewayState is everything remembered about one gateway.
type GatewayState struct {
	Gateway *Gateway
	Params  *NetworkParams // nil when no configuration was written yet
}

// APIKey returns the stored credential, if any.
func (s *GatewayState) APIKey() string {
	if s == nil || s.Gateway == nil {
		return ""
	}
	return s.Gateway.APIKey
}

// State loads the gateway with the given key and its network parameters.
func (db *DB) State(ctx context.Context, key string) (*GatewayState, error) {
	gw, err := db.Gateways().GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	state := &GatewayState{Gateway: gw}

	params, err := db.NetworkParams().Get(ctx, gw.ID)
	if err != nil && !errors.Is(err, ErrNetworkParamsNotFound) {
		return nil, fmt.Errorf("failed to get network parameters: %w", err)
	}
	state.Params = params

	return state, nil
}

// Remember saves a gateway and, when p is non-nil, the network parameters
// used for it. g.ID is filled in.
func (db *DB) Remember(ctx context.Context, g *Gateway, p *NetworkParams) error {
	if err := db.Gateways().Upsert(ctx, g); err != nil {
		return err
	}
	if p == nil {
		return nil
	}
	p.GatewayID = g.ID
	return db.NetworkParams().Save(ctx, p)
}
