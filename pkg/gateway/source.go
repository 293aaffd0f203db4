package gateway

import (
	"context"

	"github.com/urmzd/deconz2z2m/pkg/device"
	"github.com/urmzd/deconz2z2m/pkg/network"
)

// Source abstracts how gateway data is acquired. Both the REST and the
// database strategy return the same normalized records, so everything
// downstream is strategy-agnostic.
type Source interface {
	// Connect verifies the gateway (or database file) is reachable.
	Connect(ctx context.Context) error

	// Authenticate checks the credential. Sources without authentication
	// return nil.
	Authenticate(ctx context.Context, credential string) error

	// FetchNetworkParams returns the radio parameters. Missing fields are
	// left unset rather than failing.
	FetchNetworkParams(ctx context.Context) (network.Params, error)

	// FetchDevices returns all paired devices, sensors before lights.
	FetchDevices(ctx context.Context) ([]device.Record, error)

	// Key identifies the gateway for persisting state across runs.
	Key() string

	// Close releases any resources held by the source.
	Close() error
}
