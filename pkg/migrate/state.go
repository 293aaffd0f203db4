package migrate

import (
	"fmt"

	"github.com/urmzd/deconz2z2m/pkg/device"
	"github.com/urmzd/deconz2z2m/pkg/network"
	"github.com/urmzd/deconz2z2m/pkg/z2m"
)

// State is a step of a migration run.
type State string

// Run states, in order. Cancelled and Failed are terminal.
const (
	StateAwaitingConnectionParams State = "awaiting_connection_params"
	StateConnected                State = "connected"
	StateAuthenticated            State = "authenticated"
	StateNetworkParamsFetched     State = "network_params_fetched"
	StateDevicesFetched           State = "devices_fetched"
	StateAwaitingMQTTParams       State = "awaiting_mqtt_params"
	StateConfigBuilt              State = "config_built"
	StateDone                     State = "done"
	StateCancelled                State = "cancelled"
	StateFailed                   State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled || s == StateFailed
}

// Result is the outcome of a run.
type Result struct {
	State     State
	Config    z2m.Configuration
	Params    network.Params
	Devices   []device.Record
	Output    string // rendered YAML
	Path      string // absolute output path; empty for a dry run
	DryRun    bool
	Generated bool // ext PAN ID or network key were generated locally
}

// ValidationError reports an answer that was rejected.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == device.ErrValidation }
