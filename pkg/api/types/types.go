package types

import (
	"time"

	"github.com/urmzd/deconz2z2m/pkg/device"
	"github.com/urmzd/deconz2z2m/pkg/serialport"
	"github.com/urmzd/deconz2z2m/pkg/z2m"
)

// --- Request DTOs ---

// GatewayRequest identifies the deCONZ gateway or database to read.
type GatewayRequest struct {
	Source       string `json:"source,omitempty" example:"rest"` // rest or database
	Host         string `json:"host,omitempty" example:"192.168.178.76"`
	Port         int    `json:"port,omitempty" example:"4530"`
	APIKey       string `json:"api_key,omitempty" example:"99D54B94DA"`
	DatabasePath string `json:"database_path,omitempty"`
}

// MigrationRequest is the request body for POST /migrations and
// POST /migrations/preview. Empty fields take the server defaults.
type MigrationRequest struct {
	GatewayRequest
	Channel    int    `json:"channel,omitempty" example:"15"`
	PanID      string `json:"pan_id,omitempty" example:"1a63"`
	ExtPanID   string `json:"ext_pan_id,omitempty"`
	NetworkKey string `json:"network_key,omitempty"`
	MQTTServer string `json:"mqtt_server,omitempty" example:"mqtt://localhost"`
	MQTTTopic  string `json:"mqtt_topic,omitempty" example:"zigbee2mqtt"`
	SerialPort string `json:"serial_port,omitempty" example:"/dev/ttyACM0"`
}

// PairRequest is the request body for POST /gateway/pair
type PairRequest struct {
	Host string `json:"host" binding:"required" example:"192.168.178.76"`
	Port int    `json:"port" binding:"required" example:"4530"`
}

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	StateDB   string    `json:"state_db"`
	Timestamp time.Time `json:"timestamp"`
}

// MigrationResponse is returned from the migration endpoints
type MigrationResponse struct {
	State         string            `json:"state"`
	DryRun        bool              `json:"dry_run"`
	Path          string            `json:"path,omitempty"`
	Generated     bool              `json:"generated"`
	Sensors       int               `json:"sensors"`
	Lights        int               `json:"lights"`
	Configuration z2m.Configuration `json:"configuration"`
	YAML          string            `json:"yaml"`
}

// DevicesResponse is returned from POST /gateway/devices
type DevicesResponse struct {
	Gateway string          `json:"gateway"`
	Devices []device.Record `json:"devices"`
	Count   int             `json:"count"`
}

// PairResponse is returned from POST /gateway/pair
type PairResponse struct {
	APIKey string `json:"api_key"`
}

// GatewaySummary is a gateway remembered from an earlier run
type GatewaySummary struct {
	Key        string    `json:"key"`
	Source     string    `json:"source"`
	Name       string    `json:"name,omitempty"`
	Version    string    `json:"version,omitempty"`
	HasAPIKey  bool      `json:"has_api_key"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// GatewaysResponse is returned from GET /gateways
type GatewaysResponse struct {
	Gateways []GatewaySummary `json:"gateways"`
	Count    int              `json:"count"`
}

// SerialPortsResponse is returned from GET /serial-ports
type SerialPortsResponse struct {
	Ports     []serialport.Port `json:"ports"`
	Suggested string            `json:"suggested"`
}
