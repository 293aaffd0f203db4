package mcp

import (
	"github.com/urmzd/deconz2z2m/pkg/device"
	"github.com/urmzd/deconz2z2m/pkg/serialport"
)

// --- Health Tool ---

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status    string `json:"status" jsonschema:"description=Overall health status (healthy or degraded)"`
	StateDB   string `json:"state_db" jsonschema:"description=State database status (ok, unavailable or disabled)"`
	Timestamp string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// --- Probe Gateway Tool ---

// ProbeGatewayOutput is the output for the probe_gateway tool
type ProbeGatewayOutput struct {
	Gateway       string `json:"gateway" jsonschema:"description=Gateway base URL or database path"`
	Reachable     bool   `json:"reachable" jsonschema:"description=Whether the gateway answered"`
	Authenticated bool   `json:"authenticated" jsonschema:"description=Whether the API key was accepted"`
	Name          string `json:"name,omitempty" jsonschema:"description=Gateway name"`
	Version       string `json:"version,omitempty" jsonschema:"description=Gateway firmware or software version"`
	Channel       int    `json:"channel,omitempty" jsonschema:"description=Zigbee channel"`
	PanID         string `json:"pan_id,omitempty" jsonschema:"description=PAN ID"`
	Hint          string `json:"hint,omitempty" jsonschema:"description=What to try next"`
}

// --- List Devices Tool ---

// ListDevicesOutput is the output for the list_devices tool
type ListDevicesOutput struct {
	Gateway string          `json:"gateway" jsonschema:"description=Gateway base URL or database path"`
	Devices []device.Record `json:"devices" jsonschema:"description=Sensors then lights in gateway order"`
	Sensors int             `json:"sensors" jsonschema:"description=Number of sensors"`
	Lights  int             `json:"lights" jsonschema:"description=Number of lights"`
	Count   int             `json:"count" jsonschema:"description=Total number of devices"`
}

// --- Preview Configuration Tool ---

// PreviewConfigurationOutput is the output for the preview_configuration tool
type PreviewConfigurationOutput struct {
	YAML      string `json:"yaml" jsonschema:"description=configuration.yaml content"`
	Generated bool   `json:"generated" jsonschema:"description=Whether the extended PAN ID or network key were generated"`
	Devices   int    `json:"devices" jsonschema:"description=Number of migrated devices"`
}

// --- Validate Hex Tool ---

// ValidateHexOutput is the output for the validate_hex tool
type ValidateHexOutput struct {
	Valid      bool   `json:"valid" jsonschema:"description=Whether the value has the right length and digits"`
	Normalized string `json:"normalized,omitempty" jsonschema:"description=Lowercase digits without 0x"`
	Expected   int    `json:"expected_digits" jsonschema:"description=Required number of hex digits"`
}

// --- Serial Ports Tool ---

// ListSerialPortsOutput is the output for the list_serial_ports tool
type ListSerialPortsOutput struct {
	Ports     []serialport.Port `json:"ports" jsonschema:"description=Serial ports"`
	Suggested string            `json:"suggested" jsonschema:"description=Port to use for serial.port"`
}

// --- Gateways Tool ---

// GatewayInfo is a gateway remembered from an earlier run
type GatewayInfo struct {
	Key        string `json:"key" jsonschema:"description=Gateway base URL or file: database path"`
	Source     string `json:"source" jsonschema:"description=rest or database"`
	Name       string `json:"name,omitempty" jsonschema:"description=Gateway name"`
	HasAPIKey  bool   `json:"has_api_key" jsonschema:"description=Whether an API key is stored"`
	LastUsedAt string `json:"last_used_at" jsonschema:"description=ISO8601 timestamp of the last run"`
}

// ListGatewaysOutput is the output for the list_gateways tool
type ListGatewaysOutput struct {
	Gateways []GatewayInfo `json:"gateways" jsonschema:"description=Remembered gateways, most recent first"`
	Count    int           `json:"count" jsonschema:"description=Number of gateways"`
}
