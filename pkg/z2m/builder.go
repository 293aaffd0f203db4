package z2m

import (
	"github.com/rs/zerolog/log"
	"github.com/urmzd/deconz2z2m/pkg/device"
	"github.com/urmzd/deconz2z2m/pkg/network"
)

// Byte counts for generated identifiers.
const (
	extPanIDBytes   = 8
	networkKeyBytes = 16
)

// Result is a built document together with the network values it used.
type Result struct {
	Config Configuration

	// Params is the finalized network identity; every field is set.
	Params network.Params

	// GeneratedExtPanID and GeneratedNetworkKey report which values came
	// from the generator rather than the gateway or the user.
	GeneratedExtPanID   bool
	GeneratedNetworkKey bool
}

// Generated reports whether any value was generated.
func (r Result) Generated() bool {
	return r.GeneratedExtPanID || r.GeneratedNetworkKey
}

// Builder turns gateway data into a Configuration. It performs no I/O.
type Builder struct {
	generator  network.Generator
	serialPort string
}

// NewBuilder creates a Builder. A nil generator uses the insecure default;
// an empty serial port uses DefaultSerialPort.
func NewBuilder(generator network.Generator, serialPort string) *Builder {
	if generator == nil {
		generator = network.NewInsecureGenerator()
	}
	if serialPort == "" {
		serialPort = DefaultSerialPort
	}
	return &Builder{generator: generator, serialPort: serialPort}
}

// Build merges params and devices into a Configuration. Missing channel and
// PAN ID fall back to fixed defaults; a missing extended PAN ID or network
// key is generated and logged so the user can record it.
func (b *Builder) Build(devices []device.Record, params network.Params, mqttServer, mqttTopic string) Result {
	res := Result{Params: params}

	if !params.HasChannel() {
		res.Params.Channel = network.DefaultChannel
	}

	if params.HasPanID() {
		res.Params.PanID = network.NormalizeHex(params.PanID)
	} else {
		res.Params.PanID = network.DefaultPanID
	}

	if params.HasExtPanID() {
		res.Params.ExtPanID = network.NormalizeHex(params.ExtPanID)
	} else {
		res.Params.ExtPanID = b.generator.Hex(extPanIDBytes)
		res.GeneratedExtPanID = true
		log.Warn().
			Str("extended_pan_id", "0x"+res.Params.ExtPanID).
			Msg("Extended PAN ID generated; record it to keep the network identity stable")
	}

	if params.HasNetworkKey() {
		res.Params.NetworkKey = network.NormalizeHex(params.NetworkKey)
	} else {
		res.Params.NetworkKey = b.generator.Hex(networkKeyBytes)
		res.GeneratedNetworkKey = true
		log.Warn().
			Str("network_key", "0x"+res.Params.NetworkKey).
			Msg("Network key generated (insecure fallback); record it to keep the network identity stable")
	}

	key, err := NewByteList(res.Params.NetworkKey)
	if err != nil {
		log.Error().Err(err).Msg("Network key could not be split into bytes")
	}

	res.Config = Configuration{
		MQTT: MQTT{
			BaseTopic: mqttTopic,
			Server:    mqttServer,
		},
		Serial: Serial{
			Port: b.serialPort,
		},
		Advanced: Advanced{
			PanID:         NewHexLiteral(res.Params.PanID),
			ExtendedPanID: NewHexLiteral(res.Params.ExtPanID),
			NetworkKey:    key,
			Channel:       res.Params.Channel,
		},
		Devices: make([]DeviceEntry, 0, len(devices)),
	}

	for _, d := range devices {
		res.Config.Devices = append(res.Config.Devices, entryFor(d))
	}

	return res
}

func entryFor(d device.Record) DeviceEntry {
	name := d.Name
	if name == "" {
		name = device.DefaultName(d.Kind, d.ID)
	}
	return DeviceEntry{
		ID:           d.ID,
		Name:         name,
		Type:         string(d.Kind),
		Model:        d.Model,
		Manufacturer: d.Manufacturer,
	}
}
