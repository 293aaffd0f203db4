package z2m

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/deconz2z2m/pkg/device"
	"github.com/urmzd/deconz2z2m/pkg/network"
)

const (
	testExtPanID   = "00212effff05a1b2"
	testNetworkKey = "01030507090b0d0f00020406080a0c0d"
)

func testRecords(t *testing.T) []device.Record {
	t.Helper()

	mk := func(kind device.Kind, id string, f device.Fields) device.Record {
		r, err := device.NewRecord(kind, id, f)
		require.NoError(t, err)
		return r
	}

	return []device.Record{
		mk(device.KindSensor, "1", device.Fields{Name: "Flur Bewegung", Model: "SML001", Manufacturer: "Philips"}),
		mk(device.KindSensor, "2", device.Fields{Name: "Küche Temperatur", Model: "lumi.weather"}),
		mk(device.KindLight, "1", device.Fields{Name: "Stehlampe", Model: "LCT015", Manufacturer: "Signify Netherlands B.V."}),
	}
}

func TestBuild_GatewayScenario(t *testing.T) {
	gen := network.NewFixedGenerator(testExtPanID, testNetworkKey)
	b := NewBuilder(gen, "")

	params := network.Params{Channel: 15, PanID: network.ParseDecimalField("6755", 4)}
	res := b.Build(testRecords(t), params, "mqtt://localhost", "zigbee2mqtt")

	assert.Equal(t, 15, res.Config.Advanced.Channel)
	assert.Equal(t, HexLiteral("0x1A63"), res.Config.Advanced.PanID)
	assert.Equal(t, HexLiteral("0x00212EFFFF05A1B2"), res.Config.Advanced.ExtendedPanID)
	assert.Len(t, res.Config.Advanced.NetworkKey, 16)
	assert.Equal(t, HexLiteral("0x01"), res.Config.Advanced.NetworkKey[0])
	assert.Equal(t, HexLiteral("0x0D"), res.Config.Advanced.NetworkKey[15])
	assert.True(t, res.GeneratedExtPanID)
	assert.True(t, res.GeneratedNetworkKey)
	assert.Equal(t, 2, gen.Calls())

	require.Len(t, res.Config.Devices, 3)
	assert.Equal(t, "sensor", res.Config.Devices[0].Type)
	assert.Equal(t, "sensor", res.Config.Devices[1].Type)
	assert.Equal(t, "light", res.Config.Devices[2].Type)
	assert.Equal(t, "Stehlampe", res.Config.Devices[2].Name)

	assert.Equal(t, "mqtt://localhost", res.Config.MQTT.Server)
	assert.Equal(t, "zigbee2mqtt", res.Config.MQTT.BaseTopic)
	assert.Equal(t, DefaultSerialPort, res.Config.Serial.Port)
}

func TestBuild_RandomFallbackLengths(t *testing.T) {
	b := NewBuilder(nil, "")

	res := b.Build(nil, network.Params{}, "mqtt://localhost", "zigbee2mqtt")

	assert.True(t, network.ValidHex(string(res.Config.Advanced.ExtendedPanID), 16))
	assert.Len(t, res.Config.Advanced.NetworkKey, 16)
	assert.True(t, network.ValidHex(res.Config.Advanced.NetworkKey.Digits(), 32))
	assert.NotNil(t, res.Config.Devices)
	assert.Empty(t, res.Config.Devices)
}

func TestBuild_UsesGatewayValues(t *testing.T) {
	gen := network.NewFixedGenerator()
	b := NewBuilder(gen, "/dev/ttyUSB0")

	params := network.Params{
		Channel:    25,
		PanID:      "0xBEEF",
		ExtPanID:   "DDDDDDDDDDDDDDDD",
		NetworkKey: "0x00112233445566778899AABBCCDDEEFF",
	}
	res := b.Build(nil, params, "mqtt://broker:1883", "z2m")

	assert.Equal(t, 0, gen.Calls())
	assert.False(t, res.Generated())
	assert.Equal(t, 25, res.Config.Advanced.Channel)
	assert.Equal(t, HexLiteral("0xBEEF"), res.Config.Advanced.PanID)
	assert.Equal(t, HexLiteral("0xDDDDDDDDDDDDDDDD"), res.Config.Advanced.ExtendedPanID)
	assert.Equal(t, "00112233445566778899aabbccddeeff", res.Config.Advanced.NetworkKey.Digits())
	assert.Equal(t, "/dev/ttyUSB0", res.Config.Serial.Port)
	assert.Equal(t, "00112233445566778899aabbccddeeff", res.Params.NetworkKey)
}

func TestBuild_ChannelBoundaries(t *testing.T) {
	b := NewBuilder(network.NewFixedGenerator(), "")

	tests := []struct {
		channel int
		want    int
	}{
		{10, network.DefaultChannel},
		{11, 11},
		{26, 26},
		{27, network.DefaultChannel},
		{0, network.DefaultChannel},
	}

	for _, tt := range tests {
		res := b.Build(nil, network.Params{Channel: tt.channel}, "mqtt://localhost", "zigbee2mqtt")
		assert.Equal(t, tt.want, res.Config.Advanced.Channel, "channel %d", tt.channel)
	}
}

func TestBuild_InvalidPanIDFallsBack(t *testing.T) {
	b := NewBuilder(network.NewFixedGenerator(), "")

	res := b.Build(nil, network.Params{PanID: "xyz"}, "mqtt://localhost", "zigbee2mqtt")

	assert.Equal(t, HexLiteral("0x1A63"), res.Config.Advanced.PanID)
}

func TestBuild_DeviceFieldPresence(t *testing.T) {
	b := NewBuilder(network.NewFixedGenerator(), "")

	devices := []device.Record{
		{ID: "9", Kind: device.KindLight, UniqueID: "00:17:88:01:02:03:04:05-0b", State: map[string]any{"on": true}},
	}
	res := b.Build(devices, network.Params{}, "mqtt://localhost", "zigbee2mqtt")

	require.Len(t, res.Config.Devices, 1)
	entry := res.Config.Devices[0]
	assert.Equal(t, "light_9", entry.Name)
	assert.Empty(t, entry.Model)
	assert.Empty(t, entry.Manufacturer)
}

func TestNewByteList(t *testing.T) {
	list, err := NewByteList("aabb01")
	require.NoError(t, err)
	assert.Equal(t, "[0xAA, 0xBB, 0x01]", list.String())
	assert.Equal(t, "aabb01", list.Digits())

	_, err = NewByteList("abc")
	assert.Error(t, err)
}
