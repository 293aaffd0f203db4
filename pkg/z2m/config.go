package z2m

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSerialPort is the adapter path written when nothing else is known.
const DefaultSerialPort = "/dev/ttyACM0"

// Configuration is the Zigbee2MQTT configuration.yaml document. Field order
// is the order keys are written.
type Configuration struct {
	MQTT     MQTT          `yaml:"mqtt" json:"mqtt"`
	Serial   Serial        `yaml:"serial" json:"serial"`
	Advanced Advanced      `yaml:"advanced" json:"advanced"`
	Devices  []DeviceEntry `yaml:"devices" json:"devices"`
}

// MQTT is the broker section.
type MQTT struct {
	BaseTopic string `yaml:"base_topic" json:"base_topic"`
	Server    string `yaml:"server" json:"server"`
}

// Serial is the adapter section.
type Serial struct {
	Port string `yaml:"port" json:"port"`
}

// Advanced carries the network identity.
type Advanced struct {
	PanID         HexLiteral `yaml:"pan_id" json:"pan_id"`
	ExtendedPanID HexLiteral `yaml:"extended_pan_id" json:"extended_pan_id"`
	NetworkKey    ByteList   `yaml:"network_key" json:"network_key"`
	Channel       int        `yaml:"channel" json:"channel"`
}

// DeviceEntry is one migrated device.
type DeviceEntry struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Type         string `yaml:"type,omitempty" json:"type,omitempty"`
	Model        string `yaml:"model,omitempty" json:"model,omitempty"`
	Manufacturer string `yaml:"manufacturer,omitempty" json:"manufacturer,omitempty"`
}

// HexLiteral is a 0x-prefixed hex number such as 0x1A63. It is written as a
// plain YAML integer literal so Zigbee2MQTT reads it as a number.
type HexLiteral string

// NewHexLiteral formats normalized hex digits as an uppercase 0x literal.
func NewHexLiteral(digits string) HexLiteral {
	return HexLiteral("0x" + strings.ToUpper(digits))
}

// Digits returns the lowercase digits without the prefix.
func (h HexLiteral) Digits() string {
	s := string(h)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return strings.ToLower(s)
}

func (h HexLiteral) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: string(h)}, nil
}

// ByteList is a byte array written as a bracketed list of hex literals,
// e.g. [0x01, 0x03, ...], the encoding Zigbee2MQTT expects for network_key.
type ByteList []HexLiteral

// NewByteList splits normalized hex digits into per-byte literals,
// preserving order.
func NewByteList(digits string) (ByteList, error) {
	if len(digits)%2 != 0 {
		return nil, fmt.Errorf("odd number of hex digits: %d", len(digits))
	}
	out := make(ByteList, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		out = append(out, NewHexLiteral(digits[i:i+2]))
	}
	return out, nil
}

// Digits joins the bytes back into lowercase hex digits.
func (b ByteList) Digits() string {
	var sb strings.Builder
	for _, v := range b {
		sb.WriteString(v.Digits())
	}
	return sb.String()
}

// String renders the list the way it appears in the file.
func (b ByteList) String() string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = string(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (b ByteList) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	for _, v := range b {
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: string(v)})
	}
	return node, nil
}
