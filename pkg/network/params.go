package network

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultChannel is used when the gateway reports no valid channel.
const DefaultChannel = 15

// DefaultPanID is the well-known placeholder PAN ID used when none is known.
const DefaultPanID = "1a63"

// Params holds the radio parameters of a Zigbee network. Zero values mean
// "unset"; hex fields are stored normalized (lowercase, no 0x prefix).
type Params struct {
	Channel        int
	PanID          string
	ExtPanID       string
	NetworkKey     string
	GatewayName    string
	GatewayVersion string
}

// HasChannel reports whether a valid channel is set.
func (p Params) HasChannel() bool {
	return ValidChannel(p.Channel)
}

// HasPanID reports whether a valid PAN ID is set.
func (p Params) HasPanID() bool {
	return ValidHex(p.PanID, PanIDLength)
}

// HasExtPanID reports whether a valid extended PAN ID is set.
func (p Params) HasExtPanID() bool {
	return ValidHex(p.ExtPanID, ExtPanIDLength)
}

// HasNetworkKey reports whether a valid network key is set.
func (p Params) HasNetworkKey() bool {
	return ValidHex(p.NetworkKey, NetworkKeyLength)
}

// Merge returns p with every unset field taken from fallback.
func (p Params) Merge(fallback Params) Params {
	out := p
	if !out.HasChannel() && fallback.HasChannel() {
		out.Channel = fallback.Channel
	}
	if !out.HasPanID() && fallback.HasPanID() {
		out.PanID = NormalizeHex(fallback.PanID)
	}
	if !out.HasExtPanID() && fallback.HasExtPanID() {
		out.ExtPanID = NormalizeHex(fallback.ExtPanID)
	}
	if !out.HasNetworkKey() && fallback.HasNetworkKey() {
		out.NetworkKey = NormalizeHex(fallback.NetworkKey)
	}
	if out.GatewayName == "" {
		out.GatewayName = fallback.GatewayName
	}
	if out.GatewayVersion == "" {
		out.GatewayVersion = fallback.GatewayVersion
	}
	return out
}

// FormatUint renders v as zero-padded lowercase hex of the given width.
func FormatUint(v uint64, length int) string {
	return fmt.Sprintf("%0*x", length, v)
}

// ParseHexField converts a gateway value to normalized hex of the given
// width. Integers are formatted; strings are accepted with or without 0x and
// left-padded when shorter. It returns "" when the value cannot represent a
// field of that width.
func ParseHexField(raw string, length int) string {
	s := NormalizeHex(raw)
	if s == "" {
		return ""
	}
	if len(s) < length && ValidHex(strings.Repeat("0", length-len(s))+s, length) {
		return strings.Repeat("0", length-len(s)) + s
	}
	if ValidHex(s, length) {
		return s
	}
	return ""
}

// ParseDecimalField converts a decimal integer string to normalized hex of
// the given width.
func ParseDecimalField(raw string, length int) string {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return ""
	}
	s := FormatUint(v, length)
	if len(s) != length {
		return ""
	}
	return s
}
