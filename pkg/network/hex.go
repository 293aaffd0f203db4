package network

import "strings"

// Zigbee channels usable on 2.4 GHz (IEEE 802.15.4 pages 11-26).
const (
	MinChannel = 11
	MaxChannel = 26
)

// Hex lengths in characters for the network identifiers.
const (
	PanIDLength      = 4
	ExtPanIDLength   = 16
	NetworkKeyLength = 32
)

// StripHexPrefix removes a single leading 0x or 0X.
func StripHexPrefix(value string) string {
	if len(value) >= 2 && value[0] == '0' && (value[1] == 'x' || value[1] == 'X') {
		return value[2:]
	}
	return value
}

// ValidHex reports whether value is exactly length hex digits once an
// optional 0x prefix is removed.
func ValidHex(value string, length int) bool {
	clean := StripHexPrefix(value)
	if len(clean) != length {
		return false
	}
	for i := 0; i < len(clean); i++ {
		if !isHexDigit(clean[i]) {
			return false
		}
	}
	return true
}

// NormalizeHex strips the prefix and lowercases the digits. It does not
// validate; call ValidHex first.
func NormalizeHex(value string) string {
	return strings.ToLower(StripHexPrefix(strings.TrimSpace(value)))
}

// ValidChannel reports whether channel is within 11-26.
func ValidChannel(channel int) bool {
	return channel >= MinChannel && channel <= MaxChannel
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
