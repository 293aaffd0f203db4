package device

import (
	"fmt"
	"maps"
	"strings"
)

// Kind tags the gateway collection a device came from.
type Kind string

// Device kinds
const (
	KindSensor Kind = "sensor"
	KindLight  Kind = "light"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSensor, KindLight:
		return true
	}
	return false
}

// Record is one paired device, normalized from whatever shape the gateway
// returned. Records are built once through NewRecord and not modified after.
type Record struct {
	ID           string         `json:"id"`                     // Gateway-assigned id, unique within its Kind
	Name         string         `json:"name"`                   // Display name
	Kind         Kind           `json:"type"`                   // sensor or light
	Model        string         `json:"model,omitempty"`        // deCONZ modelid
	Manufacturer string         `json:"manufacturer,omitempty"` // deCONZ manufacturername
	UniqueID     string         `json:"unique_id,omitempty"`    // deCONZ uniqueid (IEEE address + endpoint)
	State        map[string]any `json:"state,omitempty"`        // Last known runtime state, not interpreted
}

// Fields are the optional raw values a normalizer extracted for a record.
type Fields struct {
	Name         string
	Model        string
	Manufacturer string
	UniqueID     string
	State        map[string]any
}

// NewRecord builds a Record. An empty id is rejected; an empty name becomes
// "{kind}_{id}". Invalid UTF-8 in any string field is replaced with U+FFFD.
func NewRecord(kind Kind, id string, f Fields) (Record, error) {
	if !kind.Valid() {
		return Record{}, fmt.Errorf("unknown device kind %q", kind)
	}
	id = validUTF8(id)
	if id == "" {
		return Record{}, fmt.Errorf("%s without identifier", kind)
	}

	name := validUTF8(f.Name)
	if name == "" {
		name = DefaultName(kind, id)
	}

	return Record{
		ID:           id,
		Name:         name,
		Kind:         kind,
		Model:        validUTF8(f.Model),
		Manufacturer: validUTF8(f.Manufacturer),
		UniqueID:     validUTF8(f.UniqueID),
		State:        maps.Clone(f.State),
	}, nil
}

// validUTF8 keeps gateway strings emittable as plain YAML scalars.
func validUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// DefaultName is the synthesized name for a device without one.
func DefaultName(kind Kind, id string) string {
	return fmt.Sprintf("%s_%s", kind, id)
}

// Count returns how many records of each kind are present.
func Count(records []Record) map[Kind]int {
	counts := map[Kind]int{KindSensor: 0, KindLight: 0}
	for _, r := range records {
		counts[r.Kind]++
	}
	return counts
}
