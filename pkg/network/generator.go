package network

import (
	"math/rand/v2"
	"sync"
)

const hexDigits = "0123456789abcdef"

// Generator produces placeholder hex values for missing network parameters.
type Generator interface {
	// Hex returns byteCount*2 lowercase hex characters.
	Hex(byteCount int) string
}

// InsecureGenerator draws hex digits uniformly from math/rand.
//
// It is an insecure fallback: the values only make the generated
// configuration usable and must never stand in for key material issued by
// the gateway.
type InsecureGenerator struct{}

// NewInsecureGenerator creates a new InsecureGenerator.
func NewInsecureGenerator() *InsecureGenerator {
	return &InsecureGenerator{}
}

func (g *InsecureGenerator) Hex(byteCount int) string {
	if byteCount <= 0 {
		return ""
	}
	buf := make([]byte, byteCount*2)
	for i := range buf {
		buf[i] = hexDigits[rand.IntN(len(hexDigits))]
	}
	return string(buf)
}

// FixedGenerator returns queued values in order, falling back to a repeated
// digit once the queue is drained. Builds using it are deterministic.
type FixedGenerator struct {
	mu     sync.Mutex
	values []string
	calls  int
}

// NewFixedGenerator creates a FixedGenerator that yields values in order.
func NewFixedGenerator(values ...string) *FixedGenerator {
	return &FixedGenerator{values: values}
}

func (g *FixedGenerator) Hex(byteCount int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	if len(g.values) > 0 {
		v := g.values[0]
		g.values = g.values[1:]
		return v
	}
	if byteCount <= 0 {
		return ""
	}
	buf := make([]byte, byteCount*2)
	for i := range buf {
		buf[i] = '0'
	}
	return string(buf)
}

// Calls returns how many values were requested.
func (g *FixedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
