package mqttcheck

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidServer(t *testing.T) {
	tests := []struct {
		server string
		want   bool
	}{
		{"mqtt://localhost", true},
		{"mqtt://192.168.1.10:1883", true},
		{"mqtts://broker.example:8883", true},
		{"ws://broker/mqtt", true},
		{"tcp://localhost:1883", false},
		{"localhost", false},
		{"mqtt://", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidServer(tt.server), tt.server)
	}
}

func TestParseBridgeState(t *testing.T) {
	assert.Equal(t, "online", parseBridgeState([]byte(`{"state":"online"}`)))
	assert.Equal(t, "offline", parseBridgeState([]byte("offline\n")))
}

func TestProbe_InvalidServer(t *testing.T) {
	_, err := Probe(context.Background(), "localhost", "zigbee2mqtt", Options{})
	assert.True(t, errors.Is(err, ErrInvalidServer))
}

func TestProbe_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Probe(context.Background(), "mqtt://"+addr, "zigbee2mqtt", Options{Timeout: 2 * time.Second})
	assert.Error(t, err)
}
