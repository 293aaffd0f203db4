package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/deconz2z2m/pkg/config"
	"github.com/urmzd/deconz2z2m/pkg/db"
	"github.com/urmzd/deconz2z2m/pkg/gateway"
	"github.com/urmzd/deconz2z2m/pkg/migrate"
	"github.com/urmzd/deconz2z2m/pkg/network"
	"github.com/urmzd/deconz2z2m/pkg/serialport"
)

const testKey = "99D54B94DA"

func fakeGateway(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/" + testKey + "/config":
			_, _ = w.Write([]byte(`{"name":"Phoscon-GW","swversion":"2.26.3","zigbeechannel":20,"panid":6755}`))
		case "/api/" + testKey + "/sensors":
			_, _ = w.Write([]byte(`{"1":{"name":"Flur Bewegung"},"2":{"name":"Bad Fenster"}}`))
		case "/api/" + testKey + "/lights":
			_, _ = w.Write([]byte(`{"1":{"name":"Stehlampe"}}`))
		default:
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`[{"error":{"type":1,"address":"/","description":"unauthorized user"}}]`))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, srv *httptest.Server) *Server {
	t.Helper()
	settings := config.Defaults()
	settings.APIKey = testKey
	settings.OutputPath = filepath.Join(t.TempDir(), "configuration.yaml")
	settings.CheckMQTT = false
	settings.CheckSerialPort = false

	return NewServer(Deps{
		Settings: settings,
		Sources: func(target migrate.Target) gateway.Source {
			return gateway.NewRESTSource(target.Host, target.Port,
				gateway.WithBaseURL(srv.URL), gateway.WithTimeouts(time.Second, time.Second))
		},
		ListPorts: func() ([]serialport.Port, error) {
			return []serialport.Port{{Name: "/dev/ttyUSB0", USB: true, Adapter: "Sonoff ZBDongle-P"}}, nil
		},
		Generator: network.NewFixedGenerator("00212effff05a1b2", "01030507090b0d0f00020406080a0c0d"),
	})
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	var v T
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &v))
	return v
}

func TestGetHealth(t *testing.T) {
	s := newTestServer(t, fakeGateway(t))
	res, err := s.handleGetHealth(context.Background(), call(nil))
	require.NoError(t, err)

	out := decode[GetHealthOutput](t, res)
	assert.Equal(t, "healthy", out.Status)
	assert.Equal(t, "disabled", out.StateDB)
}

func TestProbeGateway(t *testing.T) {
	srv := fakeGateway(t)
	s := newTestServer(t, srv)

	res, err := s.handleProbeGateway(context.Background(), call(map[string]any{"api_key": testKey}))
	require.NoError(t, err)

	out := decode[ProbeGatewayOutput](t, res)
	assert.Equal(t, srv.URL, out.Gateway)
	assert.True(t, out.Reachable)
	assert.True(t, out.Authenticated)
	assert.Equal(t, "Phoscon-GW", out.Name)
	assert.Equal(t, "2.26.3", out.Version)
	assert.Equal(t, 20, out.Channel)
	assert.Equal(t, "1a63", out.PanID)
}

func TestProbeGateway_RejectedKey(t *testing.T) {
	s := newTestServer(t, fakeGateway(t))

	res, err := s.handleProbeGateway(context.Background(), call(map[string]any{"api_key": "WRONGKEY00"}))
	require.NoError(t, err)

	out := decode[ProbeGatewayOutput](t, res)
	assert.True(t, out.Reachable)
	assert.False(t, out.Authenticated)
	assert.Contains(t, out.Hint, "rejected")
}

func TestProbeGateway_Unreachable(t *testing.T) {
	srv := fakeGateway(t)
	s := newTestServer(t, srv)
	srv.Close()

	res, err := s.handleProbeGateway(context.Background(), call(nil))
	require.NoError(t, err)

	out := decode[ProbeGatewayOutput](t, res)
	assert.False(t, out.Reachable)
	assert.Contains(t, out.Hint, "Could not reach")
}

func TestProbeGateway_InvalidArguments(t *testing.T) {
	s := newTestServer(t, fakeGateway(t))

	for name, args := range map[string]map[string]any{
		"bad host":    {"host": "999.0.0.1"},
		"bad port":    {"port": float64(70000)},
		"bad source":  {"source": "zigate"},
		"port string": {"port": "80"},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := s.handleProbeGateway(context.Background(), call(args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestListDevices(t *testing.T) {
	s := newTestServer(t, fakeGateway(t))

	res, err := s.handleListDevices(context.Background(), call(nil))
	require.NoError(t, err)

	out := decode[ListDevicesOutput](t, res)
	assert.Equal(t, 3, out.Count)
	assert.Equal(t, 2, out.Sensors)
	assert.Equal(t, 1, out.Lights)
	assert.Equal(t, "Flur Bewegung", out.Devices[0].Name)
}

func TestPreviewConfiguration(t *testing.T) {
	s := newTestServer(t, fakeGateway(t))

	res, err := s.handlePreviewConfiguration(context.Background(), call(map[string]any{
		"mqtt_topic":  "haus",
		"serial_port": "/dev/ttyUSB0",
	}))
	require.NoError(t, err)

	out := decode[PreviewConfigurationOutput](t, res)
	assert.True(t, out.Generated)
	assert.Equal(t, 3, out.Devices)
	assert.Contains(t, out.YAML, "base_topic: haus")
	assert.Contains(t, out.YAML, "channel: 20")
	assert.Contains(t, out.YAML, "pan_id: 0x1A63")
	assert.NoFileExists(t, s.deps.Settings.OutputPath)
}

func TestPreviewConfiguration_InvalidValue(t *testing.T) {
	s := newTestServer(t, fakeGateway(t))

	res, err := s.handlePreviewConfiguration(context.Background(), call(map[string]any{"pan_id": "xyz"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "PAN ID")
}

func TestPreviewConfiguration_RemembersGateway(t *testing.T) {
	store, err := db.OpenAndMigrate(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv := fakeGateway(t)
	s := newTestServer(t, srv)
	s.deps.Store = store

	res, err := s.handlePreviewConfiguration(context.Background(), call(nil))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	res, err = s.handleListGateways(context.Background(), call(nil))
	require.NoError(t, err)
	out := decode[ListGatewaysOutput](t, res)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, srv.URL, out.Gateways[0].Key)
	assert.Equal(t, "Phoscon-GW", out.Gateways[0].Name)
	assert.True(t, out.Gateways[0].HasAPIKey)
}

func TestValidateHex(t *testing.T) {
	s := newTestServer(t, fakeGateway(t))

	tests := []struct {
		value, kind string
		valid       bool
		normalized  string
	}{
		{"0x1A63", "pan_id", true, "1a63"},
		{"1a6", "pan_id", false, ""},
		{"00212EFFFF05A1B2", "ext_pan_id", true, "00212effff05a1b2"},
		{"01030507090b0d0f00020406080a0c0d", "network_key", true, "01030507090b0d0f00020406080a0c0d"},
		{"01030507090b0d0f00020406080a0c0g", "network_key", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.value, func(t *testing.T) {
			res, err := s.handleValidateHex(context.Background(), call(map[string]any{"value": tt.value, "kind": tt.kind}))
			require.NoError(t, err)
			out := decode[ValidateHexOutput](t, res)
			assert.Equal(t, tt.valid, out.Valid)
			assert.Equal(t, tt.normalized, out.Normalized)
		})
	}

	res, err := s.handleValidateHex(context.Background(), call(map[string]any{"value": "1a63", "kind": "channel"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleValidateHex(context.Background(), call(map[string]any{"kind": "pan_id"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListSerialPorts(t *testing.T) {
	s := newTestServer(t, fakeGateway(t))

	res, err := s.handleListSerialPorts(context.Background(), call(nil))
	require.NoError(t, err)

	out := decode[ListSerialPortsOutput](t, res)
	require.Len(t, out.Ports, 1)
	assert.Equal(t, "/dev/ttyUSB0", out.Suggested)
}
