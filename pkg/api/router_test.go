package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/deconz2z2m/pkg/api/handlers"
	"github.com/urmzd/deconz2z2m/pkg/api/types"
	"github.com/urmzd/deconz2z2m/pkg/config"
	"github.com/urmzd/deconz2z2m/pkg/db"
	"github.com/urmzd/deconz2z2m/pkg/gateway"
	"github.com/urmzd/deconz2z2m/pkg/migrate"
	"github.com/urmzd/deconz2z2m/pkg/network"
	"github.com/urmzd/deconz2z2m/pkg/serialport"
	"github.com/urmzd/deconz2z2m/pkg/z2m"
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
			_, _ = w.Write([]byte(`{"name":"Phoscon-GW","zigbeechannel":15,"panid":6755}`))
		case "/api/" + testKey + "/sensors":
			_, _ = w.Write([]byte(`{"3":{"name":"Bad Fenster"},"1":{"name":"Flur Bewegung","modelid":"SML001"}}`))
		case "/api/" + testKey + "/lights":
			_, _ = w.Write([]byte(`{"2":{"name":"Stehlampe"}}`))
		default:
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`[{"error":{"type":1,"address":"/","description":"unauthorized user"}}]`))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testDeps(t *testing.T, srv *httptest.Server) handlers.Deps {
	t.Helper()
	settings := config.Defaults()
	settings.APIKey = testKey
	settings.OutputPath = filepath.Join(t.TempDir(), "configuration.yaml")
	settings.CheckMQTT = false
	settings.CheckSerialPort = false

	return handlers.Deps{
		Settings: settings,
		Sources: func(target migrate.Target) gateway.Source {
			return gateway.NewRESTSource(target.Host, target.Port,
				gateway.WithBaseURL(srv.URL), gateway.WithTimeouts(time.Second, time.Second))
		},
		Pair: func(ctx context.Context, host string, port int) (string, error) {
			return "NEWKEY1234", nil
		},
		ListPorts: func() ([]serialport.Port, error) {
			return []serialport.Port{
				{Name: "/dev/ttyS0"},
				{Name: "/dev/ttyACM1", USB: true, VID: "1cf1", PID: "0030", Adapter: "ConBee II"},
			}, nil
		},
		Generator: network.NewFixedGenerator("00212effff05a1b2", "01030507090b0d0f00020406080a0c0d"),
	}
}

func do(t *testing.T, r *Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	r := NewRouter(testDeps(t, fakeGateway(t)))

	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := do(t, r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decode[types.HealthResponse](t, rec)
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "disabled", resp.StateDB)
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	}
}

func TestHealth_StateDB(t *testing.T) {
	store, err := db.OpenAndMigrate(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	deps := testDeps(t, fakeGateway(t))
	deps.Store = store
	rec := do(t, NewRouter(deps), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[types.HealthResponse](t, rec).StateDB)
}

func TestRequestID_Propagated(t *testing.T) {
	r := NewRouter(testDeps(t, fakeGateway(t)))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func crossOrigin(t *testing.T, r *Router, origin string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/migrations/preview", nil)
	req.Header.Set("Origin", origin)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	return rec
}

func TestCrossOrigin_RejectedByDefault(t *testing.T) {
	r := NewRouter(testDeps(t, fakeGateway(t)))

	rec := crossOrigin(t, r, "https://evil.example")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotContains(t, rec.Body.String(), "network_key")

	// httptest requests target example.com; the Swagger UI is same-origin.
	rec = crossOrigin(t, r, "http://example.com")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_AllowedOrigins(t *testing.T) {
	deps := testDeps(t, fakeGateway(t))
	deps.Settings.APIAllowedOrigins = "http://localhost:3000"
	r := NewRouter(deps)

	rec := crossOrigin(t, r, "http://localhost:3000")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = crossOrigin(t, r, "https://evil.example")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMigrationPreview(t *testing.T) {
	deps := testDeps(t, fakeGateway(t))
	rec := do(t, NewRouter(deps), http.MethodPost, "/api/v1/migrations/preview", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[types.MigrationResponse](t, rec)
	assert.Equal(t, "done", resp.State)
	assert.True(t, resp.DryRun)
	assert.Empty(t, resp.Path)
	assert.Equal(t, 2, resp.Sensors)
	assert.Equal(t, 1, resp.Lights)
	assert.Equal(t, "0x1A63", string(resp.Configuration.Advanced.PanID))
	assert.Contains(t, resp.YAML, "pan_id: 0x1A63")
	assert.NoFileExists(t, deps.Settings.OutputPath)
}

func TestMigrationCreate(t *testing.T) {
	deps := testDeps(t, fakeGateway(t))
	body := `{"channel":20,"mqtt_server":"mqtt://broker:1883","mqtt_topic":"z2m","serial_port":"/dev/ttyUSB0"}`
	rec := do(t, NewRouter(deps), http.MethodPost, "/api/v1/migrations", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[types.MigrationResponse](t, rec)
	assert.False(t, resp.DryRun)
	assert.True(t, resp.Generated)
	require.NotEmpty(t, resp.Path)

	cfg, err := z2m.Load(resp.Path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Advanced.Channel)
	assert.Equal(t, "mqtt://broker:1883", cfg.MQTT.Server)
	assert.Equal(t, "z2m", cfg.MQTT.BaseTopic)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	require.Len(t, cfg.Devices, 3)
	assert.Equal(t, "3", cfg.Devices[0].ID)
}

func TestMigration_InvalidParameter(t *testing.T) {
	rec := do(t, NewRouter(testDeps(t, fakeGateway(t))), http.MethodPost,
		"/api/v1/migrations/preview", `{"channel":30}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "channel", decode[types.ErrorResponse](t, rec).Field)
}

func TestMigration_MalformedBody(t *testing.T) {
	rec := do(t, NewRouter(testDeps(t, fakeGateway(t))), http.MethodPost,
		"/api/v1/migrations/preview", `{"channel":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode[types.ErrorResponse](t, rec).Error)
}

func TestMigration_Unauthorized(t *testing.T) {
	rec := do(t, NewRouter(testDeps(t, fakeGateway(t))), http.MethodPost,
		"/api/v1/migrations/preview", `{"api_key":"WRONGKEY00"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMigration_GatewayUnreachable(t *testing.T) {
	srv := fakeGateway(t)
	deps := testDeps(t, srv)
	srv.Close()

	rec := do(t, NewRouter(deps), http.MethodPost, "/api/v1/migrations/preview", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMigration_DatabaseNotFound(t *testing.T) {
	deps := testDeps(t, fakeGateway(t))
	deps.Sources = nil
	body := `{"database_path":"` + filepath.Join(t.TempDir(), "missing.db") + `"}`

	rec := do(t, NewRouter(deps), http.MethodPost, "/api/v1/migrations/preview", body)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestGatewayDevices(t *testing.T) {
	srv := fakeGateway(t)
	rec := do(t, NewRouter(testDeps(t, srv)), http.MethodPost, "/api/v1/gateway/devices", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[types.DevicesResponse](t, rec)
	assert.Equal(t, srv.URL, resp.Gateway)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "3", resp.Devices[0].ID)
	assert.Equal(t, "1", resp.Devices[1].ID)
}

func TestGatewayPair(t *testing.T) {
	r := NewRouter(testDeps(t, fakeGateway(t)))

	rec := do(t, r, http.MethodPost, "/api/v1/gateway/pair", `{"host":"192.168.178.76","port":4530}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "NEWKEY1234", decode[types.PairResponse](t, rec).APIKey)

	rec = do(t, r, http.MethodPost, "/api/v1/gateway/pair", `{"host":"999.1.1.1","port":4530}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/v1/gateway/pair", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGatewayPair_Locked(t *testing.T) {
	deps := testDeps(t, fakeGateway(t))
	deps.Pair = func(ctx context.Context, host string, port int) (string, error) {
		return "", &gateway.AuthError{Description: "link button not pressed", LinkButton: true}
	}

	rec := do(t, NewRouter(deps), http.MethodPost, "/api/v1/gateway/pair", `{"host":"gw.local","port":80}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGateways_Remembered(t *testing.T) {
	store, err := db.OpenAndMigrate(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv := fakeGateway(t)
	deps := testDeps(t, srv)
	deps.Store = store
	r := NewRouter(deps)

	rec := do(t, r, http.MethodGet, "/api/v1/gateways", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[types.GatewaysResponse](t, rec).Count)

	rec = do(t, r, http.MethodPost, "/api/v1/migrations/preview", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/api/v1/gateways", "")
	resp := decode[types.GatewaysResponse](t, rec)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, srv.URL, resp.Gateways[0].Key)
	assert.True(t, resp.Gateways[0].HasAPIKey)
}

func TestSerialPorts(t *testing.T) {
	rec := do(t, NewRouter(testDeps(t, fakeGateway(t))), http.MethodGet, "/api/v1/serial-ports", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[types.SerialPortsResponse](t, rec)
	assert.Len(t, resp.Ports, 2)
	assert.Equal(t, "/dev/ttyACM1", resp.Suggested)
}

func TestSerialPorts_Error(t *testing.T) {
	deps := testDeps(t, fakeGateway(t))
	deps.ListPorts = func() ([]serialport.Port, error) { return nil, errors.New("no permission") }

	rec := do(t, NewRouter(deps), http.MethodGet, "/api/v1/serial-ports", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
