package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/urmzd/deconz2z2m/pkg/device"
	"github.com/urmzd/deconz2z2m/pkg/network"
)

const (
	// DefaultProbeTimeout bounds the reachability probe.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultRequestTimeout bounds every other gateway request.
	DefaultRequestTimeout = 10 * time.Second

	maxResponseBytes = 16 << 20
)

// RESTSource talks to the deCONZ REST API.
type RESTSource struct {
	host           string
	port           int
	base           string
	apiKey         string
	client         *http.Client
	probeTimeout   time.Duration
	requestTimeout time.Duration
}

// RESTOption configures a RESTSource.
type RESTOption func(*RESTSource)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) RESTOption {
	return func(s *RESTSource) { s.client = c }
}

// WithTimeouts overrides the probe and request timeouts.
func WithTimeouts(probe, request time.Duration) RESTOption {
	return func(s *RESTSource) {
		if probe > 0 {
			s.probeTimeout = probe
		}
		if request > 0 {
			s.requestTimeout = request
		}
	}
}

// WithBaseURL points the source at an explicit base URL. Tests use it to
// target an httptest server.
func WithBaseURL(base string) RESTOption {
	return func(s *RESTSource) { s.base = base }
}

// NewRESTSource creates a REST source for the gateway at host:port.
func NewRESTSource(host string, port int, opts ...RESTOption) *RESTSource {
	s := &RESTSource{
		host:           host,
		port:           port,
		base:           "http://" + net.JoinHostPort(host, strconv.Itoa(port)),
		client:         &http.Client{},
		probeTimeout:   DefaultProbeTimeout,
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the gateway address.
func (s *RESTSource) Key() string { return s.base }

// Close is a no-op; idle connections are left to the client.
func (s *RESTSource) Close() error { return nil }

// Connect probes GET /api. Both 200 and 403 mean a deCONZ gateway is listening.
func (s *RESTSource) Connect(ctx context.Context) error {
	status, _, err := s.do(ctx, http.MethodGet, "/api", nil, s.probeTimeout)
	if err != nil {
		return &ConnectionError{Address: s.base, Err: err}
	}
	if status != http.StatusOK && status != http.StatusForbidden {
		return &ConnectionError{Address: s.base, Status: status}
	}
	log.Info().Str("gateway", s.base).Msg("Gateway reachable")
	return nil
}

// Authenticate checks the API key against GET /api/{key}/config and keeps it
// for subsequent fetches.
func (s *RESTSource) Authenticate(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return &AuthError{Description: "API key is empty"}
	}

	status, body, err := s.do(ctx, http.MethodGet, "/api/"+url.PathEscape(apiKey)+"/config", nil, s.requestTimeout)
	if err != nil {
		return &AuthError{Err: err}
	}
	if status != http.StatusOK {
		return &AuthError{Status: status, Description: errorDescription(body)}
	}
	// deCONZ may answer 200 with an error list for unknown keys.
	if desc := errorDescription(body); desc != "" {
		return &AuthError{Status: status, Description: desc}
	}

	s.apiKey = apiKey
	log.Info().Str("gateway", s.base).Msg("API key accepted")
	return nil
}

// FetchNetworkParams reads the radio parameters from the gateway config.
func (s *RESTSource) FetchNetworkParams(ctx context.Context) (network.Params, error) {
	body, err := s.fetch(ctx, "config")
	if err != nil {
		return network.Params{}, err
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return network.Params{}, &FetchError{Resource: "config", Err: errors.New("response is not a JSON object")}
	}
	return parseNetworkParams(gjson.ParseBytes(body)), nil
}

// FetchDevices reads sensors then lights. A collection that cannot be read
// is logged and skipped; the other collection is still returned.
func (s *RESTSource) FetchDevices(ctx context.Context) ([]device.Record, error) {
	collections := []struct {
		kind     device.Kind
		resource string
	}{
		{device.KindSensor, "sensors"},
		{device.KindLight, "lights"},
	}

	records := make([]device.Record, 0)
	for _, c := range collections {
		body, err := s.fetch(ctx, c.resource)
		if err == nil && !gjson.ValidBytes(body) {
			err = &FetchError{Resource: c.resource, Err: errors.New("malformed JSON")}
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &FetchError{Resource: c.resource, Err: ctxErr}
			}
			log.Warn().Err(err).Str("collection", c.resource).Msg("Skipping device collection")
			continue
		}
		records = append(records, parseCollection(c.kind, gjson.ParseBytes(body))...)
	}

	log.Info().Int("devices", len(records)).Msg("Devices fetched")
	return records, nil
}

func (s *RESTSource) fetch(ctx context.Context, resource string) ([]byte, error) {
	if s.apiKey == "" {
		return nil, &FetchError{Resource: resource, Err: errors.New("not authenticated")}
	}
	status, body, err := s.do(ctx, http.MethodGet, "/api/"+url.PathEscape(s.apiKey)+"/"+resource, nil, s.requestTimeout)
	if err != nil {
		return nil, &FetchError{Resource: resource, Err: err}
	}
	if status != http.StatusOK {
		return nil, &FetchError{Resource: resource, Status: status}
	}
	return body, nil
}

func (s *RESTSource) do(ctx context.Context, method, path string, body io.Reader, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, fmt.Errorf("%w after %s: %v", device.ErrTimeout, timeout, err)
		}
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// errorDescription extracts the first error description from a deCONZ
// error list such as [{"error":{"type":1,"description":"unauthorized user"}}].
func errorDescription(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	return gjson.GetBytes(body, "0.error.description").String()
}
