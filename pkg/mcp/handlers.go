package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/deconz2z2m/pkg/config"
	"github.com/urmzd/deconz2z2m/pkg/device"
	"github.com/urmzd/deconz2z2m/pkg/gateway"
	"github.com/urmzd/deconz2z2m/pkg/migrate"
	"github.com/urmzd/deconz2z2m/pkg/network"
	"github.com/urmzd/deconz2z2m/pkg/serialport"
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stateDB := "disabled"
	if s.deps.Store != nil {
		stateDB = "ok"
		if err := s.deps.Store.PingContext(ctx); err != nil {
			stateDB = "unavailable"
		}
	}

	status := "healthy"
	if stateDB == "unavailable" {
		status = "degraded"
	}

	out := GetHealthOutput{
		Status:    status,
		StateDB:   stateDB,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleProbeGateway(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, apiKey, err := s.target(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	src := s.deps.Sources(target)
	defer closeSource(src)

	out := ProbeGatewayOutput{Gateway: src.Key()}
	if err := src.Connect(ctx); err != nil {
		out.Hint = migrate.Hint(err)
		return mcp.NewToolResultText(formatJSON(out)), nil
	}
	out.Reachable = true

	if target.Source == config.SourceREST && apiKey == "" {
		out.Hint = "Gateway is reachable. Pass api_key to read its network parameters."
		return mcp.NewToolResultText(formatJSON(out)), nil
	}
	if err := src.Authenticate(ctx, apiKey); err != nil {
		out.Hint = migrate.Hint(err)
		return mcp.NewToolResultText(formatJSON(out)), nil
	}
	out.Authenticated = true

	params, err := src.FetchNetworkParams(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read network parameters: %s", err)), nil
	}
	out.Name = params.GatewayName
	out.Version = params.GatewayVersion
	out.Channel = params.Channel
	out.PanID = params.PanID

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, apiKey, err := s.target(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	src := s.deps.Sources(target)
	defer closeSource(src)

	if err := src.Connect(ctx); err != nil {
		return mcp.NewToolResultError(migrate.Hint(err)), nil
	}
	if err := src.Authenticate(ctx, apiKey); err != nil {
		return mcp.NewToolResultError(migrate.Hint(err)), nil
	}
	devices, err := src.FetchDevices(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list devices: %s", err)), nil
	}
	if devices == nil {
		devices = []device.Record{}
	}

	counts := device.Count(devices)
	out := ListDevicesOutput{
		Gateway: src.Key(),
		Devices: devices,
		Sensors: counts[device.KindSensor],
		Lights:  counts[device.KindLight],
		Count:   len(devices),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handlePreviewConfiguration(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := answers(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a[migrate.KeyDryRun] = "y"

	opts := []migrate.Option{
		migrate.WithSourceFactory(s.deps.Sources),
		migrate.WithPortLister(s.deps.ListPorts),
		migrate.WithGenerator(s.deps.Generator),
	}
	if s.deps.Store != nil {
		opts = append(opts, migrate.WithStore(s.deps.Store))
	}

	res, err := migrate.New(s.deps.Settings, migrate.StaticPrompter{Answers: a}, opts...).Run(ctx)
	if err != nil {
		var ve *migrate.ValidationError
		if errors.As(err, &ve) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(migrate.Hint(err)), nil
	}
	if res.State != migrate.StateDone {
		return mcp.NewToolResultError("preview was cancelled"), nil
	}

	out := PreviewConfigurationOutput{
		YAML:      res.Output,
		Generated: res.Generated,
		Devices:   len(res.Devices),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

var hexLengths = map[string]int{
	"pan_id":      network.PanIDLength,
	"ext_pan_id":  network.ExtPanIDLength,
	"network_key": network.NetworkKeyLength,
}

func (s *Server) handleValidateHex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, err := requiredString(request, "value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := requiredString(request, "kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	length, ok := hexLengths[kind]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q", kind)), nil
	}

	out := ValidateHexOutput{Expected: length}
	if network.ValidHex(value, length) {
		out.Valid = true
		out.Normalized = network.NormalizeHex(value)
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListSerialPorts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ports, err := s.deps.ListPorts()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list serial ports: %s", err)), nil
	}
	if ports == nil {
		ports = []serialport.Port{}
	}

	out := ListSerialPortsOutput{
		Ports:     ports,
		Suggested: serialport.Suggest(ports, s.deps.Settings.SerialPort),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListGateways(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := ListGatewaysOutput{Gateways: []GatewayInfo{}}
	if s.deps.Store == nil {
		return mcp.NewToolResultText(formatJSON(out)), nil
	}

	gateways, err := s.deps.Store.Gateways().List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list gateways: %s", err)), nil
	}
	for _, g := range gateways {
		out.Gateways = append(out.Gateways, GatewayInfo{
			Key:        g.Key,
			Source:     g.Source,
			Name:       g.Name,
			HasAPIKey:  g.APIKey != "",
			LastUsedAt: g.LastUsedAt.UTC().Format(time.RFC3339),
		})
	}
	out.Count = len(out.Gateways)
	return mcp.NewToolResultText(formatJSON(out)), nil
}

// --- helpers ---

// target resolves the gateway arguments against the configured defaults.
func (s *Server) target(request mcp.CallToolRequest) (migrate.Target, string, error) {
	st := s.deps.Settings
	t := migrate.Target{
		Source:       st.Source,
		Host:         st.Host,
		Port:         st.Port,
		DatabasePath: st.DatabasePath,
	}
	apiKey := st.APIKey

	a, err := answers(request)
	if err != nil {
		return t, "", err
	}
	if v := a[migrate.KeySource]; v != "" {
		t.Source = v
	}
	if v := a[migrate.KeyHost]; v != "" {
		t.Host = v
	}
	if v := a[migrate.KeyPort]; v != "" {
		t.Port, _ = strconv.Atoi(v)
	}
	if v := a[migrate.KeyDatabasePath]; v != "" {
		t.DatabasePath = v
	}
	if v := a[migrate.KeyAPIKey]; v != "" {
		apiKey = v
	}

	if t.Source != config.SourceREST && t.Source != config.SourceDatabase {
		return t, "", fmt.Errorf("source must be %q or %q", config.SourceREST, config.SourceDatabase)
	}
	if t.Source == config.SourceREST && (!config.ValidHost(t.Host) || !config.ValidPort(t.Port)) {
		return t, "", fmt.Errorf("invalid gateway address %s:%d", t.Host, t.Port)
	}
	return t, apiKey, nil
}

var stringArgs = []string{
	migrate.KeySource,
	migrate.KeyHost,
	migrate.KeyAPIKey,
	migrate.KeyDatabasePath,
	migrate.KeyPanID,
	migrate.KeyExtPanID,
	migrate.KeyNetworkKey,
	migrate.KeyMQTTServer,
	migrate.KeyMQTTTopic,
	migrate.KeySerialPort,
}

var numberArgs = []string{
	migrate.KeyPort,
	migrate.KeyChannel,
}

// answers maps tool arguments onto workflow answers. Argument names match
// the workflow question keys.
func answers(request mcp.CallToolRequest) (map[string]string, error) {
	args := request.GetArguments()
	a := make(map[string]string)

	for _, key := range stringArgs {
		v, ok := args[key]
		if !ok || v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %q must be a string", key)
		}
		a[key] = str
	}
	for _, key := range numberArgs {
		v, ok := args[key]
		if !ok || v == nil {
			continue
		}
		f, ok := v.(float64)
		if !ok || f != float64(int(f)) {
			return nil, fmt.Errorf("parameter %q must be an integer", key)
		}
		a[key] = strconv.Itoa(int(f))
	}

	if a[migrate.KeySource] == "" && a[migrate.KeyDatabasePath] != "" {
		a[migrate.KeySource] = config.SourceDatabase
	}
	return a, nil
}

func closeSource(src gateway.Source) {
	if err := src.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close gateway source")
	}
}

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
