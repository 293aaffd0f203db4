// Package migrate drives a deCONZ to Zigbee2MQTT migration from connection
// parameters to a written configuration.yaml.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/deconz2z2m/pkg/config"
	"github.com/urmzd/deconz2z2m/pkg/db"
	"github.com/urmzd/deconz2z2m/pkg/device"
	"github.com/urmzd/deconz2z2m/pkg/gateway"
	"github.com/urmzd/deconz2z2m/pkg/mqttcheck"
	"github.com/urmzd/deconz2z2m/pkg/network"
	"github.com/urmzd/deconz2z2m/pkg/serialport"
	"github.com/urmzd/deconz2z2m/pkg/z2m"
)

// Target is where gateway data is read from.
type Target struct {
	Source       string // config.SourceREST or config.SourceDatabase
	Host         string
	Port         int
	DatabasePath string
}

// SourceFactory creates the gateway source for a target.
type SourceFactory func(t Target) gateway.Source

// PairFunc requests a new API key from the gateway at host:port.
type PairFunc func(ctx context.Context, host string, port int) (string, error)

// MQTTProbe checks the broker before the configuration is written.
type MQTTProbe func(ctx context.Context, server, topic string) (mqttcheck.Result, error)

// Workflow is a single migration run. It is not safe for concurrent use.
type Workflow struct {
	settings    config.Settings
	prompter    Prompter
	out         io.Writer
	sources     SourceFactory
	pair        PairFunc
	probeMQTT   MQTTProbe
	probeSerial func(path string) error
	listPorts   func() ([]serialport.Port, error)
	generator   network.Generator
	writer      *z2m.Writer
	store       *db.DB
	lastUsed    bool
	runID       string
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithOutput sets where previews, hints and the summary are printed.
func WithOutput(out io.Writer) Option { return func(w *Workflow) { w.out = out } }

// WithSourceFactory replaces how gateway sources are created.
func WithSourceFactory(f SourceFactory) Option { return func(w *Workflow) { w.sources = f } }

// WithPairFunc replaces the pairing request.
func WithPairFunc(f PairFunc) Option { return func(w *Workflow) { w.pair = f } }

// WithMQTTProbe replaces the broker check.
func WithMQTTProbe(f MQTTProbe) Option { return func(w *Workflow) { w.probeMQTT = f } }

// WithSerialProbe replaces the serial port check.
func WithSerialProbe(f func(string) error) Option { return func(w *Workflow) { w.probeSerial = f } }

// WithPortLister replaces serial port discovery.
func WithPortLister(f func() ([]serialport.Port, error)) Option {
	return func(w *Workflow) { w.listPorts = f }
}

// WithGenerator sets the generator for missing network values.
func WithGenerator(g network.Generator) Option { return func(w *Workflow) { w.generator = g } }

// WithWriter sets the configuration writer.
func WithWriter(wr *z2m.Writer) Option { return func(w *Workflow) { w.writer = wr } }

// WithStore enables persistence of gateways and network parameters.
func WithStore(store *db.DB) Option { return func(w *Workflow) { w.store = store } }

// WithLastUsedDefaults offers the most recently used gateway as the default
// connection target. It has no effect without a store.
func WithLastUsedDefaults() Option { return func(w *Workflow) { w.lastUsed = true } }

// WithRunID tags the run in the state database.
func WithRunID(id string) Option { return func(w *Workflow) { w.runID = id } }

// New creates a workflow asking prompter for every value, with settings as
// the defaults.
func New(settings config.Settings, prompter Prompter, opts ...Option) *Workflow {
	w := &Workflow{
		settings:    settings,
		prompter:    prompter,
		out:         io.Discard,
		probeSerial: serialport.Probe,
		listPorts:   serialport.List,
		generator:   network.NewInsecureGenerator(),
	}
	w.sources = DefaultSourceFactory(settings)
	w.pair = DefaultPairFunc(settings)
	w.probeMQTT = DefaultMQTTProbe(settings)
	for _, opt := range opts {
		opt(w)
	}
	if w.writer == nil {
		w.writer = z2m.NewWriter(nil)
	}
	if w.runID == "" {
		w.runID = uuid.NewString()
	}
	return w
}

// DefaultSourceFactory creates REST or database sources using the
// timeouts in settings.
func DefaultSourceFactory(settings config.Settings) SourceFactory {
	return func(t Target) gateway.Source {
		if t.Source == config.SourceDatabase {
			return gateway.NewDatabaseSource(t.DatabasePath)
		}
		return gateway.NewRESTSource(t.Host, t.Port,
			gateway.WithTimeouts(settings.ProbeTimeout, settings.RequestTimeout))
	}
}

// DefaultPairFunc pairs with the retry policy in settings.
func DefaultPairFunc(settings config.Settings) PairFunc {
	return func(ctx context.Context, host string, port int) (string, error) {
		policy := gateway.RetryPolicy{MaxAttempts: settings.PairAttempts, Delay: settings.PairDelay}
		return gateway.Pair(ctx, host, port, settings.ClientID, policy,
			gateway.WithTimeouts(settings.ProbeTimeout, settings.RequestTimeout))
	}
}

// DefaultMQTTProbe checks the broker with the credentials in settings.
func DefaultMQTTProbe(settings config.Settings) MQTTProbe {
	return func(ctx context.Context, server, topic string) (mqttcheck.Result, error) {
		return mqttcheck.Probe(ctx, server, topic, mqttcheck.Options{
			Username: settings.MQTTUser,
			Password: settings.MQTTPassword,
			Timeout:  settings.ProbeTimeout,
		})
	}
}

// Run executes the migration. Cancellation is reported as StateCancelled
// with a nil error; any other failure as StateFailed with the error.
func (w *Workflow) Run(ctx context.Context) (Result, error) {
	r := &run{Workflow: w, result: Result{State: StateAwaitingConnectionParams}}
	log.Debug().Str("run_id", w.runID).Msg("Migration started")

	err := r.execute(ctx)
	switch {
	case err == nil:
		return r.result, nil
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		log.Warn().Str("state", string(r.result.State)).Msg("Migration cancelled")
		r.result.State = StateCancelled
		return r.result, nil
	default:
		log.Error().Err(err).Str("state", string(r.result.State)).Msg("Migration failed")
		r.result.State = StateFailed
		return r.result, err
	}
}

// run carries the state of one Run call.
type run struct {
	*Workflow
	result Result
	target Target
	reused storedFlags
}

type storedFlags struct {
	extPanID, extPanIDGenerated     bool
	networkKey, networkKeyGenerated bool
}

func (r *run) to(s State) {
	log.Debug().Str("from", string(r.result.State)).Str("to", string(s)).Msg("State changed")
	r.result.State = s
}

func (r *run) execute(ctx context.Context) error {
	src, err := r.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close gateway source")
		}
	}()
	r.to(StateConnected)

	remembered := r.remembered(ctx, src.Key())

	apiKey, err := r.authenticate(ctx, src, remembered)
	if err != nil {
		return err
	}
	r.to(StateAuthenticated)

	params, err := src.FetchNetworkParams(ctx)
	if err != nil {
		return err
	}
	params = r.mergeRemembered(params, remembered)
	r.to(StateNetworkParamsFetched)

	devices, err := src.FetchDevices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		log.Warn().Msg("No devices found; the configuration will have an empty device list")
	}
	r.result.Devices = devices
	r.to(StateDevicesFetched)

	params, err = r.askNetworkParams(ctx, params)
	if err != nil {
		return err
	}
	r.to(StateAwaitingMQTTParams)

	mqtt, err := r.askMQTTParams(ctx)
	if err != nil {
		return err
	}

	built := z2m.NewBuilder(r.generator, mqtt.serialPort).Build(devices, params, mqtt.server, mqtt.topic)
	r.result.Config = built.Config
	r.result.Params = built.Params
	r.result.Generated = built.Generated()
	r.to(StateConfigBuilt)

	dryRun, err := r.askDryRun(ctx)
	if err != nil {
		return err
	}
	if err := r.emit(dryRun); err != nil {
		return err
	}

	r.remember(ctx, src.Key(), apiKey, built)
	r.summarize()
	r.to(StateDone)
	return nil
}

// connect asks for connection parameters until a source connects. A
// non-interactive prompter gets a single attempt.
func (r *run) connect(ctx context.Context) (gateway.Source, error) {
	for {
		target, err := r.askTarget(ctx)
		if err != nil {
			return nil, err
		}
		r.target = target

		src := r.sources(target)
		err = src.Connect(ctx)
		if err == nil {
			return src, nil
		}
		_ = src.Close()

		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		log.Error().Err(err).Msg("Connection failed")
		if !r.prompter.Interactive() {
			return nil, err
		}
		fmt.Fprintln(r.out, Hint(err))
	}
}

func (r *run) remembered(ctx context.Context, key string) *db.GatewayState {
	if r.store == nil {
		return nil
	}
	st, err := r.store.State(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrGatewayNotFound) {
			log.Warn().Err(err).Msg("Failed to load saved gateway state")
		}
		return nil
	}
	return st
}

func (r *run) authenticate(ctx context.Context, src gateway.Source, remembered *db.GatewayState) (string, error) {
	if r.target.Source == config.SourceDatabase {
		return "", src.Authenticate(ctx, "")
	}

	def := r.settings.APIKey
	if k := remembered.APIKey(); k != "" {
		def = k
	}
	label := `API key ("pair" requests a new one)`
	if def == "" {
		label = "API key (empty requests a new one)"
	}

	key, err := r.prompter.Ask(ctx, Question{Key: KeyAPIKey, Label: label, Default: def})
	if err != nil {
		return "", err
	}
	if key == "" || key == "pair" {
		fmt.Fprintln(r.out, "Unlock the gateway in Phoscon (Gateway > Advanced > Authenticate app) or press its link button.")
		if key, err = r.pair(ctx, r.target.Host, r.target.Port); err != nil {
			return "", err
		}
		fmt.Fprintf(r.out, "New API key: %s\n", key)
	}

	if err := src.Authenticate(ctx, key); err != nil {
		return "", err
	}
	return key, nil
}

// mergeRemembered fills values the gateway did not report from a previous
// run, so generated keys stay stable across re-runs.
func (r *run) mergeRemembered(params network.Params, remembered *db.GatewayState) network.Params {
	if remembered == nil || remembered.Params == nil {
		return params
	}
	p := remembered.Params
	stored := network.Params{
		Channel:    p.Channel,
		PanID:      p.PanID,
		ExtPanID:   p.ExtPanID,
		NetworkKey: p.NetworkKey,
	}

	r.reused = storedFlags{
		extPanID:            !params.HasExtPanID() && stored.HasExtPanID(),
		extPanIDGenerated:   p.ExtPanIDGenerated,
		networkKey:          !params.HasNetworkKey() && stored.HasNetworkKey(),
		networkKeyGenerated: p.NetworkKeyGenerated,
	}
	if r.reused.extPanID || r.reused.networkKey {
		log.Info().
			Bool("ext_pan_id", r.reused.extPanID).
			Bool("network_key", r.reused.networkKey).
			Msg("Reusing network parameters from a previous run")
	}
	return params.Merge(stored)
}

func (r *run) emit(dryRun bool) error {
	out, err := r.writer.Preview(r.result.Config)
	if err != nil {
		return err
	}
	r.result.Output = out
	r.result.DryRun = dryRun

	if dryRun {
		fmt.Fprintf(r.out, "\n--- %s (preview) ---\n%s", filepath.Base(r.settings.OutputPath), out)
		return nil
	}

	path := r.settings.OutputPath
	if path == "" {
		path = z2m.DefaultOutputPath
	}
	if err := r.writer.Write(r.result.Config, path); err != nil {
		return err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	r.result.Path = path
	fmt.Fprintf(r.out, "Configuration written to %s\n", path)
	return nil
}

func (r *run) remember(ctx context.Context, key, apiKey string, built z2m.Result) {
	if r.store == nil {
		return
	}

	g := &db.Gateway{
		Key:     key,
		Source:  r.target.Source,
		Host:    r.target.Host,
		Port:    r.target.Port,
		DBPath:  r.target.DatabasePath,
		APIKey:  apiKey,
		Name:    built.Params.GatewayName,
		Version: built.Params.GatewayVersion,
	}
	p := &db.NetworkParams{
		Channel:             built.Params.Channel,
		PanID:               built.Params.PanID,
		ExtPanID:            built.Params.ExtPanID,
		NetworkKey:          built.Params.NetworkKey,
		ExtPanIDGenerated:   built.GeneratedExtPanID || (r.reused.extPanID && r.reused.extPanIDGenerated),
		NetworkKeyGenerated: built.GeneratedNetworkKey || (r.reused.networkKey && r.reused.networkKeyGenerated),
	}
	if err := r.store.Remember(ctx, g, p); err != nil {
		log.Warn().Err(err).Msg("Failed to save gateway state")
		return
	}

	counts := device.Count(r.result.Devices)
	rec := &db.Run{
		RunID:      r.runID,
		GatewayID:  g.ID,
		OutputPath: r.result.Path,
		DryRun:     r.result.DryRun,
		Sensors:    counts[device.KindSensor],
		Lights:     counts[device.KindLight],
	}
	if err := r.store.Runs().Create(ctx, rec); err != nil {
		log.Warn().Err(err).Msg("Failed to record run")
	}
}

func (r *run) summarize() {
	counts := device.Count(r.result.Devices)
	p := r.result.Params

	log.Info().
		Int("sensors", counts[device.KindSensor]).
		Int("lights", counts[device.KindLight]).
		Int("channel", p.Channel).
		Str("pan_id", string(r.result.Config.Advanced.PanID)).
		Str("gateway", p.GatewayName).
		Bool("dry_run", r.result.DryRun).
		Msg("Migration complete")

	fmt.Fprintf(r.out, "Migrated %d devices (%d sensors, %d lights), channel %d, PAN ID %s\n",
		len(r.result.Devices), counts[device.KindSensor], counts[device.KindLight],
		p.Channel, r.result.Config.Advanced.PanID)
	if r.result.Generated {
		fmt.Fprintln(r.out, "Warning: a new extended PAN ID or network key was generated. Devices must be re-paired unless you copy the original values.")
	}
}

// Hint turns a gateway error into a message saying what to check next.
func Hint(err error) string {
	var ce *gateway.ConnectionError
	var nf *gateway.DatabaseNotFoundError
	var ae *gateway.AuthError
	switch {
	case errors.As(err, &ae) && ae.LinkButton:
		return "The gateway is locked. Unlock it in Phoscon (Gateway > Advanced > Authenticate app) and retry."
	case errors.As(err, &ae):
		return "The API key was rejected. Request a new one by pairing."
	case errors.As(err, &nf):
		return fmt.Sprintf("deCONZ database not found at %s. Check the path, or use the REST API instead.", nf.Path)
	case errors.As(err, &ce) && ce.Status != 0:
		return fmt.Sprintf("%s answered HTTP %d. Check that this is the deCONZ REST API port.", ce.Address, ce.Status)
	case errors.As(err, &ce):
		return fmt.Sprintf("Could not reach %s. Check host and port, and that deCONZ is running.", ce.Address)
	}
	return err.Error()
}
