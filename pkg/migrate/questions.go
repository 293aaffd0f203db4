package migrate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/deconz2z2m/pkg/config"
	"github.com/urmzd/deconz2z2m/pkg/db"
	"github.com/urmzd/deconz2z2m/pkg/gateway"
	"github.com/urmzd/deconz2z2m/pkg/mqttcheck"
	"github.com/urmzd/deconz2z2m/pkg/network"
	"github.com/urmzd/deconz2z2m/pkg/serialport"
)

// askParsed asks q until parse accepts the answer. Non-interactive
// prompters get one attempt and the ValidationError is returned.
func askParsed[T any](ctx context.Context, r *run, q Question, parse func(string) (T, error)) (T, error) {
	for {
		answer, err := r.prompter.Ask(ctx, q)
		if err != nil {
			var zero T
			return zero, err
		}

		v, err := parse(strings.TrimSpace(answer))
		if err == nil {
			return v, nil
		}
		if !r.prompter.Interactive() {
			var zero T
			return zero, err
		}
		fmt.Fprintln(r.out, err)
	}
}

func invalid(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

func (r *run) askTarget(ctx context.Context) (Target, error) {
	prev := r.target
	if prev.Source == "" {
		prev = r.defaultTarget(ctx)
	}

	modeDefault := "2"
	if prev.Source == config.SourceDatabase {
		modeDefault = "1"
	}
	source, err := askParsed(ctx, r, Question{
		Key:     KeySource,
		Label:   "Data source (1 = deCONZ database, 2 = REST API)",
		Default: modeDefault,
	}, parseSource)
	if err != nil {
		return Target{}, err
	}

	t := Target{Source: source}
	if source == config.SourceDatabase {
		def := prev.DatabasePath
		if def == "" {
			def, _ = gateway.DefaultDatabasePath()
		}
		t.DatabasePath, err = askParsed(ctx, r, Question{Key: KeyDatabasePath, Label: "deCONZ database path", Default: def},
			func(s string) (string, error) {
				if s == "" {
					return "", invalid("database path", s, "must not be empty")
				}
				return s, nil
			})
		return t, err
	}

	t.Host, err = askParsed(ctx, r, Question{Key: KeyHost, Label: "Gateway host", Default: prev.Host},
		func(s string) (string, error) {
			if !config.ValidHost(s) {
				return "", invalid("host", s, "expected an IPv4 address or hostname")
			}
			return s, nil
		})
	if err != nil {
		return Target{}, err
	}

	portDefault := ""
	if prev.Port != 0 {
		portDefault = strconv.Itoa(prev.Port)
	}
	t.Port, err = askParsed(ctx, r, Question{Key: KeyPort, Label: "Gateway port", Default: portDefault},
		func(s string) (int, error) {
			p, err := strconv.Atoi(s)
			if err != nil || !config.ValidPort(p) {
				return 0, invalid("port", s, "expected a number between 1 and 65535")
			}
			return p, nil
		})
	return t, err
}

// defaultTarget is the remembered gateway when enabled, otherwise settings.
func (r *run) defaultTarget(ctx context.Context) Target {
	t := Target{
		Source:       r.settings.Source,
		Host:         r.settings.Host,
		Port:         r.settings.Port,
		DatabasePath: r.settings.DatabasePath,
	}
	if r.store == nil || !r.lastUsed {
		return t
	}

	g, err := r.store.Gateways().LastUsed(ctx)
	if err != nil {
		if !errors.Is(err, db.ErrGatewayNotFound) {
			log.Warn().Err(err).Msg("Failed to load last used gateway")
		}
		return t
	}
	log.Debug().Str("gateway", g.Key).Msg("Defaulting to last used gateway")
	t.Source = g.Source
	if g.Host != "" {
		t.Host = g.Host
	}
	if g.Port != 0 {
		t.Port = g.Port
	}
	if g.DBPath != "" {
		t.DatabasePath = g.DBPath
	}
	return t
}

func parseSource(s string) (string, error) {
	switch strings.ToLower(s) {
	case "1", "db", "database":
		return config.SourceDatabase, nil
	case "2", "rest", "api":
		return config.SourceREST, nil
	}
	return "", invalid("data source", s, "enter 1 or 2")
}

func (r *run) askNetworkParams(ctx context.Context, p network.Params) (network.Params, error) {
	channelDefault := r.settings.Channel
	if p.HasChannel() {
		channelDefault = p.Channel
	}
	channel, err := askParsed(ctx, r, Question{
		Key:     KeyChannel,
		Label:   "Zigbee channel (11-26)",
		Default: strconv.Itoa(channelDefault),
	}, func(s string) (int, error) {
		c, err := strconv.Atoi(s)
		if err != nil || !network.ValidChannel(c) {
			return 0, invalid("channel", s, "expected a number between 11 and 26")
		}
		return c, nil
	})
	if err != nil {
		return p, err
	}
	p.Channel = channel

	panDefault := network.NormalizeHex(r.settings.PanID)
	if p.HasPanID() {
		panDefault = p.PanID
	}
	if p.PanID, err = askHex(ctx, r, KeyPanID, "PAN ID", panDefault, network.PanIDLength, false); err != nil {
		return p, err
	}
	if p.ExtPanID, err = askHex(ctx, r, KeyExtPanID, "Extended PAN ID", p.ExtPanID, network.ExtPanIDLength, true); err != nil {
		return p, err
	}
	if p.NetworkKey, err = askHex(ctx, r, KeyNetworkKey, "Network key", p.NetworkKey, network.NetworkKeyLength, true); err != nil {
		return p, err
	}
	return p, nil
}

// askHex asks for a hex value of exactly length digits. With optional set,
// an empty answer leaves the value to be generated.
func askHex(ctx context.Context, r *run, key, label, def string, length int, optional bool) (string, error) {
	field := label
	if optional {
		label = fmt.Sprintf("%s (%d hex digits, empty = generate)", label, length)
	} else {
		label = fmt.Sprintf("%s (%d hex digits)", label, length)
	}

	return askParsed(ctx, r, Question{Key: key, Label: label, Default: def}, func(s string) (string, error) {
		if s == "" && optional {
			return "", nil
		}
		if !network.ValidHex(s, length) {
			return "", invalid(field, s, fmt.Sprintf("expected exactly %d hex digits", length))
		}
		return network.NormalizeHex(s), nil
	})
}

type mqttParams struct {
	server     string
	topic      string
	serialPort string
}

func (r *run) askMQTTParams(ctx context.Context) (mqttParams, error) {
	var m mqttParams
	var err error

	m.server, err = askParsed(ctx, r, Question{Key: KeyMQTTServer, Label: "MQTT server", Default: r.settings.MQTTServer},
		func(s string) (string, error) {
			if !mqttcheck.ValidServer(s) {
				return "", invalid("MQTT server", s, "expected mqtt://, mqtts://, ws:// or wss:// with a host")
			}
			return s, nil
		})
	if err != nil {
		return m, err
	}

	m.topic, err = askParsed(ctx, r, Question{Key: KeyMQTTTopic, Label: "MQTT base topic", Default: r.settings.MQTTTopic},
		func(s string) (string, error) {
			switch {
			case s == "":
				return "", invalid("MQTT base topic", s, "must not be empty")
			case strings.ContainsAny(s, "#+"):
				return "", invalid("MQTT base topic", s, "wildcards are not allowed")
			case strings.HasPrefix(s, "/") || strings.HasSuffix(s, "/"):
				return "", invalid("MQTT base topic", s, "must not start or end with /")
			}
			return s, nil
		})
	if err != nil {
		return m, err
	}

	m.serialPort, err = askParsed(ctx, r, Question{Key: KeySerialPort, Label: "Coordinator serial port", Default: r.suggestSerialPort()},
		func(s string) (string, error) {
			if s == "" {
				return "", invalid("serial port", s, "must not be empty")
			}
			return s, nil
		})
	if err != nil {
		return m, err
	}

	r.checkMQTT(ctx, m)
	r.checkSerialPort(m.serialPort)
	return m, nil
}

func (r *run) suggestSerialPort() string {
	if r.listPorts == nil {
		return r.settings.SerialPort
	}
	ports, err := r.listPorts()
	if err != nil {
		log.Debug().Err(err).Msg("Serial port discovery failed")
		return r.settings.SerialPort
	}
	return serialport.Suggest(ports, r.settings.SerialPort)
}

func (r *run) checkMQTT(ctx context.Context, m mqttParams) {
	if !r.settings.CheckMQTT || r.probeMQTT == nil {
		return
	}
	res, err := r.probeMQTT(ctx, m.server, m.topic)
	if err != nil {
		log.Warn().Err(err).Str("server", m.server).Msg("MQTT broker not reachable")
		fmt.Fprintf(r.out, "Warning: MQTT broker %s is not reachable: %v\n", m.server, err)
		return
	}
	if res.BridgeOnline() {
		log.Warn().Str("topic", m.topic).Msg("A Zigbee2MQTT bridge is already online on this base topic")
		fmt.Fprintf(r.out, "Warning: a Zigbee2MQTT bridge is already online on %s.\n", m.topic)
	}
}

func (r *run) checkSerialPort(path string) {
	if !r.settings.CheckSerialPort || r.probeSerial == nil {
		return
	}
	if err := r.probeSerial(path); err != nil {
		log.Warn().Err(err).Str("port", path).Msg("Serial port not available")
		fmt.Fprintf(r.out, "Warning: %v. Stop deCONZ before starting Zigbee2MQTT.\n", err)
	}
}

func (r *run) askDryRun(ctx context.Context) (bool, error) {
	return askParsed(ctx, r, Question{Key: KeyDryRun, Label: "Dry run, preview without writing? (y/N)", Default: "n"},
		func(s string) (bool, error) {
			switch strings.ToLower(s) {
			case "y", "yes", "j", "ja", "true":
				return true, nil
			case "", "n", "no", "nein", "false":
				return false, nil
			}
			return false, invalid("answer", s, "enter y or n")
		})
}
