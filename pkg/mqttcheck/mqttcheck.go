// Package mqttcheck verifies that the MQTT broker entered for Zigbee2MQTT is
// reachable and reports whether a bridge already runs on the chosen topic.
package mqttcheck

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// DefaultTimeout bounds the broker connection.
const DefaultTimeout = 5 * time.Second

// retainedWait is how long to wait for a retained bridge state.
const retainedWait = 500 * time.Millisecond

var ErrInvalidServer = errors.New("invalid MQTT server URL")

// Options configures a probe.
type Options struct {
	Username string
	Password string
	ClientID string
	Timeout  time.Duration
}

// Result describes what the probe found.
type Result struct {
	Server      string `json:"server"`
	BaseTopic   string `json:"base_topic"`
	BridgeState string `json:"bridge_state,omitempty"` // "online", "offline" or "" when unknown
}

// BridgeOnline reports whether a Zigbee2MQTT bridge already serves the topic.
func (r Result) BridgeOnline() bool { return r.BridgeState == "online" }

// ValidServer reports whether server is an MQTT URL Zigbee2MQTT accepts.
func ValidServer(server string) bool {
	u, err := url.Parse(strings.TrimSpace(server))
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "mqtt", "mqtts", "ws", "wss":
		return true
	}
	return false
}

// Probe connects to server, reads the retained {baseTopic}/bridge/state
// message if present, and disconnects.
func Probe(ctx context.Context, server, baseTopic string, opts Options) (Result, error) {
	res := Result{Server: server, BaseTopic: baseTopic}
	if !ValidServer(server) {
		return res, fmt.Errorf("%w: %q", ErrInvalidServer, server)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ClientID == "" {
		opts.ClientID = fmt.Sprintf("deconz2z2m-probe-%d", time.Now().UnixNano())
	}

	states := make(chan string, 1)
	co := pahomqtt.NewClientOptions().
		AddBroker(server).
		SetClientID(opts.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectTimeout(opts.Timeout)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}

	client := pahomqtt.NewClient(co)
	token := client.Connect()
	if err := wait(ctx, token, opts.Timeout); err != nil {
		return res, fmt.Errorf("mqtt connect %s: %w", server, err)
	}
	defer client.Disconnect(250)

	if baseTopic == "" {
		return res, nil
	}

	topic := baseTopic + "/bridge/state"
	sub := client.Subscribe(topic, 0, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		select {
		case states <- parseBridgeState(msg.Payload()):
		default:
		}
	})
	if err := wait(ctx, sub, opts.Timeout); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Could not subscribe to bridge state")
		return res, nil
	}

	select {
	case res.BridgeState = <-states:
	case <-time.After(retainedWait):
	case <-ctx.Done():
		return res, ctx.Err()
	}

	log.Debug().Str("server", server).Str("bridge_state", res.BridgeState).Msg("MQTT broker reachable")
	return res, nil
}

func wait(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-time.After(timeout):
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseBridgeState accepts both the legacy plain payload and the JSON
// {"state":"online"} form.
func parseBridgeState(payload []byte) string {
	if gjson.ValidBytes(payload) {
		if s := gjson.GetBytes(payload, "state"); s.Exists() {
			return s.String()
		}
	}
	return strings.TrimSpace(string(payload))
}
