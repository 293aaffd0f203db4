// Package config holds the migrator's settings and loads overrides from a
// config file and DECONZ2Z2M_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DECONZ2Z2M_HOST.
const EnvPrefix = "DECONZ2Z2M"

// Source modes
const (
	SourceDatabase = "database"
	SourceREST     = "rest"
)

// Settings are the documented defaults for every prompt and tunable.
type Settings struct {
	Source       string `mapstructure:"source"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	APIKey       string `mapstructure:"api_key"`
	DatabasePath string `mapstructure:"database_path"`
	ClientID     string `mapstructure:"client_id"`

	Channel int    `mapstructure:"channel"`
	PanID   string `mapstructure:"pan_id"`

	MQTTServer   string `mapstructure:"mqtt_server"`
	MQTTTopic    string `mapstructure:"mqtt_topic"`
	MQTTUser     string `mapstructure:"mqtt_user"`
	MQTTPassword string `mapstructure:"mqtt_password"`
	CheckMQTT    bool   `mapstructure:"check_mqtt"`

	SerialPort      string `mapstructure:"serial_port"`
	CheckSerialPort bool   `mapstructure:"check_serial_port"`

	OutputPath string `mapstructure:"output"`
	StatePath  string `mapstructure:"state_path"`
	NoState    bool   `mapstructure:"no_state"`

	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PairAttempts   int           `mapstructure:"pair_attempts"`
	PairDelay      time.Duration `mapstructure:"pair_delay"`

	LogLevel      string `mapstructure:"log_level"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`

	// Comma-separated browser origins the HTTP API answers cross-origin
	// requests from. Empty disables CORS.
	APIAllowedOrigins string `mapstructure:"api_allowed_origins"`
}

// Defaults returns the settings used when nothing is overridden.
func Defaults() Settings {
	return Settings{
		Source:         SourceREST,
		Host:           "192.168.178.76",
		Port:           4530,
		APIKey:         "",
		ClientID:       "deconz-migrator",
		Channel:        15,
		PanID:          "1a63",
		MQTTServer:     "mqtt://localhost",
		MQTTTopic:      "zigbee2mqtt",
		SerialPort:     "/dev/ttyACM0",
		OutputPath:     "configuration.yaml",
		ProbeTimeout:   5 * time.Second,
		RequestTimeout: 10 * time.Second,
		PairAttempts:   2,
		PairDelay:      10 * time.Second,
		LogLevel:       "info",
		LogMaxSizeMB:   10,
		LogMaxBackups:  3,
	}
}

// Load reads settings into v. configFile may be empty, in which case
// deconz2z2m.{yaml,json,toml} is looked up in the working directory and the
// user config directory; a missing file is not an error.
func Load(v *viper.Viper, configFile string) (Settings, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("deconz2z2m")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "deconz2z2m"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	return s, s.Validate()
}

func setDefaults(v *viper.Viper, d Settings) {
	v.SetDefault("source", d.Source)
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("api_key", d.APIKey)
	v.SetDefault("database_path", d.DatabasePath)
	v.SetDefault("client_id", d.ClientID)
	v.SetDefault("channel", d.Channel)
	v.SetDefault("pan_id", d.PanID)
	v.SetDefault("mqtt_server", d.MQTTServer)
	v.SetDefault("mqtt_topic", d.MQTTTopic)
	v.SetDefault("mqtt_user", d.MQTTUser)
	v.SetDefault("mqtt_password", d.MQTTPassword)
	v.SetDefault("check_mqtt", d.CheckMQTT)
	v.SetDefault("serial_port", d.SerialPort)
	v.SetDefault("check_serial_port", d.CheckSerialPort)
	v.SetDefault("output", d.OutputPath)
	v.SetDefault("state_path", d.StatePath)
	v.SetDefault("no_state", d.NoState)
	v.SetDefault("probe_timeout", d.ProbeTimeout)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("pair_attempts", d.PairAttempts)
	v.SetDefault("pair_delay", d.PairDelay)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("log_max_size_mb", d.LogMaxSizeMB)
	v.SetDefault("log_max_backups", d.LogMaxBackups)
	v.SetDefault("api_allowed_origins", d.APIAllowedOrigins)
}

// Validate rejects settings no run could use.
func (s Settings) Validate() error {
	var errs []error
	if s.Source != SourceREST && s.Source != SourceDatabase {
		errs = append(errs, fmt.Errorf("source must be %q or %q, got %q", SourceREST, SourceDatabase, s.Source))
	}
	if !ValidHost(s.Host) {
		errs = append(errs, fmt.Errorf("invalid host %q", s.Host))
	}
	if !ValidPort(s.Port) {
		errs = append(errs, fmt.Errorf("port %d out of range 1-65535", s.Port))
	}
	if s.ProbeTimeout <= 0 || s.RequestTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if s.PairAttempts < 1 {
		errs = append(errs, errors.New("pair_attempts must be at least 1"))
	}
	for _, origin := range s.AllowedOrigins() {
		if !ValidOrigin(origin) {
			errs = append(errs, fmt.Errorf("invalid allowed origin %q, expected scheme://host[:port]", origin))
		}
	}
	return errors.Join(errs...)
}

// ValidHost accepts an IPv4 address or a DNS hostname.
func ValidHost(host string) bool {
	if host == "" || len(host) > 253 {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.To4() != nil
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
				return false
			}
		}
	}
	// All-numeric dotted names must be IPv4 addresses.
	return strings.Trim(host, "0123456789.") != ""
}

// AllowedOrigins splits APIAllowedOrigins, dropping blanks.
func (s Settings) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(s.APIAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// ValidOrigin accepts an http or https origin without path or wildcard.
func ValidOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" || strings.Contains(origin, "*") {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Path == "" && u.RawQuery == "" && u.User == nil
}

// ValidPort reports whether port is in 1-65535.
func ValidPort(port int) bool {
	return port >= 1 && port <= 65535
}
