package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/urmzd/deconz2z2m/pkg/config"
	"github.com/urmzd/deconz2z2m/pkg/db"
	"github.com/urmzd/deconz2z2m/pkg/logging"
	"github.com/urmzd/deconz2z2m/pkg/migrate"
)

// cli carries what every subcommand needs after flags are parsed.
type cli struct {
	v        *viper.Viper
	cfgFile  string
	settings config.Settings
	runID    string
	logFile  io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "deconz2z2m",
		Short: "Migrate a deCONZ gateway to Zigbee2MQTT",
		Long: `deconz2z2m reads network parameters and paired devices from a deCONZ
gateway (REST API or zll.db) and writes a Zigbee2MQTT configuration.yaml.

Every value is asked interactively; press Enter to accept the default shown
in brackets. Defaults come from flags, DECONZ2Z2M_* environment variables and
an optional deconz2z2m.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logFile != nil {
				_ = c.logFile.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.migrate(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default: ./deconz2z2m.yaml or the user config dir)")
	pf.String("host", "", "gateway IPv4 address or hostname")
	pf.Int("port", 0, "gateway REST port")
	pf.String("state", "", "state database path")
	pf.Bool("no-state", false, "do not read or write the state database")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-file", "", "also log to this rotating file")

	f := root.Flags()
	f.String("source", "", "data source: rest or database")
	f.String("api-key", "", "deCONZ API key")
	f.String("database", "", "path to the deCONZ zll.db")
	f.StringP("output", "o", "", "where to write configuration.yaml")
	f.String("mqtt-server", "", "MQTT broker URL")
	f.String("mqtt-topic", "", "Zigbee2MQTT base topic")
	f.String("serial-port", "", "coordinator serial port")
	f.Bool("check-mqtt", false, "connect to the broker before writing")
	f.Bool("check-serial-port", false, "open the serial port before writing")

	bind(c.v, pf, map[string]string{
		"host":      "host",
		"port":      "port",
		"state":     "state_path",
		"no-state":  "no_state",
		"log-level": "log_level",
		"log-file":  "log_file",
	})
	bind(c.v, f, map[string]string{
		"source":            "source",
		"api-key":           "api_key",
		"database":          "database_path",
		"output":            "output",
		"mqtt-server":       "mqtt_server",
		"mqtt-topic":        "mqtt_topic",
		"serial-port":       "serial_port",
		"check-mqtt":        "check_mqtt",
		"check-serial-port": "check_serial_port",
	})

	root.AddCommand(newPairCmd(c), newPortsCmd(c))
	return root
}

func (c *cli) setup() error {
	settings, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	c.settings = settings

	runID, closer, err := logging.Setup(logging.Options{
		Level:      settings.LogLevel,
		File:       settings.LogFile,
		MaxSizeMB:  settings.LogMaxSizeMB,
		MaxBackups: settings.LogMaxBackups,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	c.runID = runID
	c.logFile = closer
	return nil
}

// openState opens the state database. Failures are logged and the run
// continues without persistence.
func (c *cli) openState(ctx context.Context) *db.DB {
	if c.settings.NoState {
		return nil
	}
	store, err := db.OpenAndMigrate(ctx, c.settings.StatePath)
	if err != nil {
		log.Warn().Err(err).Msg("State database unavailable; continuing without it")
		return nil
	}
	log.Debug().Str("path", store.Path()).Msg("State database opened")
	return store
}

func closeState(store *db.DB) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close state database")
	}
}

func (c *cli) migrate(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := c.openState(ctx)
	defer closeState(store)

	out := cmd.OutOrStdout()
	opts := []migrate.Option{
		migrate.WithOutput(out),
		migrate.WithRunID(c.runID),
	}
	if store != nil {
		opts = append(opts, migrate.WithStore(store))
		if !targetFlagged(cmd.Flags()) {
			opts = append(opts, migrate.WithLastUsedDefaults())
		}
	}

	prompter := migrate.NewLinePrompter(cmd.InOrStdin(), out)
	defer prompter.Close()

	res, err := migrate.New(c.settings, prompter, opts...).Run(ctx)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", migrate.Hint(err))
		return err
	}
	if res.State == migrate.StateCancelled {
		fmt.Fprintln(out, "Cancelled; nothing was written.")
	}
	return nil
}

// targetFlagged reports whether the gateway was chosen on the command line.
func targetFlagged(fs *pflag.FlagSet) bool {
	for _, name := range []string{"source", "host", "port", "database"} {
		if fs.Changed(name) {
			return true
		}
	}
	return false
}

// bind maps flag names onto settings keys. Only flags set on the command line
// override the config file and environment.
func bind(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}
