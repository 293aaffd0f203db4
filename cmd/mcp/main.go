package main

import (
	"context"
	"flag"
	"os"

	"github.com/peterbourgon/ff/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/urmzd/deconz2z2m/pkg/config"
	"github.com/urmzd/deconz2z2m/pkg/db"
	"github.com/urmzd/deconz2z2m/pkg/logging"
	d2zmcp "github.com/urmzd/deconz2z2m/pkg/mcp"
)

func main() {
	fs := flag.NewFlagSet("deconz2z2m-mcp", flag.ExitOnError)
	configFile := fs.String("config", "", "settings file (default: ./deconz2z2m.yaml or the user config dir)")
	noState := fs.Bool("no-state", false, "do not use the state database")

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("DECONZ2Z2M_MCP")); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse environment/command line arguments")
	}

	settings, err := config.Load(viper.New(), *configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load settings")
	}

	// stdout is the MCP transport
	_, logFile, err := logging.Setup(logging.Options{
		Level:      settings.LogLevel,
		File:       settings.LogFile,
		MaxSizeMB:  settings.LogMaxSizeMB,
		MaxBackups: settings.LogMaxBackups,
		Console:    os.Stderr,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}
	defer func() { _ = logFile.Close() }()

	var store *db.DB
	if !*noState && !settings.NoState {
		store, err = db.OpenAndMigrate(context.Background(), settings.StatePath)
		if err != nil {
			log.Warn().Err(err).Msg("State database unavailable; remembered gateways are disabled")
			store = nil
		} else {
			defer func() {
				if err := store.Close(); err != nil {
					log.Error().Err(err).Msg("Failed to close state database")
				}
			}()
		}
	}

	mcpServer := d2zmcp.NewServer(d2zmcp.Deps{Settings: settings, Store: store})

	log.Info().Msg("Starting MCP server on stdio")

	if err := mcpServer.ServeStdio(); err != nil {
		log.Error().Err(err).Msg("MCP server failed")
		os.Exit(1)
	}
}
