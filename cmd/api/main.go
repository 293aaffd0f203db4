package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/urmzd/deconz2z2m/pkg/api"
	"github.com/urmzd/deconz2z2m/pkg/api/handlers"
	"github.com/urmzd/deconz2z2m/pkg/config"
	"github.com/urmzd/deconz2z2m/pkg/db"
	"github.com/urmzd/deconz2z2m/pkg/logging"

	_ "github.com/urmzd/deconz2z2m/docs"
)

// @title           deconz2z2m API
// @version         1.0
// @description     Migrates deCONZ gateway configuration to Zigbee2MQTT

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

func main() {
	fs := flag.NewFlagSet("deconz2z2m-api", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:8080", "listen address")
	allowedOrigins := fs.String("allowed-origins", "", "comma-separated browser origins allowed to call the API (default: none)")
	configFile := fs.String("config", "", "settings file (default: ./deconz2z2m.yaml or the user config dir)")
	noState := fs.Bool("no-state", false, "do not use the state database")

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("DECONZ2Z2M_API")); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse environment/command line arguments")
	}

	v := viper.New()
	if *allowedOrigins != "" {
		v.Set("api_allowed_origins", *allowedOrigins)
	}
	settings, err := config.Load(v, *configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load settings")
	}

	_, logFile, err := logging.Setup(logging.Options{
		Level:      settings.LogLevel,
		File:       settings.LogFile,
		MaxSizeMB:  settings.LogMaxSizeMB,
		MaxBackups: settings.LogMaxBackups,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}
	defer func() { _ = logFile.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *db.DB
	if !*noState && !settings.NoState {
		store, err = db.OpenAndMigrate(ctx, settings.StatePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open state database")
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close state database")
			}
		}()
		log.Info().Str("path", store.Path()).Msg("State database opened")
	}

	router := api.NewRouter(handlers.Deps{Settings: settings, Store: store})
	srv := &http.Server{
		Addr:              *addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	log.Info().
		Str("address", *addr).
		Strs("allowed_origins", settings.AllowedOrigins()).
		Str("output", settings.OutputPath).
		Msg("Starting API server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
