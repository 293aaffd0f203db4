package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/urmzd/deconz2z2m/pkg/db"
	"github.com/urmzd/deconz2z2m/pkg/gateway"
	"github.com/urmzd/deconz2z2m/pkg/migrate"
)

func newPairCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "pair",
		Short: "Request a new API key from the gateway",
		Long: `Unlock the gateway in Phoscon (Gateway > Advanced > Authenticate app)
or press its link button, then run pair within 60 seconds. The key is printed
and remembered for the next migration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			host, port := c.settings.Host, c.settings.Port
			key, err := migrate.DefaultPairFunc(c.settings)(ctx, host, port)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", migrate.Hint(err))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)

			store := c.openState(ctx)
			defer closeState(store)
			if store != nil {
				if err := rememberAPIKey(ctx, store.Gateways(), host, port, key); err != nil {
					log.Warn().Err(err).Msg("Failed to remember API key")
				}
			}
			return nil
		},
	}
}

// rememberAPIKey stores key for the gateway at host:port, adding the gateway
// when it has not been used before.
func rememberAPIKey(ctx context.Context, gateways db.GatewayStore, host string, port int, key string) error {
	gwKey := gateway.NewRESTSource(host, port).Key()
	err := gateways.SetAPIKey(ctx, gwKey, key)
	if !errors.Is(err, db.ErrGatewayNotFound) {
		return err
	}
	return gateways.Upsert(ctx, &db.Gateway{
		Key:    gwKey,
		Source: db.SourceREST,
		Host:   host,
		Port:   port,
		APIKey: key,
	})
}
