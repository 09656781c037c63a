// Package cmd provides the subcommands of the rtrie CLI.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/autocomplete"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/store/redisstore"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/redis"
)

type rootOptions struct {
	configPath string
	namespace  string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd creates the root command for the rtrie CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "rtrie",
		Short: "Manage a Redis-backed prefix autocomplete index",
		Long: `rtrie indexes terms under every prefix of every word and serves
ranked completions from Redis sorted sets.

Examples:
  rtrie index --id 42 --term "Café Music" --data '{"genre":"jazz"}' --priority 5
  rtrie search caf --limit 5
  rtrie reindex --table autocomplete_terms --workers 16
  rtrie flush --yes
  rtrie apikey create --name storefront --rate-limit 100`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.namespace != "" {
				cfg.Autocomplete.Namespace = opts.namespace
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, "text")
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&opts.namespace, "namespace", "", "Key namespace (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newReindexCmd(opts))
	cmd.AddCommand(newFlushCmd(opts))
	cmd.AddCommand(newAPIKeyCmd(opts))

	return cmd
}

// Execute runs the root command with a background context.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// openEngine connects to Redis and builds an engine over it. The caller
// closes the returned client.
func (o *rootOptions) openEngine() (*autocomplete.Engine, *pkgredis.Client, error) {
	client, err := pkgredis.NewClient(o.cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to redis at %s: %w", o.cfg.Redis.Addr, err)
	}
	engine := autocomplete.New(redisstore.New(client), autocomplete.Config{
		Namespace:    o.cfg.Autocomplete.Namespace,
		DefaultLimit: o.cfg.Autocomplete.DefaultLimit,
	})
	return engine, client, nil
}
