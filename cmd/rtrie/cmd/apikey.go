package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/redis"
)

func newAPIKeyCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys stored in Postgres",
	}
	cmd.AddCommand(newAPIKeyInitCmd(root))
	cmd.AddCommand(newAPIKeyCreateCmd(root))
	cmd.AddCommand(newAPIKeyRevokeCmd(root))
	cmd.AddCommand(newAPIKeyListCmd(root))
	return cmd
}

func (o *rootOptions) openValidator() (*apikey.Validator, func() error, error) {
	db, err := postgres.New(o.cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	return apikey.NewValidator(db), db.Close, nil
}

func newAPIKeyInitCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the api_keys table if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, closeDB, err := root.openValidator()
			if err != nil {
				return err
			}
			defer closeDB()
			return v.EnsureSchema(cmd.Context())
		},
	}
}

func newAPIKeyCreateCmd(root *rootOptions) *cobra.Command {
	var (
		k       apikey.NewKey
		expires time.Duration
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a key and print it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if expires > 0 {
				at := time.Now().Add(expires)
				k.ExpiresAt = &at
			}
			v, closeDB, err := root.openValidator()
			if err != nil {
				return err
			}
			defer closeDB()

			raw, err := v.CreateKey(cmd.Context(), k)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&k.Name, "name", "", "Human-readable owner of the key (required)")
	cmd.Flags().BoolVar(&k.CanWrite, "write", false, "Allow indexing terms")
	cmd.Flags().IntVar(&k.RateLimit, "rate-limit", 0, "Requests per rate-limit window (0 uses the default)")
	cmd.Flags().DurationVar(&expires, "expires-in", 0, "Expire the key after this long (0 never expires)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAPIKeyRevokeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <key>",
		Short: "Deactivate a key and drop it from the Redis cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, closeDB, err := root.openValidator()
			if err != nil {
				return err
			}
			defer closeDB()

			hash := apikey.HashKey(args[0])
			if err := v.RevokeKey(cmd.Context(), hash); err != nil {
				return err
			}

			client, err := pkgredis.NewClient(root.cfg.Redis)
			if err != nil {
				slog.Warn("key revoked but cache not cleared; it stays valid until the cache TTL", "error", err)
				return nil
			}
			defer client.Close()
			cache := apikey.NewCachedValidator(v, client, root.cfg.Autocomplete.Namespace, root.cfg.Auth.CacheTTL)
			if err := cache.Forget(cmd.Context(), hash); err != nil {
				slog.Warn("key revoked but cache not cleared", "error", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "revoked")
			return nil
		},
	}
}

func newAPIKeyListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active keys, one JSON object per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, closeDB, err := root.openValidator()
			if err != nil {
				return err
			}
			defer closeDB()

			keys, err := v.ListKeys(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, k := range keys {
				if err := enc.Encode(k); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
