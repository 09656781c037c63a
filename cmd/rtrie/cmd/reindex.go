package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/indexer/loader"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/postgres"
)

func newReindexCmd(root *rootOptions) *cobra.Command {
	var table string
	var workers int

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the index from a Postgres table",
		Long: `Reads (id, term, data, priority) rows from a Postgres table and indexes
each one. Rows that cannot be indexed are skipped and counted; a Redis
failure aborts the run. Prints a JSON summary on completion.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg.Autocomplete
			if table == "" {
				table = cfg.ReindexTable
			}
			if workers < 1 {
				workers = cfg.ReindexWorkers
			}

			db, err := postgres.New(root.cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()

			src, err := loader.NewPostgresSource(db, table)
			if err != nil {
				return err
			}

			engine, client, err := root.openEngine()
			if err != nil {
				return err
			}
			defer client.Close()

			stats, runErr := loader.New(engine, workers).Run(cmd.Context(), src)
			if err := json.NewEncoder(cmd.OutOrStdout()).Encode(stats); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Source table (default from config)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent index workers (default from config)")

	return cmd
}
