package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Print completions for a prefix, one JSON object per line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if !cmd.Flags().Changed("limit") {
				limit = root.cfg.Autocomplete.DefaultLimit
			}

			engine, client, err := root.openEngine()
			if err != nil {
				return err
			}
			defer client.Close()

			results, err := engine.Search(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range results {
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (default from config)")

	return cmd
}
