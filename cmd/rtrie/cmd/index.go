package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/ingestion/validator"
)

func newIndexCmd(root *rootOptions) *cobra.Command {
	var req ingestion.IndexRequest
	var data string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index a single term",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if data != "" {
				if !json.Valid([]byte(data)) {
					return fmt.Errorf("--data is not valid JSON")
				}
				req.Data = json.RawMessage(data)
			}
			if err := validator.ValidateIndexRequest(&req); err != nil {
				return err
			}

			engine, client, err := root.openEngine()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := engine.Index(cmd.Context(), req.Item()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %s\n", req.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.ID, "id", "", "Item identifier (required)")
	cmd.Flags().StringVar(&req.Term, "term", "", "Display text to index (required)")
	cmd.Flags().StringVar(&data, "data", "", "JSON payload returned with results")
	cmd.Flags().Float64Var(&req.Priority, "priority", 0, "Ranking score; higher first")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("term")

	return cmd
}
