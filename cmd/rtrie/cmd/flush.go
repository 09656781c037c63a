package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func newFlushCmd(root *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Delete every key in the configured namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ns := root.cfg.Autocomplete.Namespace
			if !yes {
				return fmt.Errorf("refusing to flush namespace %q without --yes", ns)
			}

			_, client, err := root.openEngine()
			if err != nil {
				return err
			}
			defer client.Close()

			deleted, err := client.FlushByPattern(cmd.Context(), globEscaper.Replace(ns)+":*")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d keys from namespace %s\n", deleted, ns)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	return cmd
}
