package main

import (
	"github.com/spf13/cobra"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var collection string
	cmd := &cobra.Command{
		Use:   "validate PATH",
		Short: "Check that PATH holds a readable vector database",
		Long: "Validate probes the database folder without changing any saved state " +
			"and prints the result as JSON. Relative paths are resolved against " +
			"session.search_roots.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), root.configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.manager.Validate(cmd.Context(), args[0], collection)
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Valid {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "collection expected in the database")
	return cmd
}
