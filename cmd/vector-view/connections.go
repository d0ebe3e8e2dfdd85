package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
)

func newConnectionsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conn"},
		Short:   "Manage saved database connections",
	}
	cmd.AddCommand(
		newConnectionsListCmd(root),
		newConnectionsAddCmd(root),
		newConnectionsDeleteCmd(root),
		newConnectionsConnectCmd(root),
	)
	return cmd
}

func newConnectionsListCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context(), root.configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), a.manager.Status())
			}
			return printConnections(cmd.OutOrStdout(), a.manager.List())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full status as JSON")
	return cmd
}

func newConnectionsAddCmd(root *rootOptions) *cobra.Command {
	var in api.ConnectionInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a new connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if apiErr := api.ValidateConnectionInput(in); apiErr != nil {
				return fmt.Errorf("%s", apiErr.Message)
			}
			a, err := loadApp(cmd.Context(), root.configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			id := a.manager.Add(cmd.Context(), in.Config())
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "display name")
	f.StringVar(&in.DBPath, "path", "", "database folder")
	f.StringVar(&in.CollectionName, "collection", "", "collection to open")
	f.StringVar(&in.EmbeddingModel, "model", "", "embedding model identifier")
	f.StringVar(&in.Description, "description", "", "optional description")
	return cmd
}

func newConnectionsDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a saved connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), root.configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.manager.Delete(cmd.Context(), args[0])
		},
	}
}

func newConnectionsConnectCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "connect ID",
		Short: "Open a connection and mark it active for the next server start",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), root.configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.manager.Connect(cmd.Context(), args[0]); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), a.manager.Status())
		},
	}
}

func printConnections(w io.Writer, conns []api.ConnectionConfig) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPATH\tCOLLECTION\tMODEL\tACTIVE")
	for _, c := range conns {
		active := ""
		if c.IsActive {
			active = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.DBPath, c.CollectionName, c.EmbeddingModel, active)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
