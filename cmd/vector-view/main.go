// Command vector-view serves a web viewer and JSON API for local
// chromem-go vector databases.
//
// Configuration is read from a YAML file (--config, VECTOR_VIEW_CONFIG,
// ./config.yaml or /etc/vector-view/config.yaml), a .env file and
// VECTOR_VIEW_* environment variables. Running without a subcommand starts
// the server.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	serve := newServeCmd(opts)

	root := &cobra.Command{
		Use:           "vector-view",
		Short:         "Browse and search local vector databases",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file")
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, newConnectionsCmd(opts), newValidateCmd(opts))
	return root
}

// errInvalid makes validate exit non-zero after printing its result.
var errInvalid = errors.New("validation failed")
