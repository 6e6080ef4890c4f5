// Package cli provides the fastapify command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd returns the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fastapify",
		Short: "HTTP API server with automatic OpenAPI documentation",
		Long: `fastapify serves the user API and documents every registered route
as an OpenAPI 3.0 document, derived from the request validation schemas.

Example:
  fastapify serve                      # Serve on the configured port
  fastapify serve --port 8080          # Override the port
  fastapify docs --format yaml         # Print the document as YAML
  fastapify docs -o openapi.json       # Write the document to a file`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (default: fastapify.yaml)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newDocsCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
