package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vitalvas/fastapify/internal/server"
)

func newDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Print the OpenAPI document",
		Long: `Compile the OpenAPI document of the application without starting the
server and print it to stdout or write it to a file.`,
		Args: cobra.NoArgs,
		RunE: runDocs,
	}

	cmd.Flags().StringP("format", "f", "json", "output format: json, yaml")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	return cmd
}

func runDocs(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	app, err := server.New(cfg, slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn})))
	if err != nil {
		return err
	}

	doc := app.Document(cfg.Server.Port)

	var data []byte
	switch strings.ToLower(format) {
	case "json":
		data, err = doc.JSON()
	case "yaml", "yml":
		data, err = doc.YAML()
	default:
		return fmt.Errorf("unsupported format %q: use json or yaml", format)
	}

	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	if output == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	return nil
}
