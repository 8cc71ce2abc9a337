// ABOUTME: CLI command to export a session's conversation
// ABOUTME: Writes YAML or Markdown to stdout or a file
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/docchat/internal/models"
	"github.com/harper/docchat/internal/storage"
)

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a session's conversation",
		Long: `Export a session's conversation history and document list.

Formats are yaml (default) and markdown. Output goes to stdout unless
--output names a file.

Examples:
  docchat export --session demo
  docchat export -s demo --export-format markdown -o demo.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionStr, err := requireSession()
			if err != nil {
				return err
			}
			session, err := models.ParseSessionID(sessionStr)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			data, err := storage.Export(cmd.Context(), a.History, a.Index, session)
			if err != nil {
				return err
			}

			if output == "" {
				return storage.Write(cmd.OutOrStdout(), format, data)
			}
			if err := storage.ExportToFile(output, format, data); err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d entries to %s\n", len(data.Entries), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "export-format", "yaml", "Export format: yaml or markdown")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")

	return cmd
}
