// ABOUTME: CLI command to reset a session
// ABOUTME: Clears history and, with --documents, the session's indexed chunks
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewResetCmd creates the reset command
func NewResetCmd() *cobra.Command {
	var dropDocuments bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear a session's history",
		Long: `Clear a session's conversation history so the next question starts fresh.

Documents stay indexed unless --documents is given. Other sessions are
never touched.

Examples:
  docchat reset --session demo
  docchat reset -s demo --documents`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession()
			if err != nil {
				return err
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			result, err := a.Sessions().Reset(cmd.Context(), session, dropDocuments)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Reset session %s (%d history entries", session, result.EntriesDeleted)
				if dropDocuments {
					fmt.Fprintf(cmd.OutOrStdout(), ", %d chunks", result.ChunksDeleted)
				}
				fmt.Fprintln(cmd.OutOrStdout(), " removed)")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dropDocuments, "documents", false, "Also remove the session's indexed documents")

	return cmd
}
