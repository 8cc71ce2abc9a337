// ABOUTME: CLI command to show a session's conversation history
// ABOUTME: Prints entries oldest first with their positions
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command
func NewHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a session's conversation",
		Long: `Show a session's conversation history, oldest first.

Examples:
  docchat history --session demo
  docchat history -s demo --limit 6
  docchat history -s demo --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("limit must not be negative, got %d", limit)
			}
			session, err := requireSession()
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			entries, err := a.Sessions().History(cmd.Context(), session, limit)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				if !quiet {
					fmt.Fprintf(cmd.OutOrStdout(), "No history for session %s\n", session)
				}
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
					mutedStyle.Render(fmt.Sprintf("#%d %s", e.Position, formatTime(e.CreatedAt))),
					promptStyle.Render(string(e.Role)+":"),
					e.Content)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Only the most recent N entries (0 = all)")

	return cmd
}
