// ABOUTME: CLI commands for session ids
// ABOUTME: session new mints an id; session list shows sessions with history
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewSessionCmd creates the session command group
func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create and list sessions",
		Long: `Create and list sessions.

A session scopes both documents and conversation history. Any non-empty id
works; session new prints a random one for convenience.

Examples:
  export DOCCHAT_SESSION=$(docchat session new)
  docchat session list`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Print a new random session id",
		Long:  `Print a new random session id suitable for DOCCHAT_SESSION.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), uuid.NewString())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sessions with history",
		Long:  `List sessions that have conversation history, most recently active first.`,
		Args:  cobra.NoArgs,
		RunE:  runSessionList,
	})

	return cmd
}

func runSessionList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	sessions, err := a.Sessions().List(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput() {
		return writeJSON(cmd.OutOrStdout(), sessions)
	}
	if len(sessions) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No sessions found\n")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SESSION\tENTRIES\tLAST ACTIVE\n")
	fmt.Fprintf(w, "-------\t-------\t-----------\n")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%d\t%s\n", truncate(s.SessionID.String(), 40), s.Entries, formatTime(s.LastActivity))
	}
	return w.Flush()
}
