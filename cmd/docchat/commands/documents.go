// ABOUTME: CLI commands to list and remove a session's documents
// ABOUTME: documents lists refs with chunk counts; documents rm deletes by ref
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewDocumentsCmd creates the documents command and its rm subcommand
func NewDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "List the documents indexed in a session",
		Long: `List the documents indexed in a session.

Examples:
  docchat documents --session demo
  docchat documents rm -s demo handbook.pdf`,
		Args: cobra.NoArgs,
		RunE: runDocuments,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <ref>...",
		Short: "Remove documents from a session",
		Long:  `Remove documents and all of their chunks from a session by reference.`,
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDocumentsRemove,
	})

	return cmd
}

func runDocuments(cmd *cobra.Command, args []string) error {
	session, err := requireSession()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	docs, err := a.Sessions().Documents(cmd.Context(), session)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return writeJSON(cmd.OutOrStdout(), docs)
	}
	if len(docs) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No documents in session %s\n", session)
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "REF\tNAME\tCHUNKS\tINGESTED\n")
	fmt.Fprintf(w, "---\t----\t------\t--------\n")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", truncate(d.DocumentRef, 40), truncate(d.DocumentName, 30), d.Chunks, formatTime(d.IngestedAt))
	}
	_ = w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d document(s)\n", len(docs))
	}
	return nil
}

func runDocumentsRemove(cmd *cobra.Command, args []string) error {
	session, err := requireSession()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	sessions := a.Sessions()
	for _, ref := range args {
		n, err := sessions.DeleteDocument(cmd.Context(), session, ref)
		if err != nil {
			return err
		}
		if !quiet {
			if n == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s was not indexed in session %s\n", ref, session)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s (%d chunks)\n", ref, n)
			}
		}
	}
	return nil
}
