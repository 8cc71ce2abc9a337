// ABOUTME: CLI command to index documents into a session
// ABOUTME: Extracts text from PDF, Markdown and text files, or reads stdin
package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/docchat/internal/core"
	"github.com/harper/docchat/internal/extract"
)

type ingestOptions struct {
	ref  string
	name string
}

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	opts := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Index documents into a session",
		Long: `Index documents into a session so chat can answer from them.

Supported formats are PDF (.pdf), Markdown (.md) and plain text (.txt).
Each file is split into overlapping chunks, embedded and stored under the
session. Ingesting a file again replaces its previous chunks. With no file
arguments, or "-", text is read from stdin.

Examples:
  docchat ingest --session demo handbook.pdf notes.md
  cat meeting.txt | docchat ingest --session demo --ref meeting-2024-05
  docchat ingest -s demo --name "Ada biography" ada.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.ref, "ref", "", "Document reference (single document only; default: file path)")
	cmd.Flags().StringVar(&opts.name, "name", "", "Document display name (single document only)")

	return cmd
}

func runIngest(cmd *cobra.Command, opts *ingestOptions, args []string) error {
	session, err := requireSession()
	if err != nil {
		return err
	}
	if len(args) > 1 && (opts.ref != "" || opts.name != "") {
		return fmt.Errorf("--ref and --name apply to a single document")
	}

	docs, err := collectDocuments(cmd.InOrStdin(), session, opts, args)
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ingestor, err := a.Ingestor()
	if err != nil {
		return err
	}

	results := make([]*core.IngestResult, 0, len(docs))
	for _, doc := range docs {
		result, err := ingestor.Ingest(cmd.Context(), doc)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", doc.Ref, err)
		}
		results = append(results, result)
		if !quiet && !jsonOutput() {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Indexed %s (%d chunks, %s)\n",
				result.DocumentRef, result.Chunks, result.Duration.Round(time.Millisecond))
		}
	}

	if jsonOutput() {
		return writeJSON(cmd.OutOrStdout(), results)
	}
	return nil
}

func collectDocuments(stdin io.Reader, session string, opts *ingestOptions, args []string) ([]core.Document, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}

	docs := make([]core.Document, 0, len(args))
	for _, arg := range args {
		var (
			extracted *extract.Document
			ref       string
			err       error
		)
		if arg == "-" {
			extracted, err = extract.Reader("stdin", stdin)
		} else {
			extracted, err = extract.File(arg)
			ref = filepath.Clean(arg)
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}

		doc := core.Document{
			SessionID: session,
			Ref:       ref,
			Name:      extracted.Name,
			Text:      extracted.Text,
		}
		if opts.ref != "" {
			doc.Ref = opts.ref
		}
		if opts.name != "" {
			doc.Name = opts.name
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
