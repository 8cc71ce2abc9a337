// ABOUTME: Export of a session's conversation history
// ABOUTME: Supports YAML and Markdown export formats for any HistoryStore
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/harper/docchat/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the complete exportable data structure
type ExportData struct {
	Version    string                `yaml:"version" json:"version"`
	ExportedAt string                `yaml:"exported_at" json:"exported_at"`
	Tool       string                `yaml:"tool" json:"tool"`
	SessionID  string                `yaml:"session_id" json:"session_id"`
	Documents  []models.DocumentInfo `yaml:"documents,omitempty" json:"documents,omitempty"`
	Entries    []ExportEntry         `yaml:"entries" json:"entries"`
}

// ExportEntry represents a history entry for export
type ExportEntry struct {
	Position  int64  `yaml:"position" json:"position"`
	Role      string `yaml:"role" json:"role"`
	Content   string `yaml:"content" json:"content"`
	CreatedAt string `yaml:"created_at" json:"created_at"`
}

// Export collects a session's history and, when index is non-nil, its documents.
func Export(ctx context.Context, history HistoryStore, index VectorIndex, session models.SessionID) (*ExportData, error) {
	entries, err := history.Read(ctx, session, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	data := &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().Format(time.RFC3339),
		Tool:       "docchat",
		SessionID:  session.String(),
		Entries:    make([]ExportEntry, 0, len(entries)),
	}
	for _, e := range entries {
		data.Entries = append(data.Entries, ExportEntry{
			Position:  e.Position,
			Role:      string(e.Role),
			Content:   e.Content,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}

	if index != nil {
		docs, err := index.ListDocuments(ctx, session)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		data.Documents = docs
	}

	return data, nil
}

// WriteYAML encodes data as YAML.
func WriteYAML(w io.Writer, data *ExportData) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// WriteMarkdown renders data as a readable transcript.
func WriteMarkdown(w io.Writer, data *ExportData) error {
	_, _ = fmt.Fprintf(w, "# Conversation %s\n\n", data.SessionID)
	_, _ = fmt.Fprintf(w, "Generated: %s\n\n", data.ExportedAt)

	if len(data.Documents) > 0 {
		_, _ = fmt.Fprintln(w, "## Documents")
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "| Document | Chunks | Ingested |")
		_, _ = fmt.Fprintln(w, "|----------|--------|----------|")
		for _, d := range data.Documents {
			name := d.DocumentName
			if name == "" {
				name = d.DocumentRef
			}
			_, _ = fmt.Fprintf(w, "| %s | %d | %s |\n", name, d.Chunks, d.IngestedAt.Format(time.RFC3339))
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintln(w, "## History")
	_, _ = fmt.Fprintln(w)
	if len(data.Entries) == 0 {
		_, err := fmt.Fprintln(w, "*No messages yet.*")
		return err
	}
	for _, e := range data.Entries {
		label := "User"
		if e.Role == string(models.RoleAssistant) {
			label = "Assistant"
		}
		if _, err := fmt.Fprintf(w, "**%s:** %s\n\n", label, e.Content); err != nil {
			return err
		}
	}
	return nil
}

// ExportToFile writes data to outputPath in the given format (yaml or markdown).
func ExportToFile(outputPath, format string, data *ExportData) error {
	write, err := exportWriter(format)
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputPath) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return write(file, data)
}

// Write renders data to w in the given format.
func Write(w io.Writer, format string, data *ExportData) error {
	write, err := exportWriter(format)
	if err != nil {
		return err
	}
	return write(w, data)
}

func exportWriter(format string) (func(io.Writer, *ExportData) error, error) {
	switch format {
	case "yaml", "yml":
		return WriteYAML, nil
	case "markdown", "md":
		return WriteMarkdown, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (use yaml or markdown)", format)
	}
}
