// ABOUTME: Tests for document text extraction
// ABOUTME: Covers format detection, UTF-8 handling and malformed PDFs
package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"notes.txt", FormatText, false},
		{"README", FormatText, false},
		{"guide.MD", FormatMarkdown, false},
		{"guide.markdown", FormatMarkdown, false},
		{"paper.pdf", FormatPDF, false},
		{"sheet.xlsx", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupported) {
					t.Fatalf("expected ErrUnsupported, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectFormat(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestFile_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ada.md")
	content := "\xef\xbb\xbf# Ada\n\nAda Lovelace was born in 1815."
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := File(path)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	if doc.Name != "ada.md" {
		t.Errorf("expected name ada.md, got %q", doc.Name)
	}
	if doc.Format != FormatMarkdown {
		t.Errorf("expected markdown, got %q", doc.Format)
	}
	if !strings.HasPrefix(doc.Text, "# Ada") {
		t.Errorf("expected BOM stripped, got %q", doc.Text[:8])
	}
}

func TestFile_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	if _, err := File(write("blank.txt", []byte("  \n\t "))); !errors.Is(err, ErrNoText) {
		t.Errorf("expected ErrNoText, got %v", err)
	}
	if _, err := File(write("binary.txt", []byte{0xff, 0xfe, 0xfd})); err == nil {
		t.Error("expected error for invalid UTF-8")
	}
	if _, err := File(write("broken.pdf", []byte("%PDF-1.4 not really a pdf"))); err == nil {
		t.Error("expected error for malformed pdf")
	}
	if _, err := File(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReader(t *testing.T) {
	doc, err := Reader("dir/notes.txt", strings.NewReader("plain words"))
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	if doc.Name != "notes.txt" || doc.Text != "plain words" || doc.Format != FormatText {
		t.Errorf("unexpected document: %+v", doc)
	}

	if _, err := Reader("upload.pdf", strings.NewReader("garbage")); err == nil {
		t.Error("expected error for malformed pdf upload")
	}
	if _, err := Reader("image.png", strings.NewReader("x")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}
