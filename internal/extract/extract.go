// ABOUTME: Extracts plain text from files handed to ingestion
// ABOUTME: PDF via ledongthuc/pdf; text and markdown are read as UTF-8
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Format is a supported input format
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

var (
	// ErrUnsupported is returned for file types that cannot be extracted
	ErrUnsupported = errors.New("unsupported document format")
	// ErrNoText is returned when a file yields no text
	ErrNoText = errors.New("no text extracted")
)

// Document is the text pulled out of one file
type Document struct {
	Name   string
	Format Format
	Text   string
}

// DetectFormat maps a file name to its format by extension
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".txt", ".text", "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(name))
	}
}

// File extracts the text of the file at path
func File(path string) (*Document, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)

	var text string
	switch format {
	case FormatPDF:
		text, err = pdfText(path)
	default:
		var data []byte
		data, err = os.ReadFile(path)
		if err == nil {
			text, err = plainText(data)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return finish(name, format, text)
}

// Reader extracts the text of r, using name to pick the format
func Reader(name string, r io.Reader) (*Document, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}

	var text string
	if format == FormatPDF {
		// The pdf library works with file paths.
		tmp, err := os.CreateTemp("", "docchat-*.pdf")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp file: %w", err)
		}
		defer func() { _ = os.Remove(tmp.Name()) }()
		if _, err := io.Copy(tmp, r); err != nil {
			_ = tmp.Close()
			return nil, fmt.Errorf("failed to save temp pdf: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return nil, err
		}
		text, err = pdfText(tmp.Name())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	} else {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		if text, err = plainText(data); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return finish(filepath.Base(name), format, text)
}

func finish(name string, format Format, text string) (*Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrNoText)
	}
	return &Document{Name: name, Format: format, Text: text}, nil
}

func plainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file is not valid UTF-8")
	}
	return string(data), nil
}

func pdfText(path string) (text string, err error) {
	// The pdf reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("failed to read pdf buffer: %w", err)
	}
	return buf.String(), nil
}
