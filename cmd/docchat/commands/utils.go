// ABOUTME: Shared utility functions for CLI commands
// ABOUTME: App construction from flags and config, session resolution and output helpers
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/harper/docchat/internal/app"
	"github.com/harper/docchat/internal/config"
	"github.com/harper/docchat/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// openApp loads configuration and opens the stores; providers are created on demand
func openApp(cmd *cobra.Command) (*app.App, error) {
	// Load .env for API keys
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.LogLevel
	switch {
	case verbose:
		level = "debug"
	case quiet:
		level = "error"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: cfg.LogFormat, Output: cmd.ErrOrStderr()})
	if err != nil {
		return nil, err
	}

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return a, nil
}

// requireSession returns the --session value or an error explaining how to set it
func requireSession() (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("a session is required: pass --session or set DOCCHAT_SESSION")
	}
	return sessionID, nil
}

func jsonOutput() bool {
	return outputFormat == "json"
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatTime formats a time for display
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	if diff < time.Minute {
		return "just now"
	} else if diff < time.Hour {
		mins := int(diff.Minutes())
		return fmt.Sprintf("%dm ago", mins)
	} else if diff < 24*time.Hour {
		hours := int(diff.Hours())
		return fmt.Sprintf("%dh ago", hours)
	} else if diff < 7*24*time.Hour {
		days := int(diff.Hours() / 24)
		return fmt.Sprintf("%dd ago", days)
	}
	return t.Format("2006-01-02")
}
