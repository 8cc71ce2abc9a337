// ABOUTME: End-to-end tests running CLI commands against a temporary data directory
// ABOUTME: Embeddings use the hash embedder; chat talks to a fake OpenAI server

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

// setupCLI points the CLI at a fresh data dir and a fake chat endpoint answering with reply.
func setupCLI(t *testing.T, reply string) *atomic.Int32 {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{
				{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	}))
	t.Cleanup(srv.Close)

	t.Setenv("DOCCHAT_CONFIG", "")
	t.Setenv("DOCCHAT_SESSION", "")
	t.Setenv("DOCCHAT_DATA_DIR", t.TempDir())
	t.Setenv("DOCCHAT_HISTORY_BACKEND", "sqlite")
	t.Setenv("DOCCHAT_VECTOR_BACKEND", "sqlite")
	t.Setenv("DOCCHAT_PROVIDER", "openai")
	t.Setenv("DOCCHAT_EMBEDDER", "hash")
	t.Setenv("DOCCHAT_MAX_RETRIES", "0")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", srv.URL+"/v1")
	return &calls
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, logs bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCLI_IngestChatHistory(t *testing.T) {
	setupCLI(t, "She was born in 1815.")
	doc := writeFile(t, "ada.md", "# Ada\n\nAda Lovelace was born on 10 December 1815 in London.")

	out, err := runCLI(t, "", "ingest", "-s", "demo", doc)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !strings.Contains(out, "Indexed") {
		t.Errorf("ingest output = %q", out)
	}

	out, err = runCLI(t, "", "chat", "-s", "demo", "--sources", "When was Ada Lovelace born?")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.Contains(out, "She was born in 1815.") {
		t.Errorf("chat output = %q", out)
	}
	if !strings.Contains(out, "ada.md") {
		t.Errorf("chat --sources should list the document, got %q", out)
	}

	out, err = runCLI(t, "", "history", "-s", "demo", "--format", "json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("history is not JSON: %v\n%s", err, out)
	}
	if len(entries) != 2 || entries[0].Content != "When was Ada Lovelace born?" || entries[1].Role != "assistant" {
		t.Errorf("history = %+v", entries)
	}

	// Another session sees neither the document nor the conversation.
	out, err = runCLI(t, "", "history", "-s", "other")
	if err != nil {
		t.Fatalf("history other: %v", err)
	}
	if !strings.Contains(out, "No history") {
		t.Errorf("other session history = %q", out)
	}
	out, err = runCLI(t, "", "documents", "-s", "other")
	if err != nil {
		t.Fatalf("documents other: %v", err)
	}
	if !strings.Contains(out, "No documents") {
		t.Errorf("other session documents = %q", out)
	}
}

func TestCLI_IngestFromStdin(t *testing.T) {
	setupCLI(t, "ok")

	if _, err := runCLI(t, "Meeting notes: ship on Friday.", "ingest", "-s", "demo", "--ref", "meeting"); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	out, err := runCLI(t, "", "documents", "-s", "demo")
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if !strings.Contains(out, "meeting") || !strings.Contains(out, "Total: 1 document(s)") {
		t.Errorf("documents output = %q", out)
	}

	out, err = runCLI(t, "", "documents", "rm", "-s", "demo", "meeting")
	if err != nil {
		t.Fatalf("documents rm: %v", err)
	}
	if !strings.Contains(out, "Removed meeting") {
		t.Errorf("rm output = %q", out)
	}
}

func TestCLI_ChatLoop(t *testing.T) {
	calls := setupCLI(t, "Noted.")

	out, err := runCLI(t, "first question\n\n/exit\nnever asked\n", "chat", "-s", "demo")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if strings.Count(out, "Noted.") != 1 {
		t.Errorf("expected one answer, got %q", out)
	}
	// No history on the first turn, so the only model call is generation.
	if got := calls.Load(); got != 1 {
		t.Errorf("model calls = %d, want 1", got)
	}
}

func TestCLI_ResetAndExport(t *testing.T) {
	setupCLI(t, "An answer.")

	if _, err := runCLI(t, "", "chat", "-s", "demo", "A question?"); err != nil {
		t.Fatalf("chat: %v", err)
	}

	out, err := runCLI(t, "", "export", "-s", "demo", "--export-format", "markdown")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "A question?") || !strings.Contains(out, "An answer.") {
		t.Errorf("export = %q", out)
	}

	out, err = runCLI(t, "", "session", "list")
	if err != nil {
		t.Fatalf("session list: %v", err)
	}
	if !strings.Contains(out, "demo") {
		t.Errorf("session list = %q", out)
	}

	out, err = runCLI(t, "", "reset", "-s", "demo")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !strings.Contains(out, "2 history entries") {
		t.Errorf("reset output = %q", out)
	}

	out, err = runCLI(t, "", "history", "-s", "demo")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No history") {
		t.Errorf("history after reset = %q", out)
	}
}

func TestCLI_Errors(t *testing.T) {
	setupCLI(t, "unused")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"chat without session", []string{"chat", "hi"}, "DOCCHAT_SESSION"},
		{"blank question", []string{"chat", "-s", "demo", "   "}, "query is required"},
		{"unsupported file", []string{"ingest", "-s", "demo", "slides.pptx"}, "unsupported"},
		{"ref with many files", []string{"ingest", "-s", "demo", "--ref", "x", "a.txt", "b.txt"}, "single document"},
		{"negative limit", []string{"history", "-s", "demo", "--limit=-1"}, "negative"},
		{"bad export format", []string{"export", "-s", "demo", "--export-format", "csv"}, "unsupported export format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, "", tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestCLI_SessionNew(t *testing.T) {
	out, err := runCLI(t, "", "session", "new")
	if err != nil {
		t.Fatalf("session new: %v", err)
	}
	if id := strings.TrimSpace(out); len(id) != 36 {
		t.Errorf("session new = %q, want a UUID", id)
	}
}
