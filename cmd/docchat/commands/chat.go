// ABOUTME: CLI command to ask questions within a session
// ABOUTME: One-shot with an argument, otherwise an interactive prompt on stdin
package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/harper/docchat/internal/core"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	sourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

type chatOptions struct {
	showSources bool
}

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask questions about a session's documents",
		Long: `Ask questions about the documents indexed in a session.

With a question argument, chat answers once and exits. Without one it starts
an interactive prompt; type /exit or press Ctrl-D to leave. Follow-up
questions such as "when was she born?" are rewritten into standalone
questions using the session history before searching.

Examples:
  docchat chat --session demo "Who was Ada Lovelace?"
  docchat chat -s demo --sources
  docchat chat -s demo --format json "What changed in v2?"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.showSources, "sources", false, "Show the passages each answer was based on")

	return cmd
}

func runChat(cmd *cobra.Command, opts *chatOptions, args []string) error {
	session, err := requireSession()
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	orchestrator, err := a.Orchestrator()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		result, err := orchestrator.Chat(cmd.Context(), session, args[0])
		if err != nil {
			return err
		}
		return printAnswer(cmd.OutOrStdout(), result, opts.showSources)
	}
	return chatLoop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), orchestrator, session, opts)
}

func chatLoop(ctx context.Context, in io.Reader, out io.Writer, orchestrator *core.Orchestrator, session string, opts *chatOptions) error {
	if !quiet && !jsonOutput() {
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("session %s · /exit to quit", session)))
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if !jsonOutput() {
			fmt.Fprint(out, promptStyle.Render("you› "))
		}
		if !scanner.Scan() {
			if !jsonOutput() {
				fmt.Fprintln(out)
			}
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		}

		result, err := orchestrator.Chat(ctx, session, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A failed turn leaves no trace in history; the next question starts clean.
			fmt.Fprintln(out, errorStyle.Render("error: ")+err.Error())
			continue
		}
		if err := printAnswer(out, result, opts.showSources); err != nil {
			return err
		}
	}
}

func printAnswer(out io.Writer, result *core.ChatResult, showSources bool) error {
	if jsonOutput() {
		return writeJSON(out, result)
	}

	if result.Rewritten && verbose {
		fmt.Fprintln(out, mutedStyle.Render("↳ "+result.StandaloneQuery))
	}
	fmt.Fprintln(out, result.Answer)

	if showSources {
		for i, src := range result.Sources {
			label := src.DocumentRef
			if src.DocumentName != "" {
				label = src.DocumentName
			}
			fmt.Fprintln(out, sourceStyle.Render(fmt.Sprintf("  [%d] %s #%d (%.2f)", i+1, label, src.SequenceIndex, src.Score)),
				mutedStyle.Render(truncate(strings.Join(strings.Fields(src.Text), " "), 80)))
		}
		if len(result.Sources) == 0 {
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("  no sources (%s)", result.ContextStatus)))
		}
	}

	if result.PersistErr != nil {
		fmt.Fprintln(out, warnStyle.Render("warning: this exchange was not saved to history: "+result.PersistErr.Error()))
	}
	return nil
}
