// ABOUTME: Root command and global flags for the docchat CLI
// ABOUTME: Wires every subcommand and the verbose/quiet/format/config/session flags
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	configPath   string
	sessionID    string
)

const banner = `
 ██████╗  ██████╗  ██████╗ ██████╗██╗  ██╗ █████╗ ████████╗
 ██╔══██╗██╔═══██╗██╔════╝██╔════╝██║  ██║██╔══██╗╚══██╔══╝
 ██║  ██║██║   ██║██║     ██║     ███████║███████║   ██║
 ██║  ██║██║   ██║██║     ██║     ██╔══██║██╔══██║   ██║
 ██████╔╝╚██████╔╝╚██████╗╚██████╗██║  ██║██║  ██║   ██║
 ╚═════╝  ╚═════╝  ╚═════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docchat",
		Short: "Chat with your documents, one session at a time",
		Long: banner + `

Index PDF, Markdown and text files into a session and ask questions about them.
Follow-up questions are rewritten against the session's history before
retrieval, and every session keeps its own documents and conversation.

Configuration comes from a YAML file (--config or DOCCHAT_CONFIG), .env and
the environment. Set DOCCHAT_SESSION to avoid passing --session every time.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors and suppress progress output")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, text or json")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVarP(&sessionID, "session", "s", os.Getenv("DOCCHAT_SESSION"), "Session id (default $DOCCHAT_SESSION)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		NewIngestCmd(),
		NewChatCmd(),
		NewHistoryCmd(),
		NewDocumentsCmd(),
		NewResetCmd(),
		NewExportCmd(),
		NewSessionCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the CLI; SIGINT and SIGTERM cancel the command's context
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
