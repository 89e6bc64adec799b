package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for CodeWatcher.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codewatcher",
		Short: "Code review reports from a CodeWatcher analysis backend",
		Long: `CodeWatcher requests static analysis and security checks of a Git repository
from a CodeWatcher backend and renders the result as a review report.

The backend URL defaults to http://localhost:8000 and can be changed with
--server, the CODEWATCHER_SERVER_URL environment variable, or the
configuration file (see 'codewatcher init').`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .codewatcher in current or home directory)")
	cmd.PersistentFlags().StringP("server", "s", "",
		"Analysis backend base URL (overrides configuration)")

	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewRenderCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewDashboardCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
