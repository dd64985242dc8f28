package main

import (
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"supportbot/internal/client"
	"supportbot/internal/logging"
	"supportbot/internal/tui"
)

var (
	chatServer  string
	chatLogFile string
	chatTimeout time.Duration
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the terminal chat client against a running query server",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatServer, "server", "http://localhost:8000", "Base URL of the query server")
	chatCmd.Flags().StringVar(&chatLogFile, "log-file", "", "Write client logs to this file (logs are discarded otherwise)")
	chatCmd.Flags().DurationVar(&chatTimeout, "timeout", 90*time.Second, "Per-question request timeout")
}

func runChat(cmd *cobra.Command, args []string) error {
	// The alternate screen owns the terminal, so logs go to a file or nowhere.
	if chatLogFile != "" {
		f, err := os.OpenFile(chatLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logging.Setup("debug", "json", f)
	} else {
		logging.Discard()
	}

	m := tui.New(client.New(chatServer, chatTimeout))
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
