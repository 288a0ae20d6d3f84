package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/codingassistant/assistant/internal/console"
	"github.com/codingassistant/assistant/pkg/server"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize assistant: %w", err)
	}
	defer srv.ShutdownFunc(context.Background())

	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".assistant_history")
	}
	rl, err := console.NewReadline(historyFile)
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	defer rl.Close()

	var renderer console.Renderer
	if md, err := console.NewMarkdownRenderer(100); err == nil {
		renderer = md
	} else {
		log.Warn().Err(err).Msg("Markdown rendering disabled")
	}

	return console.New(srv.Chat, rl, rl.Stdout(), renderer).Run(ctx)
}
