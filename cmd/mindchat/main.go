// Command mindchat is a terminal chat client for the mindchat relay.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/set-night/mindchat/internal/client"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/console"
	"github.com/set-night/mindchat/internal/render"
	"github.com/set-night/mindchat/internal/repository"
	"github.com/set-night/mindchat/internal/service"
)

type flags struct {
	relay       string
	storeDriver string
	storePath   string
	plain       bool
}

// app is the wired client shared by every subcommand.
type app struct {
	sessions    *service.SessionStore
	attachments *service.AttachmentManager
	relay       *client.RelayClient
	chat        *service.ChatService
	view        *render.View
}

func main() {
	var f flags

	rootCmd := &cobra.Command{
		Use:   "mindchat",
		Short: "Chat with an LLM through the mindchat relay",
		Long: `mindchat keeps a list of chats on disk and talks to the relay.

Usage modes:
  mindchat                 Start the interactive chat
  mindchat send <message>  Send one message to the current chat
  mindchat sessions        List saved chats

Environment:
  MINDCHAT_RELAY_URL, MINDCHAT_STORE_DRIVER, MINDCHAT_STORE_PATH, LOG_LEVEL`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, f, runInteractive)
		},
	}

	rootCmd.PersistentFlags().StringVar(&f.relay, "relay", "", "relay base URL (overrides MINDCHAT_RELAY_URL)")
	rootCmd.PersistentFlags().StringVar(&f.storeDriver, "store-driver", "", "session store: file or sqlite")
	rootCmd.PersistentFlags().StringVar(&f.storePath, "store-path", "", "session store location")
	rootCmd.PersistentFlags().BoolVar(&f.plain, "plain", false, "disable colors and markdown styling")

	rootCmd.AddCommand(
		sendCmd(&f),
		sessionsCmd(&f),
		healthCmd(&f),
		modelsCmd(&f),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", render.ErrorMessage(err))
		os.Exit(1)
	}
}

func loadConfig(f flags) (*config.ClientConfig, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}
	if f.relay != "" {
		cfg.RelayURL = f.relay
	}
	if f.storeDriver != "" {
		cfg.StoreDriver = f.storeDriver
	}
	if f.storePath != "" {
		cfg.StorePath = f.storePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func withApp(cmd *cobra.Command, f flags, run func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	path, err := cfg.ResolveStorePath()
	if err != nil {
		return err
	}
	kv := repository.OpenOrMemory(cfg.StoreDriver, path)
	defer func() {
		if err := repository.Close(kv); err != nil {
			slog.Warn("close store", "error", err)
		}
	}()
	slog.Debug("session store opened", "driver", cfg.StoreDriver, "path", path)

	sessions := service.NewSessionStore(repository.NewSessionRepository(kv))
	sessions.Load()
	attachments := service.NewAttachmentManager()
	relay := client.NewRelayClient(cfg.RelayURL)

	styled := !f.plain && term.IsTerminal(int(os.Stdout.Fd()))

	a := &app{
		sessions:    sessions,
		attachments: attachments,
		relay:       relay,
		chat:        service.NewChatService(sessions, attachments, relay),
		view:        render.NewView(render.NewMarkdown(config.RenderWordWrap, styled)),
	}
	return run(cmd.Context(), a)
}

func runInteractive(ctx context.Context, a *app) error {
	c := console.New(console.Deps{
		Sessions:    a.sessions,
		Attachments: a.attachments,
		Chat:        a.chat,
		Relay:       a.relay,
		View:        a.view,
		Out:         os.Stdout,
	})

	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, config.DefaultStoreDir, config.HistoryFileName)
	}
	lr := console.NewLiner(historyFile)
	defer lr.Close()

	return c.Run(ctx, lr)
}
