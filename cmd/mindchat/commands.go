package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/set-night/mindchat/internal/domain"
)

func sendCmd(f *flags) *cobra.Command {
	var (
		images  []string
		newChat bool
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send one message and print the reply",
		Long: `Send one message to the current chat and print the reply.

Examples:
  mindchat send "What is a goroutine?"
  mindchat send -i diagram.png "Explain this"
  mindchat send --new -i receipt.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return withApp(cmd, *f, func(ctx context.Context, a *app) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
				defer stop()

				if newChat {
					a.sessions.CreateSession()
				}
				if len(images) > 0 {
					if err := a.attachments.StageFiles(ctx, images...); err != nil {
						return err
					}
				}
				reply, err := a.chat.Send(ctx, text)
				if err != nil {
					return err
				}
				fmt.Println(a.view.Message(*reply))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&images, "image", "i", nil, "attach an image (repeatable)")
	cmd.Flags().BoolVar(&newChat, "new", false, "start a new chat first")
	return cmd
}

func sessionsCmd(f *flags) *cobra.Command {
	var (
		show   string
		remove string
	)

	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls"},
		Short:   "List saved chats",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *f, func(ctx context.Context, a *app) error {
				switch {
				case show != "":
					s, err := findSession(a, show)
					if err != nil {
						return err
					}
					fmt.Println(a.view.History(s))
				case remove != "":
					s, err := findSession(a, remove)
					if err != nil {
						return err
					}
					if err := a.sessions.DeleteSession(s.ID); err != nil {
						return err
					}
					fmt.Println(a.view.Notice("Deleted " + s.Label()))
				default:
					fmt.Println(a.view.SessionList(a.sessions.Sessions(), a.sessions.CurrentID()))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&show, "show", "", "print the chat with this id prefix")
	cmd.Flags().StringVar(&remove, "delete", "", "delete the chat with this id prefix")
	return cmd
}

func findSession(a *app, prefix string) (*domain.ChatSession, error) {
	var found *domain.ChatSession
	for _, s := range a.sessions.Sessions() {
		if strings.HasPrefix(s.ID, prefix) {
			if found != nil {
				return nil, fmt.Errorf("%q matches more than one chat", prefix)
			}
			found = s
		}
	}
	if found == nil {
		return nil, domain.ErrSessionNotFound
	}
	return found, nil
}

func healthCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the relay is up and has an API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *f, func(ctx context.Context, a *app) error {
				h, err := a.relay.Health(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("status: %s\napi key configured: %t\nchecked at: %s\n",
					h.Status, h.APIKeyConfigured, h.Timestamp.Format("2006-01-02 15:04:05"))
				if !h.APIKeyConfigured {
					return errors.New("relay has no provider API key")
				}
				return nil
			})
		},
	}
}

func modelsCmd(f *flags) *cobra.Command {
	var vision bool

	cmd := &cobra.Command{
		Use:   "models [query]",
		Short: "List models the relay can reach",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *f, func(ctx context.Context, a *app) error {
				models, err := a.relay.Models(ctx)
				if err != nil {
					return err
				}
				query := ""
				if len(args) > 0 {
					query = strings.ToLower(args[0])
				}
				for _, m := range models {
					if vision && !m.Capabilities.Vision {
						continue
					}
					if query != "" && !strings.Contains(strings.ToLower(m.ID+" "+m.Name), query) {
						continue
					}
					price := "free"
					if !m.IsFree() {
						price = m.PromptPrice.StringFixed(2) + "/" + m.CompletionPrice.StringFixed(2)
					}
					fmt.Printf("%-50s %-12s %d\n", m.ID, price, m.ContextLength)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&vision, "vision", false, "only models that accept images")
	return cmd
}
