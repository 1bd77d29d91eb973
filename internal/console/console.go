package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/render"
	"github.com/set-night/mindchat/internal/service"
)

// RelayInfo is the informational side of the relay.
type RelayInfo interface {
	Health(ctx context.Context) (*domain.HealthStatus, error)
	Models(ctx context.Context) ([]domain.AIModel, error)
}

type command struct {
	usage string
	help  string
	run   func(c *Console, ctx context.Context, args string) (quit bool, err error)
}

// commands is filled in init because /help reads it.
var commands map[string]command

func init() {
	commands = map[string]command{
		"/new":      {"/new", "start a new chat", (*Console).cmdNew},
		"/list":     {"/list", "list chats, most recent first", (*Console).cmdList},
		"/switch":   {"/switch <n|id>", "switch to a chat", (*Console).cmdSwitch},
		"/delete":   {"/delete [n|id]", "delete a chat (default: current)", (*Console).cmdDelete},
		"/rename":   {"/rename <title>", "rename the current chat", (*Console).cmdRename},
		"/attach":   {"/attach <path>...", "stage images for the next message", (*Console).cmdAttach},
		"/unattach": {"/unattach <n>", "remove a staged image", (*Console).cmdUnattach},
		"/staged":   {"/staged", "show staged images", (*Console).cmdStaged},
		"/clear":    {"/clear", "drop all staged images", (*Console).cmdClear},
		"/history":  {"/history", "show the current chat", (*Console).cmdHistory},
		"/models":   {"/models [query]", "list models available on the relay", (*Console).cmdModels},
		"/health":   {"/health", "check the relay", (*Console).cmdHealth},
		"/help":     {"/help", "show this help", (*Console).cmdHelp},
		"/quit":     {"/quit", "exit", (*Console).cmdQuit},
	}
	commands["/chats"] = commands["/list"]
	commands["/exit"] = commands["/quit"]
}

var commandNames = []string{
	"/new", "/list", "/switch", "/delete", "/rename",
	"/attach", "/unattach", "/staged", "/clear", "/history",
	"/models", "/health", "/help", "/quit",
}

// Console is the interactive chat front end.
type Console struct {
	sessions    *service.SessionStore
	attachments *service.AttachmentManager
	chat        *service.ChatService
	relay       RelayInfo
	view        *render.View
	out         io.Writer
}

type Deps struct {
	Sessions    *service.SessionStore
	Attachments *service.AttachmentManager
	Chat        *service.ChatService
	Relay       RelayInfo
	View        *render.View
	Out         io.Writer
}

func New(deps Deps) *Console {
	c := &Console{
		sessions:    deps.Sessions,
		attachments: deps.Attachments,
		chat:        deps.Chat,
		relay:       deps.Relay,
		view:        deps.View,
		out:         deps.Out,
	}
	c.sessions.OnSwitch(func(s *domain.ChatSession) {
		c.println(c.view.History(s))
	})
	return c
}

// Run reads lines until /quit, EOF or Ctrl+C at the prompt. Ctrl+C while a
// reply is pending cancels only that request.
func (c *Console) Run(ctx context.Context, lr LineReader) error {
	if cur, err := c.sessions.CurrentSession(); err == nil {
		c.println(c.view.History(cur))
	}
	c.println(c.view.Notice("Type /help for commands."))

	for {
		line, err := lr.Prompt(c.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if strings.TrimSpace(line) != "" {
			lr.AppendHistory(line)
		}

		lineCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		quit := c.Execute(lineCtx, line)
		stop()
		if quit || ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Console) prompt() string {
	if n := c.attachments.Len(); n > 0 {
		return fmt.Sprintf("you [%d img]> ", n)
	}
	return "you> "
}

// Execute handles one input line and reports whether the user asked to quit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if !strings.HasPrefix(line, "/") {
		c.send(ctx, line)
		return false
	}

	name, args, _ := strings.Cut(line, " ")
	cmd, ok := commands[strings.ToLower(name)]
	if !ok {
		c.println(c.view.Error(fmt.Errorf("unknown command %s, try /help", name)))
		return false
	}
	quit, err := cmd.run(c, ctx, strings.TrimSpace(args))
	if err != nil {
		c.println(c.view.Error(err))
	}
	return quit
}

func (c *Console) send(ctx context.Context, text string) {
	reply, err := c.chat.Send(ctx, text)
	if err != nil {
		c.println(c.view.Error(err))
		return
	}
	c.println(c.view.Message(*reply))
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

// resolveSession accepts a 1-based position in the /list order or an ID
// prefix.
func (c *Console) resolveSession(arg string) (string, error) {
	list := c.sessions.Sessions()
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(list) {
			return "", domain.ErrSessionNotFound
		}
		return list[n-1].ID, nil
	}

	var match string
	for _, s := range list {
		if strings.HasPrefix(s.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("%q matches more than one chat", arg)
			}
			match = s.ID
		}
	}
	if match == "" {
		return "", domain.ErrSessionNotFound
	}
	return match, nil
}

func (c *Console) cmdNew(ctx context.Context, _ string) (bool, error) {
	c.sessions.CreateSession()
	return false, nil
}

func (c *Console) cmdList(ctx context.Context, _ string) (bool, error) {
	c.println(c.view.SessionList(c.sessions.Sessions(), c.sessions.CurrentID()))
	return false, nil
}

func (c *Console) cmdSwitch(ctx context.Context, args string) (bool, error) {
	if args == "" {
		return false, errors.New("usage: /switch <n|id>")
	}
	id, err := c.resolveSession(args)
	if err != nil {
		return false, err
	}
	return false, c.sessions.SwitchSession(id)
}

func (c *Console) cmdDelete(ctx context.Context, args string) (bool, error) {
	id := c.sessions.CurrentID()
	if args != "" {
		var err error
		if id, err = c.resolveSession(args); err != nil {
			return false, err
		}
	}
	if err := c.sessions.DeleteSession(id); err != nil {
		return false, err
	}
	c.println(c.view.Notice("Chat deleted."))
	return false, nil
}

func (c *Console) cmdRename(ctx context.Context, args string) (bool, error) {
	if args == "" {
		return false, errors.New("usage: /rename <title>")
	}
	if err := c.sessions.RenameSession(c.sessions.CurrentID(), args); err != nil {
		return false, err
	}
	c.println(c.view.Notice("Renamed to " + args))
	return false, nil
}

func (c *Console) cmdAttach(ctx context.Context, args string) (bool, error) {
	paths := strings.Fields(args)
	if len(paths) == 0 {
		return false, errors.New("usage: /attach <path>...")
	}
	err := c.attachments.StageFiles(ctx, paths...)
	c.println(c.view.Staged(c.attachments.Staged()))
	return false, err
}

func (c *Console) cmdUnattach(ctx context.Context, args string) (bool, error) {
	n, err := strconv.Atoi(args)
	if err != nil {
		return false, errors.New("usage: /unattach <n>")
	}
	c.attachments.Unstage(n - 1)
	c.println(c.view.Staged(c.attachments.Staged()))
	return false, nil
}

func (c *Console) cmdStaged(ctx context.Context, _ string) (bool, error) {
	c.println(c.view.Staged(c.attachments.Staged()))
	return false, nil
}

func (c *Console) cmdClear(ctx context.Context, _ string) (bool, error) {
	c.attachments.Clear()
	c.println(c.view.Notice("Attachments cleared."))
	return false, nil
}

func (c *Console) cmdHistory(ctx context.Context, _ string) (bool, error) {
	cur, err := c.sessions.CurrentSession()
	if err != nil {
		return false, err
	}
	c.println(c.view.History(cur))
	return false, nil
}

func (c *Console) cmdModels(ctx context.Context, args string) (bool, error) {
	models, err := c.relay.Models(ctx)
	if err != nil {
		return false, err
	}
	query := strings.ToLower(args)
	var b strings.Builder
	for _, m := range models {
		if query != "" && !strings.Contains(strings.ToLower(m.ID+" "+m.Name), query) {
			continue
		}
		fmt.Fprintf(&b, "%s  %s\n", m.ID, c.view.Notice(modelSummary(m)))
	}
	if b.Len() == 0 {
		c.println(c.view.Notice("No models found."))
		return false, nil
	}
	c.println(strings.TrimRight(b.String(), "\n"))
	return false, nil
}

func modelSummary(m domain.AIModel) string {
	price := "free"
	if !m.IsFree() {
		price = fmt.Sprintf("$%s/$%s per 1M", m.PromptPrice.StringFixed(2), m.CompletionPrice.StringFixed(2))
	}
	vision := ""
	if m.Capabilities.Vision {
		vision = ", vision"
	}
	return fmt.Sprintf("(%s, %dk ctx%s)", price, m.ContextLength/1000, vision)
}

func (c *Console) cmdHealth(ctx context.Context, _ string) (bool, error) {
	h, err := c.relay.Health(ctx)
	if err != nil {
		return false, err
	}
	key := "configured"
	if !h.APIKeyConfigured {
		key = "MISSING"
	}
	c.println(c.view.Notice(fmt.Sprintf("relay %s, API key %s", h.Status, key)))
	return false, nil
}

func (c *Console) cmdHelp(ctx context.Context, _ string) (bool, error) {
	var b strings.Builder
	for _, name := range commandNames {
		cmd := commands[name]
		fmt.Fprintf(&b, "%-20s %s\n", cmd.usage, c.view.Notice(cmd.help))
	}
	b.WriteString(c.view.Notice("Anything else is sent as a message with the staged images."))
	c.println(b.String())
	return false, nil
}

func (c *Console) cmdQuit(ctx context.Context, _ string) (bool, error) {
	return true, nil
}
