package render

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/set-night/mindchat/internal/domain"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	currentStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	attachStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("11"))
)

// View turns store state into terminal text.
type View struct {
	md  *Markdown
	loc *time.Location
}

func NewView(md *Markdown) *View {
	return &View{md: md, loc: time.Local}
}

// SessionList renders sessions in the given order, numbered from 1, with
// the current one marked.
func (v *View) SessionList(sessions []*domain.ChatSession, currentID string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Chats"))
	b.WriteByte('\n')
	for i, s := range sessions {
		marker := "  "
		label := s.Label()
		if s.ID == currentID {
			marker = "▸ "
			label = currentStyle.Render(label)
		}
		fmt.Fprintf(&b, "%s%2d. %s %s\n", marker, i+1, label,
			dimStyle.Render(fmt.Sprintf("(%d msgs, %s)", len(s.Messages), v.stamp(s.UpdatedAt))))
	}
	return strings.TrimRight(b.String(), "\n")
}

// History renders every message of a session.
func (v *View) History(s *domain.ChatSession) string {
	if len(s.Messages) == 0 {
		return dimStyle.Render(fmt.Sprintf("%s is empty. Say something.", s.Label()))
	}
	parts := make([]string, 0, len(s.Messages)+1)
	parts = append(parts, titleStyle.Render(s.Label()))
	for _, m := range s.Messages {
		parts = append(parts, v.Message(m))
	}
	return strings.Join(parts, "\n\n")
}

func (v *View) Message(m domain.SessionMessage) string {
	var b strings.Builder

	who := userStyle.Render("You")
	if m.Sender == domain.SenderAssistant {
		who = assistantStyle.Render("Assistant")
	}
	b.WriteString(who)
	b.WriteString(dimStyle.Render(" · " + v.stamp(m.Timestamp)))

	for _, img := range m.Images {
		b.WriteByte('\n')
		b.WriteString(attachStyle.Render(fmt.Sprintf("[image: %s]", img.Name)))
	}

	if m.Text != "" {
		b.WriteByte('\n')
		if m.Sender == domain.SenderAssistant {
			b.WriteString(v.md.Render(m.Text))
		} else {
			b.WriteString(m.Text)
		}
	}
	return b.String()
}

// Error renders a failure as its own entry in the conversation.
func (v *View) Error(err error) string {
	return errorStyle.Render("Error: ") + ErrorMessage(err)
}

// Staged lists attachments waiting for the next message.
func (v *View) Staged(atts []domain.Attachment) string {
	if len(atts) == 0 {
		return dimStyle.Render("No images attached.")
	}
	var b strings.Builder
	for i, a := range atts {
		fmt.Fprintf(&b, "%2d. %s %s\n", i+1, a.Name, dimStyle.Render(fmt.Sprintf("(%s, %s)", a.MediaType, humanSize(len(a.Data)))))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *View) Notice(msg string) string {
	return dimStyle.Render(msg)
}

func (v *View) stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	t = t.In(v.loc)
	if y, m, d := time.Now().In(v.loc).Date(); t.Year() == y && t.Month() == m && t.Day() == d {
		return t.Format("15:04")
	}
	return t.Format("Jan 2 15:04")
}

// ErrorMessage is the user-facing text for err.
func ErrorMessage(err error) string {
	var re *domain.RelayError
	switch {
	case errors.As(err, &re):
		return re.Message
	case errors.Is(err, domain.ErrUnsupportedType):
		return "Only image files can be attached."
	case errors.Is(err, domain.ErrAttachmentTooLarge):
		return "That image is too large."
	case errors.Is(err, domain.ErrEmptyRequest):
		return "Type a message or attach an image first."
	case errors.Is(err, domain.ErrSendInProgress):
		return "Still waiting for the previous reply."
	case errors.Is(err, domain.ErrLastSession):
		return "You can't delete the only chat."
	case errors.Is(err, domain.ErrSessionNotFound):
		return "No such chat."
	}
	return err.Error()
}

func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
