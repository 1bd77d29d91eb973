package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// IsBalanced checks that code fences and inline code spans are closed.
func IsBalanced(text string) bool {
	if strings.Count(text, "```")%2 != 0 {
		return false
	}

	inlineCodeCount := 0
	inCodeBlock := false
	for i := 0; i < len(text); i++ {
		if i+2 < len(text) && text[i:i+3] == "```" {
			inCodeBlock = !inCodeBlock
			i += 2
			continue
		}
		if !inCodeBlock && text[i] == '`' {
			inlineCodeCount++
		}
	}
	return inlineCodeCount%2 == 0
}

// FixMarkdown closes dangling code fences and inline code spans so a
// truncated model reply still renders.
func FixMarkdown(text string) string {
	if strings.Count(text, "```")%2 != 0 {
		text += "\n```"
	}
	return fixInlineCode(text)
}

func fixInlineCode(text string) string {
	var builder strings.Builder
	inCodeBlock := false
	inlineOpen := false

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && string(runes[i:i+3]) == "```" {
			if inlineOpen {
				builder.WriteRune('`')
				inlineOpen = false
			}
			inCodeBlock = !inCodeBlock
			builder.WriteString("```")
			i += 2
			continue
		}

		if !inCodeBlock && runes[i] == '`' {
			inlineOpen = !inlineOpen
		}

		builder.WriteRune(runes[i])
	}

	if inlineOpen {
		builder.WriteRune('`')
	}

	return builder.String()
}

// Markdown renders assistant replies. With styling off, or if glamour can't
// be set up, text passes through unchanged apart from FixMarkdown.
type Markdown struct {
	renderer *glamour.TermRenderer
}

func NewMarkdown(wordWrap int, styled bool) *Markdown {
	if !styled {
		return &Markdown{}
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return &Markdown{}
	}
	return &Markdown{renderer: r}
}

func (m *Markdown) Render(text string) string {
	text = FixMarkdown(text)
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
