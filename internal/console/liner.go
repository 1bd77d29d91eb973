package console

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

// LineReader is the prompt the REPL reads from.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// Liner is a LineReader with line editing and a persistent history file.
type Liner struct {
	state       *liner.State
	historyFile string
}

func NewLiner(historyFile string) *Liner {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(completeCommand)

	l := &Liner{state: state, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		state.ReadHistory(f)
		f.Close()
	}
	return l
}

func (l *Liner) Prompt(prompt string) (string, error) {
	return l.state.Prompt(prompt)
}

func (l *Liner) AppendHistory(item string) {
	l.state.AppendHistory(item)
}

// Close saves the history and restores the terminal.
func (l *Liner) Close() error {
	if l.historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(l.historyFile), 0o700); err == nil {
			if f, err := os.OpenFile(l.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
				l.state.WriteHistory(f)
				f.Close()
			}
		}
	}
	return l.state.Close()
}

func completeCommand(line string) []string {
	if !strings.HasPrefix(line, "/") || strings.Contains(line, " ") {
		return nil
	}
	var out []string
	for _, name := range commandNames {
		if strings.HasPrefix(name, line) {
			out = append(out, name)
		}
	}
	return out
}
