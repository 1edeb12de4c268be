package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

// historySize bounds the number of retained history entries.
const historySize = 500

// lineEditor supplies interactive input lines. Script lines bypass the
// editor entirely; it is only consulted when the script stack is empty.
type lineEditor interface {
	// ReadLine prompts and reads one line. It returns io.EOF when the
	// input source is exhausted.
	ReadLine(prompt string) (string, error)
	Close() error
}

// newEditor picks a readline editor when stdin is a terminal and a
// plain scanner otherwise (piped input, tests).
func newEditor(in io.Reader, historyFile string) (lineEditor, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return newReadlineEditor(historyFile)
	}
	return &scannerEditor{scanner: bufio.NewScanner(in)}, nil
}

// readlineEditor wraps ergochat/readline: emacs keybindings, persistent
// history, Ctrl-R search.
type readlineEditor struct {
	rl *readline.Instance
}

func newReadlineEditor(historyFile string) (*readlineEditor, error) {
	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:            historyFile,
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		return nil, fmt.Errorf("init readline: %w", err)
	}
	return &readlineEditor{rl: rl}, nil
}

func (e *readlineEditor) ReadLine(prompt string) (string, error) {
	e.rl.SetPrompt(prompt)
	line, err := e.rl.Readline()
	switch err {
	case nil:
		if line != "" {
			e.rl.SaveToHistory(line)
		}
		return line, nil
	case readline.ErrInterrupt:
		// Ctrl-C discards the current line, not the session.
		return "", nil
	default:
		return "", io.EOF
	}
}

func (e *readlineEditor) Close() error { return e.rl.Close() }

// scannerEditor reads lines without editing support.
type scannerEditor struct {
	scanner *bufio.Scanner
}

func (e *scannerEditor) ReadLine(prompt string) (string, error) {
	if !e.scanner.Scan() {
		if err := e.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return e.scanner.Text(), nil
}

func (e *scannerEditor) Close() error { return nil }
