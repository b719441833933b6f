package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// MaxTextBytes caps text read from stdin for a single translation.
const MaxTextBytes = 64 * 1024

type Confirmer struct {
	In            io.Reader
	Out           io.Writer
	IsInteractive func() bool
}

func DefaultConfirmer() Confirmer {
	return Confirmer{
		In:  os.Stdin,
		Out: os.Stderr,
		IsInteractive: func() bool {
			info, err := os.Stdin.Stat()
			if err != nil {
				return false
			}
			return (info.Mode() & os.ModeCharDevice) != 0
		},
	}
}

func (c Confirmer) interactive() bool {
	return c.IsInteractive != nil && c.IsInteractive()
}

// Confirm asks a yes/no question. assumeYes skips the prompt; a
// non-interactive stdin is an error rather than an implicit answer.
func (c Confirmer) Confirm(question string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if !c.interactive() {
		return false, fmt.Errorf("non-interactive stdin: use -y to confirm")
	}
	if c.Out != nil {
		fmt.Fprintf(c.Out, "%s (y/n): ", question)
	}
	reader := bufio.NewReader(c.In)
	response, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}

// ReadText reads the text to translate until EOF. On a terminal the user
// is told how to finish.
func (c Confirmer) ReadText() (string, error) {
	if c.interactive() && c.Out != nil {
		fmt.Fprintln(c.Out, "Enter text to translate, then press Ctrl-D (Ctrl-Z on Windows):")
	}
	data, err := io.ReadAll(io.LimitReader(c.In, MaxTextBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxTextBytes {
		return "", fmt.Errorf("input is too long (limit %d bytes)", MaxTextBytes)
	}
	return string(data), nil
}
