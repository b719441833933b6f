// Package browser opens URLs in the user's default browser.
package browser

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// command returns the platform opener for url.
func command(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}

// Opener launches the platform opener and, if that fails or is disabled,
// prints the URL for the user to open by hand.
type Opener struct {
	Out      io.Writer
	Disabled bool
	run      func(name string, args ...string) error
}

func New(out io.Writer, disabled bool) *Opener {
	return &Opener{Out: out, Disabled: disabled, run: start}
}

func start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func (o *Opener) Open(url string) error {
	if !o.Disabled && o.run != nil {
		name, args := command(runtime.GOOS, url)
		if err := o.run(name, args...); err == nil {
			return nil
		}
	}
	if o.Out == nil {
		return fmt.Errorf("could not open a browser")
	}
	_, err := fmt.Fprintf(o.Out, "Open this URL in your browser:\n\n  %s\n\n", url)
	return err
}
