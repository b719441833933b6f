// Package screen decides what the user sees and holds the transient UI
// state behind it. It has no rendering code: the GUI and the CLI both draw
// from the same Controller.
package screen

import (
	"github.com/oukeidos/kamekai/internal/session"
	"github.com/oukeidos/kamekai/internal/translation"
)

type Screen int

const (
	ScreenHome Screen = iota
	ScreenAuth
	ScreenLoading
	ScreenResult
	ScreenError
)

func (s Screen) String() string {
	switch s {
	case ScreenHome:
		return "home"
	case ScreenAuth:
		return "auth"
	case ScreenLoading:
		return "loading"
	case ScreenResult:
		return "result"
	case ScreenError:
		return "error"
	default:
		return "unknown"
	}
}

// Inputs is everything routing depends on.
type Inputs struct {
	Session   session.Status
	Pipeline  translation.Status
	ShowAuth  bool
	Submitted bool
}

// Route picks the screen for in. It is pure.
func Route(in Inputs) Screen {
	switch {
	case in.ShowAuth:
		return ScreenAuth
	case in.Session != session.StatusAuthenticated:
		return ScreenAuth
	case !in.Submitted:
		return ScreenHome
	case in.Pipeline == translation.StatusSuccess:
		return ScreenResult
	case in.Pipeline == translation.StatusError:
		return ScreenError
	default:
		return ScreenLoading
	}
}
