package translation

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/oukeidos/kamekai/internal/apperrors"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is a snapshot of the pipeline. Response is set only on success,
// Err and Message only on error.
type State struct {
	Status   Status
	Response *Response
	Err      error
	Message  string
}

// Translator performs the outbound call. *Client implements it.
type Translator interface {
	Translate(ctx context.Context, credential, text string) (*Response, error)
}

// Pipeline drives one translation submission at a time through
// Idle -> Loading -> Success|Error.
type Pipeline struct {
	translator Translator

	mu         sync.Mutex
	state      State
	generation uint64
	observers  []func(State)
}

func NewPipeline(t Translator) *Pipeline {
	return &Pipeline{translator: t}
}

// OnChange registers fn to be called after every state transition.
func (p *Pipeline) OnChange(fn func(State)) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	p.observers = append(p.observers, fn)
	p.mu.Unlock()
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Reset returns to Idle. A request still in flight resolves into nothing.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.generation++
	p.state = State{Status: StatusIdle}
	st := p.state
	observers := p.observers
	p.mu.Unlock()
	notify(observers, st)
}

// Submit starts a submission and returns a channel that yields its outcome once.
// Blank text leaves the state untouched; a blank credential fails without I/O.
func (p *Pipeline) Submit(ctx context.Context, text, credential string) <-chan State {
	done := make(chan State, 1)

	if strings.TrimSpace(text) == "" {
		done <- p.State()
		close(done)
		return done
	}

	if strings.TrimSpace(credential) == "" {
		err := apperrors.CredentialMissing()
		st := errorState(err)
		gen := p.begin(st)
		slog.Warn("Translation blocked", "reason", "no credential", "generation", gen)
		done <- st
		close(done)
		return done
	}

	translator := p.translator
	gen := p.begin(State{Status: StatusLoading})
	slog.Info("Translation requested", "runes", utf8.RuneCountInString(text), "generation", gen)

	go func() {
		defer close(done)
		resp, err := translator.Translate(ctx, credential, text)
		st := State{Status: StatusSuccess, Response: resp}
		if err != nil {
			st = errorState(err)
			kind, _ := apperrors.KindOf(err)
			slog.Warn("Translation failed", "kind", kind, "error", err, "generation", gen)
		} else if resp == nil {
			st = errorState(apperrors.Protocol("", nil))
		}
		if !p.apply(gen, st) {
			slog.Debug("Discarding stale translation result", "generation", gen, "status", st.Status.String())
		}
		done <- st
	}()
	return done
}

func (p *Pipeline) begin(st State) uint64 {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.state = st
	observers := p.observers
	p.mu.Unlock()
	notify(observers, st)
	return gen
}

func (p *Pipeline) apply(gen uint64, st State) bool {
	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return false
	}
	p.state = st
	observers := p.observers
	p.mu.Unlock()
	notify(observers, st)
	return true
}

func errorState(err error) State {
	return State{Status: StatusError, Err: err, Message: apperrors.PublicMessage(err)}
}

func notify(observers []func(State), st State) {
	for _, fn := range observers {
		fn(st)
	}
}
