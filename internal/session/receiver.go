package session

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/oukeidos/kamekai/internal/httplog"
)

const receiverReadHeaderTimeout = 10 * time.Second

var statusPage = template.Must(template.New("status").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>kamekai</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 4em">
<h1>{{.Title}}</h1>
<p>{{.Detail}}</p>
<p>You can close this window.</p>
</body></html>
`))

// LoopbackReceiver serves the redirect URI on the loopback interface and
// completes sign-ins that arrive on it.
type LoopbackReceiver struct {
	manager  *Manager
	redirect *url.URL
	router   chi.Router

	mu  sync.Mutex
	srv *http.Server
}

func NewLoopbackReceiver(m *Manager, redirectURI string) (*LoopbackReceiver, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid redirect URI %q", redirectURI)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("redirect URI must use http on the loopback interface, got %q", u.Scheme)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	rcv := &LoopbackReceiver{manager: m, redirect: u}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(httplog.Middleware(slog.Default()))
	r.Use(chimw.Recoverer)
	r.Get(path, rcv.handleCallback)
	if path != "/" {
		r.Get("/", rcv.handleSignedOut)
	}
	rcv.router = r
	return rcv, nil
}

// Handler exposes the router, mainly for tests.
func (rcv *LoopbackReceiver) Handler() http.Handler {
	return rcv.router
}

// Start listens on the redirect URI's host and port.
func (rcv *LoopbackReceiver) Start() error {
	rcv.mu.Lock()
	defer rcv.mu.Unlock()
	if rcv.srv != nil {
		return nil
	}
	ln, err := net.Listen("tcp", rcv.redirect.Host)
	if err != nil {
		return fmt.Errorf("could not listen for the sign-in callback on %s: %w", rcv.redirect.Host, err)
	}
	srv := &http.Server{Handler: rcv.router, ReadHeaderTimeout: receiverReadHeaderTimeout}
	rcv.srv = srv
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Sign-in callback listener stopped", "error", err)
		}
	}()
	slog.Debug("Sign-in callback listener started", "addr", ln.Addr().String())
	return nil
}

func (rcv *LoopbackReceiver) Shutdown(ctx context.Context) error {
	rcv.mu.Lock()
	srv := rcv.srv
	rcv.srv = nil
	rcv.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// redirectLocation records the replacement URL so the handler can answer
// with a redirect to it.
type redirectLocation struct {
	target *url.URL
}

func (l *redirectLocation) Replace(u *url.URL) {
	l.target = u
}

func (rcv *LoopbackReceiver) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !HasAuthParams(r.URL) {
		rcv.renderStatus(w)
		return
	}

	callback := *r.URL
	callback.Scheme = rcv.redirect.Scheme
	callback.Host = r.Host

	loc := &redirectLocation{}
	if err := rcv.manager.CompleteSignIn(r.Context(), &callback, loc); err != nil {
		slog.Debug("Sign-in callback rejected", "error", err)
	}
	target := "/"
	if loc.target != nil {
		target = loc.target.RequestURI()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (rcv *LoopbackReceiver) renderStatus(w http.ResponseWriter) {
	s := rcv.manager.Snapshot()
	data := struct{ Title, Detail string }{}
	switch s.Status {
	case StatusAuthenticated:
		data.Title = "Signed in"
		data.Detail = "Return to kamekai to continue."
	case StatusFailed:
		data.Title = "Sign-in failed"
		data.Detail = s.Err.Error()
	case StatusAuthenticating:
		data.Title = "Signing in"
		data.Detail = "Waiting for the identity provider."
	default:
		data.Title = "Not signed in"
		data.Detail = "No sign-in is in progress."
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := statusPage.Execute(w, data); err != nil {
		slog.Debug("Failed to render status page", "error", err)
	}
}

func (rcv *LoopbackReceiver) handleSignedOut(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = statusPage.Execute(w, struct{ Title, Detail string }{"Signed out", "You have been signed out of kamekai."})
}
