// Package mockserver is a local stand-in for the translation service.
//
// It speaks the same wire format as the real endpoint but does no
// translation: each sentence comes back tagged as "[JP] ..." and "[CN] ...".
// The CLI exposes it as `kamekai serve-mock` so the client can be exercised
// without cloud credentials.
package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/oukeidos/kamekai/internal/httplog"
	"github.com/oukeidos/kamekai/internal/token"
	"github.com/oukeidos/kamekai/internal/translation"
)

const (
	DefaultAddr = "127.0.0.1:3000"

	maxRequestBytes   = 1 << 20
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Options tune the mock's behaviour for manual testing of the client.
type Options struct {
	// Delay is added before every /translate response.
	Delay time.Duration
	// FailStatus, when non-zero, makes /translate answer with that status.
	FailStatus int
	// Now is used for token expiry checks. Defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	opts   Options
	router chi.Router
}

func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{opts: opts}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(httplog.Middleware(slog.Default()))
	r.Use(chimw.Recoverer)

	r.Get("/health", s.handleHealth)
	r.With(s.requireBearer).Post("/translate", s.handleTranslate)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Mock translation service listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, credential, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(credential) == "" {
			writeError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}
		// Opaque credentials are accepted as-is; JWTs must not be expired.
		if claims, err := token.ParseClaims(credential); err == nil && claims.ExpiresAt != nil {
			if !s.opts.Now().Before(claims.ExpiresAt.Time) {
				writeError(w, http.StatusUnauthorized, "Token expired")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translation.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be JSON with a text field")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	if s.opts.Delay > 0 {
		select {
		case <-time.After(s.opts.Delay):
		case <-r.Context().Done():
			return
		}
	}
	if s.opts.FailStatus != 0 {
		writeError(w, s.opts.FailStatus, "Failed to create translation response")
		return
	}

	sentences := SplitSentences(req.Text)
	resp := translation.Response{Translations: make([]translation.Translation, 0, len(sentences))}
	for _, sentence := range sentences {
		resp.Translations = append(resp.Translations, fakeTranslation(sentence))
	}
	writeJSON(w, http.StatusOK, resp)
}

// SplitSentences cuts text at sentence-ending periods (ASCII and CJK),
// trimming each piece and dropping empty ones. Other punctuation stays
// with its sentence.
func SplitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '。'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fakeTranslation(sentence string) translation.Translation {
	return translation.Translation{
		Original: sentence,
		Japanese: translation.LanguageDetails{
			Translation:   "[JP] " + sentence,
			Pronunciation: "[JP pronunciation] " + sentence,
			Grammar:       []string{"mock: no grammar notes are generated locally"},
			Examples: []translation.Example{{
				Phrase:        "[JP] " + sentence,
				Pronunciation: "[JP pronunciation] " + sentence,
				Translation:   sentence,
			}},
		},
		Chinese: translation.LanguageDetails{
			Translation:   "[CN] " + sentence,
			Pronunciation: "[CN pronunciation] " + sentence,
			Grammar:       []string{},
			Examples:      []translation.Example{},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
