package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/oukeidos/kamekai/internal/apperrors"
	"github.com/oukeidos/kamekai/internal/auth"
	"github.com/oukeidos/kamekai/internal/config"
	"github.com/oukeidos/kamekai/internal/token"
)

const (
	// RenewBefore is how long before access-token expiry silent renewal runs.
	RenewBefore = 60 * time.Second

	MsgSessionExpired = "Session expired. Please sign in again."
)

// pendingAuth is one outstanding interactive sign-in.
type pendingAuth struct {
	state    string
	nonce    string
	verifier string
}

type stopper interface {
	Stop() bool
}

// Manager owns the Session. All mutation goes through its methods.
type Manager struct {
	provider  Provider
	store     auth.Store
	navigator Navigator

	domain      string
	clientID    string
	logoutURI   string
	autoRenew   bool
	renewBefore time.Duration

	now       func() time.Time
	afterFunc func(time.Duration, func()) stopper

	// storeMu orders keychain writes against the epoch; take it before mu.
	storeMu sync.Mutex

	mu           sync.Mutex
	status       Status
	user         *User
	errInfo      *ErrorInfo
	refreshToken string
	pending      *pendingAuth
	epoch        uint64
	timer        stopper
	timerGen     uint64
	subs         map[int]func(Session)
	nextSub      int
}

// NewManager returns a Manager in StatusUnauthenticated. A nil store keeps
// the session in memory only.
func NewManager(cfg *config.Config, provider Provider, store auth.Store, nav Navigator) *Manager {
	if store == nil {
		store = &auth.MemoryStore{}
	}
	return &Manager{
		provider:    provider,
		store:       store,
		navigator:   nav,
		domain:      cfg.Domain,
		clientID:    cfg.ClientID,
		logoutURI:   cfg.LogoutURI,
		autoRenew:   cfg.AutomaticSilentRenew,
		renewBefore: RenewBefore,
		now:         time.Now,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		subs: make(map[int]func(Session)),
	}
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Session {
	s := Session{Status: m.status}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	if m.errInfo != nil {
		e := *m.errInfo
		s.Err = &e
	}
	return s
}

// AccessToken returns the current access credential, or "" when there is
// no authenticated session or the credential has expired.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusAuthenticated || m.user == nil {
		return ""
	}
	if !m.user.ExpiresAt.IsZero() && !m.now().Before(m.user.ExpiresAt) {
		return ""
	}
	return m.user.AccessToken
}

// Subscribe registers fn for every session change. fn runs outside the lock.
func (m *Manager) Subscribe(fn func(Session)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// AwaitSignIn blocks until the session leaves StatusAuthenticating.
func (m *Manager) AwaitSignIn(ctx context.Context) (Session, error) {
	ch := make(chan Session, 1)
	unsubscribe := m.Subscribe(func(s Session) {
		if s.Status == StatusAuthenticating {
			return
		}
		select {
		case ch <- s:
		default:
		}
	})
	defer unsubscribe()

	if s := m.Snapshot(); s.Status != StatusAuthenticating {
		return s, nil
	}
	select {
	case s := <-ch:
		return s, nil
	case <-ctx.Done():
		return m.Snapshot(), ctx.Err()
	}
}

// SignIn starts an interactive sign-in and opens the provider's page.
// Completion arrives later through CompleteSignIn.
func (m *Manager) SignIn(ctx context.Context) error {
	if m.provider == nil {
		return apperrors.Config("identity provider is not configured")
	}
	p := &pendingAuth{
		state:    uuid.NewString(),
		nonce:    uuid.NewString(),
		verifier: oauth2.GenerateVerifier(),
	}

	m.mu.Lock()
	m.stopTimerLocked()
	m.epoch++
	m.pending = p
	m.status = StatusAuthenticating
	m.user = nil
	m.errInfo = nil
	m.refreshToken = ""
	m.publishLocked()

	authURL := m.provider.AuthCodeURL(p.state, p.nonce, p.verifier)
	slog.Info("Opening sign-in page")
	if m.navigator == nil {
		return m.fail(ErrorInfo{Message: "No browser is available to sign in."}, nil)
	}
	if err := m.navigator.Open(authURL); err != nil {
		return m.fail(ErrorInfo{Message: "Could not open the sign-in page."}, err)
	}
	return nil
}

// CancelSignIn abandons an interactive sign-in or a restore that has not
// finished. A late callback or renewal result is then ignored. The stored
// session is kept.
func (m *Manager) CancelSignIn() {
	m.mu.Lock()
	if m.status != StatusAuthenticating {
		m.mu.Unlock()
		return
	}
	m.epoch++
	m.pending = nil
	m.refreshToken = ""
	m.status = StatusUnauthenticated
	m.errInfo = nil
	m.publishLocked()
	slog.Info("Sign-in cancelled")
}

// CompleteSignIn finishes the sign-in started by SignIn using the redirect
// the provider sent back. Whatever the outcome, loc is replaced exactly once
// with the callback URL minus its authorization payload.
func (m *Manager) CompleteSignIn(ctx context.Context, callback *url.URL, loc Location) error {
	err := m.completeSignIn(ctx, callback)
	if loc != nil {
		loc.Replace(StripAuthParams(callback))
	}
	return err
}

func (m *Manager) completeSignIn(ctx context.Context, callback *url.URL) error {
	q := callback.Query()

	m.mu.Lock()
	p := m.pending
	if p == nil {
		m.mu.Unlock()
		slog.Warn("Sign-in callback without a pending request")
		return apperrors.AuthProvider("No sign-in is in progress.", nil)
	}
	// A stray request to the loopback port must not abort the real sign-in.
	if q.Get("state") != p.state {
		m.mu.Unlock()
		slog.Warn("Ignoring sign-in callback with an unknown state")
		return apperrors.AuthProvider("Sign-in response did not match the pending request.", nil)
	}
	m.pending = nil
	epoch := m.epoch
	m.mu.Unlock()
	if code := q.Get("error"); code != "" {
		desc := q.Get("error_description")
		msg := desc
		if msg == "" {
			msg = code
		}
		return m.fail(ErrorInfo{Message: msg, Code: code, Description: desc}, nil)
	}
	code := q.Get("code")
	if code == "" {
		return m.fail(ErrorInfo{Message: "Sign-in response did not include an authorization code."}, nil)
	}

	tok, err := m.provider.Exchange(ctx, code, p.verifier)
	if !m.sameEpoch(epoch) {
		return apperrors.AuthProvider("Sign-in was cancelled.", nil)
	}
	if err != nil {
		return m.fail(providerError(err), err)
	}
	user, err := userFromToken(tok, nil)
	if err != nil {
		return m.fail(ErrorInfo{Message: apperrors.PublicMessage(err)}, err)
	}
	if err := checkNonce(user.IDToken, p.nonce); err != nil {
		return m.fail(ErrorInfo{Message: "Sign-in response failed the replay check."}, err)
	}

	if !m.establish(epoch, user, tok.RefreshToken) {
		return apperrors.AuthProvider("Sign-in was cancelled.", nil)
	}
	slog.Info("Signed in", "expires_at", user.ExpiresAt)
	return nil
}

// Renew replaces the credentials using the refresh token. The session stays
// Authenticated throughout on success.
func (m *Manager) Renew(ctx context.Context) error {
	m.mu.Lock()
	rt := m.refreshToken
	prev := m.user
	epoch := m.epoch
	m.mu.Unlock()

	if m.provider == nil {
		return apperrors.Config("identity provider is not configured")
	}
	if rt == "" {
		return m.fail(ErrorInfo{Message: MsgSessionExpired}, nil)
	}

	tok, err := m.provider.Refresh(ctx, rt)
	if !m.sameEpoch(epoch) {
		slog.Debug("Discarding renewal result after sign-out")
		return nil
	}
	if err != nil {
		return m.fail(providerError(err), err)
	}
	user, err := userFromToken(tok, prev)
	if err != nil {
		return m.fail(ErrorInfo{Message: apperrors.PublicMessage(err)}, err)
	}
	next := tok.RefreshToken
	if next == "" {
		next = rt
	}
	if !m.establish(epoch, user, next) {
		slog.Debug("Discarding renewal result after sign-out")
		return nil
	}
	slog.Debug("Session renewed", "expires_at", user.ExpiresAt)
	return nil
}

// Restore renews a session saved by a previous run. Without one it is a no-op.
func (m *Manager) Restore(ctx context.Context) error {
	if m.provider == nil {
		return apperrors.Config("identity provider is not configured")
	}
	stored, err := m.store.Load()
	if errors.Is(err, auth.ErrNoSession) {
		return nil
	}
	if err != nil {
		slog.Warn("Stored session unavailable", "error", err)
		return nil
	}

	m.mu.Lock()
	m.refreshToken = stored.RefreshToken
	m.status = StatusAuthenticating
	m.errInfo = nil
	m.publishLocked()
	return m.Renew(ctx)
}

// SignOut clears local state and the stored session, then opens the
// provider's logout page.
func (m *Manager) SignOut() error {
	m.mu.Lock()
	m.stopTimerLocked()
	m.epoch++
	m.status = StatusUnauthenticated
	m.user = nil
	m.errInfo = nil
	m.refreshToken = ""
	m.pending = nil
	m.publishLocked()

	var errs []error
	m.storeMu.Lock()
	err := m.store.Delete()
	m.storeMu.Unlock()
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to delete stored session: %w", err))
	}
	slog.Info("Signed out locally")

	if m.domain == "" {
		errs = append(errs, apperrors.Config("KAMEKAI_DOMAIN is not set; the provider session was not ended"))
		return errors.Join(errs...)
	}
	if m.navigator != nil {
		if err := m.navigator.Open(LogoutURL(m.domain, m.clientID, m.logoutURI)); err != nil {
			errs = append(errs, fmt.Errorf("failed to open logout page: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) sameEpoch(e uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch == e
}

// establish installs user if epoch is still current. The refresh token is
// persisted before subscribers hear about the new session, and never after
// a sign-out has begun.
func (m *Manager) establish(epoch uint64, user *User, refreshToken string) bool {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return false
	}
	m.status = StatusAuthenticated
	m.user = user
	m.errInfo = nil
	m.refreshToken = refreshToken
	m.scheduleLocked(user.ExpiresAt)
	m.mu.Unlock()

	if refreshToken != "" {
		m.persist(epoch, auth.StoredSession{RefreshToken: refreshToken, Email: user.Email})
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return false
	}
	m.publishLocked()
	return true
}

func (m *Manager) persist(epoch uint64, s auth.StoredSession) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()
	if !m.sameEpoch(epoch) {
		return
	}
	if err := m.store.Save(s); err != nil {
		slog.Warn("Failed to persist session", "error", err)
	}
}

// fail moves to StatusFailed. It expects m.mu to be unlocked.
func (m *Manager) fail(info ErrorInfo, cause error) error {
	m.mu.Lock()
	m.stopTimerLocked()
	hadRefresh := m.refreshToken != ""
	m.status = StatusFailed
	m.user = nil
	m.refreshToken = ""
	m.pending = nil
	m.errInfo = &info
	m.publishLocked()

	// Keep the stored session across network failures; drop it once the
	// provider has rejected it.
	var re *oauth2.RetrieveError
	if hadRefresh && (cause == nil || errors.As(cause, &re)) {
		m.storeMu.Lock()
		err := m.store.Delete()
		m.storeMu.Unlock()
		if err != nil {
			slog.Warn("Failed to delete stored session", "error", err)
		}
	}
	slog.Warn("Authentication failed", "message", info.Message, "error_code", info.Code, "error", cause)
	return apperrors.AuthProvider(info.Message, cause)
}

// scheduleLocked arms silent renewal, or expiry when there is nothing to
// renew with.
func (m *Manager) scheduleLocked(expiresAt time.Time) {
	m.stopTimerLocked()
	if !m.autoRenew || expiresAt.IsZero() {
		return
	}
	gen := m.timerGen
	until := expiresAt.Sub(m.now())
	if m.refreshToken == "" {
		m.timer = m.afterFunc(max(until, 0), func() { m.expire(gen) })
		return
	}
	m.timer = m.afterFunc(max(until-m.renewBefore, 0), func() { m.renewFromTimer(gen) })
}

func (m *Manager) stopTimerLocked() {
	m.timerGen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) renewFromTimer(gen uint64) {
	m.mu.Lock()
	current := gen == m.timerGen && m.status == StatusAuthenticated
	m.mu.Unlock()
	if !current {
		return
	}
	if err := m.Renew(context.Background()); err != nil {
		slog.Warn("Silent renewal failed", "error", err)
	}
}

func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	current := gen == m.timerGen && m.status == StatusAuthenticated
	m.mu.Unlock()
	if current {
		_ = m.fail(ErrorInfo{Message: MsgSessionExpired}, nil)
	}
}

// publishLocked snapshots the session, releases m.mu and notifies subscribers.
func (m *Manager) publishLocked() {
	s := m.snapshotLocked()
	subs := make([]func(Session), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

// userFromToken builds the User from a token response. On renewal the
// provider may omit the ID token; prev supplies it then.
func userFromToken(tok *oauth2.Token, prev *User) (*User, error) {
	if tok == nil || strings.TrimSpace(tok.AccessToken) == "" {
		return nil, apperrors.AuthProvider("Identity provider returned no access token.", nil)
	}
	u := &User{AccessToken: tok.AccessToken, ExpiresAt: tok.Expiry}
	if id, ok := tok.Extra("id_token").(string); ok && id != "" {
		u.IDToken = id
	} else if prev != nil {
		u.IDToken = prev.IDToken
		u.Email = prev.Email
	}

	if u.IDToken != "" {
		if claims, err := token.ParseClaims(u.IDToken); err == nil && claims.Email != "" {
			u.Email = claims.Email
		}
	}
	if claims, err := token.ParseClaims(u.AccessToken); err == nil {
		if u.Email == "" {
			u.Email = claims.Email
		}
		if u.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
			u.ExpiresAt = claims.ExpiresAt.Time
		}
	}
	return u, nil
}

func checkNonce(idToken, want string) error {
	if idToken == "" {
		return nil
	}
	claims, err := token.ParseClaims(idToken)
	if err != nil {
		return err
	}
	if claims.Nonce != "" && claims.Nonce != want {
		return fmt.Errorf("id_token nonce mismatch")
	}
	return nil
}
