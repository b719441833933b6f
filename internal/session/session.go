// Package session owns the signed-in state of the application.
//
// A Manager is the only writer of the Session value. It talks to the
// identity provider through a Provider, hands the sign-in and logout pages
// to a Navigator, and keeps the refresh token in an auth.Store so the
// session survives a restart.
package session

import (
	"net/url"
	"time"
)

type Status int

const (
	StatusUnauthenticated Status = iota
	StatusAuthenticating
	StatusAuthenticated
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// User is the signed-in identity and its current credentials.
type User struct {
	Email       string
	IDToken     string
	AccessToken string
	ExpiresAt   time.Time
}

// ErrorInfo is a sign-in or renewal failure as the provider reported it.
type ErrorInfo struct {
	Message     string
	Code        string
	Description string
}

func (e *ErrorInfo) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Session is a read-only snapshot. User is set iff Status is StatusAuthenticated.
type Session struct {
	Status Status
	User   *User
	Err    *ErrorInfo
}

// Navigator hands a URL to the user's browser.
type Navigator interface {
	Open(rawURL string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(rawURL string) error

func (f NavigatorFunc) Open(rawURL string) error { return f(rawURL) }

// Location is the navigational URL the sign-in callback arrived on.
// Replace swaps it for a URL without the authorization payload.
type Location interface {
	Replace(u *url.URL)
}

// authParams are the callback query keys that must not survive a reload.
var authParams = []string{"code", "state", "session_state", "iss", "error", "error_description", "error_uri"}

// StripAuthParams returns a copy of u without the authorization response
// parameters, in the query or in the fragment.
func StripAuthParams(u *url.URL) *url.URL {
	out := *u
	if out.RawQuery != "" {
		q := out.Query()
		for _, k := range authParams {
			q.Del(k)
		}
		out.RawQuery = q.Encode()
	}
	if out.Fragment != "" {
		if f, err := url.ParseQuery(out.Fragment); err == nil && hasAuthParam(f) {
			for _, k := range authParams {
				f.Del(k)
			}
			out.Fragment = f.Encode()
			out.RawFragment = ""
		}
	}
	return &out
}

// HasAuthParams reports whether u still carries an authorization response.
func HasAuthParams(u *url.URL) bool {
	return hasAuthParam(u.Query())
}

func hasAuthParam(v url.Values) bool {
	for _, k := range authParams {
		if v.Has(k) {
			return true
		}
	}
	return false
}

// LogoutURL is the provider's hosted logout page for clientID, which
// redirects to logoutURI afterwards.
func LogoutURL(domain, clientID, logoutURI string) string {
	return "https://" + domain + "/logout?client_id=" + url.QueryEscape(clientID) +
		"&logout_uri=" + url.QueryEscape(logoutURI)
}
