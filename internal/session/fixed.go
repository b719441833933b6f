package session

import "github.com/oukeidos/kamekai/internal/token"

// Fixed is an always-authenticated session around a credential obtained
// elsewhere, such as KAMEKAI_TOKEN or a --token flag.
type Fixed struct {
	Token string
}

func (f Fixed) Snapshot() Session {
	u := &User{IDToken: f.Token, AccessToken: f.Token}
	if claims, err := token.ParseClaims(f.Token); err == nil {
		u.Email = claims.Email
		if claims.ExpiresAt != nil {
			u.ExpiresAt = claims.ExpiresAt.Time
		}
	}
	return Session{Status: StatusAuthenticated, User: u}
}

func (f Fixed) AccessToken() string { return f.Token }

// Subscribe never fires; a fixed session does not change.
func (Fixed) Subscribe(func(Session)) (unsubscribe func()) { return func() {} }
