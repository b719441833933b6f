package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const (
	serviceName    = "kamekai"
	sessionAccount = "session"
	tokenEnvVar    = "KAMEKAI_TOKEN"
)

// ErrNoSession is returned by Load when nothing has been stored.
var ErrNoSession = errors.New("no stored session")

// StoredSession is what survives a restart: enough to renew silently.
type StoredSession struct {
	RefreshToken string `json:"refresh_token"`
	Email        string `json:"email,omitempty"`
}

// Store persists the renewable part of a session.
type Store interface {
	Load() (StoredSession, error)
	Save(StoredSession) error
	Delete() error
}

// KeyringStore keeps the session in the OS keychain.
type KeyringStore struct{}

func (KeyringStore) Load() (StoredSession, error) {
	raw, err := keyring.Get(serviceName, sessionAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return StoredSession{}, ErrNoSession
	}
	if err != nil {
		return StoredSession{}, fmt.Errorf("keychain read failed: %w", err)
	}
	var s StoredSession
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return StoredSession{}, fmt.Errorf("stored session is corrupt: %w", err)
	}
	if strings.TrimSpace(s.RefreshToken) == "" {
		return StoredSession{}, ErrNoSession
	}
	return s, nil
}

func (KeyringStore) Save(s StoredSession) error {
	s.RefreshToken = strings.TrimSpace(s.RefreshToken)
	if s.RefreshToken == "" {
		return errors.New("refusing to store a session without a refresh token")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return keyring.Set(serviceName, sessionAccount, string(data))
}

// Delete removes the stored session. A missing entry is not an error.
func (KeyringStore) Delete() error {
	err := keyring.Delete(serviceName, sessionAccount)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// GetStatus reports whether a session is stored in the keychain.
func GetStatus() bool {
	_, err := KeyringStore{}.Load()
	return err == nil
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu sync.Mutex
	s  *StoredSession
}

func (m *MemoryStore) Load() (StoredSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s == nil {
		return StoredSession{}, ErrNoSession
	}
	return *m.s, nil
}

func (m *MemoryStore) Save(s StoredSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = &s
	return nil
}

func (m *MemoryStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = nil
	return nil
}

// PromptForToken reads a credential from the terminal without echo.
// When stdin is not a terminal the first line is read instead.
func PromptForToken(prompt string, in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(os.Stderr, prompt)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	data, err := io.ReadAll(io.LimitReader(in, 64*1024))
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line), nil
}

// GetEnvToken returns an access token supplied through the environment.
func GetEnvToken() (string, bool) {
	tok := strings.TrimSpace(os.Getenv(tokenEnvVar))
	if tok == "" {
		return "", false
	}
	return tok, true
}
