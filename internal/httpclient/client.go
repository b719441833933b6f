// Package httpclient holds the HTTP client shared by the translation
// service and the identity provider calls.
package httpclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/oukeidos/kamekai/internal/version"
)

const (
	// DefaultTimeout is the transport ceiling for the shared client.
	// Translation and identity calls add no per-call deadline of their own.
	DefaultTimeout = 2 * time.Minute
	// MaxResponseBytes caps response bodies. A translation of a long text
	// with grammar notes and examples stays well under it.
	MaxResponseBytes = 4 * 1024 * 1024

	MaxIdleConns          = 20
	MaxIdleConnsPerHost   = 4
	IdleConnTimeout       = 90 * time.Second
	TLSHandshakeTimeout   = 15 * time.Second
	ExpectContinueTimeout = 1 * time.Second
)

// ErrBodyTooLarge is returned by DoAndRead alongside the response.
var ErrBodyTooLarge = fmt.Errorf("response body too large (limit %d bytes)", MaxResponseBytes)

var (
	defaultClient     *http.Client
	defaultClientOnce sync.Once
	overrideMu        sync.RWMutex
	overrideClient    *http.Client
)

// userAgentTransport stamps requests that do not name a User-Agent, which
// includes the token requests built inside golang.org/x/oauth2.
type userAgentTransport struct {
	next http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", version.UserAgent())
	}
	return t.next.RoundTrip(req)
}

// NewClient returns a client with the shared transport settings.
func NewClient(timeout time.Duration) *http.Client {
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          MaxIdleConns,
		MaxIdleConnsPerHost:   MaxIdleConnsPerHost,
		IdleConnTimeout:       IdleConnTimeout,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ExpectContinueTimeout: ExpectContinueTimeout,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: userAgentTransport{next: base},
	}
}

func GetDefaultClient() *http.Client {
	overrideMu.RLock()
	override := overrideClient
	overrideMu.RUnlock()
	if override != nil {
		return override
	}
	defaultClientOnce.Do(func() {
		defaultClient = NewClient(DefaultTimeout)
	})
	return defaultClient
}

// SetDefaultClientForTesting overrides the shared client until the returned
// restore function runs.
func SetDefaultClientForTesting(client *http.Client) func() {
	overrideMu.Lock()
	prev := overrideClient
	overrideClient = client
	overrideMu.Unlock()
	return func() {
		overrideMu.Lock()
		overrideClient = prev
		overrideMu.Unlock()
	}
}

// DoAndRead sends req and reads the whole body, up to MaxResponseBytes.
// A nil response means nothing came back at all; callers use that to tell
// transport failures from protocol failures.
func DoAndRead(client *http.Client, req *http.Request) ([]byte, *http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > MaxResponseBytes {
		return nil, resp, ErrBodyTooLarge
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, resp, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseBytes {
		return nil, resp, ErrBodyTooLarge
	}
	return body, resp, nil
}

// IsSuccess reports whether status is in the 2xx range.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

// IsBodyTooLarge reports whether err came from the response size cap.
func IsBodyTooLarge(err error) bool {
	return errors.Is(err, ErrBodyTooLarge)
}
