package logger

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// Keys whose values are always dropped. User text and the OAuth callback
// parameters are as sensitive as the tokens themselves.
var sensitiveKeys = map[string]bool{
	"bearer": true,
	"body":   true,
	"code":   true,
	"email":  true,
	"nonce":  true,
	"state":  true,
	"text":   true,
}

var sensitiveKeyParts = []string{
	"authorization",
	"credential",
	"password",
	"secret",
	"token",
	"verifier",
}

// valueMasks rewrite the sensitive part of a value and keep the rest, so an
// error that quotes a callback URL still says where it failed.
var valueMasks = []struct {
	re   *regexp.Regexp
	repl string
}{
	// Compact JWS: header.payload.signature
	{regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{4,}\.[A-Za-z0-9_-]{4,}\.[A-Za-z0-9_-]*`), redacted},
	{regexp.MustCompile(`(?i)\b(bearer)\s+[A-Za-z0-9\-._~+/]+=*`), "$1 " + redacted},
	{regexp.MustCompile(`(?i)\b(access[_-]?token|id[_-]?token|refresh[_-]?token|client[_-]?secret)(\s*[:=]\s*)[^\s&"]+`), "$1$2" + redacted},
	{regexp.MustCompile(`(?i)([?&#])(code|state|id_token|access_token|refresh_token)=[^&\s"]+`), "$1$2=" + redacted},
}

// RedactAttr is the slog.ReplaceAttr hook used by every handler.
func RedactAttr(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKey(a.Key) {
		return slog.String(a.Key, redacted)
	}

	var value string
	switch a.Value.Kind() {
	case slog.KindString:
		value = a.Value.String()
	case slog.KindAny:
		value = fmt.Sprint(a.Value.Any())
	default:
		return a
	}
	if masked, changed := Mask(value); changed {
		return slog.String(a.Key, masked)
	}
	return a
}

// Mask replaces credentials embedded in s.
func Mask(s string) (string, bool) {
	out := s
	for _, m := range valueMasks {
		out = m.re.ReplaceAllString(out, m.repl)
	}
	return out, out != s
}

func sensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}
