package apperrors

import (
	"errors"
	"strings"
)

type Kind string

const (
	KindCredentialMissing Kind = "credential_missing"
	KindAuthProvider      Kind = "auth_provider"
	KindTransport         Kind = "transport"
	KindProtocol          Kind = "protocol"
	KindDecode            Kind = "decode"
	KindConfig            Kind = "config"
)

// MsgCredentialMissing is shown when a translation is submitted without an access token.
const MsgCredentialMissing = "No valid authentication token"

type Error struct {
	Kind Kind
	// SafeMessage is intended for user-facing output and logs.
	SafeMessage string
	// Cause keeps the original internal error for troubleshooting.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.SafeMessage); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultSafeMessage(kind Kind) string {
	switch kind {
	case KindCredentialMissing:
		return MsgCredentialMissing
	case KindAuthProvider:
		return "Sign-in failed. Please try again."
	case KindTransport:
		return "Could not reach the translation service. Check your connection and try again."
	case KindProtocol:
		return "The translation service returned an unexpected response."
	case KindDecode:
		return "Token could not be decoded."
	case KindConfig:
		return "Configuration is incomplete."
	default:
		return "Request failed."
	}
}

func New(kind Kind, safeMessage string, cause error) error {
	msg := strings.TrimSpace(safeMessage)
	if msg == "" {
		msg = defaultSafeMessage(kind)
	}
	return &Error{
		Kind:        kind,
		SafeMessage: msg,
		Cause:       cause,
	}
}

func CredentialMissing() error {
	return New(KindCredentialMissing, "", nil)
}

func AuthProvider(message string, err error) error {
	return New(KindAuthProvider, message, err)
}

func Transport(err error) error {
	return New(KindTransport, "", err)
}

func Protocol(message string, err error) error {
	return New(KindProtocol, message, err)
}

func Decode(err error) error {
	return New(KindDecode, "", err)
}

func Config(message string) error {
	return New(KindConfig, message, nil)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

// RequiresSignIn reports whether recovering from err needs a fresh interactive sign-in.
func RequiresSignIn(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	return kind == KindCredentialMissing || kind == KindAuthProvider
}

func IsTransport(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindTransport
}
