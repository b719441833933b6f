package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestPublicMessage_UsesSafeMessage(t *testing.T) {
	sentinel := errors.New("SECRET_TOKEN_VALUE")
	err := New(KindAuthProvider, "safe provider error", sentinel)
	if got := PublicMessage(err); got != "safe provider error" {
		t.Fatalf("PublicMessage() = %q, want %q", got, "safe provider error")
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped cause to be retained for internal matching")
	}
}

func TestKindOf(t *testing.T) {
	err := Transport(errors.New("dial tcp: connection refused"))
	kind, ok := KindOf(err)
	if !ok || kind != KindTransport {
		t.Fatalf("KindOf() = (%q, %v), want (%q, true)", kind, ok, KindTransport)
	}
	if !IsTransport(fmt.Errorf("wrapped: %w", err)) {
		t.Fatalf("expected wrapped transport error to be detected")
	}
}

func TestCredentialMissingMessage(t *testing.T) {
	err := CredentialMissing()
	if got := PublicMessage(err); got != MsgCredentialMissing {
		t.Fatalf("PublicMessage() = %q, want %q", got, MsgCredentialMissing)
	}
	if !RequiresSignIn(err) {
		t.Fatalf("expected credential_missing to require sign-in")
	}
}

func TestRequiresSignIn(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "provider", err: AuthProvider("access_denied", nil), want: true},
		{name: "transport", err: Transport(nil), want: false},
		{name: "protocol", err: Protocol("HTTP 500", nil), want: false},
		{name: "plain", err: errors.New("plain"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RequiresSignIn(tt.err); got != tt.want {
				t.Fatalf("RequiresSignIn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultMessagesAreDistinct(t *testing.T) {
	transport := PublicMessage(Transport(nil))
	protocol := PublicMessage(Protocol("", nil))
	if transport == protocol {
		t.Fatalf("transport and protocol messages must differ, both %q", transport)
	}
}

func TestPublicMessage_NonAppError(t *testing.T) {
	err := errors.New("plain")
	if got := PublicMessage(err); got != "plain" {
		t.Fatalf("PublicMessage() = %q, want %q", got, "plain")
	}
	if got := PublicMessage(nil); got != "" {
		t.Fatalf("PublicMessage(nil) = %q, want empty", got)
	}
}
