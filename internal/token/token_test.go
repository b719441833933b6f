package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oukeidos/kamekai/internal/apperrors"
)

func mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func jsonOf(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestDecode_RoundTrip(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":       "5f1c0a2e-user",
		"email":     "learner@example.com",
		"token_use": "id",
		"exp":       1767225600,
		"groups":    []any{"students", "beta"},
		"nested":    map[string]any{"level": 3, "ok": true},
	}
	raw := mint(t, claims)

	d := Decode(raw)
	require.True(t, d.Valid())
	assert.JSONEq(t, `{"alg":"HS256","typ":"JWT"}`, jsonOf(t, d.Header))
	assert.JSONEq(t, jsonOf(t, claims), jsonOf(t, d.Payload))
}

func TestDecode_PreservesLargeNumbers(t *testing.T) {
	payload := `{"exp":9007199254740993}`
	raw := "e30." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".sig"

	d := Decode(raw)
	require.True(t, d.Valid())
	assert.Equal(t, payload, jsonOf(t, d.Payload))
}

func TestDecode_AlphabetAndPadding(t *testing.T) {
	payload := []byte(`{"data":"???>>>~~~","name":"かめかい"}`)
	variants := map[string]string{
		"raw url": base64.RawURLEncoding.EncodeToString(payload),
		"url":     base64.URLEncoding.EncodeToString(payload),
		"std":     base64.StdEncoding.EncodeToString(payload),
		"raw std": base64.RawStdEncoding.EncodeToString(payload),
	}
	for name, seg := range variants {
		t.Run(name, func(t *testing.T) {
			d := Decode("e30." + seg + ".sig")
			require.True(t, d.Valid(), "segment %q", seg)
			assert.JSONEq(t, string(payload), jsonOf(t, d.Payload))
		})
	}
}

func TestDecode_TwoSegmentsIsEnough(t *testing.T) {
	d := Decode("e30.e30")
	require.True(t, d.Valid())
	assert.Equal(t, map[string]any{}, d.Header)
	assert.Equal(t, map[string]any{}, d.Payload)
}

func TestDecode_Malformed(t *testing.T) {
	enc := base64.RawURLEncoding.EncodeToString
	tests := map[string]string{
		"empty":            "",
		"one segment":      "e30",
		"opaque credential":  "abc.def.ghi",
		"bad base64":       "e30.!!!.sig",
		"not json":         "e30." + enc([]byte("not json")) + ".sig",
		"bad header":       enc([]byte("{")) + ".e30.sig",
		"invalid utf8":     "e30." + enc([]byte{'"', 0xff, 0xfe, '"'}) + ".sig",
		"trailing data":    "e30." + enc([]byte("{} {}")) + ".sig",
		"empty payload":    "e30..sig",
		"only dots":        "...",
		"impossible width": "e30.a.sig",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			var d Decoded
			require.NotPanics(t, func() { d = Decode(raw) })
			assert.Equal(t, InvalidPlaceholder, d.Header)
			assert.Equal(t, InvalidPlaceholder, d.Payload)
			assert.False(t, d.Valid())
		})
	}
}

func TestDecode_Idempotent(t *testing.T) {
	raw := mint(t, jwt.MapClaims{"sub": "user"})
	for _, in := range []string{raw, "abc.def.ghi"} {
		assert.Equal(t, Decode(in), Decode(in))
	}
}

func TestDecoded_Indented(t *testing.T) {
	d := Decode(mint(t, jwt.MapClaims{"email": "a<b>@example.com"}))
	header, payload := d.Indented()
	assert.Equal(t, "{\n  \"alg\": \"HS256\",\n  \"typ\": \"JWT\"\n}", header)
	assert.Contains(t, payload, `"email": "a<b>@example.com"`)

	header, payload = Decode("garbage").Indented()
	assert.Equal(t, `"Invalid token"`, header)
	assert.Equal(t, `"Invalid token"`, payload)
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := mint(t, jwt.MapClaims{
		"sub":       "user-1",
		"email":     "learner@example.com",
		"token_use": "access",
		"client_id": "client-123",
		"scope":     "openid email",
		"exp":       exp.Unix(),
	})

	claims, err := ParseClaims(raw)
	require.NoError(t, err)
	assert.Equal(t, "learner@example.com", claims.Email)
	assert.Equal(t, "access", claims.TokenUse)
	assert.Equal(t, "client-123", claims.ClientID)
	assert.Equal(t, "user-1", claims.Subject)
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, claims.ExpiresAt.Time.Equal(exp))
}

func TestParseClaims_Malformed(t *testing.T) {
	_, err := ParseClaims("abc.def.ghi")
	require.Error(t, err)
	kind, ok := apperrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindDecode, kind)
}

func FuzzDecode(f *testing.F) {
	f.Add("abc.def.ghi")
	f.Add("e30.e30.")
	f.Add(strings.Repeat(".", 8))
	f.Fuzz(func(t *testing.T, raw string) {
		d := Decode(raw)
		if !d.Valid() && (d.Header != InvalidPlaceholder || d.Payload != InvalidPlaceholder) {
			t.Fatalf("partial placeholder for %q", raw)
		}
		_, _ = d.Indented()
	})
}
