// Package token decodes compact bearer credentials for display.
//
// Nothing here verifies signatures. The translation service does that; the
// client only needs to show what a token carries and when it expires.
package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oukeidos/kamekai/internal/apperrors"
)

// InvalidPlaceholder replaces both halves of a token that cannot be decoded.
const InvalidPlaceholder = "Invalid token"

// Decoded is the header and payload of a credential as generic JSON values.
type Decoded struct {
	Header  any `json:"header"`
	Payload any `json:"payload"`
}

var (
	segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())
	toURLAlphabet = strings.NewReplacer("+", "-", "/", "_")

	errTooFewSegments = errors.New("token has fewer than two segments")
	errNotUTF8        = errors.New("segment is not valid UTF-8")
	errTrailingData   = errors.New("segment has trailing data after the JSON document")
)

// Decode returns the header and payload of raw. It never fails: malformed
// input yields InvalidPlaceholder in both fields.
func Decode(raw string) Decoded {
	d, err := decode(raw)
	if err != nil {
		return invalid()
	}
	return d
}

func decode(raw string) (Decoded, error) {
	segments := strings.Split(strings.TrimSpace(raw), ".")
	if len(segments) < 2 {
		return Decoded{}, errTooFewSegments
	}
	header, err := decodeSegment(segments[0])
	if err != nil {
		return Decoded{}, fmt.Errorf("header: %w", err)
	}
	payload, err := decodeSegment(segments[1])
	if err != nil {
		return Decoded{}, fmt.Errorf("payload: %w", err)
	}
	return Decoded{Header: header, Payload: payload}, nil
}

func decodeSegment(seg string) (any, error) {
	data, err := segmentParser.DecodeSegment(toURLAlphabet.Replace(seg))
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, errNotUTF8
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return v, nil
}

func invalid() Decoded {
	return Decoded{Header: InvalidPlaceholder, Payload: InvalidPlaceholder}
}

// Valid reports whether d holds decoded JSON rather than the placeholder pair.
func (d Decoded) Valid() bool {
	return !(d.Header == InvalidPlaceholder && d.Payload == InvalidPlaceholder)
}

// Indented renders header and payload as two-space indented JSON.
func (d Decoded) Indented() (header, payload string) {
	return indent(d.Header), indent(d.Payload)
}

func indent(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// Claims are the fields the client reads from Cognito-style ID and access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	TokenUse string `json:"token_use,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Scope    string `json:"scope,omitempty"`
	Nonce    string `json:"nonce,omitempty"`
}

// ParseClaims reads the claims of raw without verifying its signature.
func ParseClaims(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(raw), claims); err != nil {
		return nil, apperrors.Decode(fmt.Errorf("parse claims: %w", err))
	}
	return claims, nil
}
