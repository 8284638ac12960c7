package token

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

var (
	ErrMalformed = errors.New("malformed token")
)

// SignatureSize is the length of a detached Ed25519 signature.
const SignatureSize = 64

// Encode produces the canonical byte encoding of a payload: compact JSON
// with keys in a fixed (alphabetical) order. Two structurally equal
// payloads always encode to identical bytes — the signature covers exactly
// this encoding, so any incidental variation would break verification.
func Encode(p types.TokenPayload) ([]byte, error) {
	// encoding/json emits struct fields in declaration order with no
	// whitespace, which gives us the canonical form directly. The field
	// order invariant lives on the TokenPayload declaration.
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return b, nil
}

// Decode parses canonical payload bytes. Unknown fields are rejected so a
// payload that round-trips is exactly what was signed.
func Decode(b []byte) (types.TokenPayload, error) {
	var p types.TokenPayload
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return types.TokenPayload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	// Trailing garbage after the JSON object is not canonical.
	if dec.More() {
		return types.TokenPayload{}, fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	return p, nil
}

// ToTransport assembles the wire form: base64url(payload) "." base64url(sig),
// both halves unpadded.
func ToTransport(payloadBytes, sig []byte) string {
	return base64.RawURLEncoding.EncodeToString(payloadBytes) +
		"." +
		base64.RawURLEncoding.EncodeToString(sig)
}

// FromTransport splits and decodes a wire token back into payload bytes and
// signature. It does not parse or validate the payload itself.
func FromTransport(s string) (payloadBytes, sig []byte, err error) {
	head, tail, ok := strings.Cut(s, ".")
	if !ok {
		return nil, nil, fmt.Errorf("%w: missing separator", ErrMalformed)
	}
	payloadBytes, err = base64.RawURLEncoding.DecodeString(head)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: payload half: %v", ErrMalformed, err)
	}
	sig, err = base64.RawURLEncoding.DecodeString(tail)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: signature half: %v", ErrMalformed, err)
	}
	if len(sig) != SignatureSize {
		return nil, nil, fmt.Errorf("%w: signature is %d bytes, want %d", ErrMalformed, len(sig), SignatureSize)
	}
	return payloadBytes, sig, nil
}
