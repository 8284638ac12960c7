package token_test

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/chidhvilasa/access-control-backend/internal/access/token"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

func testPayload() types.TokenPayload {
	return types.TokenPayload{
		CommunityID: "apt101",
		DeviceID:    "android_device_001",
		Exp:         1030,
		Iat:         1000,
		Nonce:       "aabbccddeeff001122334455",
		Type:        types.ActionEntry,
		UserID:      "user001",
		Ver:         types.PayloadVersion,
	}
}

// ── Canonical encoding ───────────────────────────────────────────────────────

func TestEncode_CanonicalForm(t *testing.T) {
	b, err := token.Encode(testPayload())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := `{"community_id":"apt101","device_id":"android_device_001","exp":1030,"iat":1000,"nonce":"aabbccddeeff001122334455","type":"entry","user_id":"user001","ver":1}`
	if string(b) != want {
		t.Errorf("canonical form mismatch:\n got %s\nwant %s", b, want)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	a, err := token.Encode(testPayload())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := token.Encode(testPayload())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("equal payloads encoded differently:\n%s\n%s", a, b)
	}
}

func TestEncode_KeysAlphabetical(t *testing.T) {
	b, err := token.Encode(testPayload())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	keys := regexp.MustCompile(`"(\w+)":`).FindAllStringSubmatch(string(b), -1)
	prev := ""
	for _, m := range keys {
		if m[1] < prev {
			t.Fatalf("key %q out of order after %q in %s", m[1], prev, b)
		}
		prev = m[1]
	}
}

// ── Decode ───────────────────────────────────────────────────────────────────

func TestDecode_RoundTrip(t *testing.T) {
	p := testPayload()
	b, err := token.Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := token.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != p {
		t.Errorf("round trip mismatch: got %+v want %+v", got, p)
	}
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	raw := `{"community_id":"apt101","device_id":"d","exp":1030,"iat":1000,"nonce":"n","type":"entry","user_id":"u","ver":1,"extra":true}`
	_, err := token.Decode([]byte(raw))
	if !errors.Is(err, token.ErrMalformed) {
		t.Errorf("expected ErrMalformed for unknown field, got %v", err)
	}
}

func TestDecode_RejectsTrailingData(t *testing.T) {
	b, err := token.Encode(testPayload())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = token.Decode(append(b, []byte(`{"x":1}`)...))
	if !errors.Is(err, token.ErrMalformed) {
		t.Errorf("expected ErrMalformed for trailing data, got %v", err)
	}
}

// ── Transport ────────────────────────────────────────────────────────────────

func TestTransport_RoundTrip(t *testing.T) {
	payload := []byte(`{"a":1}`)
	sig := bytes.Repeat([]byte{0xAB}, token.SignatureSize)

	s := token.ToTransport(payload, sig)
	if strings.ContainsAny(s, "=+/") {
		t.Errorf("transport not unpadded base64url: %q", s)
	}

	gotPayload, gotSig, err := token.FromTransport(s)
	if err != nil {
		t.Fatalf("FromTransport: %v", err)
	}
	if !bytes.Equal(gotPayload, payload) || !bytes.Equal(gotSig, sig) {
		t.Error("transport round trip mismatch")
	}
}

func TestFromTransport_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no separator", "eyJhIjoxfQ"},
		{"bad payload base64", "!!!.c2ln"},
		{"bad signature base64", "eyJhIjoxfQ.!!!"},
		{"short signature", "eyJhIjoxfQ.c2ln"},
		{"padded base64", "eyJhIjoxfQ==.c2ln"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := token.FromTransport(tc.input)
			if !errors.Is(err, token.ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

// ── Nonce ────────────────────────────────────────────────────────────────────

func TestNewNonce_HexAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n, err := token.NewNonce()
		if err != nil {
			t.Fatalf("NewNonce: %v", err)
		}
		if len(n) != 24 {
			t.Fatalf("nonce length %d, want 24 hex chars: %q", len(n), n)
		}
		if !regexp.MustCompile(`^[0-9a-f]{24}$`).MatchString(n) {
			t.Fatalf("nonce not lowercase hex: %q", n)
		}
		if seen[n] {
			t.Fatalf("duplicate nonce %q", n)
		}
		seen[n] = true
	}
}
