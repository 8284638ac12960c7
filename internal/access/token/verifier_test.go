package token_test

import (
	"crypto/ed25519"
	"sync"
	"testing"
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/replay"
	"github.com/chidhvilasa/access-control-backend/internal/access/token"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

func newTestVerifier(t *testing.T) *token.Verifier {
	t.Helper()
	return token.NewVerifier(replay.New(time.Minute, time.Minute), 2*time.Second)
}

func testKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return pub, priv
}

// signToken signs a payload directly, bypassing the issuer, so tests can
// construct arbitrary windows, nonces, and actions.
func signToken(t *testing.T, priv ed25519.PrivateKey, p types.TokenPayload) string {
	t.Helper()
	b, err := token.Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return token.ToTransport(b, ed25519.Sign(priv, b))
}

func payloadAt(iat int64, nonce string) types.TokenPayload {
	return types.TokenPayload{
		CommunityID: "apt101",
		DeviceID:    "dev-1",
		Exp:         iat + 30,
		Iat:         iat,
		Nonce:       nonce,
		Type:        types.ActionEntry,
		UserID:      "user001",
		Ver:         types.PayloadVersion,
	}
}

// ── Full presentation sequence ───────────────────────────────────────────────

// Token issued at t=1000 with a 30s window: granted at 1005, replayed on a
// second presentation at 1006, and a fresh token is expired by 1040.
func TestVerify_PresentationSequence(t *testing.T) {
	pub, priv := testKeypair(t)
	v := newTestVerifier(t)

	tok := signToken(t, priv, payloadAt(1000, "aabbccddeeff001122334455"))

	res := v.Verify(tok, pub, time.Unix(1005, 0))
	if res.Outcome != token.OutcomeGranted {
		t.Fatalf("first presentation: got %s, want granted", res.Outcome)
	}
	if res.Payload == nil || res.Payload.UserID != "user001" {
		t.Fatalf("granted result missing payload: %+v", res.Payload)
	}

	res = v.Verify(tok, pub, time.Unix(1006, 0))
	if res.Outcome != token.OutcomeReplayed {
		t.Errorf("second presentation: got %s, want replayed", res.Outcome)
	}

	fresh := signToken(t, priv, payloadAt(1000, "00112233445566778899aabb"))
	res = v.Verify(fresh, pub, time.Unix(1040, 0))
	if res.Outcome != token.OutcomeExpired {
		t.Errorf("late presentation: got %s, want expired", res.Outcome)
	}
}

// ── Time window ──────────────────────────────────────────────────────────────

func TestVerify_WindowBoundaries(t *testing.T) {
	pub, priv := testKeypair(t)

	cases := []struct {
		name string
		at   int64
		want token.Outcome
	}{
		{"skew before iat", 998, token.OutcomeGranted},
		{"just before skewed iat", 997, token.OutcomeExpired},
		{"at iat", 1000, token.OutcomeGranted},
		{"at exp", 1030, token.OutcomeGranted},
		// exp is a hard cutoff: skew never stretches the upper bound.
		{"just past exp", 1031, token.OutcomeExpired},
		{"skew past exp", 1032, token.OutcomeExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newTestVerifier(t)
			nonce, _ := token.NewNonce()
			tok := signToken(t, priv, payloadAt(1000, nonce))
			res := v.Verify(tok, pub, time.Unix(tc.at, 0))
			if res.Outcome != tc.want {
				t.Errorf("at t=%d: got %s, want %s", tc.at, res.Outcome, tc.want)
			}
		})
	}
}

// ── Tampering and key isolation ──────────────────────────────────────────────

func TestVerify_TamperedPayload(t *testing.T) {
	pub, priv := testKeypair(t)
	v := newTestVerifier(t)

	p := payloadAt(1000, "aabbccddeeff001122334455")
	b, err := token.Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	sig := ed25519.Sign(priv, b)

	// Flip one payload character after signing. Still valid JSON, so the
	// decode gate passes and the signature gate must catch it.
	tampered := []byte(string(b))
	for i := range tampered {
		if tampered[i] == '1' {
			tampered[i] = '2'
			break
		}
	}

	res := v.Verify(token.ToTransport(tampered, sig), pub, time.Unix(1005, 0))
	if res.Outcome != token.OutcomeBadSignature {
		t.Errorf("got %s, want bad_signature", res.Outcome)
	}
	if res.Payload != nil {
		t.Error("bad_signature result must not expose the payload")
	}
}

func TestVerify_WrongCommunityKey(t *testing.T) {
	_, privA := testKeypair(t)
	pubB, _ := testKeypair(t)
	v := newTestVerifier(t)

	tok := signToken(t, privA, payloadAt(1000, "aabbccddeeff001122334455"))
	res := v.Verify(tok, pubB, time.Unix(1005, 0))
	if res.Outcome != token.OutcomeBadSignature {
		t.Errorf("token signed by A verified with B's key: got %s, want bad_signature", res.Outcome)
	}
}

func TestVerify_Malformed(t *testing.T) {
	pub, _ := testKeypair(t)
	v := newTestVerifier(t)

	for _, input := range []string{"", "not-a-token", "e30.e30", "!!!.!!!"} {
		res := v.Verify(input, pub, time.Unix(1005, 0))
		if res.Outcome != token.OutcomeMalformed {
			t.Errorf("input %q: got %s, want malformed", input, res.Outcome)
		}
		if res.Payload != nil {
			t.Errorf("input %q: malformed result must not expose a payload", input)
		}
	}
}

func TestVerify_UnknownVersion(t *testing.T) {
	pub, priv := testKeypair(t)
	v := newTestVerifier(t)

	p := payloadAt(1000, "aabbccddeeff001122334455")
	p.Ver = 2
	res := v.Verify(signToken(t, priv, p), pub, time.Unix(1005, 0))
	if res.Outcome != token.OutcomeMalformed {
		t.Errorf("got %s, want malformed for unknown version", res.Outcome)
	}
}

// ── Action gate ──────────────────────────────────────────────────────────────

func TestVerify_InvalidAction(t *testing.T) {
	pub, priv := testKeypair(t)
	v := newTestVerifier(t)

	p := payloadAt(1000, "aabbccddeeff001122334455")
	p.Type = "open_sesame"
	res := v.Verify(signToken(t, priv, p), pub, time.Unix(1005, 0))
	if res.Outcome != token.OutcomeInvalidAction {
		t.Errorf("got %s, want invalid_action", res.Outcome)
	}
}

func TestVerify_ExitAction(t *testing.T) {
	pub, priv := testKeypair(t)
	v := newTestVerifier(t)

	p := payloadAt(1000, "aabbccddeeff001122334455")
	p.Type = types.ActionExit
	res := v.Verify(signToken(t, priv, p), pub, time.Unix(1005, 0))
	if res.Outcome != token.OutcomeGranted {
		t.Errorf("got %s, want granted for exit", res.Outcome)
	}
}

// ── Replay ───────────────────────────────────────────────────────────────────

// A failed gate must not consume the nonce: a token denied for an invalid
// action can never be "granted" later, but an expired-then-retried clock
// glitch must not poison a still-valid nonce either.
func TestVerify_FailedGateDoesNotConsumeNonce(t *testing.T) {
	pub, priv := testKeypair(t)
	v := newTestVerifier(t)

	tok := signToken(t, priv, payloadAt(1000, "aabbccddeeff001122334455"))

	// Too early: expired outcome, nonce untouched.
	if res := v.Verify(tok, pub, time.Unix(900, 0)); res.Outcome != token.OutcomeExpired {
		t.Fatalf("early presentation: got %s, want expired", res.Outcome)
	}
	// In window: the nonce is still fresh.
	if res := v.Verify(tok, pub, time.Unix(1005, 0)); res.Outcome != token.OutcomeGranted {
		t.Errorf("in-window presentation after early denial: got %s, want granted", res.Outcome)
	}
}

func TestVerify_NonceScopedPerCommunity(t *testing.T) {
	pubA, privA := testKeypair(t)
	pubB, privB := testKeypair(t)
	v := newTestVerifier(t)

	nonce := "aabbccddeeff001122334455"
	pA := payloadAt(1000, nonce)
	pB := payloadAt(1000, nonce)
	pB.CommunityID = "gym_access"

	if res := v.Verify(signToken(t, privA, pA), pubA, time.Unix(1005, 0)); res.Outcome != token.OutcomeGranted {
		t.Fatalf("community A: got %s, want granted", res.Outcome)
	}
	// Same nonce under a different community is a distinct ledger entry.
	if res := v.Verify(signToken(t, privB, pB), pubB, time.Unix(1005, 0)); res.Outcome != token.OutcomeGranted {
		t.Errorf("community B with same nonce: got %s, want granted", res.Outcome)
	}
}

func TestVerify_ConcurrentSameToken_SingleWinner(t *testing.T) {
	pub, priv := testKeypair(t)
	v := newTestVerifier(t)

	tok := signToken(t, priv, payloadAt(1000, "aabbccddeeff001122334455"))
	at := time.Unix(1005, 0)

	const n = 32
	var wg sync.WaitGroup
	outcomes := make([]token.Outcome, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = v.Verify(tok, pub, at).Outcome
		}(i)
	}
	wg.Wait()

	granted, replayed := 0, 0
	for _, o := range outcomes {
		switch o {
		case token.OutcomeGranted:
			granted++
		case token.OutcomeReplayed:
			replayed++
		default:
			t.Fatalf("unexpected outcome %s", o)
		}
	}
	if granted != 1 {
		t.Errorf("expected exactly 1 granted, got %d (replayed=%d)", granted, replayed)
	}
}
