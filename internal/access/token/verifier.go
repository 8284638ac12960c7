package token

import (
	"crypto/ed25519"
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// Outcome classifies a verification attempt. Every attempt yields exactly
// one outcome — the verifier never errors past its boundary, because a door
// controller must always reach a grant/deny decision.
type Outcome string

const (
	OutcomeGranted       Outcome = "granted"
	OutcomeMalformed     Outcome = "malformed"
	OutcomeBadSignature  Outcome = "bad_signature"
	OutcomeExpired       Outcome = "expired"
	OutcomeReplayed      Outcome = "replayed"
	OutcomeInvalidAction Outcome = "invalid_action"
)

// Granted reports whether the outcome opens the door.
func (o Outcome) Granted() bool { return o == OutcomeGranted }

// Result carries the outcome plus the parsed payload. Payload is nil for
// Malformed results and for BadSignature, where the decoded fields cannot
// be trusted and must not be logged as fact.
type Result struct {
	Outcome Outcome
	Payload *types.TokenPayload
}

// ReplayLedger is the verifier's only state. CheckAndInsert must be atomic:
// of two concurrent calls with the same (community, nonce), exactly one may
// return true.
type ReplayLedger interface {
	CheckAndInsert(communityID, nonce string, now time.Time) bool
}

// DefaultClockSkew is the allowance for drift between the issuing backend
// and an edge unit's clock. Edge hardware syncs NTP opportunistically, so a
// small window is expected; widen via config if field readers drift more.
const DefaultClockSkew = 2 * time.Second

// Verifier is the offline counterpart of Issuer. It needs only a cached
// public key and the local replay ledger — no network, no suspension points.
type Verifier struct {
	Replay ReplayLedger
	Skew   time.Duration
}

func NewVerifier(replay ReplayLedger, skew time.Duration) *Verifier {
	if skew < 0 {
		skew = DefaultClockSkew
	}
	return &Verifier{Replay: replay, Skew: skew}
}

// Verify runs the gate sequence against a transport token. Each gate is a
// hard stop: the first failure is the result, nothing is retried. Gate
// order is load-bearing — no payload field is acted on before the signature
// passes, and the nonce is only consumed after the token is known to be
// authentic and fresh.
func (v *Verifier) Verify(transport string, publicKey ed25519.PublicKey, now time.Time) Result {
	payloadBytes, sig, err := FromTransport(transport)
	if err != nil {
		return Result{Outcome: OutcomeMalformed}
	}
	p, err := Decode(payloadBytes)
	if err != nil || p.Ver != types.PayloadVersion {
		return Result{Outcome: OutcomeMalformed}
	}

	if len(publicKey) != ed25519.PublicKeySize || !ed25519.Verify(publicKey, payloadBytes, sig) {
		return Result{Outcome: OutcomeBadSignature}
	}

	// Skew widens only the lower bound: an issuer clock slightly ahead of
	// the unit must not make a just-issued token look future-dated, but exp
	// is a hard cutoff — a token is never accepted past it.
	iat := time.Unix(p.Iat, 0)
	exp := time.Unix(p.Exp, 0)
	if now.Before(iat.Add(-v.Skew)) || now.After(exp) {
		return Result{Outcome: OutcomeExpired, Payload: &p}
	}

	if !v.Replay.CheckAndInsert(p.CommunityID, p.Nonce, now) {
		return Result{Outcome: OutcomeReplayed, Payload: &p}
	}

	if !p.Type.Valid() {
		return Result{Outcome: OutcomeInvalidAction, Payload: &p}
	}

	return Result{Outcome: OutcomeGranted, Payload: &p}
}
