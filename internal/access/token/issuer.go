package token

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// DefaultTTL is the default validity window for issued tokens. 30 seconds
// is long enough for an NFC presentation and short enough that a leaked
// token is nearly useless. Tune via Issuer.TTL / config, not here.
const DefaultTTL = 30 * time.Second

// KeySource yields the active signing keyset for a community.
// keys.Registry satisfies this; issuance never touches superseded keys.
type KeySource interface {
	ActiveKeySet(ctx context.Context, communityID string) (*types.KeySet, error)
}

// Issuer builds, stamps, and signs capability tokens. Authorization
// (device ownership, membership approval) is the caller's job — the issuer
// assumes the decision has already been made.
type Issuer struct {
	Keys KeySource
	TTL  time.Duration

	// Now is stubbed in tests. Nil means time.Now.
	Now func() time.Time
}

func NewIssuer(keys KeySource, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{Keys: keys, TTL: ttl}
}

func (i *Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// Issue signs a fresh token for the given subject and returns the transport
// string plus its expiry (unix seconds). Every call produces a new nonce;
// tokens are never cached or reused. On any error nothing is emitted.
func (i *Issuer) Issue(ctx context.Context, userID, deviceID, communityID string, action types.Action) (string, int64, error) {
	ks, err := i.Keys.ActiveKeySet(ctx, communityID)
	if err != nil {
		return "", 0, err
	}

	nonce, err := NewNonce()
	if err != nil {
		return "", 0, err
	}

	iat := i.now().Unix()
	exp := iat + int64(i.TTL/time.Second)

	p := types.TokenPayload{
		CommunityID: communityID,
		DeviceID:    deviceID,
		Exp:         exp,
		Iat:         iat,
		Nonce:       nonce,
		Type:        action,
		UserID:      userID,
		Ver:         types.PayloadVersion,
	}

	encoded, err := Encode(p)
	if err != nil {
		return "", 0, err
	}

	if len(ks.PrivateKey) != ed25519.PrivateKeySize {
		return "", 0, fmt.Errorf("keyset %s: bad private key length %d", ks.ID, len(ks.PrivateKey))
	}
	sig := ed25519.Sign(ks.PrivateKey, encoded)

	return ToTransport(encoded, sig), exp, nil
}
