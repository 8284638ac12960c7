package token_test

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/token"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// fixedKeySource serves one keypair for every community, or an error.
type fixedKeySource struct {
	ks  *types.KeySet
	err error
}

func (f *fixedKeySource) ActiveKeySet(_ context.Context, communityID string) (*types.KeySet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ks, nil
}

func newTestIssuer(t *testing.T, at time.Time) (*token.Issuer, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	iss := token.NewIssuer(&fixedKeySource{ks: &types.KeySet{
		ID:          "ks-test",
		CommunityID: "apt101",
		Algo:        types.AlgoEd25519,
		PublicKey:   pub,
		PrivateKey:  priv,
		Active:      true,
	}}, 30*time.Second)
	iss.Now = func() time.Time { return at }
	return iss, pub
}

func TestIssue_StampsWindowFromClock(t *testing.T) {
	at := time.Unix(1000, 0)
	iss, pub := newTestIssuer(t, at)

	transport, exp, err := iss.Issue(context.Background(), "user001", "dev-1", "apt101", types.ActionEntry)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if exp != 1030 {
		t.Errorf("exp = %d, want iat+30 = 1030", exp)
	}

	payloadBytes, sig, err := token.FromTransport(transport)
	if err != nil {
		t.Fatalf("FromTransport: %v", err)
	}
	p, err := token.Decode(payloadBytes)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Iat != 1000 || p.Exp != 1030 {
		t.Errorf("window = [%d,%d], want [1000,1030]", p.Iat, p.Exp)
	}
	if p.UserID != "user001" || p.DeviceID != "dev-1" || p.CommunityID != "apt101" {
		t.Errorf("subject mismatch: %+v", p)
	}
	if p.Type != types.ActionEntry || p.Ver != types.PayloadVersion {
		t.Errorf("type/ver mismatch: %+v", p)
	}
	if !ed25519.Verify(pub, payloadBytes, sig) {
		t.Error("signature does not verify against the community key")
	}
}

func TestIssue_FreshNoncePerCall(t *testing.T) {
	iss, _ := newTestIssuer(t, time.Unix(1000, 0))

	nonces := make(map[string]bool)
	for i := 0; i < 20; i++ {
		transport, _, err := iss.Issue(context.Background(), "user001", "dev-1", "apt101", types.ActionEntry)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		payloadBytes, _, _ := token.FromTransport(transport)
		p, err := token.Decode(payloadBytes)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if nonces[p.Nonce] {
			t.Fatalf("nonce %q reused", p.Nonce)
		}
		nonces[p.Nonce] = true
	}
}

func TestIssue_KeySourceErrorPropagates(t *testing.T) {
	wantErr := errors.New("no active keyset")
	iss := token.NewIssuer(&fixedKeySource{err: wantErr}, 30*time.Second)

	_, _, err := iss.Issue(context.Background(), "user001", "dev-1", "apt101", types.ActionEntry)
	if !errors.Is(err, wantErr) {
		t.Errorf("expected key source error to propagate, got %v", err)
	}
}
