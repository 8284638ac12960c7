package keys_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"sync"
	"testing"

	"github.com/chidhvilasa/access-control-backend/internal/access/keys"
	"github.com/chidhvilasa/access-control-backend/internal/access/store/memory"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

func newTestRegistry() (*keys.Registry, *memory.KeySetStore) {
	ks := memory.NewKeySetStore()
	return keys.NewRegistry(ks), ks
}

// ── Creation ─────────────────────────────────────────────────────────────────

func TestCreateKeySet_GeneratesValidKeypair(t *testing.T) {
	r, _ := newTestRegistry()

	ks, err := r.CreateKeySet(context.Background(), "apt101")
	if err != nil {
		t.Fatalf("CreateKeySet: %v", err)
	}
	if ks.Algo != types.AlgoEd25519 {
		t.Errorf("algo = %q, want %q", ks.Algo, types.AlgoEd25519)
	}
	if ks.ID == "" {
		t.Error("keyset id not assigned")
	}
	if !ks.Active {
		t.Error("new keyset not active")
	}

	// The halves must actually belong together.
	msg := []byte("open sesame")
	if !ed25519.Verify(ks.PublicKey, msg, ed25519.Sign(ks.PrivateKey, msg)) {
		t.Error("generated keypair does not sign/verify")
	}
}

func TestCreateKeySet_RotationSupersedes(t *testing.T) {
	r, store := newTestRegistry()
	ctx := context.Background()

	first, err := r.CreateKeySet(ctx, "apt101")
	if err != nil {
		t.Fatalf("CreateKeySet: %v", err)
	}
	second, err := r.CreateKeySet(ctx, "apt101")
	if err != nil {
		t.Fatalf("CreateKeySet (rotate): %v", err)
	}

	if store.ActiveCount("apt101") != 1 {
		t.Fatalf("active count = %d, want 1", store.ActiveCount("apt101"))
	}
	active, err := r.ActiveKeySet(ctx, "apt101")
	if err != nil {
		t.Fatalf("ActiveKeySet: %v", err)
	}
	if active.ID != second.ID {
		t.Errorf("active keyset is %s, want the rotated one %s", active.ID, second.ID)
	}
	// Superseded material stays stored for audit.
	if got := len(store.Keypairs("apt101")); got != 2 {
		t.Errorf("stored keypairs = %d, want 2", got)
	}
	if bytes.Equal(first.PublicKey, second.PublicKey) {
		t.Error("rotation produced an identical public key")
	}
}

func TestCreateKeySet_CommunitiesIndependent(t *testing.T) {
	r, store := newTestRegistry()
	ctx := context.Background()

	if _, err := r.CreateKeySet(ctx, "apt101"); err != nil {
		t.Fatalf("CreateKeySet: %v", err)
	}
	if _, err := r.CreateKeySet(ctx, "gym_access"); err != nil {
		t.Fatalf("CreateKeySet: %v", err)
	}

	if store.ActiveCount("apt101") != 1 || store.ActiveCount("gym_access") != 1 {
		t.Error("each community should hold exactly one active keyset")
	}
}

func TestCreateKeySet_ConcurrentRotation_OneActive(t *testing.T) {
	r, store := newTestRegistry()

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.CreateKeySet(context.Background(), "apt101"); err != nil {
				t.Errorf("CreateKeySet: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := store.ActiveCount("apt101"); got != 1 {
		t.Errorf("after %d concurrent rotations: %d active, want 1", n, got)
	}
	if got := len(store.Keypairs("apt101")); got != n {
		t.Errorf("stored keypairs = %d, want %d", got, n)
	}
}

// ── Lookup ───────────────────────────────────────────────────────────────────

func TestActiveKeySet_MissingCommunity(t *testing.T) {
	r, _ := newTestRegistry()

	_, err := r.ActiveKeySet(context.Background(), "nowhere")
	if !errors.Is(err, keys.ErrNoActiveKeySet) {
		t.Errorf("expected ErrNoActiveKeySet, got %v", err)
	}
}

func TestPublicKey_ReturnsCopy(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()

	ks, err := r.CreateKeySet(ctx, "apt101")
	if err != nil {
		t.Fatalf("CreateKeySet: %v", err)
	}

	pub, err := r.PublicKey(ctx, "apt101")
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	if !bytes.Equal(pub, ks.PublicKey) {
		t.Fatal("public key mismatch")
	}
	pub[0] ^= 0xFF
	again, _ := r.PublicKey(ctx, "apt101")
	if !bytes.Equal(again, ks.PublicKey) {
		t.Error("mutating the returned key leaked into the registry")
	}
}

func TestActivePublicKeys_NoPrivateMaterial(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()

	if _, err := r.CreateKeySet(ctx, "apt101"); err != nil {
		t.Fatalf("CreateKeySet: %v", err)
	}
	if _, err := r.CreateKeySet(ctx, "gym_access"); err != nil {
		t.Fatalf("CreateKeySet: %v", err)
	}

	pubs, err := r.ActivePublicKeys(ctx)
	if err != nil {
		t.Fatalf("ActivePublicKeys: %v", err)
	}
	if len(pubs) != 2 {
		t.Fatalf("got %d entries, want 2", len(pubs))
	}
	for _, p := range pubs {
		if len(p.PublicKey) != ed25519.PublicKeySize {
			t.Errorf("community %s: bad public key length %d", p.CommunityID, len(p.PublicKey))
		}
	}
}
