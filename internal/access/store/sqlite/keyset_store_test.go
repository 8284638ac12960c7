package sqlite_test

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/store"
	sqlitestore "github.com/chidhvilasa/access-control-backend/internal/access/store/sqlite"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

func seedCommunity(t *testing.T, ds *sqlitestore.DirectoryStore, communityID string) {
	t.Helper()
	err := ds.CreateCommunity(context.Background(), &types.Community{
		CommunityID: communityID,
		Name:        communityID,
	})
	if err != nil && !errors.Is(err, store.ErrExists) {
		t.Fatalf("seedCommunity: %v", err)
	}
}

func newKeySet(t *testing.T, communityID string) *types.KeySet {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &types.KeySet{
		ID:          "ks-" + communityID + "-" + time.Now().Format("150405.000000000"),
		CommunityID: communityID,
		Algo:        types.AlgoEd25519,
		PublicKey:   pub,
		PrivateKey:  priv,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// InsertActive — supersede and insert in one transaction
// ═══════════════════════════════════════════════════════════════════════════

func TestKeySetStore_InsertActive_SupersedesPrior(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ds := sqlitestore.NewDirectoryStore(conn, w)
	ks := sqlitestore.NewKeySetStore(conn, w)
	ctx := context.Background()

	seedCommunity(t, ds, "apt101")

	first := newKeySet(t, "apt101")
	if err := ks.InsertActive(ctx, first); err != nil {
		t.Fatalf("InsertActive: %v", err)
	}
	second := newKeySet(t, "apt101")
	if err := ks.InsertActive(ctx, second); err != nil {
		t.Fatalf("InsertActive (rotate): %v", err)
	}

	// Exactly one active row; the superseded one is retained.
	var active, total int
	if err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM keysets WHERE community_id = ? AND active = 1`, "apt101",
	).Scan(&active); err != nil {
		t.Fatalf("count active: %v", err)
	}
	if err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM keysets WHERE community_id = ?`, "apt101",
	).Scan(&total); err != nil {
		t.Fatalf("count total: %v", err)
	}
	if active != 1 {
		t.Errorf("active rows = %d, want 1", active)
	}
	if total != 2 {
		t.Errorf("total rows = %d, want 2", total)
	}

	got, err := ks.GetActive(ctx, "apt101")
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("active keyset is %s, want %s", got.ID, second.ID)
	}
}

func TestKeySetStore_GetActive_RoundTripsKeyMaterial(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ds := sqlitestore.NewDirectoryStore(conn, w)
	ks := sqlitestore.NewKeySetStore(conn, w)
	ctx := context.Background()

	seedCommunity(t, ds, "apt101")
	in := newKeySet(t, "apt101")
	if err := ks.InsertActive(ctx, in); err != nil {
		t.Fatalf("InsertActive: %v", err)
	}

	out, err := ks.GetActive(ctx, "apt101")
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	msg := []byte("open sesame")
	if !ed25519.Verify(out.PublicKey, msg, ed25519.Sign(out.PrivateKey, msg)) {
		t.Error("key material corrupted through the store")
	}
	if out.Algo != types.AlgoEd25519 || !out.Active {
		t.Errorf("metadata mismatch: %+v", out)
	}
}

func TestKeySetStore_GetActive_Missing(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ks := sqlitestore.NewKeySetStore(conn, w)

	_, err := ks.GetActive(context.Background(), "nowhere")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ListActivePublic — distribution view
// ═══════════════════════════════════════════════════════════════════════════

func TestKeySetStore_ListActivePublic_OnlyActiveKeys(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ds := sqlitestore.NewDirectoryStore(conn, w)
	ks := sqlitestore.NewKeySetStore(conn, w)
	ctx := context.Background()

	seedCommunity(t, ds, "apt101")
	seedCommunity(t, ds, "gym_access")

	if err := ks.InsertActive(ctx, newKeySet(t, "apt101")); err != nil {
		t.Fatalf("InsertActive: %v", err)
	}
	rotated := newKeySet(t, "apt101")
	if err := ks.InsertActive(ctx, rotated); err != nil {
		t.Fatalf("InsertActive: %v", err)
	}
	gym := newKeySet(t, "gym_access")
	if err := ks.InsertActive(ctx, gym); err != nil {
		t.Fatalf("InsertActive: %v", err)
	}

	pubs, err := ks.ListActivePublic(ctx)
	if err != nil {
		t.Fatalf("ListActivePublic: %v", err)
	}
	if len(pubs) != 2 {
		t.Fatalf("got %d entries, want 2", len(pubs))
	}
	// Ordered by community; each carries the current key only.
	if pubs[0].CommunityID != "apt101" || !pubs[0].PublicKey.Equal(rotated.PublicKey) {
		t.Errorf("apt101 entry wrong: %+v", pubs[0])
	}
	if pubs[1].CommunityID != "gym_access" || !pubs[1].PublicKey.Equal(gym.PublicKey) {
		t.Errorf("gym_access entry wrong: %+v", pubs[1])
	}
}
