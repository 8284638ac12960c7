package sqlite

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/chidhvilasa/access-control-backend/internal/db"

	"github.com/chidhvilasa/access-control-backend/internal/access/store"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

type KeySetStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewKeySetStore(db *sql.DB, writer *dbpkg.Worker) *KeySetStore {
	return &KeySetStore{db: db, writer: writer}
}

// InsertActive supersedes any active keyset for the community and inserts
// the new one inside a single transaction. The partial unique index on
// (community_id) WHERE active=1 backstops the invariant at the schema
// level.
func (s *KeySetStore) InsertActive(ctx context.Context, ks *types.KeySet) error {
	createdMs := ks.CreatedAt.UTC().UnixMilli()
	if ks.CreatedAt.IsZero() {
		createdMs = time.Now().UTC().UnixMilli()
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
UPDATE keysets SET active = 0 WHERE community_id = ? AND active = 1;
`, ks.CommunityID); err != nil {
			return fmt.Errorf("InsertActive supersede: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO keysets(keyset_id, community_id, algo, public_key, private_key, active, created_at_ms)
VALUES (?, ?, ?, ?, ?, 1, ?);
`, ks.ID, ks.CommunityID, ks.Algo, []byte(ks.PublicKey), []byte(ks.PrivateKey), createdMs); err != nil {
			return fmt.Errorf("InsertActive insert: %w", err)
		}

		return nil
	})
}

func (s *KeySetStore) GetActive(ctx context.Context, communityID string) (*types.KeySet, error) {
	var (
		ks        types.KeySet
		pub, priv []byte
		active    int
		createdMs int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT keyset_id, community_id, algo, public_key, private_key, active, created_at_ms
FROM keysets
WHERE community_id = ? AND active = 1;
`, communityID).Scan(&ks.ID, &ks.CommunityID, &ks.Algo, &pub, &priv, &active, &createdMs)

	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetActive query: %w", err)
	}

	ks.PublicKey = ed25519.PublicKey(pub)
	ks.PrivateKey = ed25519.PrivateKey(priv)
	ks.Active = active == 1
	ks.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &ks, nil
}

func (s *KeySetStore) ListActivePublic(ctx context.Context) ([]types.KeySetPublic, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT community_id, algo, public_key
FROM keysets
WHERE active = 1
ORDER BY community_id;
`)
	if err != nil {
		return nil, fmt.Errorf("ListActivePublic query: %w", err)
	}
	defer rows.Close()

	var out []types.KeySetPublic
	for rows.Next() {
		var (
			p   types.KeySetPublic
			pub []byte
		)
		if err := rows.Scan(&p.CommunityID, &p.Algo, &pub); err != nil {
			return nil, fmt.Errorf("ListActivePublic scan: %w", err)
		}
		p.PublicKey = ed25519.PublicKey(pub)
		out = append(out, p)
	}
	return out, rows.Err()
}
