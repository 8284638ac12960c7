package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/chidhvilasa/access-control-backend/internal/db"
)

// NonceStore is the durable mirror of the edge replay ledgers. The unique
// (community_id, nonce) index makes MarkSeen's check-and-insert atomic at
// the schema level.
type NonceStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewNonceStore(db *sql.DB, writer *dbpkg.Worker) *NonceStore {
	return &NonceStore{db: db, writer: writer}
}

func (s *NonceStore) MarkSeen(ctx context.Context, communityID, nonce string, at time.Time) (bool, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	fresh := false
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO nonces_seen(community_id, nonce, seen_at_ms)
VALUES (?, ?, ?);
`, communityID, nonce, at.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("MarkSeen insert: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("MarkSeen rows: %w", err)
		}
		fresh = n == 1
		return nil
	})
	return fresh, err
}

func (s *NonceStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM nonces_seen WHERE seen_at_ms < ?;
`, cutoff.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}
