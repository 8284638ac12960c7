package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/chidhvilasa/access-control-backend/internal/db"

	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

type PiStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewPiStore(db *sql.DB, writer *dbpkg.Worker) *PiStore {
	return &PiStore{db: db, writer: writer}
}

func (s *PiStore) UpsertHeartbeat(ctx context.Context, hb types.PiHeartbeat) error {
	if hb.ReceivedAt.IsZero() {
		hb.ReceivedAt = time.Now().UTC()
	}
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO pi_heartbeats(pi_id, firmware_version, uptime_s, ip, received_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(pi_id) DO UPDATE SET
  firmware_version = excluded.firmware_version,
  uptime_s         = excluded.uptime_s,
  ip               = excluded.ip,
  received_at_ms   = excluded.received_at_ms;
`, hb.PiID, hb.FirmwareVersion, int64(hb.UptimeSeconds), hb.IP, hb.ReceivedAt.UTC().UnixMilli()); err != nil {
			return fmt.Errorf("UpsertHeartbeat: %w", err)
		}
		return nil
	})
}

func (s *PiStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM pi_heartbeats WHERE received_at_ms < ?;
`, cutoff.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}
