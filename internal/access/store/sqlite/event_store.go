package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/chidhvilasa/access-control-backend/internal/db"

	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// EventStore is the append-only sqlite log of verification outcomes.
type EventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewEventStore(db *sql.DB, writer *dbpkg.Worker) *EventStore {
	return &EventStore{db: db, writer: writer}
}

func (s *EventStore) RecordEvent(ctx context.Context, ev types.Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	verified := 0
	if ev.Verified {
		verified = 1
	}

	var piID any
	if ev.PiID != "" {
		piID = ev.PiID
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO events(user_id, device_id, community_id, type, pi_id, timestamp_ms, verified)
VALUES (?, ?, ?, ?, ?, ?, ?);
`, ev.UserID, ev.DeviceID, ev.CommunityID, string(ev.Type), piID, ev.Timestamp.UTC().UnixMilli(), verified); err != nil {
			return fmt.Errorf("RecordEvent insert: %w", err)
		}
		return nil
	})
}

func (s *EventStore) ListForUser(ctx context.Context, userID string, limit int) ([]types.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT event_id, user_id, device_id, community_id, type, COALESCE(pi_id, ''), timestamp_ms, verified
FROM events
WHERE user_id = ? AND verified = 1
ORDER BY timestamp_ms DESC
LIMIT ?;
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListForUser query: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *EventStore) ListFiltered(ctx context.Context, communityID, userID string, limit int) ([]types.Event, error) {
	q := `
SELECT event_id, user_id, device_id, community_id, type, COALESCE(pi_id, ''), timestamp_ms, verified
FROM events WHERE 1=1`
	args := []any{}
	if communityID != "" {
		q += ` AND community_id = ?`
		args = append(args, communityID)
	}
	if userID != "" {
		q += ` AND user_id = ?`
		args = append(args, userID)
	}
	q += ` ORDER BY timestamp_ms DESC LIMIT ?;`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListFiltered query: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]types.Event, error) {
	var out []types.Event
	for rows.Next() {
		var (
			ev       types.Event
			tsMs     int64
			verified int
		)
		if err := rows.Scan(&ev.EventID, &ev.UserID, &ev.DeviceID, &ev.CommunityID, &ev.Type, &ev.PiID, &tsMs, &verified); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Timestamp = time.UnixMilli(tsMs).UTC()
		ev.Verified = verified == 1
		out = append(out, ev)
	}
	return out, rows.Err()
}
