package store

import (
	"context"
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// EventStore is the append-only log of verification outcomes. Nothing in
// the system updates or deletes an event once recorded.
type EventStore interface {
	RecordEvent(ctx context.Context, ev types.Event) error

	// ListForUser returns a user's verified events, newest first.
	ListForUser(ctx context.Context, userID string, limit int) ([]types.Event, error)

	// ListFiltered is the admin view: optional community/user filters
	// ("" = no filter), newest first.
	ListFiltered(ctx context.Context, communityID, userID string, limit int) ([]types.Event, error)
}

// NonceStore is the durable server-side mirror of the edge replay ledgers,
// populated during event reconciliation. It exists so replay across an edge
// reboot is still visible in audit, even though the door decision was
// already made offline.
type NonceStore interface {
	// MarkSeen records the nonce; returns false if it was already present.
	MarkSeen(ctx context.Context, communityID, nonce string, at time.Time) (bool, error)

	// PruneOlderThan drops entries past the maximum token lifetime (plus
	// whatever audit retention is configured). Returns rows removed.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PiStore tracks edge unit liveness from heartbeats.
type PiStore interface {
	UpsertHeartbeat(ctx context.Context, hb types.PiHeartbeat) error
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
