package service

import (
	"context"
	"log"
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/store"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// EventService reconciles edge verification outcomes into the backend's
// append-only log and the durable nonce mirror.
type EventService struct {
	events store.EventStore
	nonces store.NonceStore
	logger *log.Logger
}

func NewEventService(events store.EventStore, nonces store.NonceStore, logger *log.Logger) *EventService {
	return &EventService{events: events, nonces: nonces, logger: logger}
}

// ReportedEvent is one verification outcome as uploaded by an edge unit.
// Nonce is optional: units running older firmware don't report it, so the
// mirror is best-effort by design.
type ReportedEvent struct {
	UserID      string       `json:"user_id"`
	DeviceID    string       `json:"device_id"`
	CommunityID string       `json:"community_id"`
	Type        types.Action `json:"type"`
	Timestamp   time.Time    `json:"timestamp"`
	Verified    bool         `json:"verified"`
	Nonce       string       `json:"nonce,omitempty"`
}

// Ingest appends a batch of outcomes from one edge unit, best-effort per
// event: a row that fails to store is logged and skipped, never aborting
// the batch — an abort would make the reporter requeue outcomes that are
// already recorded and duplicate them on retry. A nonce already in the
// mirror is logged loudly — the door decision is long made, but a
// duplicate here means the same token was accepted by two units or across
// an edge reboot, which is worth an operator's attention.
func (s *EventService) Ingest(ctx context.Context, piID string, batch []ReportedEvent) (int, error) {
	n := 0
	for _, re := range batch {
		ts := re.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		ev := types.Event{
			UserID:      re.UserID,
			DeviceID:    re.DeviceID,
			CommunityID: re.CommunityID,
			Type:        re.Type,
			PiID:        piID,
			Timestamp:   ts,
			Verified:    re.Verified,
		}
		if err := s.events.RecordEvent(ctx, ev); err != nil {
			s.logger.Printf("event ingest: record error pi=%s user=%s: %v", piID, re.UserID, err)
			continue
		}
		n++

		if re.Verified && re.Nonce != "" {
			fresh, err := s.nonces.MarkSeen(ctx, re.CommunityID, re.Nonce, ts)
			if err != nil {
				// Mirror failures never reject the batch; the event row is
				// already the durable record.
				s.logger.Printf("event ingest: nonce mirror error pi=%s community=%s: %v", piID, re.CommunityID, err)
				continue
			}
			if !fresh {
				s.logger.Printf("event ingest: REPLAYED nonce across units pi=%s community=%s nonce=%s", piID, re.CommunityID, re.Nonce)
			}
		}
	}
	return n, nil
}

// LogsForUser returns a user's verified events, newest first.
func (s *EventService) LogsForUser(ctx context.Context, userID string, limit int) ([]types.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.events.ListForUser(ctx, userID, limit)
}

// AdminLogs returns filtered events for the admin dashboard.
func (s *EventService) AdminLogs(ctx context.Context, communityID, userID string, limit int) ([]types.Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.events.ListFiltered(ctx, communityID, userID, limit)
}
