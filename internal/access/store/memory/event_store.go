package memory

import (
	"context"
	"sync"
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// EventStore is an in-memory append-only log of verification outcomes.
// Intended for tests and dev environments.
type EventStore struct {
	mu     sync.Mutex
	nextID int64
	events []types.Event
}

func NewEventStore() *EventStore {
	return &EventStore{nextID: 1}
}

func (s *EventStore) RecordEvent(_ context.Context, ev types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.EventID = s.nextID
	s.nextID++
	s.events = append(s.events, ev)
	return nil
}

func (s *EventStore) ListForUser(_ context.Context, userID string, limit int) ([]types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Event
	for i := len(s.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		ev := s.events[i]
		if ev.UserID == userID && ev.Verified {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *EventStore) ListFiltered(_ context.Context, communityID, userID string, limit int) ([]types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Event
	for i := len(s.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		ev := s.events[i]
		if communityID != "" && ev.CommunityID != communityID {
			continue
		}
		if userID != "" && ev.UserID != userID {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Events returns a copy of all recorded events. Test-only helper.
func (s *EventStore) Events() []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Event, len(s.events))
	copy(out, s.events)
	return out
}

// NonceStore mirrors consumed nonces in memory.
type NonceStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewNonceStore() *NonceStore {
	return &NonceStore{seen: make(map[string]time.Time)}
}

func (s *NonceStore) MarkSeen(_ context.Context, communityID, nonce string, at time.Time) (bool, error) {
	k := communityID + "/" + nonce
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[k]; ok {
		return false, nil
	}
	s.seen[k] = at
	return true, nil
}

func (s *NonceStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, at := range s.seen {
		if at.Before(cutoff) {
			delete(s.seen, k)
			n++
		}
	}
	return n, nil
}

// PiStore keeps the last heartbeat per edge unit.
type PiStore struct {
	mu   sync.Mutex
	last map[string]types.PiHeartbeat
}

func NewPiStore() *PiStore {
	return &PiStore{last: make(map[string]types.PiHeartbeat)}
}

func (s *PiStore) UpsertHeartbeat(_ context.Context, hb types.PiHeartbeat) error {
	if hb.ReceivedAt.IsZero() {
		hb.ReceivedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[hb.PiID] = hb
	return nil
}

func (s *PiStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, hb := range s.last {
		if hb.ReceivedAt.Before(cutoff) {
			delete(s.last, id)
			n++
		}
	}
	return n, nil
}
