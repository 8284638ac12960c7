package memory

import (
	"context"
	"crypto/ed25519"
	"sort"
	"sync"

	"github.com/chidhvilasa/access-control-backend/internal/access/store"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// KeySetStore keeps keysets in memory. Intended for tests and dev; the
// supersede-and-insert in InsertActive happens under one lock, matching the
// single-transaction guarantee of the sqlite backend.
type KeySetStore struct {
	mu   sync.RWMutex
	sets []*types.KeySet
}

func NewKeySetStore() *KeySetStore {
	return &KeySetStore{}
}

func (s *KeySetStore) InsertActive(_ context.Context, ks *types.KeySet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, old := range s.sets {
		if old.CommunityID == ks.CommunityID {
			old.Active = false
		}
	}
	cp := *ks
	s.sets = append(s.sets, &cp)
	return nil
}

func (s *KeySetStore) GetActive(_ context.Context, communityID string) (*types.KeySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ks := range s.sets {
		if ks.CommunityID == communityID && ks.Active {
			cp := *ks
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *KeySetStore) ListActivePublic(_ context.Context) ([]types.KeySetPublic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.KeySetPublic
	for _, ks := range s.sets {
		if ks.Active {
			out = append(out, ks.Public())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommunityID < out[j].CommunityID })
	return out, nil
}

// ActiveCount reports how many keysets are marked active for a community.
// Test-only helper for the one-active invariant.
func (s *KeySetStore) ActiveCount(communityID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, ks := range s.sets {
		if ks.CommunityID == communityID && ks.Active {
			n++
		}
	}
	return n
}

// Keypairs returns the raw public keys stored for a community, newest last.
// Test-only helper.
func (s *KeySetStore) Keypairs(communityID string) []ed25519.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ed25519.PublicKey
	for _, ks := range s.sets {
		if ks.CommunityID == communityID {
			out = append(out, ks.PublicKey)
		}
	}
	return out
}
