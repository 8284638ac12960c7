// Package keys owns the per-community signing key lifecycle: generation,
// the one-active-keyset invariant, and the public/private exposure split.
package keys

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chidhvilasa/access-control-backend/internal/access/store"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// ErrNoActiveKeySet means the community has never had a keyset created.
// This is a configuration error (community set up without keys), not a
// runtime fault, and surfaces to API callers as a server error.
var ErrNoActiveKeySet = errors.New("no active keyset for community")

// Registry is the only path to signing keys. Issuers get the full keyset;
// everything outside the issuing boundary goes through PublicKey and never
// sees private material.
type Registry struct {
	store store.KeySetStore

	// mu guards locks; each community gets its own rotation lock so that
	// concurrent CreateKeySet calls for one community serialize while
	// different communities rotate independently.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRegistry(s store.KeySetStore) *Registry {
	return &Registry{store: s, locks: make(map[string]*sync.Mutex)}
}

func (r *Registry) rotationLock(communityID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[communityID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[communityID] = l
	}
	return l
}

// CreateKeySet generates a fresh Ed25519 keypair for the community, stores
// it as the active keyset (superseding any prior one in the same write),
// and returns it. Rotation is serialized per community: two concurrent
// calls cannot leave two keysets active. There is no implicit rotation
// anywhere else — exactly one write per call.
func (r *Registry) CreateKeySet(ctx context.Context, communityID string) (*types.KeySet, error) {
	l := r.rotationLock(communityID)
	l.Lock()
	defer l.Unlock()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}

	ks := &types.KeySet{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		Algo:        types.AlgoEd25519,
		PublicKey:   pub,
		PrivateKey:  priv,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}

	if err := r.store.InsertActive(ctx, ks); err != nil {
		return nil, fmt.Errorf("store keyset: %w", err)
	}
	return ks, nil
}

// ActiveKeySet returns the community's active keyset, private key included.
// Callers must stay inside the issuing trust boundary — this is what
// token.Issuer signs with.
func (r *Registry) ActiveKeySet(ctx context.Context, communityID string) (*types.KeySet, error) {
	ks, err := r.store.GetActive(ctx, communityID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveKeySet, communityID)
	}
	if err != nil {
		return nil, err
	}
	return ks, nil
}

// PublicKey is the only keyset accessor exposed to edge and mobile
// collaborators: just the public half.
func (r *Registry) PublicKey(ctx context.Context, communityID string) (ed25519.PublicKey, error) {
	ks, err := r.ActiveKeySet(ctx, communityID)
	if err != nil {
		return nil, err
	}
	return append(ed25519.PublicKey(nil), ks.PublicKey...), nil
}

// ActivePublicKeys returns the distribution view of every community's
// active key, for /pi/config sync.
func (r *Registry) ActivePublicKeys(ctx context.Context) ([]types.KeySetPublic, error) {
	return r.store.ListActivePublic(ctx)
}
