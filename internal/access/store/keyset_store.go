package store

import (
	"context"

	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// KeySetStore persists per-community signing keypairs.
//
// InsertActive must supersede-and-insert in one write: any previously
// active keyset for the community is flipped inactive in the same
// transaction that stores the new one, so there is never a moment with two
// active keysets (or zero, once one has existed). Superseded rows are kept
// for audit of tokens signed before a rotation.
type KeySetStore interface {
	InsertActive(ctx context.Context, ks *types.KeySet) error

	// GetActive returns the community's active keyset, private half
	// included. ErrNotFound if the community never had one.
	GetActive(ctx context.Context, communityID string) (*types.KeySet, error)

	// ListActivePublic returns the distribution view (public halves only)
	// of every active keyset, for edge config sync.
	ListActivePublic(ctx context.Context) ([]types.KeySetPublic, error)
}
