package store

import (
	"context"
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// MembershipStore tracks (user, community) approval state. The core treats
// approval as an opaque gate; all state transitions happen here via the
// admin surface.
type MembershipStore interface {
	// EnsureMembership returns the existing membership or creates a new
	// pending one.
	EnsureMembership(ctx context.Context, userID, communityID string) (*types.Membership, error)

	// GetMembership returns ErrNotFound when the pair has never registered.
	GetMembership(ctx context.Context, userID, communityID string) (*types.Membership, error)

	GetByID(ctx context.Context, membershipID int64) (*types.Membership, error)

	// ListApprovedCommunities returns the communities a user may request
	// tokens for.
	ListApprovedCommunities(ctx context.Context, userID string) ([]types.Community, error)

	// ListPending returns pending requests, optionally filtered by
	// community ("" = all).
	ListPending(ctx context.Context, communityID string) ([]types.Membership, error)

	SetStatus(ctx context.Context, membershipID int64, status types.MembershipStatus, approvedBy string, at time.Time) error
}
