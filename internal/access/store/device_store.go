package store

import (
	"context"

	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// UserStore holds the users edge events and memberships hang off. Users are
// created implicitly at device registration; there is no account flow.
type UserStore interface {
	EnsureUser(ctx context.Context, userID, phone string) error
	GetUser(ctx context.Context, userID string) (*types.User, error)
}

// DeviceStore maps device ids to their owning user. Token issuance checks
// ownership here before anything is signed.
type DeviceStore interface {
	EnsureDevice(ctx context.Context, deviceID, userID, platform string) error

	// GetDevice returns ErrNotFound for unregistered devices.
	GetDevice(ctx context.Context, deviceID string) (*types.Device, error)
}

// CommunityStore holds the tenant records keysets and memberships belong to.
type CommunityStore interface {
	CreateCommunity(ctx context.Context, c *types.Community) error
	GetCommunity(ctx context.Context, communityID string) (*types.Community, error)
	ListCommunities(ctx context.Context) ([]types.Community, error)
}
