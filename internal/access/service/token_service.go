package service

import (
	"context"
	"errors"
	"strings"

	"github.com/chidhvilasa/access-control-backend/internal/access/store"
	"github.com/chidhvilasa/access-control-backend/internal/access/token"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

var (
	ErrInvalidRequest        = errors.New("user_id, device_id and community_id are required")
	ErrInvalidAction         = errors.New("type must be entry or exit")
	ErrDeviceNotAuthorized   = errors.New("device not registered to user")
	ErrMembershipNotApproved = errors.New("membership not approved for community")
)

// TokenService gates token issuance behind the authorization decision:
// the device must belong to the requesting user and the (user, community)
// membership must be approved. The signing itself is token.Issuer's job.
type TokenService struct {
	devices     store.DeviceStore
	memberships store.MembershipStore
	issuer      *token.Issuer
}

func NewTokenService(devices store.DeviceStore, memberships store.MembershipStore, issuer *token.Issuer) *TokenService {
	return &TokenService{devices: devices, memberships: memberships, issuer: issuer}
}

// SignedToken is what the mobile client receives: the transport token and
// its expiry so the app can show a countdown without decoding anything.
type SignedToken struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// Sign issues a capability token after checking the authorization gate.
// keys.ErrNoActiveKeySet propagates out as-is — that's a community
// misconfiguration the HTTP layer reports as a server error, not a deny.
func (s *TokenService) Sign(ctx context.Context, userID, deviceID, communityID string, action types.Action) (SignedToken, error) {
	userID = strings.TrimSpace(userID)
	deviceID = strings.TrimSpace(deviceID)
	communityID = strings.TrimSpace(communityID)
	if userID == "" || deviceID == "" || communityID == "" {
		return SignedToken{}, ErrInvalidRequest
	}
	if !action.Valid() {
		return SignedToken{}, ErrInvalidAction
	}

	dev, err := s.devices.GetDevice(ctx, deviceID)
	if errors.Is(err, store.ErrNotFound) {
		return SignedToken{}, ErrDeviceNotAuthorized
	}
	if err != nil {
		return SignedToken{}, err
	}
	if dev.UserID != userID {
		return SignedToken{}, ErrDeviceNotAuthorized
	}

	m, err := s.memberships.GetMembership(ctx, userID, communityID)
	if errors.Is(err, store.ErrNotFound) {
		return SignedToken{}, ErrMembershipNotApproved
	}
	if err != nil {
		return SignedToken{}, err
	}
	if m.Status != types.MembershipApproved {
		return SignedToken{}, ErrMembershipNotApproved
	}

	tok, exp, err := s.issuer.Issue(ctx, userID, deviceID, communityID, action)
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: tok, ExpiresAt: exp}, nil
}
