package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/store"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

var (
	ErrInvalidDeviceID    = errors.New("device_id is required")
	ErrDeviceNotFound     = errors.New("device not found")
	ErrMembershipNotFound = errors.New("membership not found")
)

// MembershipService handles the registration/approval flow around the
// authorization decision the token core consumes.
type MembershipService struct {
	users       store.UserStore
	devices     store.DeviceStore
	memberships store.MembershipStore
}

func NewMembershipService(users store.UserStore, devices store.DeviceStore, memberships store.MembershipStore) *MembershipService {
	return &MembershipService{users: users, devices: devices, memberships: memberships}
}

// RegisterDevice ensures user, device, and a membership for the community.
// Re-registration is idempotent and reports the current membership status.
func (s *MembershipService) RegisterDevice(ctx context.Context, deviceID, userID, phone, platform, communityID string) (types.MembershipStatus, error) {
	deviceID = strings.TrimSpace(deviceID)
	userID = strings.TrimSpace(userID)
	communityID = strings.TrimSpace(communityID)
	if deviceID == "" || userID == "" || communityID == "" {
		return "", ErrInvalidRequest
	}

	if err := s.users.EnsureUser(ctx, userID, phone); err != nil {
		return "", err
	}
	if err := s.devices.EnsureDevice(ctx, deviceID, userID, platform); err != nil {
		return "", err
	}
	m, err := s.memberships.EnsureMembership(ctx, userID, communityID)
	if err != nil {
		return "", err
	}
	return m.Status, nil
}

// CommunitiesForDevice lists the approved communities of a device's owner.
func (s *MembershipService) CommunitiesForDevice(ctx context.Context, deviceID string) ([]types.Community, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, ErrInvalidDeviceID
	}
	dev, err := s.devices.GetDevice(ctx, deviceID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.memberships.ListApprovedCommunities(ctx, dev.UserID)
}

// OwnerOfDevice resolves a device to the user who registered it.
func (s *MembershipService) OwnerOfDevice(ctx context.Context, deviceID string) (string, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return "", ErrInvalidDeviceID
	}
	dev, err := s.devices.GetDevice(ctx, deviceID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrDeviceNotFound
	}
	if err != nil {
		return "", err
	}
	return dev.UserID, nil
}

// PendingRequests lists pending memberships, optionally per community.
func (s *MembershipService) PendingRequests(ctx context.Context, communityID string) ([]types.Membership, error) {
	return s.memberships.ListPending(ctx, strings.TrimSpace(communityID))
}

// Approve marks a membership approved and records who did it.
func (s *MembershipService) Approve(ctx context.Context, membershipID int64, adminID string) error {
	return s.setStatus(ctx, membershipID, types.MembershipApproved, adminID)
}

// Reject marks a membership rejected and records who did it.
func (s *MembershipService) Reject(ctx context.Context, membershipID int64, adminID string) error {
	return s.setStatus(ctx, membershipID, types.MembershipRejected, adminID)
}

func (s *MembershipService) setStatus(ctx context.Context, membershipID int64, status types.MembershipStatus, adminID string) error {
	if _, err := s.memberships.GetByID(ctx, membershipID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMembershipNotFound
		}
		return err
	}
	return s.memberships.SetStatus(ctx, membershipID, status, strings.TrimSpace(adminID), time.Now().UTC())
}
