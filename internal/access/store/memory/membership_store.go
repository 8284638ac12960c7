package memory

import (
	"context"
	"sync"
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/store"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// MembershipStore keeps memberships in memory for tests and dev.
type MembershipStore struct {
	mu          sync.Mutex
	nextID      int64
	memberships []*types.Membership

	// communities resolves approved community ids to full records for
	// ListApprovedCommunities. Optional; nil yields bare records.
	communities *DirectoryStore
}

func NewMembershipStore(dir *DirectoryStore) *MembershipStore {
	return &MembershipStore{nextID: 1, communities: dir}
}

func (s *MembershipStore) find(userID, communityID string) *types.Membership {
	for _, m := range s.memberships {
		if m.UserID == userID && m.CommunityID == communityID {
			return m
		}
	}
	return nil
}

func (s *MembershipStore) EnsureMembership(_ context.Context, userID, communityID string) (*types.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m := s.find(userID, communityID); m != nil {
		cp := *m
		return &cp, nil
	}
	m := &types.Membership{
		MembershipID: s.nextID,
		UserID:       userID,
		CommunityID:  communityID,
		Status:       types.MembershipPending,
		UpdatedAt:    time.Now().UTC(),
	}
	s.nextID++
	s.memberships = append(s.memberships, m)
	cp := *m
	return &cp, nil
}

func (s *MembershipStore) GetMembership(_ context.Context, userID, communityID string) (*types.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m := s.find(userID, communityID); m != nil {
		cp := *m
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (s *MembershipStore) GetByID(_ context.Context, membershipID int64) (*types.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.memberships {
		if m.MembershipID == membershipID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MembershipStore) ListApprovedCommunities(ctx context.Context, userID string) ([]types.Community, error) {
	s.mu.Lock()
	var ids []string
	for _, m := range s.memberships {
		if m.UserID == userID && m.Status == types.MembershipApproved {
			ids = append(ids, m.CommunityID)
		}
	}
	s.mu.Unlock()

	out := make([]types.Community, 0, len(ids))
	for _, id := range ids {
		if s.communities != nil {
			if c, err := s.communities.GetCommunity(ctx, id); err == nil {
				out = append(out, *c)
				continue
			}
		}
		out = append(out, types.Community{CommunityID: id})
	}
	return out, nil
}

func (s *MembershipStore) ListPending(_ context.Context, communityID string) ([]types.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Membership
	for _, m := range s.memberships {
		if m.Status != types.MembershipPending {
			continue
		}
		if communityID != "" && m.CommunityID != communityID {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (s *MembershipStore) SetStatus(_ context.Context, membershipID int64, status types.MembershipStatus, approvedBy string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.memberships {
		if m.MembershipID == membershipID {
			m.Status = status
			m.ApprovedBy = approvedBy
			m.UpdatedAt = at
			return nil
		}
	}
	return store.ErrNotFound
}
