package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/store"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// DirectoryStore backs users, devices, and communities with maps. One type
// for the three small lookup tables keeps test wiring short.
type DirectoryStore struct {
	mu          sync.RWMutex
	users       map[string]types.User
	devices     map[string]types.Device
	communities map[string]types.Community
}

func NewDirectoryStore() *DirectoryStore {
	return &DirectoryStore{
		users:       make(map[string]types.User),
		devices:     make(map[string]types.Device),
		communities: make(map[string]types.Community),
	}
}

func (s *DirectoryStore) EnsureUser(_ context.Context, userID, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; ok {
		return nil
	}
	s.users[userID] = types.User{
		UserID:    userID,
		Phone:     phone,
		Status:    "active",
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *DirectoryStore) GetUser(_ context.Context, userID string) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *DirectoryStore) EnsureDevice(_ context.Context, deviceID, userID, platform string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[deviceID]; ok {
		return nil
	}
	s.devices[deviceID] = types.Device{
		DeviceID:     deviceID,
		UserID:       userID,
		Platform:     platform,
		RegisteredAt: time.Now().UTC(),
	}
	return nil
}

func (s *DirectoryStore) GetDevice(_ context.Context, deviceID string) (*types.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (s *DirectoryStore) CreateCommunity(_ context.Context, c *types.Community) error {
	id := strings.TrimSpace(c.CommunityID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.communities[id]; ok {
		return store.ErrExists
	}
	s.communities[id] = *c
	return nil
}

func (s *DirectoryStore) GetCommunity(_ context.Context, communityID string) (*types.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.communities[communityID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *DirectoryStore) ListCommunities(_ context.Context) ([]types.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Community, 0, len(s.communities))
	for _, c := range s.communities {
		out = append(out, c)
	}
	return out, nil
}
