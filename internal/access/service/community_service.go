package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/chidhvilasa/access-control-backend/internal/access/keys"
	"github.com/chidhvilasa/access-control-backend/internal/access/store"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

var (
	ErrInvalidCommunityID = errors.New("community_id is required")
	ErrCommunityExists    = errors.New("community already exists")
)

// CommunityService creates communities and serves the edge configuration
// view. Creating a community also creates its first keyset, so a community
// is never issuable-but-unverifiable.
type CommunityService struct {
	communities store.CommunityStore
	registry    *keys.Registry
}

func NewCommunityService(communities store.CommunityStore, registry *keys.Registry) *CommunityService {
	return &CommunityService{communities: communities, registry: registry}
}

// Create stores the community and provisions its initial keyset, returning
// the base64 public key for immediate distribution.
func (s *CommunityService) Create(ctx context.Context, communityID, name, description string) (publicKey string, err error) {
	communityID = strings.TrimSpace(communityID)
	if communityID == "" {
		return "", ErrInvalidCommunityID
	}

	err = s.communities.CreateCommunity(ctx, &types.Community{
		CommunityID: communityID,
		Name:        name,
		Description: description,
	})
	if errors.Is(err, store.ErrExists) {
		return "", ErrCommunityExists
	}
	if err != nil {
		return "", err
	}

	ks, err := s.registry.CreateKeySet(ctx, communityID)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ks.PublicKey), nil
}

// PiKeyset is one entry of the edge configuration: a community and the
// public half of its active keyset.
type PiKeyset struct {
	CommunityID string `json:"community_id"`
	Algo        string `json:"algo"`
	PublicKey   string `json:"public_key"`
}

// PiCommunity is the directory entry an edge unit shows on its display.
type PiCommunity struct {
	CommunityID string `json:"community_id"`
	Name        string `json:"name"`
}

// PiConfig is everything an edge unit caches for offline verification.
type PiConfig struct {
	PiID        string        `json:"pi_id"`
	Communities []PiCommunity `json:"communities"`
	Keysets     []PiKeyset    `json:"keysets"`
}

// ConfigForPi builds the sync payload for an edge unit: all communities
// plus the public halves of every active keyset. Private key material never
// enters this path.
func (s *CommunityService) ConfigForPi(ctx context.Context, piID string) (PiConfig, error) {
	comms, err := s.communities.ListCommunities(ctx)
	if err != nil {
		return PiConfig{}, err
	}
	pubs, err := s.registry.ActivePublicKeys(ctx)
	if err != nil {
		return PiConfig{}, err
	}

	cfg := PiConfig{PiID: piID}
	for _, c := range comms {
		cfg.Communities = append(cfg.Communities, PiCommunity{CommunityID: c.CommunityID, Name: c.Name})
	}
	for _, p := range pubs {
		cfg.Keysets = append(cfg.Keysets, PiKeyset{
			CommunityID: p.CommunityID,
			Algo:        p.Algo,
			PublicKey:   base64.StdEncoding.EncodeToString(p.PublicKey),
		})
	}
	return cfg, nil
}

// Rotate provisions a fresh keyset for an existing community. Exposed for
// the admin surface; edge units pick the new key up on their next sync.
func (s *CommunityService) Rotate(ctx context.Context, communityID string) (publicKey string, err error) {
	communityID = strings.TrimSpace(communityID)
	if communityID == "" {
		return "", ErrInvalidCommunityID
	}
	if _, err := s.communities.GetCommunity(ctx, communityID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCommunityID
		}
		return "", err
	}
	ks, err := s.registry.CreateKeySet(ctx, communityID)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ks.PublicKey), nil
}
