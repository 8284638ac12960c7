package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/store"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

var ErrInvalidPiID = errors.New("pi_id is required")

// PiService records edge unit liveness. A heartbeat is informational only;
// unknown units still get config and may report events, matching the
// original deployment model where units are provisioned by hand.
type PiService struct {
	pis store.PiStore
}

func NewPiService(pis store.PiStore) *PiService {
	return &PiService{pis: pis}
}

func (s *PiService) Heartbeat(ctx context.Context, hb types.PiHeartbeat) error {
	hb.PiID = strings.TrimSpace(hb.PiID)
	if hb.PiID == "" {
		return ErrInvalidPiID
	}
	if hb.ReceivedAt.IsZero() {
		hb.ReceivedAt = time.Now().UTC()
	}
	return s.pis.UpsertHeartbeat(ctx, hb)
}
