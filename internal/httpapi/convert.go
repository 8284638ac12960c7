package httpapi

import (
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// Wire shapes for responses, and conversions from the domain types.

type communityResponse struct {
	CommunityID string `json:"community_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
}

type membershipResponse struct {
	MembershipID int64  `json:"membership_id"`
	UserID       string `json:"user_id"`
	CommunityID  string `json:"community_id"`
	Status       string `json:"status"`
	UpdatedAt    string `json:"updated_at"`
}

func toMembershipResponse(m types.Membership) membershipResponse {
	return membershipResponse{
		MembershipID: m.MembershipID,
		UserID:       m.UserID,
		CommunityID:  m.CommunityID,
		Status:       string(m.Status),
		UpdatedAt:    m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type eventResponse struct {
	EventID     int64  `json:"event_id"`
	UserID      string `json:"user_id"`
	DeviceID    string `json:"device_id"`
	CommunityID string `json:"community_id"`
	Type        string `json:"type"`
	PiID        string `json:"pi_id"`
	Timestamp   string `json:"timestamp"`
	Verified    bool   `json:"verified"`
}

func toEventResponses(events []types.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			EventID:     e.EventID,
			UserID:      e.UserID,
			DeviceID:    e.DeviceID,
			CommunityID: e.CommunityID,
			Type:        string(e.Type),
			PiID:        e.PiID,
			Timestamp:   e.Timestamp.UTC().Format(time.RFC3339),
			Verified:    e.Verified,
		})
	}
	return out
}

// actionFromString passes the raw string through as an Action; validation
// happens in the token layer so unknown values surface as ErrInvalidAction.
func actionFromString(s string) types.Action {
	return types.Action(s)
}

func heartbeatFromRequest(req heartbeatRequest) types.PiHeartbeat {
	return types.PiHeartbeat{
		PiID:            req.PiID,
		FirmwareVersion: req.FirmwareVersion,
		UptimeSeconds:   req.UptimeSeconds,
		IP:              req.IP,
		ReceivedAt:      time.Now().UTC(),
	}
}
