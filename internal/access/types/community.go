package types

import "time"

type Community struct {
	CommunityID string
	Name        string
	Description string
}

type User struct {
	UserID    string
	Phone     string
	Status    string
	CreatedAt time.Time
}

type Device struct {
	DeviceID     string
	UserID       string
	Platform     string
	RegisteredAt time.Time
}

// MembershipStatus tracks where a (user, community) pair sits in the
// approval flow. Tokens are only ever issued against approved memberships.
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipApproved MembershipStatus = "approved"
	MembershipRejected MembershipStatus = "rejected"
)

type Membership struct {
	MembershipID int64
	UserID       string
	CommunityID  string
	Status       MembershipStatus
	ApprovedBy   string
	UpdatedAt    time.Time
}
