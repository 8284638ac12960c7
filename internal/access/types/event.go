package types

import "time"

// Event is one verification outcome, as reported by an edge unit and
// reconciled into the backend's append-only log.
type Event struct {
	EventID     int64
	UserID      string
	DeviceID    string
	CommunityID string
	Type        Action
	PiID        string
	Timestamp   time.Time
	Verified    bool
}

// PiHeartbeat is a liveness report from an edge unit.
type PiHeartbeat struct {
	PiID            string
	FirmwareVersion string
	UptimeSeconds   uint64
	IP              string
	ReceivedAt      time.Time
}
