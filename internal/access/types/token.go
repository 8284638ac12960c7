package types

// Action is the kind of access a token authorizes.
type Action string

const (
	ActionEntry Action = "entry"
	ActionExit  Action = "exit"
)

// Valid reports whether the action is one of the enumerated values.
func (a Action) Valid() bool {
	return a == ActionEntry || a == ActionExit
}

// PayloadVersion is the current token payload format version.
const PayloadVersion = 1

// TokenPayload is the signed portion of a capability token.
//
// Field order matters: the canonical encoding emits fields in declaration
// order, which must match the alphabetical key order the original readers
// expect. Do not reorder.
type TokenPayload struct {
	CommunityID string `json:"community_id"`
	DeviceID    string `json:"device_id"`
	Exp         int64  `json:"exp"`
	Iat         int64  `json:"iat"`
	Nonce       string `json:"nonce"`
	Type        Action `json:"type"`
	UserID      string `json:"user_id"`
	Ver         int    `json:"ver"`
}
