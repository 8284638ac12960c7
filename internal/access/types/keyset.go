package types

import (
	"crypto/ed25519"
	"time"
)

// AlgoEd25519 is the only signing algorithm in use. The tag travels with
// public keys so edge units can reject keys they don't understand.
const AlgoEd25519 = "ED25519"

// KeySet is a community's signing keypair. The private half never leaves
// the issuing boundary — only KeySetPublic is handed to edge or mobile
// collaborators.
type KeySet struct {
	ID          string
	CommunityID string
	Algo        string
	PublicKey   ed25519.PublicKey
	PrivateKey  ed25519.PrivateKey
	Active      bool
	CreatedAt   time.Time
}

// Public strips the keyset down to its distributable half.
func (k *KeySet) Public() KeySetPublic {
	return KeySetPublic{
		CommunityID: k.CommunityID,
		Algo:        k.Algo,
		PublicKey:   append(ed25519.PublicKey(nil), k.PublicKey...),
	}
}

// KeySetPublic is the distribution form of a keyset: what /pi/config hands
// to edge units and what they cache locally.
type KeySetPublic struct {
	CommunityID string
	Algo        string
	PublicKey   ed25519.PublicKey
}
