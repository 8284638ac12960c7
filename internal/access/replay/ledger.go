// Package replay holds the edge-side nonce ledger. It is the only mutable
// state verification touches: a bounded in-memory set of consumed nonces.
//
// The ledger lives only as long as the process. A reboot clears it, which
// reopens a replay window bounded by the token TTL — an accepted trade-off
// for hardware with no reliable local storage, not a defect.
package replay

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Ledger records consumed (community, nonce) pairs. Entries expire after
// the maximum possible token lifetime: past that point the token they
// belong to can never verify again, so keeping them only costs memory.
type Ledger struct {
	cache *gocache.Cache
}

// New builds a ledger whose entries live for maxTTL (token TTL plus the
// verifier's clock-skew allowance). cleanup is how often expired entries
// are actually purged; <=0 picks maxTTL.
func New(maxTTL, cleanup time.Duration) *Ledger {
	if cleanup <= 0 {
		cleanup = maxTTL
	}
	return &Ledger{cache: gocache.New(maxTTL, cleanup)}
}

// CheckAndInsert atomically records the nonce if it is fresh. Returns true
// on first sight, false if already present. Add under go-cache's lock is a
// single check-then-insert critical section, so two concurrent calls with
// the same nonce cannot both win.
func (l *Ledger) CheckAndInsert(communityID, nonce string, _ time.Time) bool {
	return l.cache.Add(key(communityID, nonce), struct{}{}, gocache.DefaultExpiration) == nil
}

// Evict drops entries past their lifetime immediately instead of waiting
// for the janitor.
func (l *Ledger) Evict() {
	l.cache.DeleteExpired()
}

// Len reports live entries, expired ones included until eviction.
func (l *Ledger) Len() int {
	return l.cache.ItemCount()
}

func key(communityID, nonce string) string {
	return communityID + "/" + strings.ToLower(nonce)
}
