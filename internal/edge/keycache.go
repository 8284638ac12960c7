// Package edge implements the door-controller side: a YAML-backed cache of
// community public keys, a local presenter endpoint that verifies tokens
// fully offline, and a buffered reporter that uploads outcomes when
// connectivity allows.
package edge

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// cachedKey is one entry of the on-disk key cache.
type cachedKey struct {
	CommunityID string `yaml:"community_id"`
	Algo        string `yaml:"algo"`
	PublicKey   string `yaml:"public_key"`
}

type cacheFile struct {
	SyncedAt time.Time   `yaml:"synced_at"`
	Keys     []cachedKey `yaml:"keys"`
}

// KeyCache holds the public keys a unit verifies against. The in-memory map
// is the source of truth for verification; the YAML file on disk exists so a
// unit that reboots without connectivity can still open doors.
type KeyCache struct {
	path   string
	client *http.Client

	mu       sync.RWMutex
	keys     map[string]ed25519.PublicKey
	syncedAt time.Time
}

func NewKeyCache(path string, client *http.Client) *KeyCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &KeyCache{
		path:   path,
		client: client,
		keys:   make(map[string]ed25519.PublicKey),
	}
}

// Load reads the YAML cache from disk. A missing file is not an error; the
// unit just has no keys until its first sync.
func (c *KeyCache) Load() error {
	raw, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("key cache read: %w", err)
	}

	var f cacheFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("key cache parse: %w", err)
	}

	keys := make(map[string]ed25519.PublicKey, len(f.Keys))
	for _, k := range f.Keys {
		pub, err := base64.StdEncoding.DecodeString(k.PublicKey)
		if err != nil || len(pub) != ed25519.PublicKeySize {
			return fmt.Errorf("key cache: bad public key for community %q", k.CommunityID)
		}
		keys[k.CommunityID] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.syncedAt = f.SyncedAt
	c.mu.Unlock()
	return nil
}

// save writes the current key map back to disk atomically.
func (c *KeyCache) save() error {
	c.mu.RLock()
	f := cacheFile{SyncedAt: c.syncedAt}
	for id, pub := range c.keys {
		f.Keys = append(f.Keys, cachedKey{
			CommunityID: id,
			Algo:        "ED25519",
			PublicKey:   base64.StdEncoding.EncodeToString(pub),
		})
	}
	c.mu.RUnlock()

	raw, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

// piConfigPayload mirrors the /v1/pi/config response shape.
type piConfigPayload struct {
	PiID    string `json:"pi_id"`
	Keysets []struct {
		CommunityID string `json:"community_id"`
		Algo        string `json:"algo"`
		PublicKey   string `json:"public_key"`
	} `json:"keysets"`
}

// RefreshFromBackend pulls the current keysets from the backend and persists
// them. Verification never calls this; it runs on the sync timer only.
func (c *KeyCache) RefreshFromBackend(ctx context.Context, backendURL, piID string) error {
	u := backendURL + "/v1/pi/config?pi_id=" + url.QueryEscape(piID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("config sync: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("config sync: backend returned %s", resp.Status)
	}

	var payload piConfigPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("config sync: decode: %w", err)
	}

	keys := make(map[string]ed25519.PublicKey, len(payload.Keysets))
	for _, k := range payload.Keysets {
		pub, err := base64.StdEncoding.DecodeString(k.PublicKey)
		if err != nil || len(pub) != ed25519.PublicKeySize {
			return fmt.Errorf("config sync: bad public key for community %q", k.CommunityID)
		}
		keys[k.CommunityID] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.syncedAt = time.Now().UTC()
	c.mu.Unlock()

	return c.save()
}

// LookupPublicKey returns the cached key for a community, if any.
func (c *KeyCache) LookupPublicKey(communityID string) (ed25519.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pub, ok := c.keys[communityID]
	return pub, ok
}

// SyncedAt reports when the cache last refreshed from the backend; zero if
// it only ever loaded from disk.
func (c *KeyCache) SyncedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.syncedAt
}

// SetKey inserts a single key. Used by provisioning tools and tests.
func (c *KeyCache) SetKey(communityID string, pub ed25519.PublicKey) {
	c.mu.Lock()
	c.keys[communityID] = pub
	c.mu.Unlock()
}
