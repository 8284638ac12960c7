package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/chidhvilasa/access-control-backend/internal/db"

	"github.com/chidhvilasa/access-control-backend/internal/access/store"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

// DirectoryStore implements UserStore, DeviceStore, and CommunityStore on
// sqlite. The three tables are small and share the same access pattern, so
// one type carries all of them.
type DirectoryStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewDirectoryStore(db *sql.DB, writer *dbpkg.Worker) *DirectoryStore {
	return &DirectoryStore{db: db, writer: writer}
}

func (s *DirectoryStore) EnsureUser(ctx context.Context, userID, phone string) error {
	now := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO users(user_id, phone, status, created_at_ms)
VALUES (?, ?, 'active', ?);
`, userID, phone, now); err != nil {
			return fmt.Errorf("EnsureUser: %w", err)
		}
		return nil
	})
}

func (s *DirectoryStore) GetUser(ctx context.Context, userID string) (*types.User, error) {
	var (
		u         types.User
		createdMs int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT user_id, phone, status, created_at_ms FROM users WHERE user_id = ?;
`, userID).Scan(&u.UserID, &u.Phone, &u.Status, &createdMs)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetUser: %w", err)
	}
	u.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &u, nil
}

func (s *DirectoryStore) EnsureDevice(ctx context.Context, deviceID, userID, platform string) error {
	now := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO devices(device_id, user_id, platform, registered_at_ms)
VALUES (?, ?, ?, ?);
`, deviceID, userID, platform, now); err != nil {
			return fmt.Errorf("EnsureDevice: %w", err)
		}
		return nil
	})
}

func (s *DirectoryStore) GetDevice(ctx context.Context, deviceID string) (*types.Device, error) {
	var (
		d     types.Device
		regMs int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT device_id, user_id, platform, registered_at_ms FROM devices WHERE device_id = ?;
`, deviceID).Scan(&d.DeviceID, &d.UserID, &d.Platform, &regMs)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetDevice: %w", err)
	}
	d.RegisteredAt = time.UnixMilli(regMs).UTC()
	return &d, nil
}

func (s *DirectoryStore) CreateCommunity(ctx context.Context, c *types.Community) error {
	id := strings.TrimSpace(c.CommunityID)
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx, `SELECT community_id FROM communities WHERE community_id = ?;`, id).Scan(&existing)
		if err == nil {
			return store.ErrExists
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("CreateCommunity check: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO communities(community_id, name, description) VALUES (?, ?, ?);
`, id, c.Name, c.Description); err != nil {
			return fmt.Errorf("CreateCommunity insert: %w", err)
		}
		return nil
	})
}

func (s *DirectoryStore) GetCommunity(ctx context.Context, communityID string) (*types.Community, error) {
	var c types.Community
	err := s.db.QueryRowContext(ctx, `
SELECT community_id, name, description FROM communities WHERE community_id = ?;
`, communityID).Scan(&c.CommunityID, &c.Name, &c.Description)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetCommunity: %w", err)
	}
	return &c, nil
}

func (s *DirectoryStore) ListCommunities(ctx context.Context) ([]types.Community, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT community_id, name, description FROM communities ORDER BY community_id;
`)
	if err != nil {
		return nil, fmt.Errorf("ListCommunities query: %w", err)
	}
	defer rows.Close()

	var out []types.Community
	for rows.Next() {
		var c types.Community
		if err := rows.Scan(&c.CommunityID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("ListCommunities scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
