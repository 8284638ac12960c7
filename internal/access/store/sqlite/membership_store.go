package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/chidhvilasa/access-control-backend/internal/db"

	"github.com/chidhvilasa/access-control-backend/internal/access/store"
	"github.com/chidhvilasa/access-control-backend/internal/access/types"
)

type MembershipStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewMembershipStore(db *sql.DB, writer *dbpkg.Worker) *MembershipStore {
	return &MembershipStore{db: db, writer: writer}
}

const membershipCols = `membership_id, user_id, community_id, status, COALESCE(approved_by, ''), updated_at_ms`

func scanMembership(row interface{ Scan(...any) error }) (*types.Membership, error) {
	var (
		m     types.Membership
		updMs int64
	)
	if err := row.Scan(&m.MembershipID, &m.UserID, &m.CommunityID, &m.Status, &m.ApprovedBy, &updMs); err != nil {
		return nil, err
	}
	m.UpdatedAt = time.UnixMilli(updMs).UTC()
	return &m, nil
}

func (s *MembershipStore) EnsureMembership(ctx context.Context, userID, communityID string) (*types.Membership, error) {
	now := time.Now().UTC().UnixMilli()
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO memberships(user_id, community_id, status, updated_at_ms)
VALUES (?, ?, 'pending', ?);
`, userID, communityID, now); err != nil {
			return fmt.Errorf("EnsureMembership insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetMembership(ctx, userID, communityID)
}

func (s *MembershipStore) GetMembership(ctx context.Context, userID, communityID string) (*types.Membership, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+membershipCols+` FROM memberships WHERE user_id = ? AND community_id = ?;
`, userID, communityID)
	m, err := scanMembership(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetMembership: %w", err)
	}
	return m, nil
}

func (s *MembershipStore) GetByID(ctx context.Context, membershipID int64) (*types.Membership, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+membershipCols+` FROM memberships WHERE membership_id = ?;
`, membershipID)
	m, err := scanMembership(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return m, nil
}

func (s *MembershipStore) ListApprovedCommunities(ctx context.Context, userID string) ([]types.Community, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.community_id, c.name, c.description
FROM memberships m
JOIN communities c ON c.community_id = m.community_id
WHERE m.user_id = ? AND m.status = 'approved'
ORDER BY c.community_id;
`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListApprovedCommunities query: %w", err)
	}
	defer rows.Close()

	var out []types.Community
	for rows.Next() {
		var c types.Community
		if err := rows.Scan(&c.CommunityID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("ListApprovedCommunities scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *MembershipStore) ListPending(ctx context.Context, communityID string) ([]types.Membership, error) {
	q := `SELECT ` + membershipCols + ` FROM memberships WHERE status = 'pending'`
	args := []any{}
	if communityID != "" {
		q += ` AND community_id = ?`
		args = append(args, communityID)
	}
	q += ` ORDER BY membership_id;`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListPending query: %w", err)
	}
	defer rows.Close()

	var out []types.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("ListPending scan: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *MembershipStore) SetStatus(ctx context.Context, membershipID int64, status types.MembershipStatus, approvedBy string, at time.Time) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE memberships SET status = ?, approved_by = ?, updated_at_ms = ? WHERE membership_id = ?;
`, string(status), approvedBy, at.UTC().UnixMilli(), membershipID)
		if err != nil {
			return fmt.Errorf("SetStatus: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("SetStatus rows: %w", err)
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}
