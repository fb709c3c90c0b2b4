package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/ekinaydin/intrachat/internal/models"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// DB adds transaction support on top of DBTX; pgxpool.Pool satisfies it.
type DB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type GroupRepository struct {
	db DB
}

func NewGroupRepository(db DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create inserts a group with the creator as its sole admin and the given
// users as plain members, all in one transaction so a failing member insert
// leaves no group behind. Callers pass member ids already deduplicated and
// with the creator filtered out.
func (r *GroupRepository) Create(
	ctx context.Context,
	name string,
	creatorID int64,
	memberIDs []int64,
) (*models.Group, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var groupID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO groups (name) VALUES ($1) RETURNING id
	`, name).Scan(&groupID)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id, role)
		VALUES ($1, $2, $3)
	`, groupID, creatorID, RoleAdmin); err != nil {
		return nil, err
	}

	group := &models.Group{ID: groupID, Name: name, Admins: []int64{creatorID}, Members: []int64{}}
	for _, memberID := range memberIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO group_members (group_id, user_id, role)
			VALUES ($1, $2, $3)
			ON CONFLICT (group_id, user_id) DO NOTHING
		`, groupID, memberID, RoleMember); err != nil {
			return nil, err
		}
		group.Members = append(group.Members, memberID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return group, nil
}

// GetByID loads a group with its membership split by role. Returns
// pgx.ErrNoRows when the group does not exist.
func (r *GroupRepository) GetByID(ctx context.Context, groupID int64) (*models.Group, error) {
	group := &models.Group{ID: groupID, Members: []int64{}, Admins: []int64{}}
	err := r.db.QueryRow(ctx, `
		SELECT name FROM groups WHERE id = $1
	`, groupID).Scan(&group.Name)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT user_id, role
		FROM group_members
		WHERE group_id = $1
		ORDER BY user_id ASC
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		var role string
		if err := rows.Scan(&userID, &role); err != nil {
			return nil, err
		}
		if role == RoleAdmin {
			group.Admins = append(group.Admins, userID)
		} else {
			group.Members = append(group.Members, userID)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return group, nil
}

// ListForUser returns every group the user belongs to under any role.
func (r *GroupRepository) ListForUser(ctx context.Context, userID int64) ([]models.Group, error) {
	rows, err := r.db.Query(ctx, `
		SELECT g.id
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = $1
		ORDER BY g.id ASC
	`, userID)
	if err != nil {
		return nil, err
	}

	groupIDs := make([]int64, 0)
	for rows.Next() {
		var groupID int64
		if err := rows.Scan(&groupID); err != nil {
			rows.Close()
			return nil, err
		}
		groupIDs = append(groupIDs, groupID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	groups := make([]models.Group, 0, len(groupIDs))
	for _, groupID := range groupIDs {
		group, err := r.GetByID(ctx, groupID)
		if err != nil {
			if err == pgx.ErrNoRows {
				continue
			}
			return nil, err
		}
		groups = append(groups, *group)
	}

	return groups, nil
}

func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID int64, role string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`, groupID, userID, role)
	return err
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID int64) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM group_members
		WHERE group_id = $1 AND user_id = $2
	`, groupID, userID)
	return err
}

func (r *GroupRepository) SetRole(ctx context.Context, groupID, userID int64, role string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE group_members
		SET role = $3
		WHERE group_id = $1 AND user_id = $2
	`, groupID, userID, role)
	return err
}
