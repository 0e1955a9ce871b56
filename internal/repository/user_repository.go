package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// UserRepository reads the user directory for sweep eligibility.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// ListIDs returns every user ID. Campus-wide events notify everyone.
func (r *UserRepository) ListIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM users`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}

// ListMemberIDs returns distinct user IDs holding a membership in any of the
// given organizations.
func (r *UserRepository) ListMemberIDs(ctx context.Context, organizationIDs []string) ([]string, error) {
	if len(organizationIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT DISTINCT user_id FROM memberships WHERE organization_id = ANY($1)`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, pq.Array(organizationIDs)); err != nil {
		return nil, fmt.Errorf("list member ids: %w", err)
	}
	return ids, nil
}
