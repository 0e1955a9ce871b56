package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/events-api/internal/models"
)

// OrganizationRepository reads the organization directory.
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository constructs the repository.
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// FindByName resolves an organization by case-insensitive exact name. Events
// reference organizations by name string, not ID.
func (r *OrganizationRepository) FindByName(ctx context.Context, name string) (*models.Organization, error) {
	const query = `SELECT id, name, department FROM organizations WHERE LOWER(name) = LOWER($1)`
	var org models.Organization
	if err := r.db.GetContext(ctx, &org, query, name); err != nil {
		return nil, err
	}
	return &org, nil
}
