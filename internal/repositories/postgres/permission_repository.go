package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/asakaida/tollgate/internal/entities"
	"github.com/asakaida/tollgate/internal/repositories"
)

// PostgresPermissionRepository implements PermissionRepository using PostgreSQL
type PostgresPermissionRepository struct {
	db *sql.DB
}

// NewPostgresPermissionRepository creates a new PostgreSQL permission repository
func NewPostgresPermissionRepository(db *sql.DB) repositories.PermissionRepository {
	return &PostgresPermissionRepository{db: db}
}

// Create inserts a new permission and populates its ID
func (r *PostgresPermissionRepository) Create(ctx context.Context, perm *entities.Permission) error {
	query := `
		INSERT INTO permissions (name, description, api_endpoint, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		perm.Name,
		perm.Description,
		perm.APIEndpoint,
		now,
		now,
	).Scan(&perm.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrDuplicateName
		}
		return fmt.Errorf("failed to create permission: %w", err)
	}

	perm.CreatedAt = now
	perm.UpdatedAt = now
	return nil
}

// GetByID retrieves a permission by ID
func (r *PostgresPermissionRepository) GetByID(ctx context.Context, id int64) (*entities.Permission, error) {
	query := `
		SELECT id, name, description, api_endpoint, created_at, updated_at
		FROM permissions
		WHERE id = $1
	`
	perm := &entities.Permission{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&perm.ID,
		&perm.Name,
		&perm.Description,
		&perm.APIEndpoint,
		&perm.CreatedAt,
		&perm.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	return perm, nil
}

// Update persists all mutable fields of the permission
func (r *PostgresPermissionRepository) Update(ctx context.Context, perm *entities.Permission) error {
	query := `
		UPDATE permissions
		SET name = $1, description = $2, api_endpoint = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		perm.Name,
		perm.Description,
		perm.APIEndpoint,
		time.Now(),
		perm.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrDuplicateName
		}
		return fmt.Errorf("failed to update permission: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repositories.ErrNotFound
	}

	return nil
}

// Delete removes a permission. Plans that name the capability are not
// checked: the registry carries no referential link to plan capability sets.
func (r *PostgresPermissionRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM permissions WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repositories.ErrNotFound
	}

	return nil
}

// List retrieves all permissions ordered by ID
func (r *PostgresPermissionRepository) List(ctx context.Context) ([]*entities.Permission, error) {
	query := `
		SELECT id, name, description, api_endpoint, created_at, updated_at
		FROM permissions
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var perms []*entities.Permission
	for rows.Next() {
		perm := &entities.Permission{}
		if err := rows.Scan(
			&perm.ID,
			&perm.Name,
			&perm.Description,
			&perm.APIEndpoint,
			&perm.CreatedAt,
			&perm.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate permissions: %w", err)
	}

	return perms, nil
}
