package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/asakaida/tollgate/internal/entities"
	"github.com/asakaida/tollgate/internal/repositories"
	"github.com/lib/pq"
)

// PostgresPlanRepository implements PlanRepository using PostgreSQL
type PostgresPlanRepository struct {
	db *sql.DB
}

// NewPostgresPlanRepository creates a new PostgreSQL plan repository
func NewPostgresPlanRepository(db *sql.DB) repositories.PlanRepository {
	return &PostgresPlanRepository{db: db}
}

// Create inserts a new plan and populates its ID
func (r *PostgresPlanRepository) Create(ctx context.Context, plan *entities.Plan) error {
	query := `
		INSERT INTO plans (name, description, capabilities, usage_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		plan.Name,
		plan.Description,
		pq.Array(plan.Capabilities),
		plan.UsageLimit,
		now,
		now,
	).Scan(&plan.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrDuplicateName
		}
		return fmt.Errorf("failed to create plan: %w", err)
	}

	plan.CreatedAt = now
	plan.UpdatedAt = now
	return nil
}

// GetByID retrieves a plan by ID
func (r *PostgresPlanRepository) GetByID(ctx context.Context, id int64) (*entities.Plan, error) {
	query := `
		SELECT id, name, description, capabilities, usage_limit, created_at, updated_at
		FROM plans
		WHERE id = $1
	`
	plan := &entities.Plan{}
	var capabilities pq.StringArray

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&plan.ID,
		&plan.Name,
		&plan.Description,
		&capabilities,
		&plan.UsageLimit,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	plan.Capabilities = []string(capabilities)
	return plan, nil
}

// Update persists all mutable fields of the plan
func (r *PostgresPlanRepository) Update(ctx context.Context, plan *entities.Plan) error {
	query := `
		UPDATE plans
		SET name = $1, description = $2, capabilities = $3, usage_limit = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		plan.Name,
		plan.Description,
		pq.Array(plan.Capabilities),
		plan.UsageLimit,
		time.Now(),
		plan.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrDuplicateName
		}
		return fmt.Errorf("failed to update plan: %w", err)
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

// Delete removes a plan. The foreign key from subscriptions restricts the
// delete while any subscription still references the plan.
func (r *PostgresPlanRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM plans WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repositories.ErrPlanInUse
		}
		return fmt.Errorf("failed to delete plan: %w", err)
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

// List retrieves all plans ordered by ID
func (r *PostgresPlanRepository) List(ctx context.Context) ([]*entities.Plan, error) {
	query := `
		SELECT id, name, description, capabilities, usage_limit, created_at, updated_at
		FROM plans
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*entities.Plan
	for rows.Next() {
		plan := &entities.Plan{}
		var capabilities pq.StringArray

		if err := rows.Scan(
			&plan.ID,
			&plan.Name,
			&plan.Description,
			&capabilities,
			&plan.UsageLimit,
			&plan.CreatedAt,
			&plan.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}

		plan.Capabilities = []string(capabilities)
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}

	return plans, nil
}
