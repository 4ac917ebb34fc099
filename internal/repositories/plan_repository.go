package repositories

import (
	"context"

	"github.com/asakaida/tollgate/internal/entities"
)

// PlanRepository defines the interface for plan data access
type PlanRepository interface {
	// Create inserts a new plan and populates its ID.
	// Returns ErrDuplicateName if a plan with the same name exists.
	Create(ctx context.Context, plan *entities.Plan) error

	// GetByID retrieves a plan by ID.
	// Returns ErrNotFound if the plan does not exist.
	GetByID(ctx context.Context, id int64) (*entities.Plan, error)

	// Update persists all mutable fields of the plan.
	// Returns ErrNotFound if the plan does not exist and ErrDuplicateName
	// if the new name collides with another plan.
	Update(ctx context.Context, plan *entities.Plan) error

	// Delete removes a plan.
	// Returns ErrNotFound if the plan does not exist and ErrPlanInUse if
	// any subscription still references it.
	Delete(ctx context.Context, id int64) error

	// List retrieves all plans ordered by ID.
	List(ctx context.Context) ([]*entities.Plan, error)
}
