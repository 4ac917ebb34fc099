package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/asakaida/tollgate/internal/entities"
	"github.com/asakaida/tollgate/internal/infrastructure/cache/plancache"
	"github.com/asakaida/tollgate/internal/repositories"
)

// CatalogServiceInterface defines the interface for plan catalog operations
type CatalogServiceInterface interface {
	CreatePlan(ctx context.Context, input *CreatePlanInput) (*entities.Plan, error)
	GetPlan(ctx context.Context, id int64) (*entities.Plan, error)
	ListPlans(ctx context.Context) ([]*entities.Plan, error)
	UpdatePlan(ctx context.Context, id int64, patch *PlanPatch) (*entities.Plan, error)
	DeletePlan(ctx context.Context, id int64) error
}

// CreatePlanInput carries the fields for a new plan
type CreatePlanInput struct {
	Name         string
	Description  string
	Capabilities []string
	UsageLimit   int
}

// PlanPatch carries partial updates to a plan. A nil pointer means "leave
// unchanged"; a pointer to a zero value deliberately sets the field to empty
// or zero. Capabilities follows the same rule with a nil slice: an empty
// non-nil slice clears the capability set.
type PlanPatch struct {
	Name         *string
	Description  *string
	Capabilities []string
	UsageLimit   *int
}

// CatalogService handles plan catalog operations
type CatalogService struct {
	planRepo  repositories.PlanRepository
	planCache *plancache.Cache // optional; invalidated on update and delete
}

// NewCatalogService creates a new CatalogService without plan caching
func NewCatalogService(planRepo repositories.PlanRepository) *CatalogService {
	return &CatalogService{planRepo: planRepo}
}

// NewCatalogServiceWithCache creates a new CatalogService that keeps the
// given plan cache coherent with catalog mutations
func NewCatalogServiceWithCache(planRepo repositories.PlanRepository, planCache *plancache.Cache) *CatalogService {
	return &CatalogService{planRepo: planRepo, planCache: planCache}
}

// CreatePlan creates a new plan. Returns repositories.ErrDuplicateName if a
// plan with the same name exists.
func (s *CatalogService) CreatePlan(ctx context.Context, input *CreatePlanInput) (*entities.Plan, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: plan name is required", ErrInvalidInput)
	}
	if input.UsageLimit < 0 {
		return nil, fmt.Errorf("%w: usage limit must not be negative", ErrInvalidInput)
	}

	plan := &entities.Plan{
		Name:         input.Name,
		Description:  input.Description,
		Capabilities: input.Capabilities,
		UsageLimit:   input.UsageLimit,
	}
	if plan.Capabilities == nil {
		plan.Capabilities = []string{}
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		if errors.Is(err, repositories.ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	return plan, nil
}

// GetPlan retrieves a plan by ID. Returns ErrPlanNotFound if absent.
func (s *CatalogService) GetPlan(ctx context.Context, id int64) (*entities.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

// ListPlans retrieves all plans
func (s *CatalogService) ListPlans(ctx context.Context) ([]*entities.Plan, error) {
	plans, err := s.planRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// UpdatePlan applies a partial update to a plan. Returns ErrPlanNotFound if
// the plan does not exist and repositories.ErrDuplicateName if the new name
// collides with another plan.
func (s *CatalogService) UpdatePlan(ctx context.Context, id int64, patch *PlanPatch) (*entities.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, fmt.Errorf("%w: plan name must not be empty", ErrInvalidInput)
		}
		plan.Name = *patch.Name
	}
	if patch.Description != nil {
		plan.Description = *patch.Description
	}
	if patch.Capabilities != nil {
		plan.Capabilities = patch.Capabilities
	}
	if patch.UsageLimit != nil {
		if *patch.UsageLimit < 0 {
			return nil, fmt.Errorf("%w: usage limit must not be negative", ErrInvalidInput)
		}
		plan.UsageLimit = *patch.UsageLimit
	}

	if err := s.planRepo.Update(ctx, plan); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		if errors.Is(err, repositories.ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update plan: %w", err)
	}

	if s.planCache != nil {
		s.planCache.Invalidate(id)
	}

	return plan, nil
}

// DeletePlan removes a plan. Returns ErrPlanNotFound if the plan does not
// exist and repositories.ErrPlanInUse if any subscription still references
// it.
func (s *CatalogService) DeletePlan(ctx context.Context, id int64) error {
	if err := s.planRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrPlanNotFound
		}
		if errors.Is(err, repositories.ErrPlanInUse) {
			return err
		}
		return fmt.Errorf("failed to delete plan: %w", err)
	}

	if s.planCache != nil {
		s.planCache.Invalidate(id)
	}

	return nil
}
