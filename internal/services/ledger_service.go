package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/asakaida/tollgate/internal/entities"
	"github.com/asakaida/tollgate/internal/repositories"
)

// LedgerServiceInterface defines the interface for subscription ledger operations
type LedgerServiceInterface interface {
	Subscribe(ctx context.Context, userID string, planID int64) (*entities.Subscription, error)
	ReassignPlan(ctx context.Context, userID string, planID int64) (*entities.Subscription, error)
	GetSubscription(ctx context.Context, userID string) (*SubscriptionDetail, error)
	GetUsage(ctx context.Context, userID string) (*UsageReport, error)
}

// SubscriptionDetail combines a subscription with a snapshot of its plan
type SubscriptionDetail struct {
	Subscription *entities.Subscription
	Plan         *entities.Plan
}

// UsageReport summarizes a subscription's quota consumption. Remaining may
// be negative when the plan's ceiling was lowered below an already recorded
// usage count; it is surfaced as-is, not clamped.
type UsageReport struct {
	UsageCount int
	UsageLimit int
	Remaining  int
	Exceeded   bool
}

// LedgerService handles subscription ledger operations
type LedgerService struct {
	subscriptionRepo repositories.SubscriptionRepository
	planRepo         repositories.PlanRepository
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(subscriptionRepo repositories.SubscriptionRepository, planRepo repositories.PlanRepository) *LedgerService {
	return &LedgerService{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
	}
}

// Subscribe creates a subscription binding the user to the plan with a zero
// usage count. Returns ErrPlanNotFound if the plan is absent and
// repositories.ErrAlreadySubscribed if the user already has a subscription.
func (s *LedgerService) Subscribe(ctx context.Context, userID string, planID int64) (*entities.Subscription, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", ErrInvalidInput)
	}

	if _, err := s.planRepo.GetByID(ctx, planID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	sub := &entities.Subscription{
		UserID: userID,
		PlanID: planID,
	}
	if err := s.subscriptionRepo.Create(ctx, sub); err != nil {
		if errors.Is(err, repositories.ErrAlreadySubscribed) {
			return nil, err
		}
		// Foreign key backstop: the plan vanished between the check and
		// the insert.
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	return sub, nil
}

// ReassignPlan re-points the user's subscription to a different plan. The
// usage count is carried over, never reset. Returns ErrSubscriptionNotFound
// if the user has no subscription and ErrPlanNotFound if the target plan is
// absent.
func (s *LedgerService) ReassignPlan(ctx context.Context, userID string, planID int64) (*entities.Subscription, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", ErrInvalidInput)
	}

	sub, err := s.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	if _, err := s.planRepo.GetByID(ctx, planID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	if err := s.subscriptionRepo.UpdatePlan(ctx, userID, planID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to reassign plan: %w", err)
	}

	sub.PlanID = planID
	return sub, nil
}

// GetSubscription retrieves the user's subscription with a snapshot of the
// bound plan. Returns ErrSubscriptionNotFound if the user has no
// subscription.
func (s *LedgerService) GetSubscription(ctx context.Context, userID string) (*SubscriptionDetail, error) {
	sub, err := s.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	// Plan deletion is blocked while referenced, so a missing plan here is
	// a broken invariant, not a caller error.
	plan, err := s.planRepo.GetByID(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan %d for subscription %d: %w", sub.PlanID, sub.ID, err)
	}

	return &SubscriptionDetail{Subscription: sub, Plan: plan}, nil
}

// GetUsage reports the user's quota consumption against the bound plan's
// ceiling. Returns ErrSubscriptionNotFound if the user has no subscription.
func (s *LedgerService) GetUsage(ctx context.Context, userID string) (*UsageReport, error) {
	detail, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	count := detail.Subscription.UsageCount
	limit := detail.Plan.UsageLimit
	return &UsageReport{
		UsageCount: count,
		UsageLimit: limit,
		Remaining:  limit - count,
		Exceeded:   count >= limit,
	}, nil
}
