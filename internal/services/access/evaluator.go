package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/asakaida/tollgate/internal/entities"
	"github.com/asakaida/tollgate/internal/infrastructure/cache/plancache"
	"github.com/asakaida/tollgate/internal/repositories"
	"github.com/asakaida/tollgate/internal/services"
)

// EvaluatorInterface defines the interface for access checking
type EvaluatorInterface interface {
	Check(ctx context.Context, userID string, capability string) (*CheckResult, error)
}

// DenialReason identifies why an access check was denied
type DenialReason string

const (
	// ReasonCapabilityDenied means the capability is not in the plan's set
	ReasonCapabilityDenied DenialReason = "capability_denied"

	// ReasonQuotaExceeded means the usage count reached the plan's ceiling
	ReasonQuotaExceeded DenialReason = "quota_exceeded"
)

// CheckResult contains the outcome of an access check
type CheckResult struct {
	Allowed    bool
	Reason     DenialReason // set when Allowed is false
	UsageCount int          // counter value after the decision
	UsageLimit int
}

// Evaluator decides whether a user may invoke a capability and, on grant,
// accounts for the access. Each check is independently evaluated against
// current persisted state; there is no cross-call state beyond the counter.
type Evaluator struct {
	subscriptionRepo repositories.SubscriptionRepository
	planRepo         repositories.PlanRepository
	planCache        *plancache.Cache // optional, for the capability membership read
}

// NewEvaluator creates a new Evaluator without plan caching
func NewEvaluator(subscriptionRepo repositories.SubscriptionRepository, planRepo repositories.PlanRepository) *Evaluator {
	return &Evaluator{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
	}
}

// NewEvaluatorWithCache creates a new Evaluator that serves plan reads
// through the given cache
func NewEvaluatorWithCache(subscriptionRepo repositories.SubscriptionRepository, planRepo repositories.PlanRepository, planCache *plancache.Cache) *Evaluator {
	return &Evaluator{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		planCache:        planCache,
	}
}

// Check evaluates an access request for a user and capability, in strict
// order: subscription lookup, capability gate, quota gate. The capability
// gate comes first so a denied capability never increments the counter and
// never reports quota, even when the quota is also exhausted. On grant the
// counter increment is atomic per subscription (see
// SubscriptionRepository.ConsumeQuota).
//
// Returns services.ErrSubscriptionNotFound when the user has no
// subscription; denials are results, not errors.
func (e *Evaluator) Check(ctx context.Context, userID string, capability string) (*CheckResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", services.ErrInvalidInput)
	}
	if capability == "" {
		return nil, fmt.Errorf("%w: capability is required", services.ErrInvalidInput)
	}

	sub, err := e.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	// Plan deletion is blocked while referenced, so the plan must resolve;
	// a miss here is data corruption, not a caller error.
	plan, err := e.resolvePlan(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plan %d: %w", sub.PlanID, err)
	}

	if !plan.Permits(capability) {
		return &CheckResult{
			Allowed:    false,
			Reason:     ReasonCapabilityDenied,
			UsageCount: sub.UsageCount,
			UsageLimit: plan.UsageLimit,
		}, nil
	}

	newCount, err := e.subscriptionRepo.ConsumeQuota(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrQuotaExceeded) {
			return &CheckResult{
				Allowed:    false,
				Reason:     ReasonQuotaExceeded,
				UsageCount: sub.UsageCount,
				UsageLimit: plan.UsageLimit,
			}, nil
		}
		// Subscription deleted between lookup and consumption.
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to consume quota: %w", err)
	}

	return &CheckResult{
		Allowed:    true,
		UsageCount: newCount,
		UsageLimit: plan.UsageLimit,
	}, nil
}

// resolvePlan reads the plan through the cache when one is configured. The
// membership test tolerates a snapshot at most one TTL old; the quota gate
// in ConsumeQuota always re-reads the ceiling under the row lock.
func (e *Evaluator) resolvePlan(ctx context.Context, planID int64) (*entities.Plan, error) {
	if e.planCache != nil {
		if plan, ok := e.planCache.Get(planID); ok {
			return plan, nil
		}
	}

	plan, err := e.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	if e.planCache != nil {
		e.planCache.Put(plan)
	}
	return plan, nil
}
