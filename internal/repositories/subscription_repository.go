package repositories

import (
	"context"

	"github.com/asakaida/tollgate/internal/entities"
)

// SubscriptionRepository defines the interface for subscription data access
type SubscriptionRepository interface {
	// Create inserts a new subscription with a zero usage count and
	// populates its ID.
	// Returns ErrAlreadySubscribed if the user already has a subscription
	// and ErrNotFound if the referenced plan does not exist.
	Create(ctx context.Context, sub *entities.Subscription) error

	// GetByUserID retrieves the subscription for a user.
	// Returns ErrNotFound if the user has no subscription.
	GetByUserID(ctx context.Context, userID string) (*entities.Subscription, error)

	// UpdatePlan re-points the user's subscription to a different plan.
	// The usage count is left untouched: usage accumulates across plan
	// changes.
	// Returns ErrNotFound if the user has no subscription.
	UpdatePlan(ctx context.Context, userID string, planID int64) error

	// ConsumeQuota atomically increments the user's usage count if it is
	// still below the bound plan's usage limit, and returns the new count.
	// The read of the counter and the conditional increment are serialized
	// per subscription; concurrent calls for different users do not block
	// each other.
	// Returns ErrNotFound if the user has no subscription and
	// ErrQuotaExceeded if the counter already reached the limit.
	ConsumeQuota(ctx context.Context, userID string) (int, error)
}
