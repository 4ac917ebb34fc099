package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/asakaida/tollgate/internal/entities"
	"github.com/asakaida/tollgate/internal/repositories"
)

// consumeQuotaMaxRetries bounds the internal retry loop for transaction
// conflicts during quota consumption.
const consumeQuotaMaxRetries = 3

// PostgresSubscriptionRepository implements SubscriptionRepository using PostgreSQL
type PostgresSubscriptionRepository struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepository creates a new PostgreSQL subscription repository
func NewPostgresSubscriptionRepository(db *sql.DB) repositories.SubscriptionRepository {
	return &PostgresSubscriptionRepository{db: db}
}

// Create inserts a new subscription with a zero usage count
func (r *PostgresSubscriptionRepository) Create(ctx context.Context, sub *entities.Subscription) error {
	query := `
		INSERT INTO subscriptions (user_id, plan_id, usage_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	now := time.Now()
	sub.UsageCount = 0
	err := r.db.QueryRowContext(ctx, query,
		sub.UserID,
		sub.PlanID,
		sub.UsageCount,
		now,
		now,
	).Scan(&sub.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrAlreadySubscribed
		}
		if isForeignKeyViolation(err) {
			return repositories.ErrNotFound
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	sub.CreatedAt = now
	sub.UpdatedAt = now
	return nil
}

// GetByUserID retrieves the subscription for a user
func (r *PostgresSubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*entities.Subscription, error) {
	query := `
		SELECT id, user_id, plan_id, usage_count, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
	`
	sub := &entities.Subscription{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PlanID,
		&sub.UsageCount,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}

// UpdatePlan re-points the user's subscription to a different plan.
// The usage count is deliberately left untouched.
func (r *PostgresSubscriptionRepository) UpdatePlan(ctx context.Context, userID string, planID int64) error {
	query := `
		UPDATE subscriptions
		SET plan_id = $1, updated_at = $2
		WHERE user_id = $3
	`
	result, err := r.db.ExecContext(ctx, query, planID, time.Now(), userID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repositories.ErrNotFound
		}
		return fmt.Errorf("failed to update subscription plan: %w", err)
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

// ConsumeQuota increments the usage counter under a row lock on the
// subscription, so two concurrent grants can never both pass the ceiling
// check on a stale count. Transaction conflicts are retried a bounded number
// of times; they are storage artifacts, not business failures.
func (r *PostgresSubscriptionRepository) ConsumeQuota(ctx context.Context, userID string) (int, error) {
	var count int
	var err error
	for attempt := 0; attempt < consumeQuotaMaxRetries; attempt++ {
		count, err = r.consumeQuotaOnce(ctx, userID)
		if err == nil || !isRetryable(err) {
			return count, err
		}
	}
	return 0, fmt.Errorf("failed to consume quota after %d attempts: %w", consumeQuotaMaxRetries, err)
}

func (r *PostgresSubscriptionRepository) consumeQuotaOnce(ctx context.Context, userID string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// FOR UPDATE OF s locks only the subscription row: concurrent checks
	// for different users proceed in parallel, and plan rows stay
	// unlocked for administrative reads.
	query := `
		SELECT s.usage_count, p.usage_limit
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.user_id = $1
		FOR UPDATE OF s
	`
	var usageCount, usageLimit int
	err = tx.QueryRowContext(ctx, query, userID).Scan(&usageCount, &usageLimit)
	if err == sql.ErrNoRows {
		return 0, repositories.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock subscription: %w", err)
	}

	// >= means a limit of N permits exactly N grants.
	if usageCount >= usageLimit {
		return 0, repositories.ErrQuotaExceeded
	}

	update := `
		UPDATE subscriptions
		SET usage_count = usage_count + 1, updated_at = $1
		WHERE user_id = $2
	`
	if _, err := tx.ExecContext(ctx, update, time.Now(), userID); err != nil {
		return 0, fmt.Errorf("failed to increment usage count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit quota consumption: %w", err)
	}

	return usageCount + 1, nil
}
