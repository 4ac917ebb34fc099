package entities

import "time"

// Subscription binds a user to exactly one plan and carries the cumulative
// usage counter. The counter is monotonically non-decreasing: it is
// incremented on every granted access and carried over unchanged when the
// subscription is reassigned to a different plan.
type Subscription struct {
	ID         int64
	UserID     string // Opaque user identifier, unique per subscription
	PlanID     int64  // References Plan.ID
	UsageCount int    // Number of granted accesses so far
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
