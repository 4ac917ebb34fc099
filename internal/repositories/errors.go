package repositories

import "errors"

// Sentinel errors returned by repository implementations. Services and
// handlers distinguish them with errors.Is to decide which failure is
// surfaced to the caller.
var (
	// ErrNotFound indicates the requested entity does not exist
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateName indicates a uniqueness violation on create or rename
	ErrDuplicateName = errors.New("name already exists")

	// ErrPlanInUse indicates a plan deletion was blocked because at least
	// one subscription still references the plan
	ErrPlanInUse = errors.New("plan is referenced by active subscriptions")

	// ErrAlreadySubscribed indicates the user already has a subscription
	ErrAlreadySubscribed = errors.New("user already has a subscription")

	// ErrQuotaExceeded indicates the subscription's usage count has reached
	// the plan's usage limit
	ErrQuotaExceeded = errors.New("usage limit exceeded")
)
