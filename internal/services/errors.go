package services

import "errors"

// Service-level sentinel errors. Repository lookups report a generic
// ErrNotFound; the services translate it into the entity-specific failure so
// handlers can tell the caller which lookup missed.
var (
	// ErrInvalidInput indicates a request failed validation before any
	// storage access
	ErrInvalidInput = errors.New("invalid input")

	// ErrPlanNotFound indicates the referenced plan does not exist
	ErrPlanNotFound = errors.New("plan not found")

	// ErrSubscriptionNotFound indicates the user has no subscription
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrPermissionNotFound indicates the permission does not exist
	ErrPermissionNotFound = errors.New("permission not found")
)
