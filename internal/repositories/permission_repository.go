package repositories

import (
	"context"

	"github.com/asakaida/tollgate/internal/entities"
)

// PermissionRepository defines the interface for permission registry data access
type PermissionRepository interface {
	// Create inserts a new permission and populates its ID.
	// Returns ErrDuplicateName if a permission with the same name or
	// endpoint exists.
	Create(ctx context.Context, perm *entities.Permission) error

	// GetByID retrieves a permission by ID.
	// Returns ErrNotFound if the permission does not exist.
	GetByID(ctx context.Context, id int64) (*entities.Permission, error)

	// Update persists all mutable fields of the permission.
	// Returns ErrNotFound if the permission does not exist and
	// ErrDuplicateName on a name or endpoint collision.
	Update(ctx context.Context, perm *entities.Permission) error

	// Delete removes a permission unconditionally: plans that name the
	// capability are not checked.
	// Returns ErrNotFound if the permission does not exist.
	Delete(ctx context.Context, id int64) error

	// List retrieves all permissions ordered by ID.
	List(ctx context.Context) ([]*entities.Permission, error)
}
