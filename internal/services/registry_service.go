package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/asakaida/tollgate/internal/entities"
	"github.com/asakaida/tollgate/internal/repositories"
)

// RegistryServiceInterface defines the interface for permission registry operations
type RegistryServiceInterface interface {
	CreatePermission(ctx context.Context, input *CreatePermissionInput) (*entities.Permission, error)
	GetPermission(ctx context.Context, id int64) (*entities.Permission, error)
	ListPermissions(ctx context.Context) ([]*entities.Permission, error)
	UpdatePermission(ctx context.Context, id int64, patch *PermissionPatch) (*entities.Permission, error)
	DeletePermission(ctx context.Context, id int64) error
}

// CreatePermissionInput carries the fields for a new permission
type CreatePermissionInput struct {
	Name        string
	Description string
	APIEndpoint string
}

// PermissionPatch carries partial updates to a permission. A nil pointer
// means "leave unchanged".
type PermissionPatch struct {
	Name        *string
	Description *string
	APIEndpoint *string
}

// RegistryService handles permission registry operations. The registry is
// administrative vocabulary: access decisions never consult it, so creating,
// changing, or deleting entries has no side effects on plans or
// subscriptions.
type RegistryService struct {
	permissionRepo repositories.PermissionRepository
}

// NewRegistryService creates a new RegistryService
func NewRegistryService(permissionRepo repositories.PermissionRepository) *RegistryService {
	return &RegistryService{permissionRepo: permissionRepo}
}

// CreatePermission registers a new capability. Returns
// repositories.ErrDuplicateName on a name or endpoint collision.
func (s *RegistryService) CreatePermission(ctx context.Context, input *CreatePermissionInput) (*entities.Permission, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: permission name is required", ErrInvalidInput)
	}
	if input.APIEndpoint == "" {
		return nil, fmt.Errorf("%w: api endpoint is required", ErrInvalidInput)
	}

	perm := &entities.Permission{
		Name:        input.Name,
		Description: input.Description,
		APIEndpoint: input.APIEndpoint,
	}
	if err := s.permissionRepo.Create(ctx, perm); err != nil {
		if errors.Is(err, repositories.ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create permission: %w", err)
	}

	return perm, nil
}

// GetPermission retrieves a permission by ID. Returns ErrPermissionNotFound
// if absent.
func (s *RegistryService) GetPermission(ctx context.Context, id int64) (*entities.Permission, error) {
	perm, err := s.permissionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return perm, nil
}

// ListPermissions retrieves all registered permissions
func (s *RegistryService) ListPermissions(ctx context.Context) ([]*entities.Permission, error) {
	perms, err := s.permissionRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

// UpdatePermission applies a partial update to a permission. Returns
// ErrPermissionNotFound if the permission does not exist and
// repositories.ErrDuplicateName on a name or endpoint collision.
func (s *RegistryService) UpdatePermission(ctx context.Context, id int64, patch *PermissionPatch) (*entities.Permission, error) {
	perm, err := s.permissionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, fmt.Errorf("%w: permission name must not be empty", ErrInvalidInput)
		}
		perm.Name = *patch.Name
	}
	if patch.Description != nil {
		perm.Description = *patch.Description
	}
	if patch.APIEndpoint != nil {
		if *patch.APIEndpoint == "" {
			return nil, fmt.Errorf("%w: api endpoint must not be empty", ErrInvalidInput)
		}
		perm.APIEndpoint = *patch.APIEndpoint
	}

	if err := s.permissionRepo.Update(ctx, perm); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPermissionNotFound
		}
		if errors.Is(err, repositories.ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update permission: %w", err)
	}

	return perm, nil
}

// DeletePermission removes a permission unconditionally; plans that still
// name the capability keep working, since access decisions match against the
// plan's stored set. Returns ErrPermissionNotFound if absent.
func (s *RegistryService) DeletePermission(ctx context.Context, id int64) error {
	if err := s.permissionRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrPermissionNotFound
		}
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	return nil
}
