package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/asakaida/tollgate/internal/entities"
	"github.com/asakaida/tollgate/internal/repositories"
	"github.com/asakaida/tollgate/internal/services"
)

func TestPermissionHandler_Create(t *testing.T) {
	registry := &mockRegistryService{
		createPermissionFunc: func(ctx context.Context, input *services.CreatePermissionInput) (*entities.Permission, error) {
			if input.Name != "service1" || input.APIEndpoint != "/api/service1" {
				t.Errorf("input = %+v", input)
			}
			return &entities.Permission{ID: 5, Name: input.Name, APIEndpoint: input.APIEndpoint}, nil
		},
	}
	router := newTestRouter(nil, nil, registry, nil, nil)

	rec := doRequest(t, router, http.MethodPost, "/permissions",
		`{"name":"service1","description":"first service","api_endpoint":"/api/service1"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["permission_id"] != float64(5) {
		t.Error("expected permission_id 5")
	}
}

func TestPermissionHandler_Create_Duplicate(t *testing.T) {
	registry := &mockRegistryService{
		createPermissionFunc: func(ctx context.Context, input *services.CreatePermissionInput) (*entities.Permission, error) {
			return nil, fmt.Errorf("permission %q: %w", input.Name, repositories.ErrDuplicateName)
		},
	}
	router := newTestRouter(nil, nil, registry, nil, nil)

	rec := doRequest(t, router, http.MethodPost, "/permissions",
		`{"name":"service1","api_endpoint":"/api/service1"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPermissionHandler_List(t *testing.T) {
	registry := &mockRegistryService{
		listPermissionsFunc: func(ctx context.Context) ([]*entities.Permission, error) {
			return []*entities.Permission{
				{ID: 1, Name: "service1", APIEndpoint: "/api/service1"},
			}, nil
		},
	}
	router := newTestRouter(nil, nil, registry, nil, nil)

	rec := doRequest(t, router, http.MethodGet, "/permissions", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestPermissionHandler_Update_NotFound(t *testing.T) {
	registry := &mockRegistryService{
		updatePermissionFunc: func(ctx context.Context, id int64, patch *services.PermissionPatch) (*entities.Permission, error) {
			return nil, services.ErrPermissionNotFound
		},
	}
	router := newTestRouter(nil, nil, registry, nil, nil)

	rec := doRequest(t, router, http.MethodPut, "/permissions/42", `{"name":"renamed"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestPermissionHandler_Delete(t *testing.T) {
	registry := &mockRegistryService{
		deletePermissionFunc: func(ctx context.Context, id int64) error {
			if id != 5 {
				t.Errorf("id = %d, want 5", id)
			}
			return nil
		},
	}
	router := newTestRouter(nil, nil, registry, nil, nil)

	rec := doRequest(t, router, http.MethodDelete, "/permissions/5", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
