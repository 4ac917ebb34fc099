package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/asakaida/tollgate/internal/entities"
	"github.com/asakaida/tollgate/internal/services"
	"github.com/asakaida/tollgate/internal/services/access"
)

// Function-field mocks so each test overrides only what it needs. A nil
// field means the test does not expect that call.

type mockCatalogService struct {
	createPlanFunc func(ctx context.Context, input *services.CreatePlanInput) (*entities.Plan, error)
	getPlanFunc    func(ctx context.Context, id int64) (*entities.Plan, error)
	listPlansFunc  func(ctx context.Context) ([]*entities.Plan, error)
	updatePlanFunc func(ctx context.Context, id int64, patch *services.PlanPatch) (*entities.Plan, error)
	deletePlanFunc func(ctx context.Context, id int64) error
}

func (m *mockCatalogService) CreatePlan(ctx context.Context, input *services.CreatePlanInput) (*entities.Plan, error) {
	return m.createPlanFunc(ctx, input)
}

func (m *mockCatalogService) GetPlan(ctx context.Context, id int64) (*entities.Plan, error) {
	return m.getPlanFunc(ctx, id)
}

func (m *mockCatalogService) ListPlans(ctx context.Context) ([]*entities.Plan, error) {
	return m.listPlansFunc(ctx)
}

func (m *mockCatalogService) UpdatePlan(ctx context.Context, id int64, patch *services.PlanPatch) (*entities.Plan, error) {
	return m.updatePlanFunc(ctx, id, patch)
}

func (m *mockCatalogService) DeletePlan(ctx context.Context, id int64) error {
	return m.deletePlanFunc(ctx, id)
}

type mockLedgerService struct {
	subscribeFunc       func(ctx context.Context, userID string, planID int64) (*entities.Subscription, error)
	reassignPlanFunc    func(ctx context.Context, userID string, planID int64) (*entities.Subscription, error)
	getSubscriptionFunc func(ctx context.Context, userID string) (*services.SubscriptionDetail, error)
	getUsageFunc        func(ctx context.Context, userID string) (*services.UsageReport, error)
}

func (m *mockLedgerService) Subscribe(ctx context.Context, userID string, planID int64) (*entities.Subscription, error) {
	return m.subscribeFunc(ctx, userID, planID)
}

func (m *mockLedgerService) ReassignPlan(ctx context.Context, userID string, planID int64) (*entities.Subscription, error) {
	return m.reassignPlanFunc(ctx, userID, planID)
}

func (m *mockLedgerService) GetSubscription(ctx context.Context, userID string) (*services.SubscriptionDetail, error) {
	return m.getSubscriptionFunc(ctx, userID)
}

func (m *mockLedgerService) GetUsage(ctx context.Context, userID string) (*services.UsageReport, error) {
	return m.getUsageFunc(ctx, userID)
}

type mockRegistryService struct {
	createPermissionFunc func(ctx context.Context, input *services.CreatePermissionInput) (*entities.Permission, error)
	getPermissionFunc    func(ctx context.Context, id int64) (*entities.Permission, error)
	listPermissionsFunc  func(ctx context.Context) ([]*entities.Permission, error)
	updatePermissionFunc func(ctx context.Context, id int64, patch *services.PermissionPatch) (*entities.Permission, error)
	deletePermissionFunc func(ctx context.Context, id int64) error
}

func (m *mockRegistryService) CreatePermission(ctx context.Context, input *services.CreatePermissionInput) (*entities.Permission, error) {
	return m.createPermissionFunc(ctx, input)
}

func (m *mockRegistryService) GetPermission(ctx context.Context, id int64) (*entities.Permission, error) {
	return m.getPermissionFunc(ctx, id)
}

func (m *mockRegistryService) ListPermissions(ctx context.Context) ([]*entities.Permission, error) {
	return m.listPermissionsFunc(ctx)
}

func (m *mockRegistryService) UpdatePermission(ctx context.Context, id int64, patch *services.PermissionPatch) (*entities.Permission, error) {
	return m.updatePermissionFunc(ctx, id, patch)
}

func (m *mockRegistryService) DeletePermission(ctx context.Context, id int64) error {
	return m.deletePermissionFunc(ctx, id)
}

type mockEvaluator struct {
	checkFunc func(ctx context.Context, userID string, capability string) (*access.CheckResult, error)
}

func (m *mockEvaluator) Check(ctx context.Context, userID string, capability string) (*access.CheckResult, error) {
	return m.checkFunc(ctx, userID, capability)
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.err
}

// newTestRouter wires the router with the given mocks. Nil mocks are fine
// as long as the test never routes to them.
func newTestRouter(catalog services.CatalogServiceInterface, ledger services.LedgerServiceInterface, registry services.RegistryServiceInterface, evaluator access.EvaluatorInterface, health HealthChecker) http.Handler {
	return NewRouter(&RouterConfig{
		Catalog:   catalog,
		Ledger:    ledger,
		Registry:  registry,
		Evaluator: evaluator,
		Health:    health,
	})
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
	return body
}
