package access

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/asakaida/tollgate/internal/entities"
	"github.com/asakaida/tollgate/internal/infrastructure/cache/plancache"
	"github.com/asakaida/tollgate/internal/repositories"
	"github.com/asakaida/tollgate/internal/services"
)

type mockPlanRepository struct {
	mu    sync.Mutex
	plans map[int64]*entities.Plan

	getCalls int
}

func newMockPlanRepository(plans ...*entities.Plan) *mockPlanRepository {
	m := &mockPlanRepository{plans: make(map[int64]*entities.Plan)}
	for _, p := range plans {
		m.plans[p.ID] = p
	}
	return m
}

func (m *mockPlanRepository) Create(ctx context.Context, plan *entities.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[plan.ID] = plan
	return nil
}

func (m *mockPlanRepository) GetByID(ctx context.Context, id int64) (*entities.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	plan, ok := m.plans[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *plan
	return &copied, nil
}

func (m *mockPlanRepository) Update(ctx context.Context, plan *entities.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[plan.ID]; !ok {
		return repositories.ErrNotFound
	}
	m.plans[plan.ID] = plan
	return nil
}

func (m *mockPlanRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.plans, id)
	return nil
}

func (m *mockPlanRepository) List(ctx context.Context) ([]*entities.Plan, error) {
	return nil, nil
}

type mockSubscriptionRepository struct {
	mu       sync.Mutex
	subs     map[string]*entities.Subscription
	planRepo *mockPlanRepository
}

func newMockSubscriptionRepository(planRepo *mockPlanRepository, subs ...*entities.Subscription) *mockSubscriptionRepository {
	m := &mockSubscriptionRepository{
		subs:     make(map[string]*entities.Subscription),
		planRepo: planRepo,
	}
	for _, s := range subs {
		m.subs[s.UserID] = s
	}
	return m
}

func (m *mockSubscriptionRepository) Create(ctx context.Context, sub *entities.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[sub.UserID]; ok {
		return repositories.ErrAlreadySubscribed
	}
	m.subs[sub.UserID] = sub
	return nil
}

func (m *mockSubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*entities.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

func (m *mockSubscriptionRepository) UpdatePlan(ctx context.Context, userID string, planID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	sub.PlanID = planID
	return nil
}

// ConsumeQuota serializes check-then-increment under the mutex the way the
// Postgres implementation does under the row lock.
func (m *mockSubscriptionRepository) ConsumeQuota(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subs[userID]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	plan, ok := m.planRepo.plans[sub.PlanID]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	if sub.UsageCount >= plan.UsageLimit {
		return 0, repositories.ErrQuotaExceeded
	}
	sub.UsageCount++
	return sub.UsageCount, nil
}

func TestEvaluator_Check_Granted(t *testing.T) {
	planRepo := newMockPlanRepository(&entities.Plan{
		ID: 1, Name: "basic", Capabilities: []string{"service1"}, UsageLimit: 2,
	})
	subRepo := newMockSubscriptionRepository(planRepo, &entities.Subscription{
		ID: 1, UserID: "u1", PlanID: 1, UsageCount: 0,
	})
	evaluator := NewEvaluator(subRepo, planRepo)

	result, err := evaluator.Check(context.Background(), "u1", "service1")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected grant, got denial with reason %q", result.Reason)
	}
	if result.UsageCount != 1 {
		t.Errorf("UsageCount = %d, want 1 after the grant", result.UsageCount)
	}
}

func TestEvaluator_Check_QuotaBoundary(t *testing.T) {
	// A ceiling of N permits exactly N grants; the N+1-th is denied.
	const limit = 3
	planRepo := newMockPlanRepository(&entities.Plan{
		ID: 1, Name: "basic", Capabilities: []string{"service1"}, UsageLimit: limit,
	})
	subRepo := newMockSubscriptionRepository(planRepo, &entities.Subscription{
		ID: 1, UserID: "u1", PlanID: 1,
	})
	evaluator := NewEvaluator(subRepo, planRepo)
	ctx := context.Background()

	for i := 1; i <= limit; i++ {
		result, err := evaluator.Check(ctx, "u1", "service1")
		if err != nil {
			t.Fatalf("Check %d failed: %v", i, err)
		}
		if !result.Allowed {
			t.Fatalf("Check %d denied with reason %q, want grant", i, result.Reason)
		}
		if result.UsageCount != i {
			t.Errorf("Check %d: UsageCount = %d, want %d", i, result.UsageCount, i)
		}
	}

	result, err := evaluator.Check(ctx, "u1", "service1")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected denial after the ceiling is reached")
	}
	if result.Reason != ReasonQuotaExceeded {
		t.Errorf("Reason = %q, want %q", result.Reason, ReasonQuotaExceeded)
	}
}

func TestEvaluator_Check_CapabilityDenied(t *testing.T) {
	planRepo := newMockPlanRepository(&entities.Plan{
		ID: 1, Name: "basic", Capabilities: []string{"service1"}, UsageLimit: 2,
	})
	subRepo := newMockSubscriptionRepository(planRepo, &entities.Subscription{
		ID: 1, UserID: "u1", PlanID: 1,
	})
	evaluator := NewEvaluator(subRepo, planRepo)

	result, err := evaluator.Check(context.Background(), "u1", "service2")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected denial for a capability outside the plan")
	}
	if result.Reason != ReasonCapabilityDenied {
		t.Errorf("Reason = %q, want %q", result.Reason, ReasonCapabilityDenied)
	}

	// A capability denial must not consume quota.
	sub, err := subRepo.GetByUserID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if sub.UsageCount != 0 {
		t.Errorf("UsageCount = %d, want 0 after a capability denial", sub.UsageCount)
	}
}

func TestEvaluator_Check_CapabilityGatePrecedesQuota(t *testing.T) {
	// With the quota already exhausted, a capability outside the plan is
	// still reported as a capability denial, never as quota exhaustion.
	planRepo := newMockPlanRepository(&entities.Plan{
		ID: 1, Name: "basic", Capabilities: []string{"service1"}, UsageLimit: 2,
	})
	subRepo := newMockSubscriptionRepository(planRepo, &entities.Subscription{
		ID: 1, UserID: "u1", PlanID: 1, UsageCount: 2,
	})
	evaluator := NewEvaluator(subRepo, planRepo)

	result, err := evaluator.Check(context.Background(), "u1", "service2")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected denial")
	}
	if result.Reason != ReasonCapabilityDenied {
		t.Errorf("Reason = %q, want %q even with quota exhausted", result.Reason, ReasonCapabilityDenied)
	}
}

func TestEvaluator_Check_SubscriptionNotFound(t *testing.T) {
	planRepo := newMockPlanRepository()
	subRepo := newMockSubscriptionRepository(planRepo)
	evaluator := NewEvaluator(subRepo, planRepo)

	_, err := evaluator.Check(context.Background(), "ghost", "service1")
	if !errors.Is(err, services.ErrSubscriptionNotFound) {
		t.Errorf("Check error = %v, want ErrSubscriptionNotFound", err)
	}
}

func TestEvaluator_Check_InvalidInput(t *testing.T) {
	planRepo := newMockPlanRepository()
	subRepo := newMockSubscriptionRepository(planRepo)
	evaluator := NewEvaluator(subRepo, planRepo)
	ctx := context.Background()

	if _, err := evaluator.Check(ctx, "", "service1"); !errors.Is(err, services.ErrInvalidInput) {
		t.Errorf("empty user error = %v, want ErrInvalidInput", err)
	}
	if _, err := evaluator.Check(ctx, "u1", ""); !errors.Is(err, services.ErrInvalidInput) {
		t.Errorf("empty capability error = %v, want ErrInvalidInput", err)
	}
}

func TestEvaluator_Check_ConcurrentLastSlot(t *testing.T) {
	// N concurrent checks against one remaining slot must produce exactly
	// one grant and no counter overshoot.
	const (
		limit      = 10
		concurrent = 10
	)
	planRepo := newMockPlanRepository(&entities.Plan{
		ID: 1, Name: "basic", Capabilities: []string{"service1"}, UsageLimit: limit,
	})
	subRepo := newMockSubscriptionRepository(planRepo, &entities.Subscription{
		ID: 1, UserID: "u1", PlanID: 1, UsageCount: limit - 1,
	})
	evaluator := NewEvaluator(subRepo, planRepo)

	var wg sync.WaitGroup
	results := make([]*CheckResult, concurrent)
	errs := make([]error, concurrent)
	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = evaluator.Check(context.Background(), "u1", "service1")
		}(i)
	}
	wg.Wait()

	granted, denied := 0, 0
	for i := 0; i < concurrent; i++ {
		if errs[i] != nil {
			t.Fatalf("Check %d failed: %v", i, errs[i])
		}
		if results[i].Allowed {
			granted++
		} else {
			denied++
			if results[i].Reason != ReasonQuotaExceeded {
				t.Errorf("Check %d: Reason = %q, want %q", i, results[i].Reason, ReasonQuotaExceeded)
			}
		}
	}
	if granted != 1 {
		t.Errorf("granted = %d, want exactly 1", granted)
	}
	if denied != concurrent-1 {
		t.Errorf("denied = %d, want %d", denied, concurrent-1)
	}

	sub, err := subRepo.GetByUserID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if sub.UsageCount != limit {
		t.Errorf("final UsageCount = %d, want %d (no overshoot)", sub.UsageCount, limit)
	}
}

func TestEvaluator_Check_PlanCache(t *testing.T) {
	planRepo := newMockPlanRepository(&entities.Plan{
		ID: 1, Name: "basic", Capabilities: []string{"service1"}, UsageLimit: 10,
	})
	subRepo := newMockSubscriptionRepository(planRepo, &entities.Subscription{
		ID: 1, UserID: "u1", PlanID: 1,
	})
	planCache := plancache.New(&plancache.Config{MaxEntries: 16, TTL: time.Minute, EnableMetrics: true})
	evaluator := NewEvaluatorWithCache(subRepo, planRepo, planCache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := evaluator.Check(ctx, "u1", "service1")
		if err != nil {
			t.Fatalf("Check %d failed: %v", i, err)
		}
		if !result.Allowed {
			t.Fatalf("Check %d denied with reason %q", i, result.Reason)
		}
	}

	planRepo.mu.Lock()
	getCalls := planRepo.getCalls
	planRepo.mu.Unlock()
	if getCalls != 1 {
		t.Errorf("plan repository reads = %d, want 1 with a warm cache", getCalls)
	}
	if m := planCache.Metrics(); m.Hits != 2 {
		t.Errorf("cache hits = %d, want 2", m.Hits)
	}
}
