package services

import (
	"context"
	"sort"
	"sync"

	"github.com/asakaida/tollgate/internal/entities"
	"github.com/asakaida/tollgate/internal/repositories"
)

// === In-memory mock repositories shared by the service tests ===

type mockPlanRepository struct {
	mu     sync.Mutex
	nextID int64
	plans  map[int64]*entities.Plan

	// inUse marks plans whose deletion must fail with ErrPlanInUse.
	inUse map[int64]bool
}

func newMockPlanRepository() *mockPlanRepository {
	return &mockPlanRepository{
		plans: make(map[int64]*entities.Plan),
		inUse: make(map[int64]bool),
	}
}

func (m *mockPlanRepository) Create(ctx context.Context, plan *entities.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.plans {
		if existing.Name == plan.Name {
			return repositories.ErrDuplicateName
		}
	}

	m.nextID++
	plan.ID = m.nextID
	stored := *plan
	m.plans[plan.ID] = &stored
	return nil
}

func (m *mockPlanRepository) GetByID(ctx context.Context, id int64) (*entities.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

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
	for id, existing := range m.plans {
		if id != plan.ID && existing.Name == plan.Name {
			return repositories.ErrDuplicateName
		}
	}
	stored := *plan
	m.plans[plan.ID] = &stored
	return nil
}

func (m *mockPlanRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plans[id]; !ok {
		return repositories.ErrNotFound
	}
	if m.inUse[id] {
		return repositories.ErrPlanInUse
	}
	delete(m.plans, id)
	return nil
}

func (m *mockPlanRepository) List(ctx context.Context) ([]*entities.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var plans []*entities.Plan
	for _, plan := range m.plans {
		copied := *plan
		plans = append(plans, &copied)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	return plans, nil
}

type mockSubscriptionRepository struct {
	mu     sync.Mutex
	nextID int64
	subs   map[string]*entities.Subscription

	// planRepo, when set, drives foreign-key and quota behavior.
	planRepo *mockPlanRepository
}

func newMockSubscriptionRepository(planRepo *mockPlanRepository) *mockSubscriptionRepository {
	return &mockSubscriptionRepository{
		subs:     make(map[string]*entities.Subscription),
		planRepo: planRepo,
	}
}

func (m *mockSubscriptionRepository) Create(ctx context.Context, sub *entities.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subs[sub.UserID]; ok {
		return repositories.ErrAlreadySubscribed
	}
	if m.planRepo != nil {
		if _, err := m.planRepo.GetByID(ctx, sub.PlanID); err != nil {
			return repositories.ErrNotFound
		}
	}

	m.nextID++
	sub.ID = m.nextID
	sub.UsageCount = 0
	stored := *sub
	m.subs[sub.UserID] = &stored
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

func (m *mockSubscriptionRepository) ConsumeQuota(ctx context.Context, userID string) (int, error) {
	// The mutex serializes check-then-increment the way the row lock does
	// in the Postgres implementation.
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subs[userID]
	if !ok {
		return 0, repositories.ErrNotFound
	}

	limit := 0
	if m.planRepo != nil {
		plan, err := m.planRepo.GetByID(ctx, sub.PlanID)
		if err != nil {
			return 0, err
		}
		limit = plan.UsageLimit
	}

	if sub.UsageCount >= limit {
		return 0, repositories.ErrQuotaExceeded
	}
	sub.UsageCount++
	return sub.UsageCount, nil
}

type mockPermissionRepository struct {
	mu     sync.Mutex
	nextID int64
	perms  map[int64]*entities.Permission
}

func newMockPermissionRepository() *mockPermissionRepository {
	return &mockPermissionRepository{perms: make(map[int64]*entities.Permission)}
}

func (m *mockPermissionRepository) Create(ctx context.Context, perm *entities.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.perms {
		if existing.Name == perm.Name || existing.APIEndpoint == perm.APIEndpoint {
			return repositories.ErrDuplicateName
		}
	}

	m.nextID++
	perm.ID = m.nextID
	stored := *perm
	m.perms[perm.ID] = &stored
	return nil
}

func (m *mockPermissionRepository) GetByID(ctx context.Context, id int64) (*entities.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	perm, ok := m.perms[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *perm
	return &copied, nil
}

func (m *mockPermissionRepository) Update(ctx context.Context, perm *entities.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.perms[perm.ID]; !ok {
		return repositories.ErrNotFound
	}
	for id, existing := range m.perms {
		if id != perm.ID && (existing.Name == perm.Name || existing.APIEndpoint == perm.APIEndpoint) {
			return repositories.ErrDuplicateName
		}
	}
	stored := *perm
	m.perms[perm.ID] = &stored
	return nil
}

func (m *mockPermissionRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.perms[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.perms, id)
	return nil
}

func (m *mockPermissionRepository) List(ctx context.Context) ([]*entities.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var perms []*entities.Permission
	for _, perm := range m.perms {
		copied := *perm
		perms = append(perms, &copied)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].ID < perms[j].ID })
	return perms, nil
}
