package access

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/access-gate/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) FetchLatestSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}
func (m *RepoMock) CreateSubscription(ctx context.Context, sub models.Subscription) (string, error) {
	args := m.Called(ctx, sub)
	return args.String(0), args.Error(1)
}
func (m *RepoMock) ActivateSubscription(ctx context.Context, id, planID string, expiresAt *time.Time) (int, error) {
	args := m.Called(ctx, id, planID, expiresAt)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) ReadPlan(ctx context.Context, id string) (*models.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}
func (m *RepoMock) GetTrialDays(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) HasRole(ctx context.Context, userUID, role string) (bool, error) {
	args := m.Called(ctx, userUID, role)
	return args.Bool(0), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}
func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}
func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newTestService(repo *RepoMock, cache *CacheMock, now time.Time) *Service {
	svc := NewService(repo, cache, newNoopLogger(), 7)
	svc.now = func() time.Time { return now }
	return svc
}

func cacheMiss(c *CacheMock) {
	c.On("Get", mock.Anything, mock.Anything).Return(false, nil)
	c.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
}

func timePtr(t time.Time) *time.Time { return &t }

func TestResolve_Unauthenticated(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		identity *Identity
	}{
		{name: "nil identity", identity: nil},
		{name: "пустой uid", identity: &Identity{Username: "ghost"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			svc := newTestService(repo, cache, now)

			decision := svc.Resolve(context.Background(), tt.identity)

			assert.Equal(t, StateUnauthenticated, decision.State)
			// Остальные проверки не выполняются вовсе.
			repo.AssertNotCalled(t, "HasRole", mock.Anything, mock.Anything, mock.Anything)
			repo.AssertNotCalled(t, "FetchLatestSubscription", mock.Anything, mock.Anything)
		})
	}
}

func TestResolve_AdminBypassBeatsExpired(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	cache := new(CacheMock)
	cacheMiss(cache)
	svc := newTestService(repo, cache, now)

	repo.On("HasRole", mock.Anything, "uid-admin", models.RoleAdmin).Return(true, nil)
	repo.On("FetchLatestSubscription", mock.Anything, "uid-admin").Return(&models.Subscription{
		ID:        "sub-1",
		UserUID:   "uid-admin",
		Status:    models.StatusExpired,
		ExpiresAt: timePtr(now.AddDate(0, 0, -10)),
	}, nil).Maybe()

	decision := svc.Resolve(context.Background(), &Identity{UserUID: "uid-admin", Username: "boss"})

	// Просроченный администратор никогда не видит пейвол.
	assert.Equal(t, StateAdminBypass, decision.State)
}

func TestResolve_ActiveAllowed(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	cache := new(CacheMock)
	cacheMiss(cache)
	svc := newTestService(repo, cache, now)

	planID := "plan-1"
	repo.On("HasRole", mock.Anything, "uid-1", models.RoleAdmin).Return(false, nil)
	repo.On("FetchLatestSubscription", mock.Anything, "uid-1").Return(&models.Subscription{
		ID:        "sub-1",
		UserUID:   "uid-1",
		PlanID:    &planID,
		Status:    models.StatusActive,
		ExpiresAt: timePtr(now.AddDate(0, 1, 0)),
	}, nil)

	decision := svc.Resolve(context.Background(), &Identity{UserUID: "uid-1"})

	assert.Equal(t, StateAllowed, decision.State)
	assert.True(t, decision.Status.IsActive)
	assert.False(t, decision.Status.IsExpired)
}

func TestResolve_ExpiredTrialBlocked(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	cache := new(CacheMock)
	cacheMiss(cache)
	svc := newTestService(repo, cache, now)

	repo.On("HasRole", mock.Anything, "uid-1", models.RoleAdmin).Return(false, nil)
	repo.On("FetchLatestSubscription", mock.Anything, "uid-1").Return(&models.Subscription{
		ID:        "sub-1",
		UserUID:   "uid-1",
		Status:    models.StatusTrial,
		ExpiresAt: timePtr(now.Add(-time.Second)),
	}, nil)

	decision := svc.Resolve(context.Background(), &Identity{UserUID: "uid-1"})

	assert.Equal(t, StateTrialExpired, decision.State)
	require.NotNil(t, decision.Status.DaysLeft)
	assert.LessOrEqual(t, *decision.Status.DaysLeft, 0)
}

func TestResolve_FetchErrorStaysLoading(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	cache := new(CacheMock)
	cacheMiss(cache)
	svc := newTestService(repo, cache, now)

	repo.On("HasRole", mock.Anything, "uid-1", models.RoleAdmin).Return(false, nil)
	repo.On("FetchLatestSubscription", mock.Anything, "uid-1").Return(nil, errors.New("connection refused"))

	decision := svc.Resolve(context.Background(), &Identity{UserUID: "uid-1"})

	// Сбой чтения никогда не превращается ни в allow, ни в окончательный deny.
	assert.Equal(t, StateLoading, decision.State)
}

func TestResolve_ProvisionsTrialForNewUser(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	cache := new(CacheMock)
	cacheMiss(cache)
	svc := newTestService(repo, cache, now)

	expiresAt := now.AddDate(0, 0, 10)
	provisioned := &models.Subscription{
		ID:        "sub-new",
		UserUID:   "uid-1",
		Status:    models.StatusTrial,
		StartedAt: now,
		ExpiresAt: &expiresAt,
	}

	repo.On("HasRole", mock.Anything, "uid-1", models.RoleAdmin).Return(false, nil)
	repo.On("FetchLatestSubscription", mock.Anything, "uid-1").Return(nil, nil).Once()
	repo.On("GetTrialDays", mock.Anything).Return(10, nil)
	repo.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
		return sub.UserUID == "uid-1" &&
			sub.Status == models.StatusTrial &&
			sub.PlanID == nil &&
			sub.StartedAt.Equal(now) &&
			sub.ExpiresAt != nil && sub.ExpiresAt.Equal(expiresAt)
	})).Return("sub-new", nil).Once()
	repo.On("FetchLatestSubscription", mock.Anything, "uid-1").Return(provisioned, nil).Once()

	decision := svc.Resolve(context.Background(), &Identity{UserUID: "uid-1"})

	assert.Equal(t, StateAllowed, decision.State)
	assert.True(t, decision.Status.IsTrial)
	require.NotNil(t, decision.Status.DaysLeft)
	assert.Equal(t, 10, *decision.Status.DaysLeft)
	repo.AssertExpectations(t)
}

func TestResolve_ProvisionInsertFailureStaysLoading(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	cache := new(CacheMock)
	cacheMiss(cache)
	svc := newTestService(repo, cache, now)

	repo.On("HasRole", mock.Anything, "uid-1", models.RoleAdmin).Return(false, nil)
	repo.On("FetchLatestSubscription", mock.Anything, "uid-1").Return(nil, nil).Once()
	repo.On("GetTrialDays", mock.Anything).Return(7, nil)
	repo.On("CreateSubscription", mock.Anything, mock.Anything).Return("", errors.New("insert failed")).Once()

	decision := svc.Resolve(context.Background(), &Identity{UserUID: "uid-1"})

	assert.Equal(t, StateLoading, decision.State)
}

func TestCreateTrial_ConfigFailureFallsBackToDefault(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock)
		wantDays   int
	}{
		{
			name: "ошибка чтения настроек",
			setupMocks: func(r *RepoMock) {
				r.On("GetTrialDays", mock.Anything).Return(0, errors.New("no settings row"))
			},
			wantDays: 7,
		},
		{
			name: "неположительное значение в настройках",
			setupMocks: func(r *RepoMock) {
				r.On("GetTrialDays", mock.Anything).Return(0, nil)
			},
			wantDays: 7,
		},
		{
			name: "значение из настроек",
			setupMocks: func(r *RepoMock) {
				r.On("GetTrialDays", mock.Anything).Return(30, nil)
			},
			wantDays: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			svc := newTestService(repo, cache, now)
			tt.setupMocks(repo)

			wantExpires := now.AddDate(0, 0, tt.wantDays)
			repo.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
				return sub.ExpiresAt != nil && sub.ExpiresAt.Equal(wantExpires)
			})).Return("sub-id", nil).Once()

			ok := svc.CreateTrial(context.Background(), "uid-1")

			assert.True(t, ok)
			repo.AssertExpectations(t)
		})
	}
}

func TestIsAdmin_FailsClosed(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := newTestService(repo, cache, now)

	repo.On("HasRole", mock.Anything, "uid-1", models.RoleAdmin).Return(false, errors.New("lookup failed"))

	// Ошибка проверки роли никогда не выдаёт обход гейта.
	assert.False(t, svc.IsAdmin(context.Background(), "uid-1"))
}

func TestEnsureSubscription_CacheHitSkipsRepository(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := newTestService(repo, cache, now)

	expiresAt := now.AddDate(0, 0, 3)
	cache.On("Get", "subscription:latest:uid-1", mock.Anything).Run(func(args mock.Arguments) {
		out := args.Get(1).(*models.Subscription)
		*out = models.Subscription{
			ID:        "sub-cached",
			UserUID:   "uid-1",
			Status:    models.StatusTrial,
			ExpiresAt: &expiresAt,
		}
	}).Return(true, nil)

	sub, err := svc.EnsureSubscription(context.Background(), "uid-1")

	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "sub-cached", sub.ID)
	repo.AssertNotCalled(t, "FetchLatestSubscription", mock.Anything, mock.Anything)
}

func TestUpgrade_ActivatesWithPlanDuration(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := newTestService(repo, cache, now)

	trialEnd := now.AddDate(0, 0, 2)
	repo.On("ReadPlan", mock.Anything, "plan-1").Return(&models.Plan{
		ID:             "plan-1",
		Name:           "Standard",
		Price:          990,
		DurationMonths: 3,
	}, nil)
	repo.On("FetchLatestSubscription", mock.Anything, "uid-1").Return(&models.Subscription{
		ID:        "sub-1",
		UserUID:   "uid-1",
		Status:    models.StatusTrial,
		ExpiresAt: &trialEnd,
	}, nil)
	wantExpires := now.AddDate(0, 3, 0)
	repo.On("ActivateSubscription", mock.Anything, "sub-1", "plan-1", mock.MatchedBy(func(ts *time.Time) bool {
		return ts != nil && ts.Equal(wantExpires)
	})).Return(1, nil)
	cache.On("Invalidate", "subscription:latest:uid-1").Return(nil)

	sub, err := svc.Upgrade(context.Background(), "uid-1", "plan-1")

	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, sub.Status)
	require.NotNil(t, sub.PlanID)
	assert.Equal(t, "plan-1", *sub.PlanID)
	repo.AssertExpectations(t)
}

func TestUpgrade_PlanNotFound(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := newTestService(repo, cache, now)

	repo.On("ReadPlan", mock.Anything, "missing").Return(nil, nil)

	_, err := svc.Upgrade(context.Background(), "uid-1", "missing")

	assert.Error(t, err)
}
