// Package access содержит ядро контроля доступа к панели: ленивое заведение
// пробного периода, вычисление состояния подписки и решение гейта
// для каждого защищённого запроса.
package access

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/access-gate/internal/lib/expiry"
	"github.com/magabrotheeeer/access-gate/internal/lib/sl"
	"github.com/magabrotheeeer/access-gate/internal/models"
)

// State представляет терминальное состояние гейта для одного запроса.
type State int

const (
	// StateLoading — решение принять нельзя: хранилище недоступно или
	// пробный период не удалось завести. Доступ не выдаётся и не
	// блокируется окончательно; следующий запрос повторит весь конвейер.
	StateLoading State = iota
	// StateUnauthenticated — личность не установлена, нужен вход.
	StateUnauthenticated
	// StateAdminBypass — администратор, обходит проверку подписки
	// и направляется в административную зону.
	StateAdminBypass
	// StateTrialExpired — подписка просрочена, показывается пейвол.
	StateTrialExpired
	// StateAllowed — доступ к панели разрешён.
	StateAllowed
)

// String возвращает имя состояния для логов и метрик.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAdminBypass:
		return "admin_bypass"
	case StateTrialExpired:
		return "trial_expired"
	case StateAllowed:
		return "allowed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Identity описывает аутентифицированную личность, для которой принимается решение.
type Identity struct {
	UserUID  string
	Username string
}

// Decision — результат работы гейта: состояние плюс вычисленный статус
// подписки, когда он известен.
type Decision struct {
	State        State
	Status       expiry.Status
	Subscription *models.Subscription
}

// Repository определяет методы хранилища, используемые ядром доступа.
type Repository interface {
	// FetchLatestSubscription возвращает последнюю по дате создания подписку
	// пользователя или (nil, nil), если подписок нет.
	FetchLatestSubscription(ctx context.Context, userUID string) (*models.Subscription, error)
	// CreateSubscription добавляет новую подписку и возвращает её ID.
	CreateSubscription(ctx context.Context, sub models.Subscription) (string, error)
	// ActivateSubscription переводит подписку в active с привязкой к плану.
	ActivateSubscription(ctx context.Context, id, planID string, expiresAt *time.Time) (int, error)
	// ReadPlan возвращает тарифный план по ID или (nil, nil).
	ReadPlan(ctx context.Context, id string) (*models.Plan, error)
	// GetTrialDays возвращает длительность пробного периода из настроек.
	GetTrialDays(ctx context.Context) (int, error)
	// HasRole проверяет назначение роли (userUID, role).
	HasRole(ctx context.Context, userUID, role string) (bool, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

const subscriptionCacheTTL = 5 * time.Minute

// Service реализует конвейер принятия решения о доступе.
type Service struct {
	repo             Repository
	cache            Cache
	log              *slog.Logger
	defaultTrialDays int
	now              func() time.Time
}

// NewService создает новый экземпляр Service. defaultTrialDays используется,
// когда настройки недоступны: запасное значение передаётся явно,
// а не читается из глобального состояния.
func NewService(repo Repository, cache Cache, log *slog.Logger, defaultTrialDays int) *Service {
	return &Service{
		repo:             repo,
		cache:            cache,
		log:              log,
		defaultTrialDays: defaultTrialDays,
		now:              time.Now,
	}
}

// Resolve принимает решение гейта для identity. Порядок строгий:
// аутентификация важнее роли, роль важнее состояния оплаты — просроченный
// администратор никогда не увидит пейвол. Проверка роли и получение
// подписки выполняются конкурентно; решение ждёт обе.
func (s *Service) Resolve(ctx context.Context, identity *Identity) Decision {
	if identity == nil || identity.UserUID == "" {
		return Decision{State: StateUnauthenticated}
	}

	var (
		wg      sync.WaitGroup
		isAdmin bool
		sub     *models.Subscription
		subErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		isAdmin = s.IsAdmin(ctx, identity.UserUID)
	}()
	go func() {
		defer wg.Done()
		sub, subErr = s.EnsureSubscription(ctx, identity.UserUID)
	}()
	wg.Wait()

	if isAdmin {
		return Decision{State: StateAdminBypass}
	}
	if subErr != nil {
		s.log.Error("failed to resolve subscription, access stays indeterminate",
			slog.String("user_uid", identity.UserUID), sl.Err(subErr))
		return Decision{State: StateLoading}
	}
	if sub == nil {
		// Заведение пробного периода не удалось; конвейер повторится
		// на следующем запросе.
		return Decision{State: StateLoading}
	}

	status := expiry.Evaluate(sub, s.now())
	if status.IsExpired {
		return Decision{State: StateTrialExpired, Status: status, Subscription: sub}
	}
	return Decision{State: StateAllowed, Status: status, Subscription: sub}
}

// IsAdmin проверяет назначение роли администратора. Ошибка запроса
// приравнивается к отсутствию роли: сбой никогда не выдаёт привилегию.
func (s *Service) IsAdmin(ctx context.Context, userUID string) bool {
	has, err := s.repo.HasRole(ctx, userUID, models.RoleAdmin)
	if err != nil {
		s.log.Warn("role lookup failed, treating as non-admin",
			slog.String("user_uid", userUID), sl.Err(err))
		return false
	}
	return has
}

// EnsureSubscription возвращает авторитетную подписку пользователя,
// заводя пробный период, если подписок ещё нет. Результат (nil, nil)
// означает мягкий сбой заведения: записи нет, но это не ошибка чтения.
func (s *Service) EnsureSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	cacheKey := fmt.Sprintf("subscription:latest:%s", userUID)
	var cached models.Subscription
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read subscription from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	sub, err := s.repo.FetchLatestSubscription(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		if !s.CreateTrial(ctx, userUID) {
			return nil, nil
		}
		sub, err = s.repo.FetchLatestSubscription(ctx, userUID)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			return nil, nil
		}
	}

	if err := s.cache.Set(cacheKey, sub, subscriptionCacheTTL); err != nil {
		s.log.Warn("failed to cache subscription", slog.String("key", cacheKey), sl.Err(err))
	}
	return sub, nil
}

// CreateTrial заводит пробную подписку пользователю. Длительность берётся
// из настроек; при любой ошибке чтения используется запасное значение —
// это осознанная политика устойчивости, а не ошибочный путь.
// Сбой вставки логируется и не поднимается наверх: пользователь остаётся
// без подписки, попытка повторится при следующем прохождении гейта.
func (s *Service) CreateTrial(ctx context.Context, userUID string) bool {
	trialDays, err := s.repo.GetTrialDays(ctx)
	if err != nil || trialDays <= 0 {
		if err != nil {
			s.log.Warn("failed to read trial length, using default",
				slog.Int("default_days", s.defaultTrialDays), sl.Err(err))
		}
		trialDays = s.defaultTrialDays
	}

	startedAt := s.now()
	expiresAt := startedAt.AddDate(0, 0, trialDays)
	sub := models.Subscription{
		ID:        uuid.NewString(),
		UserUID:   userUID,
		PlanID:    nil,
		Status:    models.StatusTrial,
		StartedAt: startedAt,
		ExpiresAt: &expiresAt,
	}

	if _, err := s.repo.CreateSubscription(ctx, sub); err != nil {
		s.log.Error("failed to provision trial subscription",
			slog.String("user_uid", userUID), sl.Err(err))
		return false
	}
	s.log.Info("provisioned trial subscription",
		slog.String("user_uid", userUID), slog.Int("trial_days", trialDays))
	return true
}

// Upgrade переводит текущую подписку пользователя на тарифный план:
// статус становится active, дата окончания — now + длительность плана.
func (s *Service) Upgrade(ctx context.Context, userUID, planID string) (*models.Subscription, error) {
	const op = "access.Upgrade"

	plan, err := s.repo.ReadPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if plan == nil {
		return nil, fmt.Errorf("%s: plan not found", op)
	}

	sub, err := s.repo.FetchLatestSubscription(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub == nil {
		return nil, fmt.Errorf("%s: subscription not found", op)
	}

	expiresAt := s.now().AddDate(0, plan.DurationMonths, 0)
	if _, err := s.repo.ActivateSubscription(ctx, sub.ID, plan.ID, &expiresAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheKey := fmt.Sprintf("subscription:latest:%s", userUID)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate subscription cache", slog.String("key", cacheKey), sl.Err(err))
	}

	sub.Status = models.StatusActive
	sub.PlanID = &plan.ID
	sub.ExpiresAt = &expiresAt
	s.log.Info("subscription upgraded", slog.String("user_uid", userUID), slog.String("plan_id", plan.ID))
	return sub, nil
}
