// Package scheduler содержит сервис поиска истекающих пробных периодов
// и публикации уведомлений о них.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/access-gate/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/access-gate/internal/lib/sl"
	"github.com/magabrotheeeer/access-gate/internal/models"
)

// SubscriptionRepository определяет методы хранилища для планировщика.
type SubscriptionRepository interface {
	// FindTrialsExpiringBefore возвращает пробные подписки, заканчивающиеся до deadline.
	FindTrialsExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.ExpiringTrial, error)
}

// Publisher описывает публикацию события уведомления.
type Publisher interface {
	Publish(exchange, routingKey string, message any) error
}

// AMQPPublisher публикует события через канал RabbitMQ.
type AMQPPublisher struct {
	Channel *amqp.Channel
}

// Publish отправляет сообщение в RabbitMQ.
func (p *AMQPPublisher) Publish(exchange, routingKey string, message any) error {
	return rabbitmq.PublishMessage(p.Channel, exchange, routingKey, message)
}

// SchedulerService периодически ищет пробные подписки, истекающие в течение
// суток, и публикует уведомления для воркеров рассылки (WhatsApp, email).
type SchedulerService struct {
	repo      SubscriptionRepository
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo SubscriptionRepository, publisher Publisher, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// FindExpiringTrials запускает поиск сразу и далее каждые 12 часов
// до завершения контекста.
func (s *SchedulerService) FindExpiringTrials(ctx context.Context) {
	s.runFindExpiringTrials(ctx)

	ticker := time.NewTicker(12 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runFindExpiringTrials(ctx)
		}
	}
}

func (s *SchedulerService) runFindExpiringTrials(ctx context.Context) {
	s.log.Info("starting service to find expiring trials")
	deadline := s.now().AddDate(0, 0, 1)
	trials, err := s.repo.FindTrialsExpiringBefore(ctx, deadline)
	if err != nil {
		s.log.Error("failed to find expiring trials", sl.Err(err))
		return
	}
	if len(trials) == 0 {
		s.log.Info("no expiring trials found")
		return
	}
	s.log.Info("found expiring trials", "count", len(trials))
	for _, trial := range trials {
		if err = s.publisher.Publish("notifications", "trial-expiring", trial); err != nil {
			s.log.Error("failed to publish message", sl.Err(err))
		}
	}
}
