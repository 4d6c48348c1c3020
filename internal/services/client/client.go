// Package client содержит бизнес-логику для управления IPTV-клиентами
// реселлера, включая кеширование.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/access-gate/internal/lib/sl"
	"github.com/magabrotheeeer/access-gate/internal/models"
)

// ClientRepository определяет методы для работы с клиентами в хранилище.
type ClientRepository interface {
	// CreateClient добавляет нового клиента и возвращает его ID.
	CreateClient(ctx context.Context, client models.Client) (string, error)
	// ReadClient возвращает клиента владельца по ID или (nil, nil).
	ReadClient(ctx context.Context, ownerUID, id string) (*models.Client, error)
	// ListClients возвращает клиентов владельца с пагинацией.
	ListClients(ctx context.Context, ownerUID string, limit, offset int) ([]*models.Client, error)
	// RemoveClient удаляет клиента владельца, возвращает количество удалённых записей.
	RemoveClient(ctx context.Context, ownerUID, id string) (int, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// ClientService реализует бизнес-логику работы с клиентами.
type ClientService struct {
	repo  ClientRepository
	cache Cache
	log   *slog.Logger
}

// NewClientService создает новый экземпляр ClientService.
func NewClientService(repo ClientRepository, cache Cache, log *slog.Logger) *ClientService {
	return &ClientService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Create создает нового клиента для владельца и возвращает его ID.
func (s *ClientService) Create(ctx context.Context, ownerUID string, req models.DummyClient) (string, error) {
	client := models.Client{
		ID:       uuid.NewString(),
		OwnerUID: ownerUID,
		Name:     req.Name,
		Phone:    req.Phone,
	}
	if req.PlanID != "" {
		client.PlanID = &req.PlanID
	}
	if req.ExpiresAt != "" {
		expiresAt, err := time.Parse("02-01-2006", req.ExpiresAt)
		if err != nil {
			return "", fmt.Errorf("invalid expires_at: %w", err)
		}
		client.ExpiresAt = &expiresAt
	}

	id, err := s.repo.CreateClient(ctx, client)
	if err != nil {
		return "", err
	}
	s.log.Info("created new client", slog.String("id", id))

	cacheKey := fmt.Sprintf("client:%s", id)
	if err := s.cache.Set(cacheKey, client, time.Hour); err != nil {
		s.log.Warn("failed to cache client", slog.String("key", cacheKey), sl.Err(err))
	}
	return id, nil
}

// Read возвращает клиента по ID, используя кеш или репозиторий.
func (s *ClientService) Read(ctx context.Context, ownerUID, id string) (*models.Client, error) {
	var result *models.Client
	cacheKey := fmt.Sprintf("client:%s", id)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		s.log.Warn("failed to read client from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found && result != nil && result.OwnerUID == ownerUID {
		return result, nil
	}
	result, err = s.repo.ReadClient(ctx, ownerUID, id)
	if err != nil {
		return nil, err
	}

	if result != nil {
		if err := s.cache.Set(cacheKey, result, time.Hour); err != nil {
			s.log.Warn("failed to add client to cache", slog.String("key", cacheKey), sl.Err(err))
		}
	}
	return result, nil
}

// List возвращает список клиентов владельца с пагинацией.
func (s *ClientService) List(ctx context.Context, ownerUID string, limit, offset int) ([]*models.Client, error) {
	return s.repo.ListClients(ctx, ownerUID, limit, offset)
}

// Remove удаляет клиента и инвалидирует кеш.
func (s *ClientService) Remove(ctx context.Context, ownerUID, id string) (int, error) {
	cacheKey := fmt.Sprintf("client:%s", id)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to remove client from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	return s.repo.RemoveClient(ctx, ownerUID, id)
}
