package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/access-gate/internal/models"
)

// FetchLatestSubscription возвращает самую свежую по дате создания подписку
// пользователя или (nil, nil), если подписок нет. Отсутствие записи —
// нормальный результат, а не ошибка: так вызывающий код отличает
// "нужно завести пробный период" от сбоя хранилища.
func (s *Storage) FetchLatestSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.FetchLatestSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, plan_id, status, started_at, expires_at, created_at
			  FROM subscriptions
			  WHERE user_uid = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT 1`
	sub := &models.Subscription{}
	var planID sql.NullString
	var expiresAt sql.NullTime
	row := s.DB.QueryRowContext(ctx, query, userUID)
	if err := row.Scan(&sub.ID, &sub.UserUID, &planID, &sub.Status,
		&sub.StartedAt, &expiresAt, &sub.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if planID.Valid {
		sub.PlanID = &planID.String
	}
	if expiresAt.Valid {
		sub.ExpiresAt = &expiresAt.Time
	}
	return sub, nil
}

// CreateSubscription вставляет новую запись подписки и возвращает её ID.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (string, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (id, user_uid, plan_id, status, started_at, expires_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID string
	err := s.DB.QueryRowContext(ctx, query,
		sub.ID, sub.UserUID, sub.PlanID, sub.Status, sub.StartedAt, sub.ExpiresAt).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ActivateSubscription переводит подписку в статус active с привязкой к плану
// и новой датой окончания. Возвращает количество обновлённых строк.
func (s *Storage) ActivateSubscription(ctx context.Context, id, planID string, expiresAt *time.Time) (int, error) {
	const op = "storage.ActivateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = $1, plan_id = $2, expires_at = $3
			  WHERE id = $4`
	result, err := s.DB.ExecContext(ctx, query, models.StatusActive, planID, expiresAt, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// FindTrialsExpiringBefore находит пробные подписки, заканчивающиеся до deadline,
// вместе с контактными данными владельцев. Используется планировщиком уведомлений.
func (s *Storage) FindTrialsExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.ExpiringTrial, error) {
	const op = "storage.FindTrialsExpiringBefore"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.email, u.username, u.uid, sub.expires_at
			  FROM subscriptions sub
			  JOIN users u ON u.uid = sub.user_uid
			  WHERE sub.status = $1
			    AND sub.expires_at IS NOT NULL
			    AND sub.expires_at > NOW()
			    AND sub.expires_at <= $2`
	rows, err := s.DB.QueryContext(ctx, query, models.StatusTrial, deadline)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.ExpiringTrial
	for rows.Next() {
		var e models.ExpiringTrial
		if err = rows.Scan(&e.Email, &e.Username, &e.UserUID, &e.ExpiresAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
