package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/access-gate/internal/models"
)

// CreateClient вставляет нового IPTV-клиента и возвращает его ID.
func (s *Storage) CreateClient(ctx context.Context, client models.Client) (string, error) {
	const op = "storage.CreateClient"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO clients (id, owner_uid, name, phone, plan_id, expires_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID string
	err := s.DB.QueryRowContext(ctx, query,
		client.ID, client.OwnerUID, client.Name, client.Phone, client.PlanID, client.ExpiresAt).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadClient возвращает клиента по ID в пределах владельца.
func (s *Storage) ReadClient(ctx context.Context, ownerUID, id string) (*models.Client, error) {
	const op = "storage.ReadClient"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, owner_uid, name, phone, plan_id, expires_at, created_at
			  FROM clients
			  WHERE owner_uid = $1 AND id = $2`
	c := &models.Client{}
	var planID sql.NullString
	var expiresAt sql.NullTime
	row := s.DB.QueryRowContext(ctx, query, ownerUID, id)
	if err := row.Scan(&c.ID, &c.OwnerUID, &c.Name, &c.Phone, &planID, &expiresAt, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if planID.Valid {
		c.PlanID = &planID.String
	}
	if expiresAt.Valid {
		c.ExpiresAt = &expiresAt.Time
	}
	return c, nil
}

// ListClients возвращает клиентов владельца с пагинацией.
func (s *Storage) ListClients(ctx context.Context, ownerUID string, limit, offset int) ([]*models.Client, error) {
	const op = "storage.ListClients"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, owner_uid, name, phone, plan_id, expires_at, created_at
			  FROM clients
			  WHERE owner_uid = $1
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, ownerUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.Client
	for rows.Next() {
		var c models.Client
		var planID sql.NullString
		var expiresAt sql.NullTime
		if err = rows.Scan(&c.ID, &c.OwnerUID, &c.Name, &c.Phone, &planID, &expiresAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if planID.Valid {
			c.PlanID = &planID.String
		}
		if expiresAt.Valid {
			c.ExpiresAt = &expiresAt.Time
		}
		result = append(result, &c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RemoveClient удаляет клиента владельца и возвращает количество удалённых строк.
func (s *Storage) RemoveClient(ctx context.Context, ownerUID, id string) (int, error) {
	const op = "storage.RemoveClient"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM clients WHERE owner_uid = $1 AND id = $2`
	result, err := s.DB.ExecContext(ctx, query, ownerUID, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
