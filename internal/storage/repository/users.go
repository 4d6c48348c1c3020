package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/access-gate/internal/models"
)

// RegisterUser сохраняет нового пользователя в базу данных и возвращает его ID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO users (email, username, password_hash)
			  VALUES ($1, $2, $3)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Username, user.PasswordHash).Scan(&newID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetUserByUsername возвращает пользователя по его username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, created_at
			  FROM users
			  WHERE username = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, username)
	if err := row.Scan(&u.UUID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// HasRole проверяет наличие назначения роли (userUID, role).
// Отсутствие записи — не ошибка: возвращается false, nil.
func (s *Storage) HasRole(ctx context.Context, userUID, role string) (bool, error) {
	const op = "storage.HasRole"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
				  SELECT 1 FROM role_assignments
				  WHERE user_uid = $1 AND role = $2
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userUID, role).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// GrantRole добавляет назначение роли пользователю. Повторное назначение
// той же роли не считается ошибкой.
func (s *Storage) GrantRole(ctx context.Context, userUID, role string) error {
	const op = "storage.GrantRole"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO role_assignments (user_uid, role)
			  VALUES ($1, $2)
			  ON CONFLICT (user_uid, role) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, query, userUID, role); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
