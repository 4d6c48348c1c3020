package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/access-gate/internal/models"
)

// GetSettings возвращает единственную строку системных настроек (id = 1).
// Отсутствие строки возвращается как ошибка: вызывающий код сам решает,
// каким значением по умолчанию её заместить.
func (s *Storage) GetSettings(ctx context.Context) (*models.Settings, error) {
	const op = "storage.GetSettings"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT trial_days, logo_url FROM settings WHERE id = 1`
	settings := &models.Settings{}
	if err := s.DB.QueryRowContext(ctx, query).Scan(&settings.TrialDays, &settings.LogoURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return settings, nil
}

// GetTrialDays возвращает длительность пробного периода из настроек.
func (s *Storage) GetTrialDays(ctx context.Context) (int, error) {
	const op = "storage.GetTrialDays"

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return settings.TrialDays, nil
}
