package models

import "time"

// Client представляет IPTV-клиента, принадлежащего пользователю панели.
type Client struct {
	ID        string     // Уникальный идентификатор клиента
	OwnerUID  string     // Идентификатор пользователя-владельца (реселлера)
	Name      string     // Имя клиента
	Phone     string     // Телефон для уведомлений
	PlanID    *string    // Тарифный план клиента, может отсутствовать
	ExpiresAt *time.Time // Дата окончания доступа клиента
	CreatedAt time.Time  // Дата создания
}

// DummyClient используется для приёма данных клиента из JSON-запроса.
// Дата окончания приходит строкой в формате 02-01-2006.
type DummyClient struct {
	Name      string `json:"name" validate:"required"`                    // Имя клиента
	Phone     string `json:"phone" validate:"required"`                   // Телефон
	PlanID    string `json:"plan_id,omitempty" validate:"omitempty,uuid"` // Тарифный план (опционально)
	ExpiresAt string `json:"expires_at,omitempty" validate:"omitempty"`   // Дата окончания доступа
}
