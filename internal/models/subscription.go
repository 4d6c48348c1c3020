// Package models содержит доменные структуры панели: подписки, пользователей,
// клиентов и тарифные планы, а также вспомогательные типы для приёма данных
// из JSON-запросов до их валидации.
package models

import "time"

// Статусы подписки, хранимые в базе данных.
// Переходы задуманы однонаправленными: trial -> active (оплата)
// или trial -> expired (по времени); active -> expired/cancelled.
// Истечение по времени не записывается обратно в хранилище —
// оно вычисляется на каждом чтении по полю ExpiresAt.
const (
	StatusTrial     = "trial"
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// Subscription представляет запись подписки пользователя панели.
// Авторитетной считается самая свежая по дате создания запись пользователя.
// ExpiresAt может быть nil — подписка без даты окончания (бессрочная,
// на практике допустимо только для статуса active).
type Subscription struct {
	ID        string     // Уникальный идентификатор записи
	UserUID   string     // Идентификатор пользователя-владельца
	PlanID    *string    // Ссылка на тарифный план, nil во время пробного периода
	Status    string     // Один из StatusTrial/StatusActive/StatusExpired/StatusCancelled
	StartedAt time.Time  // Дата начала, устанавливается при создании и не меняется
	ExpiresAt *time.Time // Дата окончания, для trial всегда заполнена
	CreatedAt time.Time  // Дата создания строки, определяет авторитетную запись
}

// ExpiringTrial содержит данные пользователя с истекающим пробным периодом,
// используется планировщиком уведомлений.
type ExpiringTrial struct {
	Email     string
	Username  string
	UserUID   string
	ExpiresAt time.Time
}
