package models

import "time"

// Plan представляет тарифный план подписки на панель.
type Plan struct {
	ID             string    // Уникальный идентификатор плана
	Name           string    // Название плана
	Price          int       // Цена за период в минимальных единицах валюты
	DurationMonths int       // Длительность периода в месяцах
	CreatedAt      time.Time // Дата создания
}

// Settings представляет единственную строку системных настроек (id = 1).
// Для логики доступа значим только TrialDays; LogoURL хранится для фронтенда.
type Settings struct {
	TrialDays int    // Длительность пробного периода в днях
	LogoURL   string // Ссылка на логотип панели
}
