// Package expiry содержит чистую логику вычисления состояния подписки
// на момент времени. Статус в хранилище при истечении не переписывается,
// поэтому просроченность выводится заново при каждом обращении
// из полей Status и ExpiresAt.
package expiry

import (
	"time"

	"github.com/magabrotheeeer/access-gate/internal/models"
)

const day = 24 * time.Hour

// Status описывает вычисленное состояние подписки.
// DaysLeft равен nil, если дата окончания неизвестна (бессрочная подписка
// или trial без ExpiresAt — защитный случай, который не должен возникать).
type Status struct {
	IsExpired bool
	DaysLeft  *int
	IsTrial   bool
	IsActive  bool
}

// Evaluate вычисляет состояние подписки sub на момент now.
// Функция чистая: не обращается к хранилищу и не мутирует sub.
//
// Правила по статусам:
//   - active: никогда не считается просроченной, даже после ExpiresAt —
//     отключение оплаченной подписки выполняет биллинг, а не гейт;
//   - trial: просрочена, когда оставшихся дней <= 0, момент окончания
//     включительно; trial без ExpiresAt не помечается просроченным;
//   - expired и cancelled: всегда просрочены, DaysLeft = 0 независимо
//     от сохранённой даты окончания.
//
// Остаток дней округляется вверх: 0.01 оставшегося дня — это 1 день.
func Evaluate(sub *models.Subscription, now time.Time) Status {
	st := Status{
		IsTrial:  sub.Status == models.StatusTrial,
		IsActive: sub.Status == models.StatusActive,
	}

	switch sub.Status {
	case models.StatusActive:
		if sub.ExpiresAt != nil {
			st.DaysLeft = ptr(DaysLeft(*sub.ExpiresAt, now))
		}
	case models.StatusTrial:
		if sub.ExpiresAt != nil {
			left := DaysLeft(*sub.ExpiresAt, now)
			st.DaysLeft = &left
			st.IsExpired = left <= 0
		}
	case models.StatusExpired, models.StatusCancelled:
		st.IsExpired = true
		st.DaysLeft = ptr(0)
	}
	return st
}

// DaysLeft возвращает количество дней до expiresAt, округлённое вверх.
// В момент expiresAt и позже результат <= 0.
func DaysLeft(expiresAt, now time.Time) int {
	diff := expiresAt.Sub(now)
	days := int(diff / day)
	if diff%day > 0 {
		days++
	}
	return days
}

func ptr(v int) *int {
	return &v
}
