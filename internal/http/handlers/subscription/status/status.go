// Package status реализует HTTP-обработчик получения состояния подписки
// текущего пользователя.
//
// Обработчик стоит за проверкой JWT, но не за гейтом доступа: пользователь
// с истекшей подпиской должен видеть свое состояние, чтобы оплатить тариф.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/access-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/access-gate/internal/http/response"
	"github.com/magabrotheeeer/access-gate/internal/services/access"
)

// Service описывает интерфейс бизнес-логики принятия решения о доступе.
type Service interface {
	Resolve(ctx context.Context, identity *access.Identity) access.Decision
}

// Handler обрабатывает запросы на получение состояния подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.status"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	identity := middlewarectx.IdentityFromContext(r.Context())
	if identity == nil {
		log.Error("identity not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	decision := h.service.Resolve(r.Context(), identity)
	if decision.State == access.StateLoading {
		log.Warn("subscription state unavailable", slog.String("user_uid", identity.UserUID))
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("subscription state unavailable, retry"))
		return
	}

	data := map[string]any{
		"state":      decision.State.String(),
		"is_trial":   decision.Status.IsTrial,
		"is_active":  decision.Status.IsActive,
		"is_expired": decision.Status.IsExpired,
		"days_left":  decision.Status.DaysLeft,
	}
	if sub := decision.Subscription; sub != nil {
		data["status"] = sub.Status
		data["plan_id"] = sub.PlanID
		data["expires_at"] = sub.ExpiresAt
	}

	log.Info("subscription status resolved",
		slog.String("user_uid", identity.UserUID),
		slog.String("state", decision.State.String()))
	render.JSON(w, r, response.StatusOKWithData(data))
}
