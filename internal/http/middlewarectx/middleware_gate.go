package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/magabrotheeeer/access-gate/internal/http/response"
	"github.com/magabrotheeeer/access-gate/internal/services/access"
)

// AdminAreaPath — путь административной зоны, куда перенаправляются
// администраторы: они не пользуются обычной панелью, а обычные
// пользователи не попадают в административную зону.
const AdminAreaPath = "/admin"

var gateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "panel_gate_decisions_total",
	Help: "Gate decisions by resulting state.",
}, []string{"state"})

// Gate описывает интерфейс сервиса принятия решения о доступе.
type Gate interface {
	Resolve(ctx context.Context, identity *access.Identity) access.Decision
}

// GateMiddleware возвращает HTTP middleware, пропускающий запрос дальше
// только при решении Allowed. Порядок проверок строгий: сначала
// аутентификация, затем роль, затем состояние подписки.
//
//   - Unauthenticated: 401, клиент уходит на страницу входа;
//   - AdminBypass: редирект в административную зону;
//   - TrialExpired: 402 с количеством оставшихся дней для пейвола;
//   - Loading: 503 с Retry-After — решение принять нельзя, но доступ
//     не выдан и не заблокирован окончательно.
func GateMiddleware(gate Gate, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.GateMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			identity := IdentityFromContext(r.Context())
			decision := gate.Resolve(r.Context(), identity)
			gateDecisions.WithLabelValues(decision.State.String()).Inc()

			switch decision.State {
			case access.StateUnauthenticated:
				log.Info("gate: unauthenticated")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("authentication required"))
			case access.StateAdminBypass:
				log.Info("gate: admin bypass", slog.String("user_uid", identity.UserUID))
				http.Redirect(w, r, AdminAreaPath, http.StatusFound)
			case access.StateTrialExpired:
				log.Info("gate: subscription expired", slog.String("user_uid", identity.UserUID))
				render.Status(r, http.StatusPaymentRequired)
				render.JSON(w, r, response.Response{
					Status: response.StatusError,
					Error:  "subscription expired",
					Data: map[string]any{
						"days_left": decision.Status.DaysLeft,
						"is_trial":  decision.Status.IsTrial,
					},
				})
			case access.StateLoading:
				log.Warn("gate: decision indeterminate", slog.String("user_uid", identity.UserUID))
				w.Header().Set("Retry-After", "5")
				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, response.Error("subscription state unavailable, retry"))
			case access.StateAllowed:
				next.ServeHTTP(w, r)
			default:
				log.Error("gate: unknown state", slog.String("state", decision.State.String()))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal error"))
			}
		})
	}
}
