// Package accessgate собирает HTTP-приложение панели: хранилище, кэш,
// сервисы и маршруты.
package accessgate

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/access-gate/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/access-gate/internal/http/handlers/auth/register"
	clientcreate "github.com/magabrotheeeer/access-gate/internal/http/handlers/client/create"
	clientlist "github.com/magabrotheeeer/access-gate/internal/http/handlers/client/list"
	clientread "github.com/magabrotheeeer/access-gate/internal/http/handlers/client/read"
	clientremove "github.com/magabrotheeeer/access-gate/internal/http/handlers/client/remove"
	"github.com/magabrotheeeer/access-gate/internal/http/handlers/health"
	planlist "github.com/magabrotheeeer/access-gate/internal/http/handlers/plan/list"
	"github.com/magabrotheeeer/access-gate/internal/http/handlers/subscription/status"
	"github.com/magabrotheeeer/access-gate/internal/http/handlers/subscription/upgrade"
	"github.com/magabrotheeeer/access-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/access-gate/internal/services/access"
	authservice "github.com/magabrotheeeer/access-gate/internal/services/auth"
	clientservice "github.com/magabrotheeeer/access-gate/internal/services/client"
	"github.com/magabrotheeeer/access-gate/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
//
// Конечные точки состояния подписки и смены тарифа стоят за JWT, но вне
// гейта: пользователь с истекшей подпиской должен видеть пейвол и платить.
// Рабочая зона панели (абоненты, тарифы) закрыта гейтом целиком.
func RegisterRoutes(r chi.Router, logger *slog.Logger, authService *authservice.AuthService, accessService *access.Service, clientService *clientservice.ClientService, db *repository.Storage) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)

		// Группа с JWT аутентификацией, но без гейта доступа
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/subscriptions/status", status.New(logger, accessService).ServeHTTP)
			r.Post("/subscriptions/upgrade", upgrade.New(logger, accessService).ServeHTTP)
			r.Get("/plans", planlist.New(logger, db).ServeHTTP)
		})

		// Рабочая зона панели за гейтом доступа
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.GateMiddleware(accessService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/clients", clientcreate.New(logger, clientService).ServeHTTP)
			r.Get("/clients/list", clientlist.New(logger, clientService).ServeHTTP)
			r.Get("/clients/{id}", clientread.New(logger, clientService).ServeHTTP)
			r.Delete("/clients/{id}", clientremove.New(logger, clientService).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
