package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frahmantamala/opsboard/internal/auth"
	"github.com/frahmantamala/opsboard/internal/core/rbac"
	"github.com/frahmantamala/opsboard/internal/dashboard"
	"github.com/frahmantamala/opsboard/internal/notification"
	"github.com/frahmantamala/opsboard/internal/role"
	"github.com/frahmantamala/opsboard/internal/task"
	"github.com/frahmantamala/opsboard/internal/transport"
	"github.com/frahmantamala/opsboard/internal/transport/middleware"
	"github.com/frahmantamala/opsboard/internal/transport/swagger"
	"github.com/frahmantamala/opsboard/internal/user"
)

type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Role         *role.Handler
	Task         *task.Handler
	Dashboard    *dashboard.Handler
	Notification *notification.Handler
}

type Options struct {
	DB             *sql.DB
	Logger         *slog.Logger
	Authorizer     middleware.PermissionChecker
	AllowedOrigins []string
	LoginRate      string
	MetricsPath    string
}

func RegisterAllRoutes(router chi.Router, h Handlers, opts Options) error {
	healthHandler := NewHealthHandler(opts.DB)
	base := transport.NewBaseHandler(opts.Logger)

	require := func(perms ...rbac.Permission) func(http.Handler) http.Handler {
		return middleware.RequirePermission(opts.Authorizer, base, perms...)
	}

	loginLimit, err := middleware.RateLimit(opts.LoginRate, base)
	if err != nil {
		return err
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(middleware.LoggingOptions{
		SkipPaths: []string{"/api/v1/health", "/api/v1/ping", opts.MetricsPath},
	}))
	router.Use(middleware.RecoveryMiddleware(opts.Logger))
	router.Use(middleware.CORS(opts.AllowedOrigins))

	router.Get("/openapi.yml", swagger.SpecHandler())
	router.Handle("/swagger/*", swagger.Handler())
	if opts.MetricsPath != "" {
		router.Handle(opts.MetricsPath, promhttp.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(ar chi.Router) {
			ar.With(loginLimit).Post("/login", h.Auth.Login)
			ar.Post("/refresh", h.Auth.RefreshToken)
			ar.With(h.Auth.AuthMiddleware).Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Route("/users", func(ur chi.Router) {
				ur.Get("/me", h.User.GetCurrentUser)
				ur.Get("/", h.User.ListUsers)
				ur.Get("/{id}", h.User.GetUser)
				ur.With(require(rbac.PermUsersManage)).Post("/", h.User.CreateUser)
				ur.With(require(rbac.PermUsersManage)).Put("/{id}", h.User.UpdateUser)
				ur.With(require(rbac.PermUsersManage)).Delete("/{id}", h.User.DeleteUser)
				ur.With(require(rbac.PermPlanningScore)).Put("/{id}/planning-score", h.User.SetPlanningScore)
			})

			pr.Get("/permissions", h.Role.ListPermissions)
			pr.Route("/roles", func(rr chi.Router) {
				rr.Get("/", h.Role.ListRoles)
				rr.Group(func(mr chi.Router) {
					mr.Use(require(rbac.PermRolesManage))
					mr.Post("/", h.Role.CreateRole)
					mr.Put("/{id}", h.Role.UpdateRole)
					mr.Delete("/{id}", h.Role.DeleteRole)
				})
			})

			pr.Route("/tasks", func(tr chi.Router) {
				tr.Get("/", h.Task.ListTasks)
				tr.With(require(rbac.PermTasksCreate)).Post("/", h.Task.CreateTask)
				tr.Get("/{id}", h.Task.GetTask)
				tr.Patch("/{id}/start", h.Task.StartTask)
				tr.Patch("/{id}/submit", h.Task.SubmitTask)
				// approver rules, including self-approval, are decided by the task service
				tr.Patch("/{id}/approve", h.Task.ApproveTask)
				tr.Patch("/{id}/reject", h.Task.RejectTask)
				tr.Patch("/{id}/status", h.Task.MoveTask)
			})

			pr.Route("/dashboard", func(dr chi.Router) {
				dr.Use(require(rbac.PermDashboardView))
				dr.Get("/summary", h.Dashboard.GetSummary)
				dr.Get("/leaderboard", h.Dashboard.GetLeaderboard)
			})

			pr.Get("/notifications", h.Notification.ListNotifications)
			pr.Patch("/notifications/{id}/read", h.Notification.MarkRead)
		})
	})

	return nil
}
