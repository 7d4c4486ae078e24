package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/leave-management/api"
	"github.com/frahmantamala/leave-management/internal/auth"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/frahmantamala/leave-management/internal/leavebalance"
	"github.com/frahmantamala/leave-management/internal/leaverequest"
	"github.com/frahmantamala/leave-management/internal/metrics"
	"github.com/frahmantamala/leave-management/internal/transport/middleware"
	"github.com/frahmantamala/leave-management/internal/transport/swagger"
	"github.com/frahmantamala/leave-management/internal/user"
	"github.com/go-chi/chi"
)

// Dependencies carries everything the router mounts. Nil handlers leave
// their routes unregistered.
type Dependencies struct {
	Health       *HealthHandler
	Auth         *auth.Handler
	Users        *user.Handler
	LeaveRequest *leaverequest.Handler
	LeaveBalance *leavebalance.Handler
	LoginLimiter *middleware.RateLimiter

	AllowedOrigins []string
	MetricsPath    string
	Logger         *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, deps Dependencies) {
	if deps.Health == nil {
		deps.Health = NewHealthHandler(nil)
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(deps.Logger))
	router.Use(middleware.CORS(deps.AllowedOrigins))
	router.Use(middleware.LoggingMiddleware(deps.Logger))
	if deps.MetricsPath != "" {
		router.Use(metrics.InstrumentHandler(deps.MetricsPath))
		router.Handle(deps.MetricsPath, metrics.Handler())
	}

	router.Get("/openapi.yml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec)
	})
	router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", deps.Health.healthCheckHandler)
		r.Get("/ping", deps.Health.pingHandler)

		if deps.Auth == nil {
			return
		}
		authHandler := deps.Auth
		managerOnly := authHandler.RequireRole(coreUser.RoleManager)

		r.Route("/auth", func(ar chi.Router) {
			if deps.LoginLimiter != nil {
				ar.With(deps.LoginLimiter.Handler).Post("/login", authHandler.Login)
			} else {
				ar.Post("/login", authHandler.Login)
			}
			ar.Post("/logout", authHandler.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			if h := deps.LeaveRequest; h != nil {
				pr.Route("/leave-request", func(lr chi.Router) {
					lr.Post("/", h.CreateLeaveRequest)
					lr.Get("/", h.GetMyLeaveRequests)
					// role checks for these live in the service so the
					// response carries the operation-specific message
					lr.Get("/all", h.GetAllLeaveRequests)
					lr.Get("/{id}", h.GetLeaveRequest)
					lr.Patch("/{id}", h.UpdateLeaveRequestStatus)
					lr.Delete("/{id}", h.DeleteLeaveRequest)
				})
			}

			if h := deps.LeaveBalance; h != nil {
				pr.Route("/leave-balance", func(lb chi.Router) {
					lb.Get("/", h.GetMyBalances)
					lb.Get("/{leaveType}", h.GetMyBalanceByType)

					lb.Group(func(mr chi.Router) {
						mr.Use(managerOnly)
						mr.Get("/users/{userId}", h.GetUserBalances)
						mr.Put("/users/{userId}", h.SetUserBalance)
						mr.Post("/users/{userId}/initialize", h.InitializeUserBalances)
					})
				})
			}

			if h := deps.Users; h != nil {
				pr.Get("/users/me", h.GetCurrentUser)
				pr.Get("/users/{id}", h.GetUser)
				pr.Put("/users/{id}", h.UpdateUser)
				pr.Group(func(mr chi.Router) {
					mr.Use(managerOnly)
					mr.Get("/users", h.ListUsers)
					mr.Post("/users", h.CreateUser)
					mr.Patch("/users/{id}/deactivate", h.DeactivateUser)
				})
			}
		})
	})
}
