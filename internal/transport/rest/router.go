package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/hanifm/expense-approval/internal/approval"
	"github.com/hanifm/expense-approval/internal/auth"
	"github.com/hanifm/expense-approval/internal/category"
	"github.com/hanifm/expense-approval/internal/expense"
	"github.com/hanifm/expense-approval/internal/rule"
	"github.com/hanifm/expense-approval/internal/transport/middleware"
	"github.com/hanifm/expense-approval/internal/transport/swagger"
	"github.com/hanifm/expense-approval/internal/user"
)

type Handlers struct {
	Auth     *auth.Handler
	User     *user.Handler
	Expense  *expense.Handler
	Approval *approval.Handler
	Rule     *rule.Handler
	Category *category.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// OpenAPI spec and Swagger UI live outside the API prefix
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		r.Get("/expense-categories", h.Category.ListCategories)

		// Protected routes
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/auth/me", h.Auth.Me)

			pr.Route("/expenses", func(er chi.Router) {
				er.Post("/", h.Expense.CreateExpense)
				er.Get("/", h.Expense.ListMyExpenses)
				er.Get("/report", h.Expense.Report)
				er.Get("/{id}", h.Expense.GetExpense)
				er.Put("/{id}", h.Expense.UpdateExpense)
				er.Delete("/{id}", h.Expense.DeleteExpense)

				er.Post("/{id}/submit", h.Approval.SubmitExpense)
				er.Get("/{id}/approvals", h.Approval.ExpenseWorkflow)
			})

			pr.Route("/approvals", func(ar chi.Router) {
				ar.Get("/pending", h.Approval.PendingApprovals)
				ar.Post("/{id}/decide", h.Approval.Decide)
			})

			pr.Get("/managers", h.User.ListManagers)

			// Admin-only management surface
			pr.Group(func(admin chi.Router) {
				admin.Use(middleware.RequireRole(user.RoleAdmin))

				admin.Route("/users", func(ur chi.Router) {
					ur.Post("/", h.User.CreateUser)
					ur.Get("/", h.User.ListUsers)
					ur.Get("/{id}", h.User.GetUser)
					ur.Put("/{id}", h.User.UpdateUser)
					ur.Post("/{id}/reset-password", h.User.ResetPassword)
				})

				admin.Route("/approval-rules", func(rr chi.Router) {
					rr.Post("/", h.Rule.CreateRule)
					rr.Get("/", h.Rule.ListRules)
					rr.Get("/{id}", h.Rule.GetRule)
					rr.Put("/{id}", h.Rule.UpdateRule)
					rr.Delete("/{id}", h.Rule.DeleteRule)
				})

				admin.Route("/companies", func(cr chi.Router) {
					cr.Post("/", h.User.CreateCompany)
					cr.Get("/", h.User.ListCompanies)
				})
			})

			// Managers and admins can list their reports' users
			pr.Group(func(mgr chi.Router) {
				mgr.Use(middleware.RequireRole(user.RoleAdmin, user.RoleManager))
				mgr.Get("/team", h.User.ListUsers)
			})
		})
	})
}
