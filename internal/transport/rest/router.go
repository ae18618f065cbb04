package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-reimbursement/internal/auth"
	"github.com/frahmantamala/expense-reimbursement/internal/company"
	"github.com/frahmantamala/expense-reimbursement/internal/dashboard"
	"github.com/frahmantamala/expense-reimbursement/internal/expense"
	"github.com/frahmantamala/expense-reimbursement/internal/reconciliation"
	"github.com/frahmantamala/expense-reimbursement/internal/transport/middleware"
	"github.com/frahmantamala/expense-reimbursement/internal/transport/swagger"
	"github.com/frahmantamala/expense-reimbursement/internal/user"
	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
)

// FileServer serves locally stored attachments.
type FileServer interface {
	Prefix() string
	Handler() http.Handler
}

type Handlers struct {
	Auth           *auth.Handler
	User           *user.Handler
	Company        *company.Handler
	Expense        *expense.Handler
	Reconciliation *reconciliation.Handler
	Dashboard      *dashboard.Handler
	// Files is nil when attachments live in a bucket.
	Files FileServer
}

type Options struct {
	AllowedOrigins string
	SpecPath       string
	// HealthChecks run after the database check.
	HealthChecks []Check
}

func RegisterAllRoutes(router *chi.Mux, db *sqlx.DB, h Handlers, opts Options, logger *slog.Logger) {
	healthHandler := NewHealthHandler(append([]Check{DatabaseCheck(db)}, opts.HealthChecks...)...)
	rbac := auth.NewRBACAuthorization(auth.NewPermissionChecker(), logger)

	// Apply global middleware
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve the OpenAPI document at root (outside API prefix)
	if opts.SpecPath != "" {
		router.Get(swagger.DocURL, swagger.DocHandler(opts.SpecPath))
		router.Handle("/swagger/*", swagger.Handler())
	}

	if h.Files != nil {
		router.Handle(h.Files.Prefix()+"/*", h.Files.Handler())
	}

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.User.GetCurrentUser)
			pr.Get("/companies", h.Company.GetCompanies)

			// Everything below operates inside the selected company.
			pr.Group(func(cr chi.Router) {
				cr.Use(h.Auth.CompanyMiddleware)

				cr.Route("/expenses", func(er chi.Router) {
					er.Get("/", h.Expense.ListExpenses)
					er.Post("/", h.Expense.CreateExpense)
					er.Post("/batch-delete", h.Expense.BatchDeleteExpenses)
					er.Get("/{id}", h.Expense.GetExpense)
					er.Put("/{id}", h.Expense.UpdateExpense)
					er.Delete("/{id}", h.Expense.DeleteExpense)
					er.Put("/{id}/receipt", h.Expense.AttachReceipt)
					er.Delete("/{id}/receipt", h.Expense.RemoveReceipt)
				})

				cr.Route("/reports", func(rr chi.Router) {
					rr.Get("/", h.Expense.ListReports)
					rr.Post("/close", h.Expense.CloseReport)
					rr.Patch("/{reportId}", h.Expense.RenameReport)
					rr.Delete("/{reportId}", h.Expense.DeleteReport)
					rr.Post("/{reportId}/submit", h.Expense.SubmitReport)
					rr.Post("/{reportId}/reopen", h.Expense.ReopenReport)

					rr.With(rbac.RequireMarkPaid()).Post("/{reportId}/pay", h.Expense.MarkReportPaid)
					rr.With(rbac.RequireAuditReports()).Post("/{reportId}/audit", h.Expense.AuditReport)
				})

				cr.Route("/bank-transactions", func(br chi.Router) {
					br.Post("/import", h.Reconciliation.ImportStatement)
					br.Get("/statement", h.Reconciliation.GetStatement)
					br.Get("/candidates", h.Reconciliation.GetCandidates)
					br.Post("/batch-delete", h.Reconciliation.BatchDelete)
					br.Patch("/{id}", h.Reconciliation.Annotate)
					br.Post("/{id}/link", h.Reconciliation.Link)
					br.Post("/{id}/unlink", h.Reconciliation.Unlink)
				})

				cr.Get("/dashboard", h.Dashboard.GetDashboard)

				// Admin routes
				cr.Group(func(ar chi.Router) {
					ar.Use(rbac.RequireAdmin())
					ar.Post("/reconciliation/sweep", h.Reconciliation.Sweep)
					ar.Get("/admin/dashboard", h.Dashboard.GetAdminDashboard)
				})
			})
		})
	})
}
