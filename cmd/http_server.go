package cmd

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/expense-reimbursement/internal/attachment"
	"github.com/frahmantamala/expense-reimbursement/internal/auth"
	authPostgres "github.com/frahmantamala/expense-reimbursement/internal/auth/postgres"
	"github.com/frahmantamala/expense-reimbursement/internal/company"
	companyPostgres "github.com/frahmantamala/expense-reimbursement/internal/company/postgres"
	"github.com/frahmantamala/expense-reimbursement/internal/dashboard"
	dashboardPostgres "github.com/frahmantamala/expense-reimbursement/internal/dashboard/postgres"
	"github.com/frahmantamala/expense-reimbursement/internal/expense"
	"github.com/frahmantamala/expense-reimbursement/internal/reconciliation"
	"github.com/frahmantamala/expense-reimbursement/internal/transport/rest"
	"github.com/frahmantamala/expense-reimbursement/internal/transport/swagger"
	"github.com/frahmantamala/expense-reimbursement/internal/user"
	userPostgres "github.com/frahmantamala/expense-reimbursement/internal/user/postgres"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	ctx := context.Background()
	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	lg := deps.Logger

	router, err := setupRoutes(ctx, deps)
	if err != nil {
		lg.Error("failed to set up routes", "error", err)
		deps.Close()
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	lg.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			lg.Error("Server failed to start", "error", err)
			deps.Close()
			os.Exit(1)
		}
	}

	deps.Close()
	lg.Info("Server stopped")
}

func setupRoutes(ctx context.Context, deps *Dependencies) (*chi.Mux, error) {
	cfg := deps.Config
	lg := deps.Logger

	specPath := cfg.API.SpecPath
	if specPath != "" {
		doc, err := swagger.Load(ctx, specPath)
		if err != nil {
			return nil, err
		}
		lg.Info("openapi document loaded", "path", specPath, "paths", doc.Paths.Len())
	}

	authService := auth.NewService(
		authPostgres.NewRepository(deps.Gorm),
		auth.NewJWTTokenGenerator(
			cfg.Security.AccessTokenSecret,
			cfg.Security.RefreshTokenSecret,
			cfg.Security.AccessTokenDuration,
			cfg.Security.RefreshTokenDuration,
		),
		cfg.Security.BCryptCost,
	)

	handlers := rest.Handlers{
		Auth:           auth.NewHandler(authService),
		User:           user.NewHandler(user.NewService(userPostgres.NewUserRepository(deps.DB), lg)),
		Company:        company.NewHandler(company.NewService(companyPostgres.NewCompanyRepository(deps.Gorm), lg)),
		Expense:        expense.NewHandler(deps.Expense),
		Reconciliation: reconciliation.NewHandler(deps.Reconciliation),
		Dashboard:      dashboard.NewHandler(dashboard.NewService(dashboardPostgres.NewExpenseReader(deps.DB), lg)),
	}
	if local, ok := deps.Files.(*attachment.LocalStore); ok {
		handlers.Files = local
	}

	opts := rest.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SpecPath:       specPath,
	}
	if p, ok := deps.Files.(interface{ Ping(context.Context) error }); ok {
		opts.HealthChecks = append(opts.HealthChecks, rest.Check{
			Name: "attachments",
			Probe: func(ctx context.Context) (map[string]any, error) {
				return map[string]any{"driver": cfg.Storage.Driver}, p.Ping(ctx)
			},
		})
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, deps.DB, handlers, opts, lg)
	return router, nil
}
