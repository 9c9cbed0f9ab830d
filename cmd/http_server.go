package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/hanifm/expense-approval/internal"
	"github.com/hanifm/expense-approval/internal/approval"
	approvalpg "github.com/hanifm/expense-approval/internal/approval/postgres"
	"github.com/hanifm/expense-approval/internal/auth"
	authpg "github.com/hanifm/expense-approval/internal/auth/postgres"
	"github.com/hanifm/expense-approval/internal/category"
	"github.com/hanifm/expense-approval/internal/core/events"
	"github.com/hanifm/expense-approval/internal/currency"
	"github.com/hanifm/expense-approval/internal/expense"
	expensepg "github.com/hanifm/expense-approval/internal/expense/postgres"
	"github.com/hanifm/expense-approval/internal/notification"
	"github.com/hanifm/expense-approval/internal/rule"
	rulepg "github.com/hanifm/expense-approval/internal/rule/postgres"
	"github.com/hanifm/expense-approval/internal/transport/rest"
	"github.com/hanifm/expense-approval/internal/user"
	userpg "github.com/hanifm/expense-approval/internal/user/postgres"
	"github.com/hanifm/expense-approval/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Mailer *notification.Mailer
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		deps.Mailer.Shutdown()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	if err := validateOpenAPISpec("./api/openapi.yml", lg); err != nil {
		return nil, err
	}

	sqlDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	eventBus := events.NewEventBus(lg)

	mailer := notification.NewMailer(notification.Config{
		Host:       config.SMTP.Host,
		Port:       config.SMTP.Port,
		SenderName: config.SMTP.SenderName,
		Sender:     config.SMTP.Sender,
		Password:   config.SMTP.Password,
		MaxWorkers: config.SMTP.MaxWorkers,
		QueueSize:  config.SMTP.QueueSize,
	}, lg)

	rateClient := currency.NewClient(config.Currency.APIBaseURL, config.Currency.Timeout, lg)

	userRepo := userpg.NewUserRepository(gormDB)
	expenseRepo := expensepg.NewExpenseRepository(gormDB)
	ruleRepo := rulepg.NewRuleRepository(gormDB)
	approvalRepo := approvalpg.NewApprovalRepository(gormDB)
	authRepo := authpg.NewRepository(gormDB)

	userService := user.NewService(userRepo, mailer, config.Security.BCryptCost, lg)
	expenseService := expense.NewService(expenseRepo, userService, rateClient, lg)
	ruleService := rule.NewService(ruleRepo, lg)
	approvalService := approval.NewService(approvalRepo, ruleService, userService, eventBus, lg)

	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo, tokenGen)

	notification.NewEventHandler(mailer, userService, lg).RegisterEventHandlers(eventBus)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, sqlDB.DB, rest.Handlers{
		Auth:     auth.NewHandler(authService, lg),
		User:     user.NewHandler(userService, lg),
		Expense:  expense.NewHandler(expenseService, lg),
		Approval: approval.NewHandler(approvalService, lg),
		Rule:     rule.NewHandler(ruleService, lg),
		Category: category.NewHandler(lg),
	}, lg)

	return &Dependencies{
		Config: config,
		DB:     sqlDB,
		Router: router,
		Mailer: mailer,
		Logger: lg,
	}, nil
}

// validateOpenAPISpec fails startup when the served contract is broken.
func validateOpenAPISpec(path string, lg *slog.Logger) error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("failed to load OpenAPI spec %s: %w", path, err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return fmt.Errorf("OpenAPI spec %s is invalid: %w", path, err)
	}
	lg.Info("OpenAPI spec validated", "path", path, "title", doc.Info.Title)
	return nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
