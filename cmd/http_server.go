package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/opsboard/internal"
	"github.com/frahmantamala/opsboard/internal/auth"
	authPostgres "github.com/frahmantamala/opsboard/internal/auth/postgres"
	"github.com/frahmantamala/opsboard/internal/core/events"
	"github.com/frahmantamala/opsboard/internal/dashboard"
	dashboardPostgres "github.com/frahmantamala/opsboard/internal/dashboard/postgres"
	"github.com/frahmantamala/opsboard/internal/notification"
	notificationPostgres "github.com/frahmantamala/opsboard/internal/notification/postgres"
	"github.com/frahmantamala/opsboard/internal/role"
	rolePostgres "github.com/frahmantamala/opsboard/internal/role/postgres"
	"github.com/frahmantamala/opsboard/internal/task"
	taskPostgres "github.com/frahmantamala/opsboard/internal/task/postgres"
	"github.com/frahmantamala/opsboard/internal/transport"
	"github.com/frahmantamala/opsboard/internal/transport/rest"
	"github.com/frahmantamala/opsboard/internal/transport/swagger"
	"github.com/frahmantamala/opsboard/internal/user"
	userPostgres "github.com/frahmantamala/opsboard/internal/user/postgres"
	"github.com/frahmantamala/opsboard/internal/visibility"
	"github.com/frahmantamala/opsboard/pkg/logger"
	"github.com/frahmantamala/opsboard/pkg/tracing"
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
	Config          *internal.Config
	DB              *sqlx.DB
	Gorm            *gorm.DB
	Router          *chi.Mux
	Logger          *slog.Logger
	Bus             *events.EventBus
	Dispatcher      *notification.Dispatcher
	ShutdownTracing tracing.ShutdownFunc
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

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
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.close(ctx)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close(context.Background())
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

// close releases resources in reverse wiring order: in-flight event
// handlers first, then the notification workers, then tracing and the pool.
func (d *Dependencies) close(ctx context.Context) {
	if err := d.Bus.Drain(ctx); err != nil {
		d.Logger.Warn("event bus drain timed out", "error", err)
	}
	d.Dispatcher.Shutdown()
	if err := d.ShutdownTracing(ctx); err != nil {
		d.Logger.Error("Tracing shutdown error", "error", err)
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Env, config.Observability.Logging.Level)
	log := logger.L()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:      config.Observability.Tracing.Enabled,
		ServiceName:  config.Observability.Tracing.ServiceName,
		SamplingRate: config.Observability.Tracing.SamplingRate,
		Endpoint:     config.Observability.Tracing.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if _, err := swagger.Load(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}

	db, gormDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	resolver := visibility.NewResolver(visibility.Mode(config.Visibility.Mode), config.Visibility.MaxDepth)
	bus := events.NewEventBus(log)

	authorizer, err := role.NewAuthorizer(log)
	if err != nil {
		return nil, err
	}
	roleService := role.NewService(rolePostgres.NewRoleRepository(gormDB), authorizer, log)
	if err := roleService.EnsureSystemRoles(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure system roles: %w", err)
	}
	if err := roleService.LoadPolicies(ctx); err != nil {
		return nil, fmt.Errorf("failed to load role policies: %w", err)
	}

	userRepo := userPostgres.NewUserRepository(gormDB)
	userService := user.NewService(userRepo, roleService, resolver, config.Security.BCryptCost, log)

	taskService := task.NewService(taskPostgres.NewTaskRepository(gormDB), userService, resolver, bus, log)

	dashboardService := dashboard.NewService(dashboardPostgres.NewStatsRepository(db), userService, resolver, log)

	notificationRepo := notificationPostgres.NewNotificationRepository(gormDB)
	dispatcher := notification.NewDispatcher(notificationRepo, notification.DispatcherConfig{
		MaxWorkers: config.Notification.MaxWorkers,
		QueueSize:  config.Notification.QueueSize,
	}, log)
	notificationService := notification.NewService(notificationRepo, userService, dispatcher, log)
	notificationService.Subscribe(bus)

	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(userRepo, authPostgres.NewRepository(gormDB), roleService, tokenGen, log)

	base := transport.NewBaseHandler(log)
	handlers := rest.Handlers{
		Auth:         auth.NewHandler(base, authService),
		User:         user.NewHandler(base, userService),
		Role:         role.NewHandler(base, roleService),
		Task:         task.NewHandler(base, taskService),
		Dashboard:    dashboard.NewHandler(base, dashboardService),
		Notification: notification.NewHandler(base, notificationService),
	}

	metricsPath := ""
	if config.Observability.Metrics.Enabled {
		metricsPath = config.Observability.Metrics.Path
	}

	router := chi.NewRouter()
	if err := rest.RegisterAllRoutes(router, handlers, rest.Options{
		DB:             db.DB,
		Logger:         log,
		Authorizer:     authorizer,
		AllowedOrigins: config.Server.Origins(),
		LoginRate:      config.RateLimit.Login,
		MetricsPath:    metricsPath,
	}); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	log.Info("dependencies initialized",
		"visibility_mode", resolver.Mode(),
		"notification_workers", config.Notification.MaxWorkers)

	return &Dependencies{
		Config:          config,
		DB:              db,
		Gorm:            gormDB,
		Router:          router,
		Logger:          log,
		Bus:             bus,
		Dispatcher:      dispatcher,
		ShutdownTracing: shutdownTracing,
	}, nil
}

// initDB opens one pgx pool and shares it between sqlx (read-side queries)
// and gorm (repositories).
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: dbConn.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to open gorm session: %w", err)
	}

	return dbConn, gormDB, nil
}
