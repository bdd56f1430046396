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

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/claim-workflow/internal"
	"github.com/frahmantamala/claim-workflow/internal/auth"
	"github.com/frahmantamala/claim-workflow/internal/claim"
	claimpg "github.com/frahmantamala/claim-workflow/internal/claim/postgres"
	"github.com/frahmantamala/claim-workflow/internal/core/events"
	"github.com/frahmantamala/claim-workflow/internal/notification"
	notificationpg "github.com/frahmantamala/claim-workflow/internal/notification/postgres"
	"github.com/frahmantamala/claim-workflow/internal/transport/rest"
	"github.com/frahmantamala/claim-workflow/internal/user"
	userpg "github.com/frahmantamala/claim-workflow/internal/user/postgres"
	"github.com/frahmantamala/claim-workflow/pkg/logger"
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
	Config       *internal.Config
	DB           *sqlx.DB
	Router       *chi.Mux
	Logger       *slog.Logger
	DigestWorker *notification.Worker
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deps.DigestWorker.Start(ctx)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}

		deps.DigestWorker.Stop()

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
	if lg == nil {
		lg = slog.Default()
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	// Repositories
	userRepo := userpg.NewUserRepository(gormDB)
	claimRepo := claimpg.NewClaimRepository(gormDB)
	receiverStore := notificationpg.NewReceiverStore(gormDB)

	// Services
	userService := user.NewService(userRepo, lg)

	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(userRepo, tokenGen, config.Security.BCryptCost)

	eventBus := events.NewEventBus(lg)
	claimService := claim.NewService(claimRepo, userService, eventBus, config.Document, lg)

	renderer, err := notification.NewTemplateRenderer(config.Digest.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to build digest renderer: %w", err)
	}
	queue := notification.NewQueue(receiverStore, userService, claimRepo, renderer, notification.NewLogDeliverer(lg), lg)
	notification.NewEventHandler(queue, lg).RegisterEventHandlers(eventBus)
	digestWorker := notification.NewWorker(queue, config.Digest.FlushInterval, lg)

	// Handlers
	handlers := rest.Handlers{
		Auth:  auth.NewHandler(authService),
		Claim: claim.NewHandler(claimService),
		User: user.NewHandler(userService, func(r *http.Request) (*user.User, bool) {
			return auth.UserFromContext(r.Context())
		}),
		Notification: notification.NewHandler(queue),
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, handlers, lg)

	return &Dependencies{
		Config:       config,
		Logger:       lg,
		DB:           db,
		Router:       router,
		DigestWorker: digestWorker,
	}, nil
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
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
