package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/claim-workflow/internal/claim/postgres"
	"github.com/frahmantamala/claim-workflow/internal/notification"
	notificationpg "github.com/frahmantamala/claim-workflow/internal/notification/postgres"
	"github.com/frahmantamala/claim-workflow/internal/user"
	userpg "github.com/frahmantamala/claim-workflow/internal/user/postgres"
	"github.com/frahmantamala/claim-workflow/pkg/logger"
)

// workerCmd runs the digest flusher as its own process, for deployments
// that keep the API servers stateless. The shared email_receivers table
// makes the pending set visible to every process.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the notification digest worker",
	Run: func(cmd *cobra.Command, args []string) {
		startDigestWorker()
	},
}

func startDigestWorker() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}

	sqlDB, err := initDB(cfg.Database)
	if err != nil {
		lg.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
	if err != nil {
		lg.Error("failed to initialize orm", "error", err)
		os.Exit(1)
	}

	userService := user.NewService(userpg.NewUserRepository(gormDB), lg)
	claimRepo := postgres.NewClaimRepository(gormDB)
	receiverStore := notificationpg.NewReceiverStore(gormDB)

	renderer, err := notification.NewTemplateRenderer(cfg.Digest.Subject)
	if err != nil {
		lg.Error("failed to build digest renderer", "error", err)
		os.Exit(1)
	}

	queue := notification.NewQueue(receiverStore, userService, claimRepo, renderer, notification.NewLogDeliverer(lg), lg)
	worker := notification.NewWorker(queue, cfg.Digest.FlushInterval, lg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	lg.Info("received signal, stopping worker", "signal", sig.String())
	worker.Stop()
}
