package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vbonduro/foodwatch/internal/alert"
	"github.com/vbonduro/foodwatch/internal/backupstore"
	"github.com/vbonduro/foodwatch/internal/backupstore/local"
	s3store "github.com/vbonduro/foodwatch/internal/backupstore/s3"
	"github.com/vbonduro/foodwatch/internal/category"
	"github.com/vbonduro/foodwatch/internal/config"
	"github.com/vbonduro/foodwatch/internal/db"
	"github.com/vbonduro/foodwatch/internal/logging"
	"github.com/vbonduro/foodwatch/internal/lookup"
	"github.com/vbonduro/foodwatch/internal/metrics"
	"github.com/vbonduro/foodwatch/internal/notify"
	"github.com/vbonduro/foodwatch/internal/service"
	"github.com/vbonduro/foodwatch/internal/store"
	"github.com/vbonduro/foodwatch/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	productStore := store.NewProductStore(database)
	shoppingStore := store.NewShoppingStore(database)
	historyStore := store.NewHistoryStore(database)
	alertStore := store.NewAlertStore(database)

	classifier, err := newClassifier(cfg, logger)
	if err != nil {
		logger.Error("failed to load category rules", "path", cfg.CategoryRulesFile, "error", err)
		return
	}

	backups, err := newBackupStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize backup store", "backend", cfg.BackupBackend, "error", err)
		return
	}

	m := metrics.New()
	engine := alert.NewEngine(productStore, alertStore, newNotifier(cfg, logger), m, alert.Settings{
		NotifyExpired: cfg.NotifyExpired,
		NotifySoon:    cfg.NotifySoon,
		SoonDays:      cfg.SoonDaysThreshold,
		HistoryLimit:  cfg.AlertHistoryLimit,
	}, logger)
	scheduler := alert.NewScheduler(engine, time.Duration(cfg.CheckIntervalHours)*time.Hour, logger)
	go scheduler.Run(ctx)

	svc := service.NewPantryService(productStore, shoppingStore, historyStore, alertStore,
		classifier, backups, cfg.SoonDaysThreshold, logger)
	server := web.NewServer(svc, engine, lookup.NewClient(cfg.OpenFoodFactsURL), m, logger)

	if err := server.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

func newClassifier(cfg *config.Config, logger *slog.Logger) (*category.Classifier, error) {
	if cfg.CategoryRulesFile == "" {
		return category.Default(), nil
	}
	logger.Info("loading category rules", "path", cfg.CategoryRulesFile)
	return category.LoadFile(cfg.CategoryRulesFile)
}

func newNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	switch cfg.NotifyBackend {
	case "email":
		logger.Info("using email notifications", "host", cfg.SMTPHost, "to", cfg.NotifyEmailTo)
		return notify.NewEmailNotifier(notify.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			To:       cfg.NotifyEmailTo,
		})
	default:
		logger.Info("using log notifications")
		return notify.NewLogNotifier(logger)
	}
}

// newBackupStore returns nil when backups are turned off.
func newBackupStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (backupstore.Store, error) {
	switch cfg.BackupBackend {
	case "none", "":
		logger.Info("backups disabled")
		return nil, nil
	case "s3":
		logger.Info("using S3 backups", "bucket", cfg.BackupS3Bucket, "prefix", cfg.BackupS3Prefix)
		st, err := s3store.New(ctx, cfg.BackupS3Bucket, cfg.BackupS3Prefix)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		logger.Info("using local backups", "path", cfg.BackupLocalPath)
		st, err := local.New(cfg.BackupLocalPath)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}
