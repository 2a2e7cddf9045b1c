package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/audit"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/config"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/notify"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/orders"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/payments"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"go.uber.org/zap"
)

func main() {
	configPath := "config/reconciler.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := config.NewLogger(&cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting refund reconciler",
		zap.String("name", cfg.Server.Name),
		zap.Duration("poll_interval", cfg.Reconciler.PollInterval))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect stores
	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoRepo.Close(context.Background())

	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()
	if err := redisRepo.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	}

	ledger, err := repository.NewLedgerStore(&cfg.MySQL)
	if err != nil {
		logger.Fatal("Failed to connect to ledger database", zap.Error(err))
	}

	hub, err := notify.NewHub(logger)
	if err != nil {
		logger.Fatal("Failed to start notification actors", zap.Error(err))
	}
	defer hub.Close()

	orderStore := repository.NewOrderStore(mongoRepo)
	auditor := audit.New(cfg.Server.Name, mongoRepo, logger)
	registry := payments.NewRegistry(
		payments.NewCardProvider(cfg.Payments.Card),
		payments.NewPayPalProvider(cfg.Payments.PayPal),
		payments.NewWalletProvider(cfg.Payments.Wallet),
	)
	proc := orders.NewRefundProcessor(orderStore, ledger, redisRepo, registry, auditor, hub, cfg.Payments.Currency, logger)

	reconciler := orders.NewReconciler(proc, ledger, &cfg.Reconciler, logger)
	reconciler.Run(ctx)

	logger.Info("Service stopped")
}
