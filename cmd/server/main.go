package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/api"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/access"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/analytics"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/audit"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/auth"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/catalog"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/config"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/customers"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/discovery"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/notify"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/orders"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/payments"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"go.uber.org/zap"
)

func main() {
	configPath := "config/server.yaml"
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

	logger.Info("Starting commerce API",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	ctx := context.Background()

	// Connect stores
	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoRepo.Close(ctx)
	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("Failed to ensure indexes", zap.Error(err))
	}

	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()
	if err := redisRepo.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}

	ledger, err := repository.NewLedgerStore(&cfg.MySQL)
	if err != nil {
		logger.Fatal("Failed to connect to ledger database", zap.Error(err))
	}

	orderStore := repository.NewOrderStore(mongoRepo)
	customerStore := repository.NewCustomerStore(mongoRepo)
	segmentStore := repository.NewSegmentStore(mongoRepo)
	roleStore := repository.NewRoleStore(mongoRepo)
	productStore := repository.NewProductStore(mongoRepo)
	sectionStore := repository.NewSectionStore(mongoRepo)

	// Service discovery is optional; without etcd the upstream client falls
	// back to its configured base URL.
	var sd *discovery.ServiceDiscovery
	var resolver repository.EndpointResolver
	if len(cfg.Etcd.Endpoints) > 0 {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd)
		if err != nil {
			logger.Fatal("Failed to connect to etcd", zap.Error(err))
		}
		defer sd.Close()

		instance := &discovery.ServiceInstance{
			Name: cfg.Server.Name,
			Host: cfg.Server.Host,
			Port: cfg.Server.Port,
		}
		if err := sd.Register(ctx, instance); err != nil {
			logger.Fatal("Failed to register service", zap.Error(err))
		}
		defer func() {
			if err := sd.Deregister(ctx, instance); err != nil {
				logger.Error("Failed to deregister service", zap.Error(err))
			}
		}()
		resolver = sd

		logger.Info("Service registered in etcd",
			zap.String("name", cfg.Server.Name),
			zap.String("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))
	}

	// Wire services
	auditor := audit.New(cfg.Server.Name, mongoRepo, logger)

	hub, err := notify.NewHub(logger)
	if err != nil {
		logger.Fatal("Failed to start notification actors", zap.Error(err))
	}
	defer hub.Close()

	upstream := repository.NewUpstreamClient(&cfg.Upstream, resolver)
	source := orders.NewFallbackSource(
		orders.NewStoreSource(orderStore),
		orders.NewUpstreamSource(upstream),
		logger,
	)

	orderSvc := orders.NewService(source, orderStore, redisRepo, auditor, hub, logger)
	catalogSvc := catalog.NewService(productStore, sectionStore, cfg.Media, auditor, logger)

	registry := payments.NewRegistry(
		payments.NewCardProvider(cfg.Payments.Card),
		payments.NewPayPalProvider(cfg.Payments.PayPal),
		payments.NewWalletProvider(cfg.Payments.Wallet),
	)
	checkoutSvc := payments.NewService(registry, orderStore, redisRepo, ledger, orderSvc, catalogSvc, cfg.Payments.Currency, logger)
	refundProc := orders.NewRefundProcessor(orderStore, ledger, redisRepo, registry, auditor, hub, cfg.Payments.Currency, logger)

	customerSvc := customers.NewService(customerStore, segmentStore, orderStore, auditor, logger)
	accessSvc := access.NewService(roleStore, customerStore, auditor, logger)
	if err := accessSvc.Bootstrap(ctx); err != nil {
		logger.Fatal("Failed to seed system roles", zap.Error(err))
	}

	verifier := auth.NewVerifier(&cfg.Auth, redisRepo, roleStore, logger)
	analyticsSvc := analytics.NewService(ledger, orderStore, customerStore, logger)

	server := api.NewServer(cfg, logger, verifier, api.Services{
		Orders:    orderSvc,
		Refunds:   refundProc,
		Checkout:  checkoutSvc,
		Customers: customerSvc,
		Access:    accessSvc,
		Catalog:   catalogSvc,
		Analytics: analyticsSvc,
	})
	server.SetupRoutes()

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Fatal("Server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Service stopped")
}
