package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	appagents "main/internal/application/service/agents"
	apptrades "main/internal/application/service/trades"
	"main/internal/config"
	domaininterfaces "main/internal/domain/interfaces"
	infraagents "main/internal/infrastructure/agents"
	infrabrain "main/internal/infrastructure/brain"
	infrabroker "main/internal/infrastructure/broker"
	infrainventory "main/internal/infrastructure/inventory"
	inframarketplace "main/internal/infrastructure/marketplace"
	infratrades "main/internal/infrastructure/trades"
	infrahttp "main/internal/interfaces/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("failed to init postgres pool: %v", err)
	}
	defer pool.Close()

	tradeRepo := infratrades.NewRepositoryWithPool(pool)
	agentRepo := infraagents.NewRepositoryWithPool(pool)
	inventoryRepo := infrainventory.NewRepositoryWithPool(pool)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	publisher, err := infrabroker.NewPublisher(cfg.RabbitMQ, logger)
	if err != nil {
		logger.Fatalf("failed to init event publisher: %v", err)
	}
	publisher.Run(ctx)

	var brainClient domaininterfaces.Brain
	if cfg.Brain.BaseURL != "" {
		client, err := infrabrain.NewClient(cfg.Brain.BaseURL, logger)
		if err != nil {
			logger.Fatalf("failed to init brain client: %v", err)
		}
		brainClient = client
	} else {
		logger.Warn("brain base url is not set, agents fall back to local arbitrage detection")
	}

	var marketplaceClient domaininterfaces.Marketplace
	if cfg.Marketplace.BaseURL != "" {
		client, err := inframarketplace.NewClient(cfg.Marketplace.BaseURL, logger)
		if err != nil {
			logger.Fatalf("failed to init marketplace client: %v", err)
		}
		marketplaceClient = client
	} else {
		logger.Warn("marketplace base url is not set, agents skip market participation")
	}

	tradeService := apptrades.NewService(tradeRepo, publisher, logger)
	agentService := appagents.NewService(appagents.Deps{
		Agents:      agentRepo,
		Inventory:   inventoryRepo,
		Trades:      tradeService,
		Brain:       brainClient,
		Marketplace: marketplaceClient,
		Events:      publisher,
		Logger:      logger,
		Defaults: appagents.Defaults{
			DecisionInterval:      cfg.Agents.DecisionInterval,
			MaxConcurrentActions:  cfg.Agents.MaxConcurrentActions,
			LowStockThreshold:     cfg.Agents.LowStockThreshold,
			HighStockThreshold:    cfg.Agents.HighStockThreshold,
			MinProfitMargin:       cfg.Agents.MinProfitMargin,
			MaxTransportCostRatio: cfg.Agents.MaxTransportCostRatio,
			LookAheadDays:         cfg.Agents.LookAheadDays,
			ConfidenceThreshold:   cfg.Agents.ConfidenceThreshold,
		},
		BrainTimeout:       cfg.Brain.Timeout,
		MarketplaceTimeout: cfg.Marketplace.Timeout,
	})
	tradeService.SetSettlementHook(agentService.HandleTradeSettlement)

	consumer, err := infrabroker.NewConsumer(cfg.RabbitMQ, tradeService, logger)
	if err != nil {
		logger.Fatalf("failed to init outcome consumer: %v", err)
	}
	if err := consumer.Start(ctx); err != nil {
		logger.Fatalf("failed to start outcome consumer: %v", err)
	}

	if err := agentService.Restore(ctx); err != nil {
		logger.Fatalf("failed to restore agents: %v", err)
	}

	cacheTTL := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	handler := infrahttp.NewHandler(agentService, tradeService, redisClient, cacheTTL)

	server := &http.Server{
		Addr:    cfg.HTTP.Addr(),
		Handler: handler,
	}

	go func() {
		logger.Infof("HTTP server listening on %s", cfg.HTTP.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	agentService.Shutdown(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown error: %v", err)
	}
	if err := consumer.Close(); err != nil {
		logger.Errorf("consumer close error: %v", err)
	}
	if err := publisher.Stop(shutdownCtx); err != nil {
		logger.Errorf("publisher stop error: %v", err)
	}
	logger.Info("server stopped")
}
