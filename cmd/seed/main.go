package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	appagents "main/internal/application/service/agents"
	"main/internal/config"
	domaincatalog "main/internal/domain/entity/catalog"
	domaininventory "main/internal/domain/entity/inventory"
	infraagents "main/internal/infrastructure/agents"
	infracatalog "main/internal/infrastructure/catalog"
	infrainventory "main/internal/infrastructure/inventory"
)

const defaultFixturesFile = "cmd/seed/fixtures.json"

// schema creates the tables owned by the pgx repositories; the catalog
// tables are migrated by gorm separately.
const schema = `
	CREATE TABLE IF NOT EXISTS agents (
		product_id       VARCHAR(64) PRIMARY KEY,
		name             TEXT NOT NULL,
		category         TEXT NOT NULL DEFAULT '',
		brand            TEXT NOT NULL DEFAULT '',
		pricing          JSONB NOT NULL DEFAULT '{}',
		seasonality      JSONB,
		status           VARCHAR(32) NOT NULL,
		is_active        BOOLEAN NOT NULL DEFAULT FALSE,
		current_strategy TEXT NOT NULL DEFAULT '',
		last_decision_at TIMESTAMPTZ,
		config           JSONB NOT NULL DEFAULT '{}',
		metrics          JSONB NOT NULL DEFAULT '{}',
		current_decision JSONB,
		active_actions   JSONB,
		recent_decisions JSONB,
		learning_notes   JSONB,
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trades (
		trade_id         UUID PRIMARY KEY,
		decision_id      UUID,
		status           VARCHAR(32) NOT NULL,
		from_store_id    VARCHAR(64) NOT NULL,
		to_store_id      VARCHAR(64) NOT NULL,
		product_id       VARCHAR(64) NOT NULL,
		sku              TEXT NOT NULL DEFAULT '',
		quantity         BIGINT NOT NULL,
		estimated_profit DOUBLE PRECISION NOT NULL DEFAULT 0,
		transport_cost   DOUBLE PRECISION NOT NULL DEFAULT 0,
		urgency_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
		proposed_by      TEXT NOT NULL DEFAULT '',
		approved_by      TEXT,
		rejected_by      TEXT,
		rejection_reason TEXT,
		reasoning        TEXT,
		constraints      JSONB NOT NULL DEFAULT '{}',
		execution        JSONB,
		proposed_at      TIMESTAMPTZ NOT NULL,
		approved_at      TIMESTAMPTZ,
		rejected_at      TIMESTAMPTZ,
		executed_at      TIMESTAMPTZ,
		completed_at     TIMESTAMPTZ,
		failed_at        TIMESTAMPTZ,
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_status ON trades (status, proposed_at DESC);
	CREATE INDEX IF NOT EXISTS idx_trades_stores ON trades (from_store_id, to_store_id);

	CREATE TABLE IF NOT EXISTS inventory (
		store_id          VARCHAR(64) NOT NULL,
		product_id        VARCHAR(64) NOT NULL,
		sku               TEXT NOT NULL DEFAULT '',
		quantity          BIGINT NOT NULL DEFAULT 0,
		reserved_quantity BIGINT NOT NULL DEFAULT 0,
		cost              DOUBLE PRECISION NOT NULL DEFAULT 0,
		retail_price      DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_daily_sales   DOUBLE PRECISION,
		reorder_point     BIGINT NOT NULL DEFAULT 0,
		max_capacity      BIGINT NOT NULL DEFAULT 0,
		updated_at        TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (store_id, product_id)
	);`

type fixtures struct {
	Stores    []domaincatalog.Store   `json:"stores"`
	Products  []domaincatalog.Product `json:"products"`
	Inventory []domaininventory.Row   `json:"inventory"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	data, err := readFixtures(envOrDefault("FIXTURES_FILE", defaultFixturesFile))
	if err != nil {
		logger.Fatalf("load fixtures: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		logger.Fatalf("create schema: %v", err)
	}

	catalogRepo, err := infracatalog.NewRepository(cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("init catalog repo: %v", err)
	}
	if err := catalogRepo.Migrate(ctx); err != nil {
		logger.Fatalf("migrate catalog: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for i := range data.Stores {
			if err := catalogRepo.UpsertStore(gctx, &data.Stores[i]); err != nil {
				return fmt.Errorf("upsert store %s: %w", data.Stores[i].ID, err)
			}
		}
		return nil
	})
	g.Go(func() error {
		for i := range data.Products {
			if err := catalogRepo.UpsertProduct(gctx, &data.Products[i]); err != nil {
				return fmt.Errorf("upsert product %s: %w", data.Products[i].ID, err)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Fatalf("load catalog: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"stores":   len(data.Stores),
		"products": len(data.Products),
	}).Info("catalog loaded")

	now := time.Now().UTC()
	for i := range data.Inventory {
		if data.Inventory[i].UpdatedAt.IsZero() {
			data.Inventory[i].UpdatedAt = now
		}
	}
	inventoryRepo := infrainventory.NewRepositoryWithPool(pool)
	if err := inventoryRepo.BulkInsert(ctx, data.Inventory); err != nil {
		logger.Fatalf("load inventory: %v", err)
	}
	logger.WithField("rows", len(data.Inventory)).Info("inventory loaded")

	if boolEnv("SEED_CREATE_AGENTS", true) {
		agentService := appagents.NewService(appagents.Deps{
			Agents: infraagents.NewRepositoryWithPool(pool),
			Logger: logger,
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
		})
		created := 0
		for i := range data.Products {
			if _, err := agentService.CreateForProduct(ctx, data.Products[i]); err != nil {
				logger.WithError(err).Warnf("create agent for product %s", data.Products[i].ID)
				continue
			}
			created++
		}
		logger.WithField("agents", created).Info("agents created")
	}

	logger.Info("seed finished")
}

func readFixtures(path string) (*fixtures, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read fixtures file: %w", err)
	}
	var data fixtures
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse fixtures file: %w", err)
	}
	if len(data.Stores) == 0 || len(data.Products) == 0 {
		return nil, errors.New("fixtures need at least one store and one product")
	}
	return &data, nil
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func boolEnv(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
