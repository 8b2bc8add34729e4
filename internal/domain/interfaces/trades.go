package interfaces

import (
	"context"

	trade "main/internal/domain/entity/trade"

	"github.com/google/uuid"
)

// TradeRepository persists trades and enforces transition atomicity at the
// storage layer: UpdateTransition only applies when the stored status still
// equals from.
type TradeRepository interface {
	Create(ctx context.Context, t *trade.Trade) error
	Get(ctx context.Context, id uuid.UUID) (*trade.Trade, error)
	UpdateTransition(ctx context.Context, t *trade.Trade, from trade.Status) error
	ListByStatus(ctx context.Context, status trade.Status, limit int) ([]trade.Trade, error)
	ListByStore(ctx context.Context, storeID string, limit int) ([]trade.Trade, error)
	ListPending(ctx context.Context, limit int) ([]trade.Trade, error)
	Stats(ctx context.Context) ([]trade.StatusStats, error)
	Close()
}
