package interfaces

import (
	"context"

	inventory "main/internal/domain/entity/inventory"
)

// InventoryReader exposes the stock positions an agent reasons about.
type InventoryReader interface {
	PositionsForProduct(ctx context.Context, productID string) ([]inventory.Row, error)
	Close()
}
