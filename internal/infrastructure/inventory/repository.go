package inventory

import (
	"context"
	"fmt"

	domain "main/internal/domain/entity/inventory"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func NewRepositoryWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

const inventoryColumns = `
	store_id, product_id, sku, quantity, reserved_quantity,
	cost, retail_price, avg_daily_sales, reorder_point, max_capacity, updated_at`

func (r *Repository) PositionsForProduct(ctx context.Context, productID string) ([]domain.Row, error) {
	const query = `
		SELECT ` + inventoryColumns + `
		FROM inventory
		WHERE product_id=$1
		ORDER BY store_id ASC`
	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []domain.Row
	for rows.Next() {
		position, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}
	return positions, rows.Err()
}

// BulkInsert loads inventory rows with CopyFrom; used by the seed loader.
func (r *Repository) BulkInsert(ctx context.Context, positions []domain.Row) error {
	if len(positions) == 0 {
		return nil
	}
	rows := make([][]interface{}, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, []interface{}{
			p.StoreID,
			p.ProductID,
			p.SKU,
			p.Quantity,
			p.ReservedQuantity,
			p.Cost,
			p.RetailPrice,
			p.AvgDailySales,
			p.ReorderPoint,
			p.MaxCapacity,
			p.UpdatedAt,
		})
	}
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"inventory"},
		[]string{"store_id", "product_id", "sku", "quantity", "reserved_quantity", "cost", "retail_price", "avg_daily_sales", "reorder_point", "max_capacity", "updated_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func scanRow(row pgx.Row) (domain.Row, error) {
	var position domain.Row
	err := row.Scan(
		&position.StoreID,
		&position.ProductID,
		&position.SKU,
		&position.Quantity,
		&position.ReservedQuantity,
		&position.Cost,
		&position.RetailPrice,
		&position.AvgDailySales,
		&position.ReorderPoint,
		&position.MaxCapacity,
		&position.UpdatedAt,
	)
	if err != nil {
		return domain.Row{}, err
	}
	return position, nil
}
