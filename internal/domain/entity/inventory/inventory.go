package inventory

import "time"

// DefaultAvgDailySales applies when a row carries no sales velocity.
const DefaultAvgDailySales = 10.0

// Row is one store's stock record for a product.
type Row struct {
	StoreID          string    `json:"store_id"`
	ProductID        string    `json:"product_id"`
	SKU              string    `json:"sku"`
	Quantity         int64     `json:"quantity"`
	ReservedQuantity int64     `json:"reserved_quantity"`
	Cost             float64   `json:"cost"`
	RetailPrice      float64   `json:"retail_price"`
	AvgDailySales    *float64  `json:"avg_daily_sales,omitempty"`
	ReorderPoint     int64     `json:"reorder_point"`
	MaxCapacity      int64     `json:"max_capacity"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Available is the sellable quantity net of reservations.
func (r Row) Available() int64 {
	available := r.Quantity - r.ReservedQuantity
	if available < 0 {
		return 0
	}
	return available
}

// SalesVelocity returns the daily sales rate, defaulted when absent.
func (r Row) SalesVelocity() float64 {
	if r.AvgDailySales == nil || *r.AvgDailySales <= 0 {
		return DefaultAvgDailySales
	}
	return *r.AvgDailySales
}

// NeedsReorder reports whether stock fell to the reorder point.
func (r Row) NeedsReorder() bool {
	return r.Quantity <= r.ReorderPoint
}

// IsOverCapacity reports whether stock exceeds the configured capacity.
func (r Row) IsOverCapacity() bool {
	return r.MaxCapacity > 0 && r.Quantity > r.MaxCapacity
}
