package catalog

import (
	"time"

	"gorm.io/gorm"
)

// StoreModel is the gorm mapping for the stores table.
type StoreModel struct {
	ID        string         `gorm:"primaryKey;column:store_id;type:varchar(64);not null"`
	Name      string         `gorm:"column:name;type:varchar(255);not null"`
	Region    string         `gorm:"column:region;type:varchar(100);index"`
	Latitude  float64        `gorm:"column:latitude;type:double precision"`
	Longitude float64        `gorm:"column:longitude;type:double precision"`
	Capacity  int64          `gorm:"column:capacity;type:bigint"`
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;type:timestamp;index"`
}

func (StoreModel) TableName() string {
	return "stores"
}

// ProductModel is the gorm mapping for the products table.
type ProductModel struct {
	ID              string         `gorm:"primaryKey;column:product_id;type:varchar(64);not null"`
	Name            string         `gorm:"column:name;type:varchar(255);not null"`
	Category        string         `gorm:"column:category;type:varchar(100);not null;index"`
	Subcategory     string         `gorm:"column:subcategory;type:varchar(100)"`
	Brand           string         `gorm:"column:brand;type:varchar(100)"`
	BaseCost        float64        `gorm:"column:base_cost;type:double precision;not null"`
	StandardRetail  float64        `gorm:"column:standard_retail;type:double precision;not null"`
	TargetMarginPct float64        `gorm:"column:target_margin_pct;type:double precision"`
	Seasonality     string         `gorm:"column:seasonality;type:varchar(255)"`
	Perishable      bool           `gorm:"column:perishable;type:boolean"`
	CreatedAt       time.Time      `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP"`
	DeletedAt       gorm.DeletedAt `gorm:"column:deleted_at;type:timestamp;index"`
}

func (ProductModel) TableName() string {
	return "products"
}
