package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "main/internal/domain/entity/catalog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	ErrStoreNotFound   = errors.New("store not found")
	ErrProductNotFound = errors.New("product not found")
)

// Repository serves store/product reference data over gorm.
type Repository struct {
	db *gorm.DB
}

func NewRepository(dsn string) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	return &Repository{db: db}, nil
}

func NewRepositoryWithDB(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the catalog tables.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&StoreModel{}, &ProductModel{})
}

func (r *Repository) GetStore(ctx context.Context, id string) (*domain.Store, error) {
	var model StoreModel
	err := r.db.WithContext(ctx).First(&model, "store_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}
	store := storeFromModel(model)
	return &store, nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var model ProductModel
	err := r.db.WithContext(ctx).First(&model, "product_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	product := productFromModel(model)
	return &product, nil
}

func (r *Repository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var models []ProductModel
	if err := r.db.WithContext(ctx).Order("product_id asc").Find(&models).Error; err != nil {
		return nil, err
	}
	products := make([]domain.Product, len(models))
	for i, model := range models {
		products[i] = productFromModel(model)
	}
	return products, nil
}

func (r *Repository) UpsertStore(ctx context.Context, s *domain.Store) error {
	if s == nil {
		return errors.New("nil store")
	}
	model := StoreModel{
		ID:        s.ID,
		Name:      s.Name,
		Region:    s.Region,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Capacity:  s.Capacity,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_id"}},
		UpdateAll: true,
	}).Create(&model).Error
}

func (r *Repository) UpsertProduct(ctx context.Context, p *domain.Product) error {
	if p == nil {
		return errors.New("nil product")
	}
	model := ProductModel{
		ID:              p.ID,
		Name:            p.Name,
		Category:        p.Category,
		Subcategory:     p.Subcategory,
		Brand:           p.Brand,
		BaseCost:        p.BaseCost,
		StandardRetail:  p.StandardRetail,
		TargetMarginPct: p.TargetMarginPct,
		Seasonality:     strings.Join(p.Seasonality, ","),
		Perishable:      p.Perishable,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		UpdateAll: true,
	}).Create(&model).Error
}

func storeFromModel(m StoreModel) domain.Store {
	return domain.Store{
		ID:        m.ID,
		Name:      m.Name,
		Region:    m.Region,
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Capacity:  m.Capacity,
	}
}

func productFromModel(m ProductModel) domain.Product {
	var seasonality []string
	if m.Seasonality != "" {
		seasonality = strings.Split(m.Seasonality, ",")
	}
	return domain.Product{
		ID:              m.ID,
		Name:            m.Name,
		Category:        m.Category,
		Subcategory:     m.Subcategory,
		Brand:           m.Brand,
		BaseCost:        m.BaseCost,
		StandardRetail:  m.StandardRetail,
		TargetMarginPct: m.TargetMarginPct,
		Seasonality:     seasonality,
		Perishable:      m.Perishable,
	}
}
