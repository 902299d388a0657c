package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"product-catalog/internal/products"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// productRow is the gorm model of the products table.
type productRow struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Title       string    `gorm:"not null"`
	Description string    `gorm:"not null;default:''"`
	Status      string    `gorm:"size:16;not null;index"`
	Date        time.Time `gorm:"not null;index"`
	ImageURL    string    `gorm:"column:image_url;not null;default:''"`
	CreatedAt   time.Time
}

func (productRow) TableName() string {
	return "products"
}

func (r productRow) toProduct() products.Product {
	return products.Product{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Status:      products.Status(r.Status),
		Date:        r.Date.UTC(),
		ImageURL:    r.ImageURL,
	}
}

// SQLiteRepository stores products in an embedded SQLite database through gorm.
type SQLiteRepository struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// one connection keeps ":memory:" databases shared across calls
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&productRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, f products.Fields) (products.Product, error) {
	row := productRow{
		ID:          uuid.NewString(),
		Title:       f.Title,
		Description: f.Description,
		Status:      string(f.Status),
		Date:        f.Date.UTC(),
	}
	if f.ImageURL != nil {
		row.ImageURL = *f.ImageURL
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return products.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return row.toProduct(), nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (products.Product, error) {
	var row productRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return products.Product{}, products.ErrNotFound
		}
		return products.Product{}, fmt.Errorf("select product %s: %w", id, err)
	}
	return row.toProduct(), nil
}

// Update replaces every field except image_url, which only changes when
// f.ImageURL is set.
func (r *SQLiteRepository) Update(ctx context.Context, id string, f products.Fields) (products.Product, error) {
	updates := map[string]any{
		"title":       f.Title,
		"description": f.Description,
		"status":      string(f.Status),
		"date":        f.Date.UTC(),
	}
	if f.ImageURL != nil {
		updates["image_url"] = *f.ImageURL
	}

	result := r.db.WithContext(ctx).Model(&productRow{}).Where("id = ?", id).Updates(updates)
	if err := result.Error; err != nil {
		return products.Product{}, fmt.Errorf("update product %s: %w", id, err)
	}
	if result.RowsAffected == 0 {
		return products.Product{}, products.ErrNotFound
	}

	return r.Get(ctx, id)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&productRow{}, "id = ?", id)
	if err := result.Error; err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if result.RowsAffected == 0 {
		return products.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, filter products.Filter) ([]products.Product, error) {
	query := r.db.WithContext(ctx).Model(&productRow{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if !filter.StartDate.IsZero() {
		query = query.Where("date >= ?", filter.StartDate.UTC())
	}
	if !filter.EndDate.IsZero() {
		query = query.Where("date <= ?", filter.EndDate.UTC())
	}

	var rows []productRow
	if err := query.Order("date DESC").Order("rowid ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	list := make([]products.Product, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toProduct())
	}
	return list, nil
}

func (r *SQLiteRepository) Health() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
