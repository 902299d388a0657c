package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"product-catalog/internal/products"

	"github.com/google/uuid"
)

const healthCheckTimeout = 2 * time.Second

const productColumns = `id, title, description, status, date, image_url`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (products.Product, error) {
	var (
		p      products.Product
		status string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &status, &p.Date, &p.ImageURL); err != nil {
		return products.Product{}, err
	}
	p.Status = products.Status(status)
	p.Date = p.Date.UTC()
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, f products.Fields) (products.Product, error) {
	query := `
		INSERT INTO products (title, description, status, date, image_url)
		VALUES ($1, $2, $3, $4::date, $5)
		RETURNING ` + productColumns

	var imageURL string
	if f.ImageURL != nil {
		imageURL = *f.ImageURL
	}

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, f.Title, f.Description, string(f.Status), f.Date, imageURL))
	if err != nil {
		return products.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (products.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return products.Product{}, products.ErrNotFound
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return products.Product{}, products.ErrNotFound
	}
	if err != nil {
		return products.Product{}, fmt.Errorf("select product %s: %w", id, err)
	}
	return p, nil
}

// Update replaces every field except image_url, which only changes when
// f.ImageURL is set.
func (r *PostgresRepository) Update(ctx context.Context, id string, f products.Fields) (products.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return products.Product{}, products.ErrNotFound
	}

	query := `
		UPDATE products
		SET title = $2, description = $3, status = $4, date = $5::date,
		    image_url = COALESCE($6, image_url)
		WHERE id = $1
		RETURNING ` + productColumns

	var imageURL sql.NullString
	if f.ImageURL != nil {
		imageURL = sql.NullString{String: *f.ImageURL, Valid: true}
	}

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id, f.Title, f.Description, string(f.Status), f.Date, imageURL))
	if errors.Is(err, sql.ErrNoRows) {
		return products.Product{}, products.ErrNotFound
	}
	if err != nil {
		return products.Product{}, fmt.Errorf("update product %s: %w", id, err)
	}
	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return products.ErrNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return products.ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) List(ctx context.Context, filter products.Filter) ([]products.Product, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if !filter.StartDate.IsZero() {
		args = append(args, filter.StartDate)
		conds = append(conds, fmt.Sprintf("date >= $%d::date", len(args)))
	}
	if !filter.EndDate.IsZero() {
		args = append(args, filter.EndDate)
		conds = append(conds, fmt.Sprintf("date <= $%d::date", len(args)))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY date DESC, seq ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	list := make([]products.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return list, nil
}

func (r *PostgresRepository) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	return r.db.PingContext(ctx)
}
