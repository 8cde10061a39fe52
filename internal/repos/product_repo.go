package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

// ProductRepo serves the seeded catalog. It satisfies catalog.Source.
type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `id, title, description, price, stock, category, brand, thumbnail, rating, discount_percentage`

func (r *ProductRepo) Products(ctx context.Context) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+productCols+` FROM products ORDER BY id`)
	return out, err
}

