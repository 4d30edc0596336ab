package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// search condition for the public catalogue
type ProductListQuery struct {
	Page  int
	Limit int
	Q     string
}

// ProductRepository is the catalogue store.
type ProductRepository interface {
// ListPublic matches Q against the product name.
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
// FindByID returns ErrNotFound when no product matches.
	FindByID(ctx context.Context, id string) (model.Product, error)
	// FindByIDs returns the products that exist, keyed by id. Missing ids are simply absent.
	FindByIDs(ctx context.Context, ids []string) (map[string]model.Product, error)
	Create(ctx context.Context, p *model.Product) error
}
