package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

// AdminOrderListFilter is the admin order search. Empty strings match everything.
type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	Stage  string
	UserID string
	From   *time.Time
	To     *time.Time
}

// OrderRepository persists orders.
type OrderRepository interface {
// Create inserts a new order with Version 1.
	Create(ctx context.Context, order *model.Order) error
// FindByID returns ErrNotFound when no order matches.
	FindByID(ctx context.Context, orderID string) (model.Order, error)
// ListByUserID returns one page of the user's orders and the total count.
	ListByUserID(ctx context.Context, userID string, page int, limit int) ([]model.Order, int64, error)
// ListAdmin is the admin listing, newest first.
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	// Update writes the whole order if its Version still matches the stored
	// one and bumps Version. A stale write returns ErrConflict.
	Update(ctx context.Context, order *model.Order) error
}
