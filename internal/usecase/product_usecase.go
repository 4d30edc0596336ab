package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/sirupsen/logrus"
)

type ProductUsecase struct {
	Deps
}

func NewProductUsecase(d Deps) *ProductUsecase {
	return &ProductUsecase{Deps: d}
}

type ListProductsInput struct {
	Page  int
	Limit int
	Q     string
}

// ListPublicProducts lists active products only.
func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ListOutput[model.Product], error) {
	if len(in.Q) > 100 {
		return ListOutput[model.Product]{}, ValidationError("q too long")
	}
	page, limit := pageOrDefault(in.Page, in.Limit)

	items, total, err := u.Products.ListPublic(ctx, repo.ProductListQuery{
		Page:  page,
		Limit: limit,
		Q:     strings.TrimSpace(in.Q),
	})
	if err != nil {
		return ListOutput[model.Product]{}, InternalError(err)
	}
	return ListOutput[model.Product]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// GetProductDetail hides inactive products from the public catalog.
func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID string) (model.Product, error) {
	if strings.TrimSpace(productID) == "" {
		return model.Product{}, ValidationError("invalid product id")
	}
	p, err := u.Products.FindByID(ctx, productID)
	if err != nil {
		return model.Product{}, storeError(err, "product")
	}
	if !p.IsActive {
		return model.Product{}, NotFoundError("product")
	}
	return p, nil
}

type AdminCreateProductInput struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	MRP             float64        `json:"mrp"`
	DiscountedPrice float64        `json:"discountedPrice"`
	Sizes           map[string]int `json:"sizes"`
	Images          []string       `json:"images"`
	IsActive        *bool          `json:"isActive"`
}

// AdminCreateProduct stores a product and audits it.
func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, caller Caller, in AdminCreateProductInput) (model.Product, error) {
	if err := requireAdmin(caller); err != nil {
		return model.Product{}, err
	}
// input check
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Product{}, ValidationError("name required")
	}
	if in.MRP <= 0 {
		return model.Product{}, ValidationError("mrp must be > 0")
	}
	if in.DiscountedPrice < 0 {
		return model.Product{}, ValidationError("discountedPrice must be >= 0")
	}
	for size, stock := range in.Sizes {
		if strings.TrimSpace(size) == "" || stock < 0 {
			return model.Product{}, ValidationError("invalid size entry %q", size)
		}
	}

	now := u.Clock.Now()
	p := model.Product{
		ID:              u.IDs.NewID(),
		Name:            name,
		Description:     in.Description,
		MRP:             in.MRP,
		DiscountedPrice: in.DiscountedPrice,
		Sizes:           in.Sizes,
		Images:          in.Images,
		IsActive:        in.IsActive == nil || *in.IsActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p.Sizes == nil {
		p.Sizes = map[string]int{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}

// save
	if err := u.Products.Create(ctx, &p); err != nil {
		return model.Product{}, InternalError(err)
	}

	after, _ := json.Marshal(p)
	if err := u.AuditLogs.Create(ctx, model.AuditLog{
		ID:           u.IDs.NewID(),
		ActorUserID:  caller.UserID,
		Action:       model.AuditActionCreateProduct,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   p.ID,
		BeforeJSON:   "{}",
		AfterJSON:    string(after),
		CreatedAt:    now,
	}); err != nil {
		// the product exists; a missing audit row is logged, not returned
		u.logger().WithError(err).WithField("product_id", p.ID).Error("audit log write failed")
	}
	return p, nil
}

func (u *ProductUsecase) logger() *logrus.Logger {
	if u.Log == nil {
		return logrus.StandardLogger()
	}
	return u.Log
}
