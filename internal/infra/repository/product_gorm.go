package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// products table row. sizes and images are jsonb.
type productRecord struct {
	ID              string         `gorm:"primaryKey;type:varchar(64)"`
	Name            string         `gorm:"type:varchar(255);not null"`
	Description     string         `gorm:"type:text"`
	MRP             float64        `gorm:"column:mrp;type:numeric(12,2);not null"`
	DiscountedPrice float64        `gorm:"type:numeric(12,2);not null;default:0"`
	Sizes           datatypes.JSON `gorm:"type:jsonb"`
	Images          datatypes.JSON `gorm:"type:jsonb"`
	IsActive        bool           `gorm:"index;not null;default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (productRecord) TableName() string { return "products" }

type ProductGormRepository struct {
	db *gorm.DB
}

func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// ListPublic returns active products only, newest first.
func (r *ProductGormRepository) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	q.Page, q.Limit = normalizePage(q.Page, q.Limit, 20, 100)

	tx := r.db.WithContext(ctx).Model(&productRecord{}).Where("is_active = ?", true)
	if s := strings.TrimSpace(q.Q); s != "" {
		tx = tx.Where("name ILIKE ?", "%"+s+"%")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return []model.Product{}, 0, err
	}

	var recs []productRecord
	offset := (q.Page - 1) * q.Limit
	if err := tx.Order("created_at desc").Order("id desc").Offset(offset).Limit(q.Limit).Find(&recs).Error; err != nil {
		return []model.Product{}, 0, err
	}

	out := make([]model.Product, 0, len(recs))
	for _, rec := range recs {
		p, err := fromProductRecord(rec)
		if err != nil {
			return []model.Product{}, 0, err
		}
		out = append(out, p)
	}
	return out, total, nil
}

func (r *ProductGormRepository) FindByID(ctx context.Context, id string) (model.Product, error) {
	var rec productRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return fromProductRecord(rec)
}

func (r *ProductGormRepository) FindByIDs(ctx context.Context, ids []string) (map[string]model.Product, error) {
	out := make(map[string]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var recs []productRecord
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, err
	}
	for _, rec := range recs {
		p, err := fromProductRecord(rec)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, nil
}

func (r *ProductGormRepository) Create(ctx context.Context, p *model.Product) error {
	rec, err := toProductRecord(p)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

// domain -> row
func toProductRecord(p *model.Product) (productRecord, error) {
	rec := productRecord{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		MRP:             p.MRP,
		DiscountedPrice: p.DiscountedPrice,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	var err error
	if rec.Sizes, err = marshalJSON(p.Sizes); err != nil {
		return productRecord{}, fmt.Errorf("sizes: %w", err)
	}
	if rec.Images, err = marshalJSON(p.Images); err != nil {
		return productRecord{}, fmt.Errorf("images: %w", err)
	}
	return rec, nil
}

// row -> domain
func fromProductRecord(rec productRecord) (model.Product, error) {
	p := model.Product{
		ID:              rec.ID,
		Name:            rec.Name,
		Description:     rec.Description,
		MRP:             rec.MRP,
		DiscountedPrice: rec.DiscountedPrice,
		IsActive:        rec.IsActive,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
	if err := unmarshalJSON(rec.Sizes, &p.Sizes); err != nil {
		return model.Product{}, fmt.Errorf("product %s sizes: %w", rec.ID, err)
	}
	if err := unmarshalJSON(rec.Images, &p.Images); err != nil {
		return model.Product{}, fmt.Errorf("product %s images: %w", rec.ID, err)
	}
	return p, nil
}
