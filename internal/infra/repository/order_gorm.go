package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// orderRecord is the row shape. Nested order parts live in jsonb columns.
type orderRecord struct {
	ID              string         `gorm:"primaryKey;type:varchar(64)"`
	UserID          string         `gorm:"index;type:varchar(64);not null"`
	Items           datatypes.JSON `gorm:"type:jsonb;not null"`
	ShippingAddress datatypes.JSON `gorm:"type:jsonb"`
	PaymentMethod   string         `gorm:"type:varchar(32);not null"`
	PaymentResult   datatypes.JSON `gorm:"type:jsonb"`
	IsPaid          bool           `gorm:"not null;default:false"`
	PaidAt          *time.Time
	ItemsPrice      float64        `gorm:"type:numeric(12,2);not null"`
	TaxPrice        float64        `gorm:"type:numeric(12,2);not null"`
	ShippingPrice   float64        `gorm:"type:numeric(12,2);not null"`
	TotalPrice      float64        `gorm:"type:numeric(12,2);not null"`
	Status          string         `gorm:"index;type:varchar(32);not null"`
	OrderStage      string         `gorm:"index;type:varchar(32);not null"`
	StageHistory    datatypes.JSON `gorm:"type:jsonb;not null"`
	Delhivery       datatypes.JSON `gorm:"type:jsonb"`
	Version         int64          `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (orderRecord) TableName() string { return "orders" }

// OrderGormRepository is the Postgres order store.
type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) Create(ctx context.Context, order *model.Order) error {
	rec, err := toOrderRecord(order)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	var rec orderRecord
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return fromOrderRecord(rec)
}

func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID string, page int, limit int) ([]model.Order, int64, error) {
	page, limit = normalizePage(page, limit, 20, 100)

	var total int64
	if err := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var recs []orderRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&recs).Error
	if err != nil {
		return []model.Order{}, 0, err
	}

	items, err := fromOrderRecords(recs)
	if err != nil {
		return []model.Order{}, 0, err
	}
	return items, total, nil
}

func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit, 50, 100)

	q := r.db.WithContext(ctx).Model(&orderRecord{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Stage != "" {
		q = q.Where("order_stage = ?", f.Stage)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var recs []orderRecord
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("created_at desc").Limit(f.Limit).Offset(offset).Find(&recs).Error; err != nil {
		return []model.Order{}, 0, err
	}

	items, err := fromOrderRecords(recs)
	if err != nil {
		return []model.Order{}, 0, err
	}
	return items, total, nil
}

func (r *OrderGormRepository) Update(ctx context.Context, order *model.Order) error {
	rec, err := toOrderRecord(order)
	if err != nil {
		return err
	}
	expected := rec.Version
	rec.Version = expected + 1

// optimistic lock on version
	res := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("id = ? AND version = ?", rec.ID, expected).
		Select("*").
		Omit("id", "created_at").
		Updates(&rec)
	if res.Error != nil {
		return res.Error
	}
// tell a missing row from a stale write
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&orderRecord{}).Where("id = ?", rec.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return repo.ErrNotFound
		}
		return repo.ErrConflict
	}

	order.Version = rec.Version
	order.UpdatedAt = rec.UpdatedAt
	return nil
}

func normalizePage(page, limit, def, max int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > max {
		limit = def
	}
	return page, limit
}

func toOrderRecord(o *model.Order) (orderRecord, error) {
	rec := orderRecord{
		ID:            o.ID,
		UserID:        o.UserID,
		PaymentMethod: string(o.PaymentMethod),
		IsPaid:        o.IsPaid,
		PaidAt:        o.PaidAt,
		ItemsPrice:    o.ItemsPrice,
		TaxPrice:      o.TaxPrice,
		ShippingPrice: o.ShippingPrice,
		TotalPrice:    o.TotalPrice,
		Status:        string(o.Status),
		OrderStage:    string(o.OrderStage),
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}

	var err error
	if rec.Items, err = marshalJSON(o.Items); err != nil {
		return orderRecord{}, fmt.Errorf("items: %w", err)
	}
	if rec.ShippingAddress, err = marshalJSON(o.ShippingAddress); err != nil {
		return orderRecord{}, fmt.Errorf("shipping address: %w", err)
	}
	if rec.PaymentResult, err = marshalJSON(o.PaymentResult); err != nil {
		return orderRecord{}, fmt.Errorf("payment result: %w", err)
	}
	if rec.StageHistory, err = marshalJSON(o.StageHistory); err != nil {
		return orderRecord{}, fmt.Errorf("stage history: %w", err)
	}
	if rec.Delhivery, err = marshalJSON(o.Delhivery); err != nil {
		return orderRecord{}, fmt.Errorf("delhivery: %w", err)
	}
	return rec, nil
}

func fromOrderRecord(rec orderRecord) (model.Order, error) {
	o := model.Order{
		ID:            rec.ID,
		UserID:        rec.UserID,
		PaymentMethod: model.PaymentMethod(rec.PaymentMethod),
		IsPaid:        rec.IsPaid,
		PaidAt:        rec.PaidAt,
		ItemsPrice:    rec.ItemsPrice,
		TaxPrice:      rec.TaxPrice,
		ShippingPrice: rec.ShippingPrice,
		TotalPrice:    rec.TotalPrice,
		Status:        model.OrderStatus(rec.Status),
		OrderStage:    model.OrderStage(rec.OrderStage),
		Version:       rec.Version,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}

	if err := unmarshalJSON(rec.Items, &o.Items); err != nil {
		return model.Order{}, fmt.Errorf("order %s items: %w", rec.ID, err)
	}
	if err := unmarshalJSON(rec.ShippingAddress, &o.ShippingAddress); err != nil {
		return model.Order{}, fmt.Errorf("order %s shipping address: %w", rec.ID, err)
	}
	if err := unmarshalJSON(rec.PaymentResult, &o.PaymentResult); err != nil {
		return model.Order{}, fmt.Errorf("order %s payment result: %w", rec.ID, err)
	}
	if err := unmarshalJSON(rec.StageHistory, &o.StageHistory); err != nil {
		return model.Order{}, fmt.Errorf("order %s stage history: %w", rec.ID, err)
	}
	if err := unmarshalJSON(rec.Delhivery, &o.Delhivery); err != nil {
		return model.Order{}, fmt.Errorf("order %s delhivery: %w", rec.ID, err)
	}
	if o.Items == nil {
		o.Items = []model.OrderItem{}
	}
	if o.StageHistory == nil {
		o.StageHistory = []model.StageHistoryEntry{}
	}
	return o, nil
}

func fromOrderRecords(recs []orderRecord) ([]model.Order, error) {
	out := make([]model.Order, 0, len(recs))
	for _, rec := range recs {
		o, err := fromOrderRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func marshalJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// unmarshalJSON leaves dst untouched for empty or null columns.
func unmarshalJSON(src datatypes.JSON, dst any) error {
	if len(src) == 0 || string(src) == "null" {
		return nil
	}
	return json.Unmarshal(src, dst)
}
