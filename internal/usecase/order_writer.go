package usecase

import (
	"context"
	"encoding/json"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/sirupsen/logrus"
)

// orderWriter runs every read-modify-write on an order: per-order lock, load,
// mutate, then a version-checked write and its audit entry in one transaction.
type orderWriter struct {
	orders repo.OrderRepository
	tx     repo.TransactionManager
	locker repo.OrderLocker
	clock  Clock
	ids    IDGenerator
	log    *logrus.Logger
}

type auditSpec struct {
	actor  string
	action model.AuditAction
}

type orderSnapshot struct {
	Status     model.OrderStatus `json:"status"`
	OrderStage model.OrderStage  `json:"orderStage"`
	IsPaid     bool              `json:"isPaid"`
	Waybill    string            `json:"waybill,omitempty"`
	PaymentID  string            `json:"paymentId,omitempty"`
	Refunded   bool              `json:"refunded,omitempty"`
}

func snapshotJSON(o *model.Order) string {
	s := orderSnapshot{
		Status:     o.Status,
		OrderStage: o.OrderStage,
		IsPaid:     o.IsPaid,
		Waybill:    o.Waybill(),
	}
	if o.PaymentResult != nil {
		s.PaymentID = o.PaymentResult.ID
		s.Refunded = o.PaymentResult.Refund != nil
	}
	b, _ := json.Marshal(s)
	return string(b)
}

// modify applies fn to the stored order and persists the result. fn returning
// an error aborts without writing.
func (w *orderWriter) modify(ctx context.Context, orderID string, audit *auditSpec, fn func(o *model.Order) error) (model.Order, error) {
	unlock, err := w.locker.Lock(ctx, orderID)
	if err != nil {
		return model.Order{}, storeError(err, "order")
	}
	defer unlock()

	o, err := w.orders.FindByID(ctx, orderID)
	if err != nil {
		return model.Order{}, storeError(err, "order")
	}
	before := snapshotJSON(&o)

	if err := fn(&o); err != nil {
		return model.Order{}, storeError(err, "order")
	}
	now := w.clock.Now()
	o.UpdatedAt = now

	var auditID string
	if audit != nil {
		auditID = w.ids.NewID()
	}

	// The store may run the callback more than once (mongo retries transient
	// transaction errors), so each attempt writes its own copy and o only
	// takes the new version after commit.
	var saved model.Order
	err = w.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		attempt := o
		if err := r.Orders().Update(ctx, &attempt); err != nil {
			return err
		}
		if audit != nil {
			err := r.AuditLogs().Create(ctx, model.AuditLog{
				ID:           auditID,
				ActorUserID:  audit.actor,
				Action:       audit.action,
				ResourceType: model.AuditResourceOrder,
				ResourceID:   attempt.ID,
				BeforeJSON:   before,
				AfterJSON:    snapshotJSON(&attempt),
				CreatedAt:    now,
			})
			if err != nil {
				return err
			}
		}
		saved = attempt
		return nil
	})
	if err != nil {
		return model.Order{}, storeError(err, "order")
	}
	return saved, nil
}

func (w *orderWriter) load(ctx context.Context, orderID string) (model.Order, error) {
	o, err := w.orders.FindByID(ctx, orderID)
	if err != nil {
		return model.Order{}, storeError(err, "order")
	}
	return o, nil
}

// loadVisible returns the order if caller owns it or is an admin.
func (w *orderWriter) loadVisible(ctx context.Context, orderID string, caller Caller) (model.Order, error) {
	if caller.UserID == "" {
		return model.Order{}, UnauthorizedError()
	}
	o, err := w.load(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if !caller.IsAdmin() && !o.OwnedBy(caller.UserID) {
		return model.Order{}, ForbiddenError("not allowed to access this order")
	}
	return o, nil
}

func requireAdmin(caller Caller) error {
	if caller.UserID == "" {
		return UnauthorizedError()
	}
	if !caller.IsAdmin() {
		return ForbiddenError("admin only")
	}
	return nil
}
