package usecase

import (
	"context"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type AdminOrderUsecase struct {
	Deps
	w *orderWriter
}

func NewAdminOrderUsecase(d Deps) *AdminOrderUsecase {
	return &AdminOrderUsecase{Deps: d, w: d.writer()}
}

// List returns every order matching f, newest first.
func (u *AdminOrderUsecase) List(ctx context.Context, caller Caller, f repo.AdminOrderListFilter) (ListOutput[model.Order], error) {
	if err := requireAdmin(caller); err != nil {
		return ListOutput[model.Order]{}, err
	}
// filter check
	if f.Status != "" {
		if _, ok := model.ParseOrderStatus(f.Status); !ok {
			return ListOutput[model.Order]{}, ValidationError("invalid status %q", f.Status)
		}
	}
	if f.Stage != "" {
		if _, ok := model.ParseOrderStage(f.Stage); !ok {
			return ListOutput[model.Order]{}, ValidationError("invalid stage %q", f.Stage)
		}
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return ListOutput[model.Order]{}, ValidationError("to must not be before from")
	}
	f.Page, f.Limit = pageOrDefault(f.Page, f.Limit)

	orders, total, err := u.Orders.ListAdmin(ctx, f)
	if err != nil {
		return ListOutput[model.Order]{}, InternalError(err)
	}
	return ListOutput[model.Order]{Items: orders, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// UpdateStatus sets the coarse status. Fulfilment statuses move the stage,
// pending and paid only touch the payment flag.
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, caller Caller, orderID, status string) (model.Order, error) {
	if err := requireAdmin(caller); err != nil {
		return model.Order{}, err
	}
	st, ok := model.ParseOrderStatus(strings.TrimSpace(status))
	if !ok {
		return model.Order{}, ValidationError("invalid status %q", status)
	}
// status change is audited with before/after snapshots
	audit := &auditSpec{actor: caller.UserID, action: model.AuditActionUpdateOrderStatus}
	return u.w.modify(ctx, orderID, audit, func(o *model.Order) error {
		return o.ApplyStatus(st, caller.UpdatedBy(), u.Clock.Now())
	})
}

// UpdateStage moves the order to any known stage and records one history
// entry. Admins may move backwards or out of a terminal stage.
func (u *AdminOrderUsecase) UpdateStage(ctx context.Context, caller Caller, orderID, stage string) (model.Order, error) {
	if err := requireAdmin(caller); err != nil {
		return model.Order{}, err
	}
	sg, ok := model.ParseOrderStage(strings.TrimSpace(stage))
	if !ok {
		return model.Order{}, ValidationError("invalid stage %q", stage)
	}
	audit := &auditSpec{actor: caller.UserID, action: model.AuditActionUpdateOrderStage}
	return u.w.modify(ctx, orderID, audit, func(o *model.Order) error {
		return o.SetStage(sg, caller.UpdatedBy(), u.Clock.Now())
	})
}

// AuditLogQuery is the admin audit log search.
type AuditLogQuery struct {
	ActorUserID  string
	Action       string
	ResourceType string
	ResourceID   string
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
}

// ListAuditLogs pages through the audit trail, newest first.
func (u *AdminOrderUsecase) ListAuditLogs(ctx context.Context, caller Caller, q AuditLogQuery) (ListOutput[model.AuditLog], error) {
	if err := requireAdmin(caller); err != nil {
		return ListOutput[model.AuditLog]{}, err
	}
	page, limit := pageOrDefault(q.Page, q.Limit)
	f := repo.AuditLogFilter{
		ActorUserID: q.ActorUserID,
		ResourceID:  q.ResourceID,
		CreatedFrom: q.From,
		CreatedTo:   q.To,
		Limit:       limit,
		Offset:      (page - 1) * limit,
	}
// actions are stored upper case, resource types lower case
	if q.Action != "" {
		a := model.AuditAction(strings.ToUpper(q.Action))
		f.Action = &a
	}
	if q.ResourceType != "" {
		rt := model.AuditResourceType(strings.ToLower(q.ResourceType))
		if rt != model.AuditResourceOrder && rt != model.AuditResourceProduct {
			return ListOutput[model.AuditLog]{}, ValidationError("invalid resource type %q", q.ResourceType)
		}
		f.ResourceType = &rt
	}

	logs, err := u.AuditLogs.List(ctx, f)
	if err != nil {
		return ListOutput[model.AuditLog]{}, InternalError(err)
	}
	return ListOutput[model.AuditLog]{Items: logs, Total: int64(len(logs)), Page: page, Limit: limit}, nil
}
