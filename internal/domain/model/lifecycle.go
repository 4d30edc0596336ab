package model

import (
	"fmt"
	"strings"
	"time"
)

// Stage is authoritative for fulfilment. Status is a projection of stage and
// payment, recomputed by syncStatus after every mutation below, so the two
// fields cannot disagree.

var stageTransitions = map[OrderStage][]OrderStage{
	OrderStageOrdered:   {OrderStageBeingMade, OrderStageShipped, OrderStageDelivered, OrderStageCancelled},
	OrderStageBeingMade: {OrderStageOrdered, OrderStageShipped, OrderStageDelivered, OrderStageCancelled},
	OrderStageShipped:   {OrderStageBeingMade, OrderStageDelivered, OrderStageCancelled},
	OrderStageDelivered: {OrderStageCancelled},
	OrderStageCancelled: {},
}

// CanTransition reports whether from -> to is allowed for automatic moves
// (carrier reconcile, shipment booking, refund). Admin overrides go through
// SetStage and skip this table. Re-entering the current stage is always allowed.
func CanTransition(from, to OrderStage) bool {
	if from == to {
		return true
	}
	for _, next := range stageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminalStage(s OrderStage) bool {
	return s == OrderStageDelivered || s == OrderStageCancelled
}

// ProjectStatus derives the coarse status from stage and payment.
func ProjectStatus(stage OrderStage, paid bool) OrderStatus {
	switch stage {
	case OrderStageShipped:
		return OrderStatusShipped
	case OrderStageDelivered:
		return OrderStatusDelivered
	case OrderStageCancelled:
		return OrderStatusCancelled
	}
	if paid {
		return OrderStatusPaid
	}
	return OrderStatusPending
}

// NewOrderLifecycle puts a freshly built order in its initial state.
func (o *Order) NewOrderLifecycle() {
	o.OrderStage = OrderStageOrdered
	o.StageHistory = []StageHistoryEntry{}
	o.syncStatus()
}

// MoveToStage is the guarded move used by automatic paths. It appends
// exactly one history entry and re-projects status.
func (o *Order) MoveToStage(stage OrderStage, updatedBy string, now time.Time) error {
	if _, ok := ParseOrderStage(string(stage)); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}
	if !CanTransition(o.OrderStage, stage) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.OrderStage, stage)
	}
	o.appendStage(stage, updatedBy, now)
	return nil
}

// SetStage is the admin override. Any known stage is accepted from any
// stage, including delivered -> being_made and moves out of cancelled.
// Like MoveToStage it appends exactly one history entry.
func (o *Order) SetStage(stage OrderStage, updatedBy string, now time.Time) error {
	if _, ok := ParseOrderStage(string(stage)); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}
	o.appendStage(stage, updatedBy, now)
	return nil
}

func (o *Order) appendStage(stage OrderStage, updatedBy string, now time.Time) {
	o.OrderStage = stage
	o.StageHistory = append(o.StageHistory, StageHistoryEntry{
		Stage:     stage,
		Timestamp: now,
		UpdatedBy: updatedBy,
	})
	o.syncStatus()
}

// ApplyStatus handles the coarse-status endpoint. Fulfilment statuses drive
// the stage through the admin override; pending/paid only toggle the payment
// flag and are refused once the order has left the pre-shipment stages.
func (o *Order) ApplyStatus(status OrderStatus, updatedBy string, now time.Time) error {
	switch status {
	case OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		if o.OrderStage == OrderStage(status) {
			o.syncStatus()
			return nil
		}
		return o.SetStage(OrderStage(status), updatedBy, now)
	case OrderStatusPaid, OrderStatusPending:
		if o.OrderStage != OrderStageOrdered && o.OrderStage != OrderStageBeingMade {
			return fmt.Errorf("%w: cannot set %s while stage is %s", ErrStatusConflictsWithStage, status, o.OrderStage)
		}
		if status == OrderStatusPaid {
			o.markPaid(now)
		} else {
			o.IsPaid = false
			o.PaidAt = nil
		}
		o.syncStatus()
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}

// MarkPaid records a captured payment.
func (o *Order) MarkPaid(now time.Time) {
	o.markPaid(now)
	o.syncStatus()
}

func (o *Order) markPaid(now time.Time) {
	if o.IsPaid {
		return
	}
	o.IsPaid = true
	t := now
	o.PaidAt = &t
}

// ConsistentStatus reports whether status matches the projection.
func (o *Order) ConsistentStatus() bool {
	return o.Status == ProjectStatus(o.OrderStage, o.IsPaid)
}

func (o *Order) syncStatus() {
	o.Status = ProjectStatus(o.OrderStage, o.IsPaid)
}

// ObserveCarrierStatus reconciles the stage with carrier status text and
// reports whether the stage moved. Re-observing a stage already reached is a
// no-op, so repeated tracking calls never duplicate history.
func (o *Order) ObserveCarrierStatus(text string, now time.Time) bool {
	target, ok := stageFromCarrierText(text)
	if !ok || o.OrderStage == target {
		return false
	}
	if target == OrderStageShipped && o.OrderStage != OrderStageOrdered && o.OrderStage != OrderStageBeingMade {
		return false
	}
	if err := o.MoveToStage(target, "delhivery", now); err != nil {
		return false
	}
	return true
}

func stageFromCarrierText(text string) (OrderStage, bool) {
	s := strings.ToLower(text)
	switch {
	case strings.Contains(s, "delivered"):
		return OrderStageDelivered, true
	case strings.Contains(s, "in transit"), strings.Contains(s, "dispatched"), strings.Contains(s, "manifested"):
		return OrderStageShipped, true
	}
	return "", false
}
