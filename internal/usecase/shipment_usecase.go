package usecase

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/infra/shipment"

	"github.com/sirupsen/logrus"
)

// ShipmentOptions fills the parts of the consignment the order does not carry.
type ShipmentOptions struct {
	DefaultWeightKg float64
	SellerName      string
}

type ShipmentUsecase struct {
	Deps
	w       *orderWriter
	gateway ShipmentGateway
	opts    ShipmentOptions
}

func NewShipmentUsecase(d Deps, gateway ShipmentGateway, opts ShipmentOptions) *ShipmentUsecase {
	if opts.DefaultWeightKg <= 0 {
		opts.DefaultWeightKg = 0.5
	}
	return &ShipmentUsecase{Deps: d, w: d.writer(), gateway: gateway, opts: opts}
}

type ShipmentResult struct {
	Order    model.Order            `json:"order"`
	Shipment map[string]interface{} `json:"shipment"`
}

// CreateShipment is the admin entry to book.
func (u *ShipmentUsecase) CreateShipment(ctx context.Context, caller Caller, orderID string) (ShipmentResult, error) {
	if err := requireAdmin(caller); err != nil {
		return ShipmentResult{}, err
	}
	return u.book(ctx, orderID, caller.UpdatedBy(), &auditSpec{actor: caller.UserID, action: model.AuditActionCreateShipment})
}

// book creates the carrier consignment and moves the order to shipped.
func (u *ShipmentUsecase) book(ctx context.Context, orderID, updatedBy string, audit *auditSpec) (ShipmentResult, error) {
	var raw map[string]interface{}
	var waybill string

	o, err := u.w.modify(ctx, orderID, audit, func(o *model.Order) error {
// one consignment per order
		if o.HasWaybill() {
			return ValidationError("order already has waybill %s", o.Waybill())
		}
		if err := ValidateShippingAddress(o.ShippingAddress); err != nil {
			return err
		}
		if !model.CanTransition(o.OrderStage, model.OrderStageShipped) {
			return ValidationError("cannot ship an order in stage %s", o.OrderStage)
		}

// carrier call under the order lock
		res, err := u.gateway.CreateShipment(ctx, u.shipmentRequest(o))
		if err != nil {
			u.w.log.WithError(err).WithField("order_id", o.ID).Error("delhivery create shipment failed")
			return UpstreamError("delhivery", err)
		}
		raw, waybill = res.Raw, res.Waybill

		now := u.Clock.Now()
		o.Delhivery = &model.DelhiveryShipment{
			Waybill:     res.Waybill,
			OrderID:     o.ID,
			Scans:       []model.ShipmentScan{},
			LastUpdated: &now,
		}
		return o.MoveToStage(model.OrderStageShipped, updatedBy, now)
	})
	if err != nil {
		if waybill != "" {
			// the carrier holds a consignment the order does not know about
			u.w.log.WithError(err).WithFields(logrus.Fields{"order_id": orderID, "waybill": waybill}).Error("shipment created but order not updated")
		}
		return ShipmentResult{}, err
	}
	u.w.log.WithFields(logrus.Fields{"order_id": o.ID, "waybill": waybill}).Info("shipment created")
	return ShipmentResult{Order: o, Shipment: raw}, nil
}

// shipmentRequest maps the order onto the Delhivery consignment fields.
func (u *ShipmentUsecase) shipmentRequest(o *model.Order) shipment.ShipmentRequest {
	a := o.ShippingAddress
	line := strings.TrimSpace(a.Line1)
	if l2 := strings.TrimSpace(a.Line2); l2 != "" {
		line += ", " + l2
	}

	qty := 0
	desc := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		qty += it.Quantity
		d := fmt.Sprintf("%s x%d", it.ProductName, it.Quantity)
		if it.Size != "" {
			d = fmt.Sprintf("%s (%s) x%d", it.ProductName, it.Size, it.Quantity)
		}
		desc = append(desc, d)
	}

	req := shipment.ShipmentRequest{
		OrderID:      o.ID,
		Name:         a.Name,
		AddressLine:  line,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		Phone:        a.Phone,
		PaymentMode:  "Prepaid",
		TotalAmount:  o.TotalPrice,
		Quantity:     qty,
		ProductsDesc: strings.Join(desc, ", "),
		WeightKg:     u.opts.DefaultWeightKg,
		OrderDate:    o.CreatedAt,
		SellerName:   u.opts.SellerName,
	}
// collect on delivery only while unpaid
	if o.PaymentMethod == model.PaymentMethodCOD && !o.IsPaid {
		req.PaymentMode = "COD"
		req.CODAmount = o.TotalPrice
	}
	return req
}

// AttachWaybill records a consignment booked outside this service.
func (u *ShipmentUsecase) AttachWaybill(ctx context.Context, caller Caller, orderID, waybill string) (model.Order, error) {
	if err := requireAdmin(caller); err != nil {
		return model.Order{}, err
	}
	waybill = strings.TrimSpace(waybill)
	if waybill == "" {
		return model.Order{}, ValidationError("waybill is required")
	}
	audit := &auditSpec{actor: caller.UserID, action: model.AuditActionAttachWaybill}
	return u.w.modify(ctx, orderID, audit, func(o *model.Order) error {
		if o.HasWaybill() {
			return ValidationError("order already has waybill %s", o.Waybill())
		}
		if model.IsTerminalStage(o.OrderStage) {
			return ValidationError("cannot attach a waybill to a %s order", o.OrderStage)
		}
		now := u.Clock.Now()
		scans := []model.ShipmentScan{}
		if o.Delhivery != nil && o.Delhivery.Scans != nil {
			scans = o.Delhivery.Scans
		}
		o.Delhivery = &model.DelhiveryShipment{
			Waybill:     waybill,
			OrderID:     o.ID,
			Scans:       scans,
			LastUpdated: &now,
		}
// already shipped orders keep their stage
		if o.OrderStage == model.OrderStageOrdered || o.OrderStage == model.OrderStageBeingMade {
			return o.MoveToStage(model.OrderStageShipped, caller.UpdatedBy(), now)
		}
		return nil
	})
}

// CancelShipment cancels the consignment and returns the order to being_made.
// Status then follows payment: paid orders read paid, unpaid ones pending.
// Delivered orders are refused since the parcel already reached the buyer.
func (u *ShipmentUsecase) CancelShipment(ctx context.Context, caller Caller, orderID string) (ShipmentResult, error) {
	if err := requireAdmin(caller); err != nil {
		return ShipmentResult{}, err
	}
	var raw map[string]interface{}
	audit := &auditSpec{actor: caller.UserID, action: model.AuditActionCancelShipment}

	o, err := u.w.modify(ctx, orderID, audit, func(o *model.Order) error {
		if !o.HasWaybill() {
			return ValidationError("no waybill for this order")
		}
		if o.OrderStage == model.OrderStageDelivered {
			return ValidationError("cannot cancel the shipment of a delivered order")
		}
		waybill := o.Waybill()
		res, err := u.gateway.CancelShipment(ctx, waybill)
		if err != nil {
			u.w.log.WithError(err).WithFields(logrus.Fields{"order_id": o.ID, "waybill": waybill}).Error("delhivery cancel failed")
			return UpstreamError("delhivery", err)
		}
		raw = res

// forget the cancelled consignment
		o.Delhivery = &model.DelhiveryShipment{Scans: []model.ShipmentScan{}}
// a cancelled order stays cancelled
		if o.OrderStage == model.OrderStageCancelled {
			return nil
		}
		return o.MoveToStage(model.OrderStageBeingMade, caller.UpdatedBy(), u.Clock.Now())
	})
	if err != nil {
		return ShipmentResult{}, err
	}
	return ShipmentResult{Order: o, Shipment: raw}, nil
}
