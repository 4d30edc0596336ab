package usecase

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/infra/shipment"

	"github.com/sirupsen/logrus"
)

// OrderOptions toggles optional steps of order placement.
type OrderOptions struct {
	AutoCreateShipment bool
}

type OrderUsecase struct {
	Deps
	w         *orderWriter
	shipments *ShipmentUsecase
	invoices  InvoiceRenderer
	opts      OrderOptions
}

func NewOrderUsecase(d Deps, shipments *ShipmentUsecase, invoices InvoiceRenderer, opts OrderOptions) *OrderUsecase {
	return &OrderUsecase{Deps: d, w: d.writer(), shipments: shipments, invoices: invoices, opts: opts}
}

type PlaceOrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
}

type PlaceOrderInput struct {
	Items           []PlaceOrderItem       `json:"items"`
	ShippingAddress *model.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
}

// SideEffect reports a best-effort step that ran after the main write.
type SideEffect struct {
	Attempted bool   `json:"attempted"`
	Succeeded bool   `json:"succeeded"`
	Waybill   string `json:"waybill,omitempty"`
	Error     string `json:"error,omitempty"`
}

type PlaceOrderResult struct {
	model.Order
	Shipment *SideEffect `json:"shipment,omitempty"`
}

type TrackOrderResult struct {
	Order    model.Order            `json:"order"`
	Tracking map[string]interface{} `json:"tracking"`
}

// PlaceOrder prices the items from the catalogue and stores a new order in
// stage ordered. Client prices are never trusted.
func (u *OrderUsecase) PlaceOrder(ctx context.Context, caller Caller, in PlaceOrderInput) (PlaceOrderResult, error) {
	if caller.UserID == "" {
		return PlaceOrderResult{}, UnauthorizedError()
	}
	if len(in.Items) == 0 {
		return PlaceOrderResult{}, ValidationError("no order items")
	}
	method, ok := model.ParsePaymentMethod(strings.TrimSpace(in.PaymentMethod))
	if !ok {
		return PlaceOrderResult{}, ValidationError("invalid payment method %q", in.PaymentMethod)
	}

// input check
	ids := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return PlaceOrderResult{}, ValidationError("productId is required")
		}
		if it.Quantity < 1 {
			return PlaceOrderResult{}, ValidationError("quantity must be at least 1")
		}
		ids = append(ids, it.ProductID)
	}

// load products in one query
	products, err := u.Products.FindByIDs(ctx, ids)
	if err != nil {
		return PlaceOrderResult{}, InternalError(err)
	}

// snapshot name, price and image into the order
	items := make([]model.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		p, found := products[it.ProductID]
		if !found {
			return PlaceOrderResult{}, ValidationError("product %s not found", it.ProductID)
		}
		if !p.IsActive {
			return PlaceOrderResult{}, ValidationError("product %s is not available", it.ProductID)
		}
		size := strings.TrimSpace(it.Size)
		if size != "" && len(p.Sizes) > 0 {
			if _, ok := p.Sizes[size]; !ok {
				return PlaceOrderResult{}, ValidationError("size %s is not offered for %s", size, p.Name)
			}
		}
		items = append(items, model.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   p.CurrentPrice(),
			Quantity:    it.Quantity,
			Size:        size,
			ImageURL:    p.PrimaryImage(),
		})
	}

// totals
	price := PriceItems(items)
	now := u.Clock.Now()
	o := model.Order{
		ID:              u.IDs.NewID(),
		UserID:          caller.UserID,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   method,
		ItemsPrice:      price.ItemsPrice,
		TaxPrice:        price.TaxPrice,
		ShippingPrice:   price.ShippingPrice,
		TotalPrice:      price.TotalPrice,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.NewOrderLifecycle()

// save
	if err := u.Orders.Create(ctx, &o); err != nil {
		return PlaceOrderResult{}, InternalError(err)
	}
	u.w.log.WithFields(logrus.Fields{
		"order_id": o.ID,
		"user_id":  o.UserID,
		"total":    o.TotalPrice,
	}).Info("order created")

// shipment booking is best effort
	res := PlaceOrderResult{Order: o}
	if u.opts.AutoCreateShipment && o.ShippingAddress != nil && u.shipments != nil {
		res.Shipment = u.autoShip(ctx, &res.Order)
	}
	return res, nil
}

// autoShip books a shipment for a fresh order. Its failure never fails the order.
func (u *OrderUsecase) autoShip(ctx context.Context, o *model.Order) *SideEffect {
	eff := &SideEffect{Attempted: true}
	out, err := u.shipments.book(ctx, o.ID, "system", nil)
	if err != nil {
		eff.Error = err.Error()
		if he, ok := AsHTTPError(err); ok {
			eff.Error = he.Message
		}
		u.w.log.WithError(err).WithField("order_id", o.ID).Warn("auto shipment failed")
		return eff
	}
	*o = out.Order
	eff.Succeeded = true
	eff.Waybill = out.Order.Waybill()
	return eff
}

// ListMyOrders returns the caller's orders, newest first.
func (u *OrderUsecase) ListMyOrders(ctx context.Context, caller Caller, page, limit int) (ListOutput[model.Order], error) {
	if caller.UserID == "" {
		return ListOutput[model.Order]{}, UnauthorizedError()
	}
	page, limit = pageOrDefault(page, limit)
	orders, total, err := u.Orders.ListByUserID(ctx, caller.UserID, page, limit)
	if err != nil {
		return ListOutput[model.Order]{}, InternalError(err)
	}
	return ListOutput[model.Order]{Items: orders, Total: total, Page: page, Limit: limit}, nil
}

// GetOrder hides orders of other users behind 404.
func (u *OrderUsecase) GetOrder(ctx context.Context, caller Caller, orderID string) (model.Order, error) {
	return u.w.loadVisible(ctx, orderID, caller)
}

// Invoice renders the order as a PDF and suggests a file name for it.
func (u *OrderUsecase) Invoice(ctx context.Context, caller Caller, orderID string) ([]byte, string, error) {
	o, err := u.w.loadVisible(ctx, orderID, caller)
	if err != nil {
		return nil, "", err
	}
	pdf, err := u.invoices.Render(o)
	if err != nil {
		return nil, "", InternalError(err)
	}
	return pdf, fmt.Sprintf("invoice-%s.pdf", o.ID), nil
}

// TrackOrder asks the carrier for the latest scans and moves the stage
// forward when the carrier reports progress.
func (u *OrderUsecase) TrackOrder(ctx context.Context, caller Caller, orderID string) (TrackOrderResult, error) {
	o, err := u.w.loadVisible(ctx, orderID, caller)
	if err != nil {
		return TrackOrderResult{}, err
	}
	if !o.HasWaybill() {
		return TrackOrderResult{}, ValidationError("no waybill for this order")
	}
	if u.shipments == nil {
		return TrackOrderResult{}, InternalError(fmt.Errorf("shipment gateway not configured"))
	}
	waybill := o.Waybill()

// carrier call outside the lock
	tr, err := u.shipments.gateway.TrackShipment(ctx, waybill)
	if err != nil {
		u.w.log.WithError(err).WithFields(logrus.Fields{"order_id": orderID, "waybill": waybill}).Error("tracking failed")
		return TrackOrderResult{}, UpstreamError("delhivery", err)
	}

// store scans and advance the stage
	updated, err := u.w.modify(ctx, orderID, nil, func(o *model.Order) error {
		if o.Waybill() != waybill {
			return ConflictError("waybill changed while tracking, retry", nil)
		}
		now := u.Clock.Now()
		o.Delhivery.ShipmentStatus = tr.Status
		o.Delhivery.Scans = toShipmentScans(tr.Scans)
		o.Delhivery.LastUpdated = &now
		if o.ObserveCarrierStatus(tr.Status, now) {
			u.w.log.WithFields(logrus.Fields{
				"order_id": o.ID,
				"waybill":  waybill,
				"stage":    o.OrderStage,
			}).Info("stage advanced from tracking")
		}
		return nil
	})
	if err != nil {
		return TrackOrderResult{}, err
	}
	return TrackOrderResult{Order: updated, Tracking: tr.Raw}, nil
}

func toShipmentScans(in []shipment.Scan) []model.ShipmentScan {
	out := make([]model.ShipmentScan, 0, len(in))
	for _, s := range in {
		out = append(out, model.ShipmentScan{
			Status:       s.Status,
			Location:     s.Location,
			Instructions: s.Instructions,
			ScannedAt:    s.ScannedAt,
		})
	}
	return out
}
