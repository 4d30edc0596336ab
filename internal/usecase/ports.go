package usecase

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/payment"
	"storefront/internal/infra/shipment"
)

type PaymentGateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amount float64, receipt string, notes map[string]string) (payment.GatewayOrder, error)
	VerifySignature(orderID, paymentID, signature string) bool
	FetchPayment(ctx context.Context, paymentID string) (map[string]interface{}, error)
	RefundPayment(ctx context.Context, paymentID string, amount *float64) (map[string]interface{}, error)
}

type ShipmentGateway interface {
	CreateShipment(ctx context.Context, req shipment.ShipmentRequest) (shipment.CreateResult, error)
	TrackShipment(ctx context.Context, waybill string) (shipment.TrackingResult, error)
	CancelShipment(ctx context.Context, waybill string) (map[string]interface{}, error)
}

type InvoiceRenderer interface {
	Render(o model.Order) ([]byte, error)
}

type OTPSender interface {
	SendOTP(ctx context.Context, email string, code string) error
}

type TokenIssuer interface {
	Issue(user model.User) (token string, expiresIn int, err error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}

// Caller is the authenticated principal behind a request.
type Caller struct {
	UserID string
	Role   model.Role
}

func (c Caller) IsAdmin() bool { return c.Role == model.RoleAdmin }

// UpdatedBy is the actor name written into stage history.
func (c Caller) UpdatedBy() string {
	if c.IsAdmin() {
		return "admin:" + c.UserID
	}
	return c.UserID
}
