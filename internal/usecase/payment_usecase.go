package usecase

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/infra/payment"

	"github.com/sirupsen/logrus"
)

type PaymentUsecase struct {
	Deps
	w       *orderWriter
	gateway PaymentGateway
}

func NewPaymentUsecase(d Deps, gateway PaymentGateway) *PaymentUsecase {
	return &PaymentUsecase{Deps: d, w: d.writer(), gateway: gateway}
}

// what the checkout widget needs
type CreatePaymentOutput struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
	OrderID  string `json:"orderId"`
}

// CreatePayment opens a gateway order for the order total.
func (u *PaymentUsecase) CreatePayment(ctx context.Context, caller Caller, orderID string) (CreatePaymentOutput, error) {
	if caller.UserID == "" {
		return CreatePaymentOutput{}, UnauthorizedError()
	}
	o, err := u.w.load(ctx, orderID)
	if err != nil {
		return CreatePaymentOutput{}, err
	}
	if !o.OwnedBy(caller.UserID) {
		return CreatePaymentOutput{}, ForbiddenError("only the order owner can pay")
	}
	if err := payable(&o); err != nil {
		return CreatePaymentOutput{}, err
	}

// gateway order outside the lock
	gwo, err := u.gateway.CreateOrder(ctx, o.TotalPrice, o.ID, map[string]string{"orderId": o.ID})
	if err != nil {
		u.w.log.WithError(err).WithField("order_id", o.ID).Error("razorpay create order failed")
		return CreatePaymentOutput{}, UpstreamError("razorpay", err)
	}

// remember the gateway order id for verify
	_, err = u.w.modify(ctx, o.ID, nil, func(o *model.Order) error {
		if err := payable(o); err != nil {
			return err
		}
		pr := model.PaymentResult{}
		if o.PaymentResult != nil {
			pr = *o.PaymentResult
		}
		pr.GatewayOrderID = gwo.ID
		pr.Status = "created"
		pr.UpdatedAt = u.Clock.Now()
		o.PaymentResult = &pr
		return nil
	})
	if err != nil {
		return CreatePaymentOutput{}, err
	}
	return CreatePaymentOutput{
		ID:       gwo.ID,
		Amount:   gwo.Amount,
		Currency: gwo.Currency,
		KeyID:    u.gateway.KeyID(),
		OrderID:  o.ID,
	}, nil
}

// payable refuses paid and cancelled orders.
func payable(o *model.Order) error {
	if o.IsPaid {
		return ValidationError("order is already paid")
	}
	if o.OrderStage == model.OrderStageCancelled {
		return ValidationError("order is cancelled")
	}
	return nil
}

type VerifyPaymentInput struct {
	OrderID        string `json:"orderId"`
	GatewayOrderID string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Signature      string `json:"razorpay_signature"`
}

// VerifyPayment checks the checkout signature and marks the order paid.
// Verifying the same payment twice is a no-op.
func (u *PaymentUsecase) VerifyPayment(ctx context.Context, caller Caller, in VerifyPaymentInput) (model.Order, error) {
	if caller.UserID == "" {
		return model.Order{}, UnauthorizedError()
	}
	in.OrderID = strings.TrimSpace(in.OrderID)
	if in.OrderID == "" || in.GatewayOrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return model.Order{}, ValidationError("orderId, razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
	}
// signature first, nothing is loaded for a forged request
	if !u.gateway.VerifySignature(in.GatewayOrderID, in.PaymentID, in.Signature) {
		u.w.log.WithFields(logrus.Fields{"order_id": in.OrderID, "payment_id": in.PaymentID}).Warn("payment signature mismatch")
		return model.Order{}, ValidationError("invalid payment signature")
	}

	o, err := u.w.load(ctx, in.OrderID)
	if err != nil {
		return model.Order{}, err
	}
	if !o.OwnedBy(caller.UserID) {
		return model.Order{}, ForbiddenError("only the order owner can pay")
	}
// replay of the same payment
	if o.IsPaid && o.PaymentResult != nil && o.PaymentResult.ID == in.PaymentID {
		return o, nil
	}

	updated, err := u.w.modify(ctx, in.OrderID, nil, func(o *model.Order) error {
		if o.IsPaid {
			if o.PaymentResult != nil && o.PaymentResult.ID == in.PaymentID {
				return nil
			}
			return ConflictError("order is already paid by another payment", nil)
		}
// the gateway order must be the one opened for this order
		if o.PaymentResult == nil || o.PaymentResult.GatewayOrderID != in.GatewayOrderID {
			return ValidationError("payment does not belong to this order")
		}
		now := u.Clock.Now()
		o.PaymentResult.ID = in.PaymentID
		o.PaymentResult.Status = "captured"
		o.PaymentResult.Signature = in.Signature
		o.PaymentResult.UpdatedAt = now
		o.MarkPaid(now)
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	u.w.log.WithFields(logrus.Fields{"order_id": updated.ID, "payment_id": in.PaymentID}).Info("payment verified")
	return updated, nil
}

type RefundInput struct {
	OrderID   string   `json:"orderId"`
	PaymentID string   `json:"paymentId"`
	Amount    *float64 `json:"amount"`
}

type RefundOutput struct {
	Order  model.Order            `json:"order"`
	Refund map[string]interface{} `json:"refund"`
}

// Refund returns money to the buyer and cancels the order.
func (u *PaymentUsecase) Refund(ctx context.Context, caller Caller, in RefundInput) (RefundOutput, error) {
	if err := requireAdmin(caller); err != nil {
		return RefundOutput{}, err
	}
	if strings.TrimSpace(in.OrderID) == "" {
		return RefundOutput{}, ValidationError("orderId is required")
	}
	if in.Amount != nil && *in.Amount <= 0 {
		return RefundOutput{}, ValidationError("amount must be positive")
	}

	var raw map[string]interface{}
	audit := &auditSpec{actor: caller.UserID, action: model.AuditActionRefundPayment}
	o, err := u.w.modify(ctx, in.OrderID, audit, func(o *model.Order) error {
		pid := strings.TrimSpace(in.PaymentID)
		if pid == "" && o.PaymentResult != nil {
			pid = o.PaymentResult.ID
		}
		if pid == "" {
			return ValidationError("no payment to refund")
		}
		if o.PaymentResult != nil && o.PaymentResult.Refund != nil {
			return ValidationError("order is already refunded")
		}
		if in.Amount != nil && *in.Amount > o.TotalPrice {
			return ValidationError("refund exceeds order total")
		}

// refund under the order lock so it runs once
		res, err := u.gateway.RefundPayment(ctx, pid, in.Amount)
		if err != nil {
			if errors.Is(err, model.ErrInvalidPaymentID) {
				return storeError(err, "payment")
			}
			u.w.log.WithError(err).WithFields(logrus.Fields{"order_id": o.ID, "payment_id": pid}).Error("razorpay refund failed")
			return UpstreamError("razorpay", err)
		}
		raw = res

		now := u.Clock.Now()
		if o.PaymentResult == nil {
			o.PaymentResult = &model.PaymentResult{ID: pid}
		}
		o.PaymentResult.Refund = &model.Refund{
			ID:        stringOf(res, "id"),
			Amount:    refundedAmount(res, in.Amount),
			Status:    stringOf(res, "status"),
			CreatedAt: now,
		}
		o.PaymentResult.UpdatedAt = now
// refunded orders end cancelled
		if o.OrderStage == model.OrderStageCancelled {
			return nil
		}
		return o.MoveToStage(model.OrderStageCancelled, caller.UpdatedBy(), now)
	})
	if err != nil {
		return RefundOutput{}, err
	}
	return RefundOutput{Order: o, Refund: raw}, nil
}

// FetchPayment passes the gateway payment through unchanged.
func (u *PaymentUsecase) FetchPayment(ctx context.Context, caller Caller, paymentID string) (map[string]interface{}, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, ValidationError("payment id is required")
	}
	p, err := u.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, UpstreamError("razorpay", err)
	}
	return p, nil
}

func stringOf(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// refundedAmount reads the paise amount the gateway reports, falling back to
// what was asked for.
func refundedAmount(res map[string]interface{}, asked *float64) float64 {
	switch v := res["amount"].(type) {
	case float64:
		return payment.FromPaise(int64(v))
	case int64:
		return payment.FromPaise(v)
	case int:
		return payment.FromPaise(int64(v))
	}
	if asked != nil {
		return *asked
	}
	return 0
}
