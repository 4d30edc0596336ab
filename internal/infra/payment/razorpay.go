package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/model"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
)

const currencyINR = "INR"

// orderResource and paymentResource are the slices of the razorpay-go SDK we call.
type orderResource interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentResource interface {
	Fetch(paymentID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type RazorpayGateway struct {
	keyID     string
	keySecret string
	timeout   time.Duration
	orders    orderResource
	payments  paymentResource
}

func NewRazorpayGateway(keyID, keySecret string, timeout time.Duration) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		timeout:   timeout,
		orders:    client.Order,
		payments:  client.Payment,
	}
}

func (g *RazorpayGateway) KeyID() string { return g.keyID }

// ToPaise converts rupees to the smallest currency unit, rounding half away from zero.
func ToPaise(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func FromPaise(paise int64) float64 {
	return decimal.New(paise, -2).InexactFloat64()
}

//CreateOrder opens a Razorpay order for amount rupees.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount float64, receipt string, notes map[string]string) (GatewayOrder, error) {
	data := map[string]interface{}{
		"amount":   ToPaise(amount),
		"currency": currencyINR,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		n := make(map[string]interface{}, len(notes))
		for k, v := range notes {
			n[k] = v
		}
		data["notes"] = n
	}

// sdk call
	res, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.orders.Create(data, nil)
	})
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("razorpay create order: %w", err)
	}

	out := GatewayOrder{
		ID:       stringField(res, "id"),
		Amount:   int64Field(res, "amount"),
		Currency: stringField(res, "currency"),
	}
	if out.ID == "" {
		return GatewayOrder{}, fmt.Errorf("razorpay create order: response has no id")
	}
	return out, nil
}

// VerifySignature checks the checkout signature with the gateway's key secret.
func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(orderID, paymentID, signature, g.keySecret)
}

// VerifySignature recomputes HMAC-SHA256(orderID|paymentID) and compares in constant time.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (g *RazorpayGateway) FetchPayment(ctx context.Context, paymentID string) (map[string]interface{}, error) {
	res, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.payments.Fetch(paymentID, nil, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay fetch payment %s: %w", paymentID, err)
	}
	return res, nil
}

// RefundPayment refunds amount rupees, or whatever is left on the payment when amount is nil.
func (g *RazorpayGateway) RefundPayment(ctx context.Context, paymentID string, amount *float64) (map[string]interface{}, error) {
	if !strings.HasPrefix(paymentID, "pay_") {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidPaymentID, paymentID)
	}

	var paise int64
	if amount != nil {
		paise = ToPaise(*amount)
	} else {
		p, err := g.FetchPayment(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		paise = int64Field(p, "amount") - int64Field(p, "amount_refunded")
	}
	if paise <= 0 {
		return nil, fmt.Errorf("razorpay refund %s: nothing to refund", paymentID)
	}

	res, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.payments.Refund(paymentID, int(paise), nil, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay refund %s: %w", paymentID, err)
	}
	return res, nil
}

// call bounds an SDK call by ctx and the gateway timeout. The SDK itself takes
// no context, so a timed-out call keeps running in its goroutine until it returns.
func (g *RazorpayGateway) call(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	type result struct {
		res map[string]interface{}
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := fn()
		done <- result{res: res, err: err}
	}()

	select {
	case r := <-done:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func int64Field(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
