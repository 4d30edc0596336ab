package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type CreatePaymentRequest struct {
	OrderID string `json:"orderId"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, guards Guards) {
	g := e.Group("/payment/razorpay")

// buyer routes are rate limited
	g.POST("/create-order", h.createOrder, guards.user(guards.RateLimit)...)
	g.POST("/verify", h.verify, guards.user(guards.RateLimit)...)
	g.POST("/refund", h.refund, guards.admin()...)
	g.GET("/payments/:paymentId", h.fetch, guards.admin()...)
}

// POST /payment/razorpay/create-order
// opens a Razorpay order for the order total.
func (h *PaymentHandler) createOrder(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req CreatePaymentRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	out, err := h.uc.CreatePayment(c.Request().Context(), caller, req.OrderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// POST /payment/razorpay/verify
// checks the checkout signature and marks the order paid.
func (h *PaymentHandler) verify(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req usecase.VerifyPaymentInput
	if err := bindBody(c, &req); err != nil {
		return err
	}

	out, err := h.uc.VerifyPayment(c.Request().Context(), caller, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// POST /payment/razorpay/refund
func (h *PaymentHandler) refund(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req usecase.RefundInput
	if err := bindBody(c, &req); err != nil {
		return err
	}

	out, err := h.uc.Refund(c.Request().Context(), caller, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// GET /payment/razorpay/payments/:paymentId
func (h *PaymentHandler) fetch(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	out, err := h.uc.FetchPayment(c.Request().Context(), caller, c.Param("paymentId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
