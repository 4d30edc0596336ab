package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// request body for POST /orders
type OrderCreateRequest struct {
	Items           []OrderItemRequest     `json:"items"`
	ShippingAddress *model.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
}

type OrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, guards Guards) {
// every order route needs a logged-in user
	g := e.Group("/orders", guards.User...)

	g.POST("", h.create)
	g.GET("/my", h.listMine)
	g.GET("/:id", h.detail)
	g.GET("/:id/invoice", h.invoice)
	g.GET("/:id/track", h.track)
}

// POST /orders
func (h *OrderHandler) create(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req OrderCreateRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

// request -> usecase input
	in := usecase.PlaceOrderInput{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, usecase.PlaceOrderItem{ProductID: it.ProductID, Quantity: it.Quantity, Size: it.Size})
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), caller, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

// GET /orders/my
func (h *OrderHandler) listMine(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return err
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), caller, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// GET /orders/:id
// owners and admins only.
func (h *OrderHandler) detail(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	out, err := h.uc.GetOrder(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// GET /orders/:id/invoice
// returns the PDF as an attachment.
func (h *OrderHandler) invoice(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	pdf, filename, err := h.uc.Invoice(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+strconv.Quote(filename))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

// GET /orders/:id/track
func (h *OrderHandler) track(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	out, err := h.uc.TrackOrder(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
