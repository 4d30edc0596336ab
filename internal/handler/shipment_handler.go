package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ShipmentHandler struct {
	uc *usecase.ShipmentUsecase
}

func NewShipmentHandler(uc *usecase.ShipmentUsecase) *ShipmentHandler {
	return &ShipmentHandler{uc: uc}
}

type AttachWaybillRequest struct {
	Waybill string `json:"waybill"`
}

func (h *ShipmentHandler) RegisterRoutes(e *echo.Echo, guards Guards) {
// carrier routes are admin only
	g := e.Group("/orders/:id/delhivery", guards.admin()...)
	g.POST("/shipment", h.create)
	g.PUT("/waybill", h.attachWaybill)
	g.DELETE("/cancel", h.cancel)
}

// POST /orders/:id/delhivery/shipment
// books the consignment with Delhivery.
func (h *ShipmentHandler) create(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	out, err := h.uc.CreateShipment(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

// PUT /orders/:id/delhivery/waybill
// for consignments booked outside this service.
func (h *ShipmentHandler) attachWaybill(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req AttachWaybillRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	out, err := h.uc.AttachWaybill(c.Request().Context(), caller, c.Param("id"), req.Waybill)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// DELETE /orders/:id/delhivery/cancel
func (h *ShipmentHandler) cancel(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	out, err := h.uc.CancelShipment(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
