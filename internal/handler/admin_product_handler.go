package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, guards Guards) {
	g := e.Group("/admin/products", guards.admin()...)
	g.POST("", h.create)
}

// POST /admin/products
func (h *AdminProductHandler) create(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req usecase.AdminCreateProductInput
	if err := bindBody(c, &req); err != nil {
		return err
	}

	p, err := h.uc.AdminCreateProduct(c.Request().Context(), caller, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}
