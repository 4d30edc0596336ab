package handler

import (
	"net/http"

	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type UpdateStageRequest struct {
	Stage string `json:"stage"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, guards Guards) {
	g := e.Group("/orders", guards.admin()...)
	g.GET("", h.list)
	g.PUT("/:id/status", h.updateStatus)
	g.PUT("/:id/stage", h.updateStage)

	e.GET("/admin/audit-logs", h.auditLogs, guards.admin()...)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	f := repository.AdminOrderListFilter{
		Status: c.QueryParam("status"),
		Stage:  c.QueryParam("stage"),
		UserID: c.QueryParam("userId"),
	}
	if f.Page, err = queryInt(c, "page", 1); err != nil {
		return err
	}
	if f.Limit, err = queryInt(c, "limit", 20); err != nil {
		return err
	}
	if f.From, err = queryTime(c, "from", false); err != nil {
		return err
	}
	if f.To, err = queryTime(c, "to", true); err != nil {
		return err
	}

	out, err := h.uc.List(c.Request().Context(), caller, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// PUT /orders/:id/status
// status is derived from the stage. shipped, delivered and cancelled move the
// stage and add a history entry when it changes; pending and paid only flip the paid flag and
// are refused once the order has shipped, been delivered or been cancelled.
func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req UpdateStatusRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), caller, c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// PUT /orders/:id/stage
// any known stage is accepted, backwards moves included; each call adds one
// history entry.
func (h *AdminOrderHandler) updateStage(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req UpdateStageRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	out, err := h.uc.UpdateStage(c.Request().Context(), caller, c.Param("id"), req.Stage)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) auditLogs(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	q := usecase.AuditLogQuery{
		ActorUserID:  c.QueryParam("actorUserId"),
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resourceType"),
		ResourceID:   c.QueryParam("resourceId"),
	}
	if q.Page, err = queryInt(c, "page", 1); err != nil {
		return err
	}
	if q.Limit, err = queryInt(c, "limit", 20); err != nil {
		return err
	}
	if q.From, err = queryTime(c, "from", false); err != nil {
		return err
	}
	if q.To, err = queryTime(c, "to", true); err != nil {
		return err
	}

	out, err := h.uc.ListAuditLogs(c.Request().Context(), caller, q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
