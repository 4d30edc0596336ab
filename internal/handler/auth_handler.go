package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	uc *usecase.AuthUsecase
}

func NewAuthHandler(uc *usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// login by one-time code sent to the email
type OTPRequest struct {
	Email string `json:"email"`
}

type OTPVerifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type OTPRequestResponse struct {
	Message string `json:"message"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo, guards Guards) {
// both steps share the IP rate limit
	g := e.Group("/auth/otp", guards.RateLimit)
	g.POST("/request", h.requestOTP)
	g.POST("/verify", h.verifyOTP)
}

// POST /auth/otp/request
func (h *AuthHandler) requestOTP(c echo.Context) error {
	var req OTPRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	if err := h.uc.RequestOTP(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, OTPRequestResponse{Message: "otp sent"})
}

// POST /auth/otp/verify
// returns the access token on success.
func (h *AuthHandler) verifyOTP(c echo.Context) error {
	var req OTPVerifyRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	out, err := h.uc.VerifyOTP(c.Request().Context(), req.Email, req.OTP)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
