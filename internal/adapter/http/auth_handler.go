package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"doctrack/internal/adapter/middleware"
	"doctrack/internal/infrastructure/metrics"
	"doctrack/internal/usecase/auth"
)

type AuthHandler struct{ uc *auth.Usecase }

func NewAuthHandler(uc *auth.Usecase) *AuthHandler { return &AuthHandler{uc: uc} }

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerReq struct {
	Username string `json:"username" validate:"required,username,max=64"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

type logoutReq struct {
	Token string `json:"token"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.Login(c.Request().Context(), auth.LoginInput(req))
	if err != nil {
		metrics.AuthEvents.WithLabelValues("login", "failure").Inc()
		return writeError(c, err)
	}
	metrics.AuthEvents.WithLabelValues("login", "success").Inc()
	return c.JSON(http.StatusOK, res)
}

// Register creates an account. A second admin needs an admin bearer token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.Register(c.Request().Context(), auth.RegisterInput(req), middleware.PrincipalFrom(c))
	if err != nil {
		metrics.AuthEvents.WithLabelValues("register", "failure").Inc()
		return writeError(c, err)
	}
	metrics.AuthEvents.WithLabelValues("register", "success").Inc()
	return c.JSON(http.StatusOK, res)
}

// Logout accepts the token as a bearer header or in the body.
func (h *AuthHandler) Logout(c echo.Context) error {
	token := middleware.BearerToken(c.Request())
	if token == "" {
		var req logoutReq
		_ = c.Bind(&req)
		token = req.Token
	}
	if token != "" {
		if err := h.uc.Logout(c.Request().Context(), token); err != nil {
			return writeError(c, err)
		}
	}
	metrics.AuthEvents.WithLabelValues("logout", "success").Inc()
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
