package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"doctrack/internal/adapter/middleware"
	"doctrack/internal/usecase/auth"
)

type UserHandler struct{ uc *auth.Usecase }

func NewUserHandler(uc *auth.Usecase) *UserHandler { return &UserHandler{uc: uc} }

type updateRoleReq struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

func (h *UserHandler) List(c echo.Context) error {
	users, err := h.uc.ListUsers(c.Request().Context(), middleware.PrincipalFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"users": users})
}

func (h *UserHandler) UpdateRole(c echo.Context) error {
	var req updateRoleReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.UpdateRole(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("username"), req.Role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "username": dto.Username, "role": dto.Role})
}

func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.uc.DeleteUser(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("username")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
