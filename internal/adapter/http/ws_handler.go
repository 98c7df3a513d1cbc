package http

import (
	"github.com/labstack/echo/v4"

	"doctrack/internal/adapter/middleware"
	"doctrack/internal/adapter/notify"
)

type WSHandler struct{ hub *notify.Hub }

func NewWSHandler(hub *notify.Hub) *WSHandler { return &WSHandler{hub: hub} }

// Serve upgrades to the docs_updated push channel.
func (h *WSHandler) Serve(c echo.Context) error {
	name := c.RealIP()
	if p := middleware.PrincipalFrom(c); p != nil {
		name = p.Username
	}
	return h.hub.ServeWS(c.Response(), c.Request(), name)
}
