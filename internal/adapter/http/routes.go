package http

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"doctrack/internal/adapter/middleware"
	"doctrack/internal/adapter/notify"
	"doctrack/internal/usecase/auth"
	docuc "doctrack/internal/usecase/document"
)

type Deps struct {
	Documents *docuc.Usecase
	Auth      *auth.Usecase
	Hub       *notify.Hub
	// Redis nil disables idempotent replay.
	Redis           *redis.Client
	IdempTTL        time.Duration
	DocsRequireAuth bool
}

// NewServer builds the echo instance with every route mounted.
func NewServer(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()
	e.Use(echomw.Logger(), echomw.Recover(), echomw.CORS(), middleware.Metrics())
	e.Use(middleware.Authenticate(d.Auth))

	h := NewHandler()
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var writes []echo.MiddlewareFunc
	if d.Redis != nil {
		writes = append(writes, middleware.IdempotencyMiddleware(d.Redis, d.IdempTTL))
	}

	docs := NewDocumentHandler(d.Documents)
	dg := e.Group("/documents", middleware.RequireAuthFor(d.DocsRequireAuth))
	dg.GET("", docs.List)
	dg.POST("", docs.Replace, writes...)
	dg.GET("/:control", docs.Get)
	dg.PUT("/:control", docs.Patch, writes...)

	a := NewAuthHandler(d.Auth)
	ag := e.Group("/auth")
	ag.POST("/login", a.Login)
	ag.POST("/register", a.Register, writes...)
	ag.POST("/logout", a.Logout)

	u := NewUserHandler(d.Auth)
	ug := e.Group("/users", middleware.RequireAuth())
	ug.GET("", u.List)
	ug.PUT("/:username", u.UpdateRole)
	ug.DELETE("/:username", u.Delete)

	ws := NewWSHandler(d.Hub)
	e.GET("/ws", ws.Serve)

	return e
}
