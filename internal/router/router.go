package router // route registration for the operator API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/teledl/internal/handler"
	"github.com/iliyamo/teledl/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterOperator registers the operator login route and the protected
// admin group. Admin endpoints require a valid access token carrying the
// OPERATOR role.
func RegisterOperator(e *echo.Echo, a *handler.AuthHandler, adm *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("OPERATOR"))
	admin.POST("/premium", adm.GrantPremium)
	admin.GET("/users/:id", adm.GetUser)
	admin.GET("/payments", adm.ListPayments)
	admin.PATCH("/payments/:id", adm.SetPaymentStatus)
}
