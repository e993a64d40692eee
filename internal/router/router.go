package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resort-reservation/internal/handler"
)

// RegisterRoutes registers the health check and the reservation collection on
// the provided Echo instance.  None of the routes require authentication.
func RegisterRoutes(e *echo.Echo, h *handler.ReservationHandler) {
	e.GET("/healthz", handler.Health)

	g := e.Group("/reservations")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id", h.Patch)
	g.DELETE("/:id", h.Delete)
}
