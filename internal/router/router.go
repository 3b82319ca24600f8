package router // router wires HTTP routes to their handlers

import (
    "github.com/labstack/echo/v4"

    "github.com/domination/booking-service/internal/handler"
    "github.com/domination/booking-service/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently this is only the health check used by load balancers and
// monitoring.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterReservations registers the customer-facing reservation
// endpoints under /v1.  All of them require a valid access token with
// the USER role.
func RegisterReservations(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("USER"))

    // Submission interface: admit or reject a reservation request as
    // one all-or-nothing unit.
    g.POST("/reservations", h.CreateReservation)
    g.GET("/my/reservations", h.ListReservations)
    g.GET("/reservations/:id", h.GetReservation)
    g.DELETE("/reservations/:id", h.CancelReservation)
}

// RegisterProvider registers the provider-facing reservation
// endpoints.  Providers review reservations taken against their
// branches and confirm or cancel pending ones.
func RegisterProvider(e *echo.Echo, h *handler.ProviderHandler, jwtSecret string) {
    g := e.Group("/v1/provider")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("PROVIDER"))

    g.GET("/reservations", h.ListReservations)
    g.PATCH("/reservations/:id", h.UpdateReservationStatus)
}
