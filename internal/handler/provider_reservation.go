package handler

// Handlers for providers to review the reservations taken against
// their branches and to confirm or cancel pending ones.  Role
// enforcement (PROVIDER) happens in middleware; ownership of the
// individual reservation is verified here inside a transaction.

import (
    "database/sql"
    "errors"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/domination/booking-service/internal/model"
    "github.com/domination/booking-service/internal/repository"
)

// ProviderHandler groups the repository access needed for the
// provider-facing reservation endpoints.
type ProviderHandler struct {
    ReservationRepo *repository.ReservationRepo
}

// NewProviderHandler constructs a ProviderHandler.  The repository
// must be non-nil.
func NewProviderHandler(resRepo *repository.ReservationRepo) *ProviderHandler {
    if resRepo == nil {
        panic("nil repository passed to NewProviderHandler")
    }
    return &ProviderHandler{ReservationRepo: resRepo}
}

// ListReservations handles GET /v1/provider/reservations.  It returns
// every reservation across the provider's branches, newest first.
func (h *ProviderHandler) ListReservations(c echo.Context) error {
    providerID, err := getProviderID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    items, err := h.ReservationRepo.ListByProvider(c.Request().Context(), providerID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// UpdateReservationStatus handles PATCH /v1/provider/reservations/:id.
// It transitions a PENDING reservation to CONFIRMED or CANCELLED.
// Terminal statuses never transition again, so a non-PENDING
// reservation yields 409.  Ownership of the underlying branch is
// checked against the provider id denormalized onto the reservation.
func (h *ProviderHandler) UpdateReservationStatus(c echo.Context) error {
    providerID, err := getProviderID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || resID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var body struct {
        Status string `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    target := strings.ToUpper(strings.TrimSpace(body.Status))
    if target != model.StatusConfirmed && target != model.StatusCancelled {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be CONFIRMED or CANCELLED"})
    }
    err = h.ReservationRepo.SetStatusByProvider(c.Request().Context(), resID, providerID, target)
    switch {
    case err == nil:
        return c.JSON(http.StatusOK, echo.Map{"id": resID, "status": target})
    case errors.Is(err, sql.ErrNoRows):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is no longer pending"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update reservation"})
    }
}
