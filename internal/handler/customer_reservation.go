package handler

import (
    "database/sql"
    "errors"
    "log"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/domination/booking-service/internal/availability"
    "github.com/domination/booking-service/internal/engine"
    "github.com/domination/booking-service/internal/model"
    "github.com/domination/booking-service/internal/queue"
    "github.com/domination/booking-service/internal/repository"
    queue_publisher "github.com/domination/booking-service/internal/service"
)

// CustomerHandler serves the reservation endpoints available to
// customers: submitting a reservation, listing and viewing their own
// reservations, and cancelling a pending one.  JWT authentication and
// role validation are assumed to have been performed by middleware.
type CustomerHandler struct {
    Engine          *engine.Engine              // admission decisions and atomic persistence
    ReservationRepo *repository.ReservationRepo // read access and status transitions
}

// NewCustomerHandler constructs a CustomerHandler.  Both dependencies
// must be non-nil.
func NewCustomerHandler(eng *engine.Engine, resRepo *repository.ReservationRepo) *CustomerHandler {
    if eng == nil || resRepo == nil {
        panic("nil dependency passed to NewCustomerHandler")
    }
    return &CustomerHandler{Engine: eng, ReservationRepo: resRepo}
}

// createReservationRequest is the JSON body for POST /v1/reservations.
// Timestamps are RFC3339.
type createReservationRequest struct {
    BranchID uint64 `json:"branch_id"`
    StartAt  string `json:"start_at"`
    EndAt    string `json:"end_at"`
    Lines    []struct {
        ItemID   uint64 `json:"item_id"`
        Quantity uint32 `json:"quantity"`
    } `json:"lines"`
}

// CreateReservation handles POST /v1/reservations.  The whole request
// is admitted or rejected as one unit: the first line that fails its
// availability check aborts the submission and nothing is persisted.
// On success it responds 201 with the created reservation, including
// server-assigned ids, per-line prices and status PENDING.
func (h *CustomerHandler) CreateReservation(c echo.Context) error {
    customerID, err := getCustomerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body createReservationRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.BranchID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "branch_id is required"})
    }
    start, err := time.Parse(time.RFC3339, body.StartAt)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_at must be an RFC3339 timestamp"})
    }
    end, err := time.Parse(time.RFC3339, body.EndAt)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_at must be an RFC3339 timestamp"})
    }
    lines := make([]engine.LineRequest, 0, len(body.Lines))
    for _, ln := range body.Lines {
        lines = append(lines, engine.LineRequest{ItemID: ln.ItemID, Quantity: ln.Quantity})
    }

    w := availability.Window{Start: start.UTC(), End: end.UTC()}
    res, err := h.Engine.Submit(c.Request().Context(), customerID, body.BranchID, w, lines)
    if err != nil {
        var rej *engine.Rejection
        if errors.As(err, &rej) {
            return c.JSON(rejectionStatus(rej), rejectionBody(rej))
        }
        log.Printf("reservations: submit failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create reservation"})
    }

    // Publish after commit; delivery problems must not undo an admitted
    // reservation, so failures are only logged.
    if err := queue_publisher.PublishReservationCreated(c.Request().Context(), newCreatedEvent(res)); err != nil {
        log.Printf("reservations: publish reservation.created failed: %v", err)
    }
    return c.JSON(http.StatusCreated, res)
}

// rejectionStatus maps a rejection kind to its HTTP status.
func rejectionStatus(rej *engine.Rejection) int {
    switch rej.Kind {
    case engine.KindInvalidRequest:
        return http.StatusBadRequest
    case engine.KindResourceUnavailable:
        return http.StatusNotFound
    case engine.KindScheduleConflict, engine.KindCapacityExceeded:
        return http.StatusConflict
    default:
        return http.StatusInternalServerError
    }
}

// rejectionBody builds the error payload, naming the offending item
// and quantities where the rejection carries them.
func rejectionBody(rej *engine.Rejection) echo.Map {
    body := echo.Map{"error": rej.Message, "kind": rej.Kind}
    if rej.ItemID != 0 {
        body["item_id"] = rej.ItemID
    }
    if rej.Kind == engine.KindCapacityExceeded {
        body["requested"] = rej.Requested
        body["available"] = rej.Available
    }
    return body
}

func newCreatedEvent(res *model.Reservation) queue.ReservationCreatedEvent {
    items := make([]queue.ReservationCreatedItem, 0, len(res.Lines))
    var total uint64
    for _, ln := range res.Lines {
        items = append(items, queue.ReservationCreatedItem{
            ItemID:     ln.ItemID,
            Quantity:   ln.Quantity,
            PriceCents: ln.PriceCents,
        })
        total += ln.PriceCents
    }
    return queue.ReservationCreatedEvent{
        ReservationID:   res.ID,
        CustomerID:      res.CustomerID,
        BranchID:        res.BranchID,
        ProviderID:      res.ProviderID,
        StartAt:         res.StartAt.Format(time.RFC3339),
        EndAt:           res.EndAt.Format(time.RFC3339),
        Status:          res.Status,
        Items:           items,
        TotalPriceCents: total,
        CreatedAt:       res.CreatedAt.UTC().Format(time.RFC3339),
    }
}

// ListReservations handles GET /v1/my/reservations.  It returns all
// reservations created by the current customer, newest first, with
// their lines.  When none exist it returns an empty array.
func (h *CustomerHandler) ListReservations(c echo.Context) error {
    customerID, err := getCustomerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    items, err := h.ReservationRepo.ListByCustomer(c.Request().Context(), customerID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetReservation handles GET /v1/reservations/:id.  Ownership is
// enforced in the query, so a foreign reservation reads as absent.
func (h *CustomerHandler) GetReservation(c echo.Context) error {
    customerID, err := getCustomerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || resID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    res, err := h.ReservationRepo.GetByIDForCustomer(c.Request().Context(), resID, customerID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch reservation"})
    }
    return c.JSON(http.StatusOK, echo.Map{"item": res})
}

// CancelReservation handles DELETE /v1/reservations/:id.  It moves the
// customer's own PENDING reservation to CANCELLED.  Cancellation is a
// status transition only; the reservation row and its lines are kept.
// Returns 404 when the reservation does not exist, 403 when it belongs
// to another customer and 409 when it is no longer PENDING.
func (h *CustomerHandler) CancelReservation(c echo.Context) error {
    customerID, err := getCustomerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || resID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    err = h.ReservationRepo.CancelByCustomer(c.Request().Context(), resID, customerID)
    switch {
    case err == nil:
        return c.NoContent(http.StatusNoContent)
    case errors.Is(err, sql.ErrNoRows):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is no longer pending"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel reservation"})
    }
}
