package model

import "time"

// Reservation statuses.  A reservation is created as PENDING and may
// later move to CONFIRMED or CANCELLED; there is no transition back
// out of a terminal status.
const (
    StatusPending   = "PENDING"
    StatusConfirmed = "CONFIRMED"
    StatusCancelled = "CANCELLED"
)

// Reservation records a customer's booking of one or more rentable
// items at a branch over a half-open time window [StartAt, EndAt).
// The window and lines are fixed at creation; only the status changes
// afterwards.
//
// Fields:
//  ID         – primary key identifier.
//  CustomerID – customer who made the reservation (subject from the JWT).
//  BranchID   – branch the reserved items belong to.
//  ProviderID – provider owning the branch, denormalized at creation.
//  StartAt    – start of the reserved window (inclusive, UTC).
//  EndAt      – end of the reserved window (exclusive, UTC).
//  Status     – PENDING, CONFIRMED or CANCELLED.
//  CreatedAt  – creation timestamp.
//  Lines      – items reserved under this reservation.
type Reservation struct {
    ID         uint64            `json:"id"`          // reservations.id
    CustomerID string            `json:"customer_id"` // reservations.customer_id
    BranchID   uint64            `json:"branch_id"`   // reservations.branch_id
    ProviderID uint64            `json:"provider_id"` // reservations.provider_id
    StartAt    time.Time         `json:"start_at"`    // reservations.start_at
    EndAt      time.Time         `json:"end_at"`      // reservations.end_at
    Status     string            `json:"status"`      // reservations.status
    CreatedAt  time.Time         `json:"created_at"`  // reservations.created_at
    Lines      []ReservationLine `json:"lines"`
}

// ReservationLine is a single item booked under a reservation.  Lines
// exist only as children of exactly one reservation and are removed
// with it (FK cascade).
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – reference to the owning reservation.
//  ItemID        – rentable item from the catalog service.
//  Quantity      – units requested; semantically 1 for exclusive items.
//  PriceCents    – unit price × quantity, in cents.
type ReservationLine struct {
    ID            uint64 `json:"id"`          // reservation_lines.id
    ReservationID uint64 `json:"-"`           // reservation_lines.reservation_id
    ItemID        uint64 `json:"item_id"`     // reservation_lines.item_id
    Quantity      uint32 `json:"quantity"`    // reservation_lines.quantity
    PriceCents    uint64 `json:"price_cents"` // reservation_lines.price_cents
}
