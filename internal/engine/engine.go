// Package engine implements the reservation admission engine: the
// decision of whether a requested reservation (a time window plus one
// or more item lines) can be accepted, and the atomic persistence of
// the accepted reservation.  The engine talks to the catalog service
// and the reservation store through the small interfaces below so the
// orchestration can be exercised without a database.
package engine

import (
    "context"
    "errors"

    "github.com/domination/booking-service/internal/availability"
    "github.com/domination/booking-service/internal/model"
)

// ErrResourceNotFound is returned by a CatalogGateway when the catalog
// service has no item with the requested id.
var ErrResourceNotFound = errors.New("resource not found")

// ErrStoreContention is returned (possibly wrapped) by a Store when the
// atomic check-and-insert lost a race with a concurrent transaction and
// can safely be re-run against fresh data, e.g. an InnoDB deadlock.
var ErrStoreContention = errors.New("store contention")

// CatalogGateway resolves a rentable item to the facts needed for an
// admission check.  Lookups happen synchronously per reservation line;
// any failure is treated as fatal for the submission (fail-closed).
type CatalogGateway interface {
    ResourceFacts(ctx context.Context, itemID uint64) (*model.ResourceFacts, error)
}

// Store is the durable reservation store.  InTx runs fn inside one
// atomic unit of work: when fn returns nil the work is committed, on
// any error (or context cancellation) it is rolled back with no
// partial writes.
type Store interface {
    InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the store handle visible inside a unit of work.  LockResources
// must serialize concurrent submissions touching the same items so
// that BookedLines followed by InsertReservation behaves as if those
// submissions ran one at a time.
type Tx interface {
    // LockResources takes an exclusive per-item lock for every id, held
    // until the unit of work ends.  Ids are expected sorted ascending.
    LockResources(ctx context.Context, itemIDs []uint64) error
    // BookedLines returns every non-cancelled reservation line for the
    // item whose reservation window overlaps w.
    BookedLines(ctx context.Context, itemID uint64, w availability.Window) ([]availability.BookedLine, error)
    // InsertReservation persists the reservation and all of its lines,
    // populating server-assigned ids and the creation timestamp.
    InsertReservation(ctx context.Context, r *model.Reservation) error
}
