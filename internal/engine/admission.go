package engine

import (
    "context"
    "errors"
    "fmt"
    "sort"
    "time"

    "github.com/domination/booking-service/internal/availability"
    "github.com/domination/booking-service/internal/model"
)

// maxAttempts bounds how often a submission is re-run after losing a
// race inside the store.  Every attempt re-derives the conflicting
// lines from scratch; a Rejection is never retried.
const maxAttempts = 3

// LineRequest is one requested reservation line: an item and how many
// units of it.
type LineRequest struct {
    ItemID   uint64
    Quantity uint32
}

// Engine decides reservation admissions.  It validates the request
// shape, resolves catalog facts per line, and runs the availability
// checks and the insert inside a single store transaction so that
// concurrent submissions for the same item serialize.
type Engine struct {
    store   Store
    catalog CatalogGateway
    now     func() time.Time
}

// New constructs an Engine.  Both dependencies must be non-nil.
func New(store Store, catalog CatalogGateway) *Engine {
    if store == nil || catalog == nil {
        panic("nil dependency passed to engine.New")
    }
    return &Engine{store: store, catalog: catalog, now: time.Now}
}

// Submit admits or rejects a reservation request as one all-or-nothing
// unit.  On success the returned reservation carries server-assigned
// ids, computed line prices, status PENDING and the creation
// timestamp.  On rejection the error is a *Rejection naming the reason
// and, where applicable, the offending item; no reservation state is
// written on any rejection path.
//
// Catalog facts are fetched before the transaction opens so that the
// critical section never spans a network call; the conflict data is
// re-read fresh inside the transaction, under per-item locks.
func (e *Engine) Submit(ctx context.Context, customerID string, branchID uint64, w availability.Window, lines []LineRequest) (*model.Reservation, error) {
    now := e.now().UTC()
    w.Start, w.End = w.Start.UTC(), w.End.UTC()
    if !w.Valid() {
        return nil, invalidRequest("start_at must be before end_at")
    }
    if !w.Start.After(now) {
        return nil, invalidRequest("start_at must be in the future")
    }
    if len(lines) == 0 {
        return nil, invalidRequest("at least one reservation line is required")
    }
    for _, ln := range lines {
        if ln.Quantity == 0 {
            return nil, &Rejection{
                Kind:    KindInvalidRequest,
                ItemID:  ln.ItemID,
                Message: fmt.Sprintf("quantity for item %d must be positive", ln.ItemID),
            }
        }
    }

    facts, err := e.resolveFacts(ctx, lines)
    if err != nil {
        return nil, err
    }
    // Provider ownership is denormalized from the branch at creation
    // time; every line of a submission belongs to the same branch.
    providerID := facts[0].ProviderID

    lockIDs := lockOrder(lines)
    for attempt := 1; ; attempt++ {
        created, err := e.checkAndInsert(ctx, customerID, branchID, providerID, w, lines, facts, lockIDs)
        if err == nil {
            return created, nil
        }
        var rej *Rejection
        if errors.As(err, &rej) {
            return nil, rej
        }
        if errors.Is(err, ErrStoreContention) && attempt < maxAttempts {
            continue
        }
        return nil, fmt.Errorf("admission transaction: %w", err)
    }
}

// resolveFacts loads catalog facts for every line, rejecting the whole
// submission when any item is unknown, inactive or of an unsupported
// rental mode.  A catalog transport fault aborts fail-closed with an
// unclassified error.
func (e *Engine) resolveFacts(ctx context.Context, lines []LineRequest) ([]*model.ResourceFacts, error) {
    facts := make([]*model.ResourceFacts, len(lines))
    for i, ln := range lines {
        f, err := e.catalog.ResourceFacts(ctx, ln.ItemID)
        if errors.Is(err, ErrResourceNotFound) {
            return nil, resourceUnavailable(ln.ItemID, fmt.Sprintf("item %d does not exist", ln.ItemID))
        }
        if err != nil {
            return nil, fmt.Errorf("catalog lookup for item %d: %w", ln.ItemID, err)
        }
        if !f.Active {
            return nil, resourceUnavailable(ln.ItemID, fmt.Sprintf("item %d is not active", ln.ItemID))
        }
        if f.RentalMode != model.ModeExclusive && f.RentalMode != model.ModePooled {
            return nil, resourceUnavailable(ln.ItemID, fmt.Sprintf("item %d has unsupported rental mode %q", ln.ItemID, f.RentalMode))
        }
        facts[i] = f
    }
    return facts, nil
}

// checkAndInsert runs one attempt of the locked check-then-insert
// sequence.  The first failing line aborts the transaction with a
// discipline-specific rejection.
func (e *Engine) checkAndInsert(ctx context.Context, customerID string, branchID, providerID uint64, w availability.Window, lines []LineRequest, facts []*model.ResourceFacts, lockIDs []uint64) (*model.Reservation, error) {
    var created *model.Reservation
    err := e.store.InTx(ctx, func(tx Tx) error {
        if err := tx.LockResources(ctx, lockIDs); err != nil {
            return err
        }
        resLines := make([]model.ReservationLine, 0, len(lines))
        for i, ln := range lines {
            booked, err := tx.BookedLines(ctx, ln.ItemID, w)
            if err != nil {
                return err
            }
            d := availability.Check(facts[i], w, ln.Quantity, booked)
            if !d.Admit {
                return rejectLine(facts[i], w, d)
            }
            resLines = append(resLines, model.ReservationLine{
                ItemID:     ln.ItemID,
                Quantity:   ln.Quantity,
                PriceCents: facts[i].UnitPriceCents * uint64(ln.Quantity),
            })
        }
        r := &model.Reservation{
            CustomerID: customerID,
            BranchID:   branchID,
            ProviderID: providerID,
            StartAt:    w.Start,
            EndAt:      w.End,
            Status:     model.StatusPending,
            Lines:      resLines,
        }
        if err := tx.InsertReservation(ctx, r); err != nil {
            return err
        }
        created = r
        return nil
    })
    if err != nil {
        return nil, err
    }
    return created, nil
}

// rejectLine maps a negative availability decision to the rejection
// for the item's discipline.
func rejectLine(f *model.ResourceFacts, w availability.Window, d availability.Decision) *Rejection {
    if f.RentalMode == model.ModeExclusive {
        return &Rejection{
            Kind:   KindScheduleConflict,
            ItemID: f.ItemID,
            Message: fmt.Sprintf("item %d is already reserved between %s and %s",
                f.ItemID, w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339)),
        }
    }
    return &Rejection{
        Kind:      KindCapacityExceeded,
        ItemID:    f.ItemID,
        Requested: d.Requested,
        Available: d.Available,
        Message: fmt.Sprintf("insufficient capacity for item %d: requested %d, available %d",
            f.ItemID, d.Requested, d.Available),
    }
}

// lockOrder returns the distinct item ids of the request sorted
// ascending.  Taking per-item locks in a global order keeps two
// multi-line submissions from deadlocking against each other.
func lockOrder(lines []LineRequest) []uint64 {
    seen := make(map[uint64]struct{}, len(lines))
    ids := make([]uint64, 0, len(lines))
    for _, ln := range lines {
        if _, ok := seen[ln.ItemID]; !ok {
            seen[ln.ItemID] = struct{}{}
            ids = append(ids, ln.ItemID)
        }
    }
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
    return ids
}
