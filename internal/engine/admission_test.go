package engine

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "github.com/domination/booking-service/internal/availability"
    "github.com/domination/booking-service/internal/model"
)

// fakeCatalog serves facts from a fixed map and reports unknown items
// the way the HTTP client does.
type fakeCatalog struct {
    items map[uint64]*model.ResourceFacts
    err   error
}

func (c *fakeCatalog) ResourceFacts(_ context.Context, itemID uint64) (*model.ResourceFacts, error) {
    if c.err != nil {
        return nil, c.err
    }
    f, ok := c.items[itemID]
    if !ok {
        return nil, fmt.Errorf("item %d: %w", itemID, ErrResourceNotFound)
    }
    cp := *f
    return &cp, nil
}

// fakeStore keeps admitted reservations in memory and serializes
// transactions with a single mutex, which is stricter than the
// per-item locking the real store does but sound for these tests.
type fakeStore struct {
    mu     sync.Mutex
    nextID uint64
    saved  []*model.Reservation

    // failuresLeft injects transient contention into that many
    // transactions before letting them through.
    failuresLeft int
    lockCalls    [][]uint64
}

func (s *fakeStore) InTx(_ context.Context, fn func(tx Tx) error) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.failuresLeft > 0 {
        s.failuresLeft--
        return fmt.Errorf("fake deadlock: %w", ErrStoreContention)
    }
    return fn(&fakeTx{store: s})
}

type fakeTx struct {
    store *fakeStore
}

func (t *fakeTx) LockResources(_ context.Context, itemIDs []uint64) error {
    cp := make([]uint64, len(itemIDs))
    copy(cp, itemIDs)
    t.store.lockCalls = append(t.store.lockCalls, cp)
    return nil
}

func (t *fakeTx) BookedLines(_ context.Context, itemID uint64, w availability.Window) ([]availability.BookedLine, error) {
    var out []availability.BookedLine
    for _, r := range t.store.saved {
        if r.Status == model.StatusCancelled {
            continue
        }
        rw := availability.Window{Start: r.StartAt, End: r.EndAt}
        if !rw.Overlaps(w) {
            continue
        }
        for _, ln := range r.Lines {
            if ln.ItemID == itemID {
                out = append(out, availability.BookedLine{Window: rw, Quantity: ln.Quantity})
            }
        }
    }
    return out, nil
}

func (t *fakeTx) InsertReservation(_ context.Context, r *model.Reservation) error {
    t.store.nextID++
    r.ID = t.store.nextID
    r.CreatedAt = time.Now().UTC()
    cp := *r
    cp.Lines = append([]model.ReservationLine(nil), r.Lines...)
    t.store.saved = append(t.store.saved, &cp)
    return nil
}

func testFacts() map[uint64]*model.ResourceFacts {
    return map[uint64]*model.ResourceFacts{
        1: {ItemID: 1, BranchID: 10, ProviderID: 100, Name: "court A", RentalMode: model.ModeExclusive, Capacity: 1, Active: true, UnitPriceCents: 2500},
        2: {ItemID: 2, BranchID: 10, ProviderID: 100, Name: "rackets", RentalMode: model.ModePooled, Capacity: 5, Active: true, UnitPriceCents: 300},
        3: {ItemID: 3, BranchID: 10, ProviderID: 100, Name: "retired court", RentalMode: model.ModeExclusive, Capacity: 1, Active: false, UnitPriceCents: 2500},
    }
}

func newTestEngine(t *testing.T, store *fakeStore, catalog *fakeCatalog) *Engine {
    t.Helper()
    e := New(store, catalog)
    // Pin the clock so "future" windows stay deterministic.
    e.now = func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) }
    return e
}

func futureWindow(startHour, endHour int) availability.Window {
    day := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
    return availability.Window{
        Start: day.Add(time.Duration(startHour) * time.Hour),
        End:   day.Add(time.Duration(endHour) * time.Hour),
    }
}

func requireRejection(t *testing.T, err error, kind string) *Rejection {
    t.Helper()
    var rej *Rejection
    require.ErrorAs(t, err, &rej)
    require.Equal(t, kind, rej.Kind)
    return rej
}

func TestSubmitAdmitsAndPrices(t *testing.T) {
    store := &fakeStore{}
    eng := newTestEngine(t, store, &fakeCatalog{items: testFacts()})

    res, err := eng.Submit(context.Background(), "cust-1", 10, futureWindow(10, 12), []LineRequest{
        {ItemID: 1, Quantity: 1},
        {ItemID: 2, Quantity: 3},
    })
    require.NoError(t, err)
    require.NotZero(t, res.ID)
    require.Equal(t, model.StatusPending, res.Status)
    require.Equal(t, "cust-1", res.CustomerID)
    require.Equal(t, uint64(100), res.ProviderID)
    require.Len(t, res.Lines, 2)
    require.Equal(t, uint64(2500), res.Lines[0].PriceCents)
    require.Equal(t, uint64(900), res.Lines[1].PriceCents)
}

func TestSubmitValidation(t *testing.T) {
    store := &fakeStore{}
    eng := newTestEngine(t, store, &fakeCatalog{items: testFacts()})
    ctx := context.Background()
    w := futureWindow(10, 12)

    _, err := eng.Submit(ctx, "cust-1", 10, availability.Window{Start: w.End, End: w.Start}, []LineRequest{{ItemID: 1, Quantity: 1}})
    requireRejection(t, err, KindInvalidRequest)

    past := availability.Window{
        Start: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
        End:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
    }
    _, err = eng.Submit(ctx, "cust-1", 10, past, []LineRequest{{ItemID: 1, Quantity: 1}})
    requireRejection(t, err, KindInvalidRequest)

    _, err = eng.Submit(ctx, "cust-1", 10, w, nil)
    requireRejection(t, err, KindInvalidRequest)

    _, err = eng.Submit(ctx, "cust-1", 10, w, []LineRequest{{ItemID: 1, Quantity: 0}})
    rej := requireRejection(t, err, KindInvalidRequest)
    require.Equal(t, uint64(1), rej.ItemID)

    require.Empty(t, store.saved)
}

func TestSubmitCatalogRejections(t *testing.T) {
    store := &fakeStore{}
    eng := newTestEngine(t, store, &fakeCatalog{items: testFacts()})
    ctx := context.Background()
    w := futureWindow(10, 12)

    _, err := eng.Submit(ctx, "cust-1", 10, w, []LineRequest{{ItemID: 99, Quantity: 1}})
    rej := requireRejection(t, err, KindResourceUnavailable)
    require.Equal(t, uint64(99), rej.ItemID)

    _, err = eng.Submit(ctx, "cust-1", 10, w, []LineRequest{{ItemID: 3, Quantity: 1}})
    requireRejection(t, err, KindResourceUnavailable)

    require.Empty(t, store.saved)
}

func TestSubmitCatalogTransportFault(t *testing.T) {
    store := &fakeStore{}
    eng := newTestEngine(t, store, &fakeCatalog{err: errors.New("connection refused")})

    _, err := eng.Submit(context.Background(), "cust-1", 10, futureWindow(10, 12), []LineRequest{{ItemID: 1, Quantity: 1}})
    require.Error(t, err)
    var rej *Rejection
    require.False(t, errors.As(err, &rej))
    require.Empty(t, store.saved)
}

func TestSubmitExclusiveConflict(t *testing.T) {
    store := &fakeStore{}
    eng := newTestEngine(t, store, &fakeCatalog{items: testFacts()})
    ctx := context.Background()

    _, err := eng.Submit(ctx, "cust-1", 10, futureWindow(10, 12), []LineRequest{{ItemID: 1, Quantity: 1}})
    require.NoError(t, err)

    _, err = eng.Submit(ctx, "cust-2", 10, futureWindow(11, 13), []LineRequest{{ItemID: 1, Quantity: 1}})
    rej := requireRejection(t, err, KindScheduleConflict)
    require.Equal(t, uint64(1), rej.ItemID)

    // A window that only touches the existing one is admitted.
    _, err = eng.Submit(ctx, "cust-2", 10, futureWindow(12, 14), []LineRequest{{ItemID: 1, Quantity: 1}})
    require.NoError(t, err)
    require.Len(t, store.saved, 2)
}

func TestSubmitPooledCapacity(t *testing.T) {
    store := &fakeStore{}
    eng := newTestEngine(t, store, &fakeCatalog{items: testFacts()})
    ctx := context.Background()

    _, err := eng.Submit(ctx, "cust-1", 10, futureWindow(10, 12), []LineRequest{{ItemID: 2, Quantity: 4}})
    require.NoError(t, err)

    _, err = eng.Submit(ctx, "cust-2", 10, futureWindow(11, 13), []LineRequest{{ItemID: 2, Quantity: 2}})
    rej := requireRejection(t, err, KindCapacityExceeded)
    require.Equal(t, int64(2), rej.Requested)
    require.Equal(t, int64(1), rej.Available)

    // The last unit is still grantable.
    _, err = eng.Submit(ctx, "cust-2", 10, futureWindow(11, 13), []LineRequest{{ItemID: 2, Quantity: 1}})
    require.NoError(t, err)
}

func TestSubmitAllOrNothing(t *testing.T) {
    store := &fakeStore{}
    eng := newTestEngine(t, store, &fakeCatalog{items: testFacts()})
    ctx := context.Background()

    // Occupy the exclusive court.
    _, err := eng.Submit(ctx, "cust-1", 10, futureWindow(10, 12), []LineRequest{{ItemID: 1, Quantity: 1}})
    require.NoError(t, err)

    // A two-line submission whose second line conflicts must not
    // admit the pooled line either.
    _, err = eng.Submit(ctx, "cust-2", 10, futureWindow(10, 12), []LineRequest{
        {ItemID: 2, Quantity: 2},
        {ItemID: 1, Quantity: 1},
    })
    requireRejection(t, err, KindScheduleConflict)
    require.Len(t, store.saved, 1)

    booked, err := (&fakeTx{store: store}).BookedLines(ctx, 2, futureWindow(10, 12))
    require.NoError(t, err)
    require.Empty(t, booked)
}

func TestSubmitLockOrdering(t *testing.T) {
    store := &fakeStore{}
    eng := newTestEngine(t, store, &fakeCatalog{items: testFacts()})

    _, err := eng.Submit(context.Background(), "cust-1", 10, futureWindow(10, 12), []LineRequest{
        {ItemID: 2, Quantity: 1},
        {ItemID: 1, Quantity: 1},
        {ItemID: 2, Quantity: 1},
    })
    require.NoError(t, err)
    require.Len(t, store.lockCalls, 1)
    require.Equal(t, []uint64{1, 2}, store.lockCalls[0])
}

func TestSubmitRetriesContention(t *testing.T) {
    store := &fakeStore{failuresLeft: 2}
    eng := newTestEngine(t, store, &fakeCatalog{items: testFacts()})

    res, err := eng.Submit(context.Background(), "cust-1", 10, futureWindow(10, 12), []LineRequest{{ItemID: 1, Quantity: 1}})
    require.NoError(t, err)
    require.NotZero(t, res.ID)
    require.Zero(t, store.failuresLeft)
}

func TestSubmitGivesUpAfterRepeatedContention(t *testing.T) {
    store := &fakeStore{failuresLeft: maxAttempts}
    eng := newTestEngine(t, store, &fakeCatalog{items: testFacts()})

    _, err := eng.Submit(context.Background(), "cust-1", 10, futureWindow(10, 12), []LineRequest{{ItemID: 1, Quantity: 1}})
    require.ErrorIs(t, err, ErrStoreContention)
    require.Empty(t, store.saved)
}

func TestSubmitConcurrentLastUnit(t *testing.T) {
    store := &fakeStore{}
    eng := newTestEngine(t, store, &fakeCatalog{items: testFacts()})
    w := futureWindow(10, 12)

    // Five units exist; ten goroutines race for three each.  At most
    // one can win.
    var wg sync.WaitGroup
    admitted := make(chan *model.Reservation, 10)
    for i := 0; i < 10; i++ {
        wg.Add(1)
        go func(n int) {
            defer wg.Done()
            res, err := eng.Submit(context.Background(), fmt.Sprintf("cust-%d", n), 10, w, []LineRequest{{ItemID: 2, Quantity: 3}})
            if err == nil {
                admitted <- res
            }
        }(i)
    }
    wg.Wait()
    close(admitted)

    var wins int
    for range admitted {
        wins++
    }
    require.Equal(t, 1, wins)
    require.Len(t, store.saved, 1)
}
