package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/domination/booking-service/internal/availability"
    "github.com/domination/booking-service/internal/engine"
    "github.com/domination/booking-service/internal/model"
)

// dbTimeLayout is the MySQL DATETIME layout.  All timestamps are
// stored in UTC.
const dbTimeLayout = "2006-01-02 15:04:05"

func dbTime(t time.Time) string { return t.UTC().Format(dbTimeLayout) }

// ReservationRepo provides persistence for reservations and their
// lines.  It also implements engine.Store: the admission engine runs
// its check-then-insert sequence through InTx so the conflict queries
// and the final write share one transaction.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

var _ engine.Store = (*ReservationRepo)(nil)

// InTx runs fn inside a transaction.  The transaction commits when fn
// returns nil and rolls back on any error or context cancellation.
// InnoDB deadlocks and lock wait timeouts are reported wrapped in
// engine.ErrStoreContention so the engine can re-run the attempt
// against fresh data.
func (r *ReservationRepo) InTx(ctx context.Context, fn func(tx engine.Tx) error) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(&reservationTx{tx: tx}); err != nil {
        return classifyContention(err)
    }
    if err := tx.Commit(); err != nil {
        return classifyContention(err)
    }
    committed = true
    return nil
}

// classifyContention wraps MySQL error 1213 (deadlock) and 1205 (lock
// wait timeout) in engine.ErrStoreContention; everything else passes
// through unchanged.
func classifyContention(err error) error {
    var me *mysql.MySQLError
    if errors.As(err, &me) && (me.Number == 1213 || me.Number == 1205) {
        return fmt.Errorf("%w: %v", engine.ErrStoreContention, err)
    }
    return err
}

// reservationTx is the engine.Tx implementation over a live *sql.Tx.
type reservationTx struct {
    tx *sql.Tx
}

// LockResources serializes admissions per item.  Each id gets a row in
// resource_locks (created on first use) which is then read FOR UPDATE,
// so a concurrent submission for the same item blocks until this
// transaction ends.  Ids must arrive in a globally consistent order;
// the engine sorts them ascending.
func (t *reservationTx) LockResources(ctx context.Context, itemIDs []uint64) error {
    for _, id := range itemIDs {
        if _, err := t.tx.ExecContext(ctx,
            `INSERT IGNORE INTO resource_locks (item_id) VALUES (?)`, id,
        ); err != nil {
            return err
        }
        var locked uint64
        if err := t.tx.QueryRowContext(ctx,
            `SELECT item_id FROM resource_locks WHERE item_id = ? FOR UPDATE`, id,
        ).Scan(&locked); err != nil {
            return err
        }
    }
    return nil
}

// BookedLines returns the window and quantity of every non-cancelled
// reservation line for the item whose reservation window overlaps
// [w.Start, w.End).  The overlap predicate uses half-open semantics:
// touching endpoints do not count.
func (t *reservationTx) BookedLines(ctx context.Context, itemID uint64, w availability.Window) ([]availability.BookedLine, error) {
    const q = `SELECT r.start_at, r.end_at, l.quantity
               FROM reservation_lines l
               JOIN reservations r ON r.id = l.reservation_id
               WHERE l.item_id = ?
                 AND r.status <> 'CANCELLED'
                 AND r.start_at < ? AND r.end_at > ?`
    rows, err := t.tx.QueryContext(ctx, q, itemID, dbTime(w.End), dbTime(w.Start))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var booked []availability.BookedLine
    for rows.Next() {
        var b availability.BookedLine
        if err := rows.Scan(&b.Window.Start, &b.Window.End, &b.Quantity); err != nil {
            return nil, err
        }
        booked = append(booked, b)
    }
    return booked, rows.Err()
}

// InsertReservation persists the reservation and all of its lines.  It
// populates the generated ids and the DB-assigned creation timestamp
// on the passed value.  Lines are written with a single multi-row
// INSERT and read back so their ids are available to the caller.
func (t *reservationTx) InsertReservation(ctx context.Context, res *model.Reservation) error {
    const q = `INSERT INTO reservations (customer_id, branch_id, provider_id, start_at, end_at, status)
               VALUES (?, ?, ?, ?, ?, ?)`
    result, err := t.tx.ExecContext(ctx, q,
        res.CustomerID, res.BranchID, res.ProviderID,
        dbTime(res.StartAt), dbTime(res.EndAt), res.Status,
    )
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    // Query back the row to populate the DB-default creation timestamp.
    if err := t.tx.QueryRowContext(ctx,
        `SELECT created_at FROM reservations WHERE id = ?`, res.ID,
    ).Scan(&res.CreatedAt); err != nil {
        return err
    }
    if len(res.Lines) == 0 {
        return nil
    }
    query := `INSERT INTO reservation_lines (reservation_id, item_id, quantity, price_cents) VALUES `
    args := make([]interface{}, 0, len(res.Lines)*4)
    for i, ln := range res.Lines {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?)"
        args = append(args, res.ID, ln.ItemID, ln.Quantity, ln.PriceCents)
    }
    if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
        return err
    }
    return t.readLinesBack(ctx, res)
}

// readLinesBack reloads the inserted lines so each carries its
// generated id.
func (t *reservationTx) readLinesBack(ctx context.Context, res *model.Reservation) error {
    const q = `SELECT id, item_id, quantity, price_cents
               FROM reservation_lines WHERE reservation_id = ? ORDER BY id`
    rows, err := t.tx.QueryContext(ctx, q, res.ID)
    if err != nil {
        return err
    }
    defer rows.Close()
    lines := make([]model.ReservationLine, 0, len(res.Lines))
    for rows.Next() {
        ln := model.ReservationLine{ReservationID: res.ID}
        if err := rows.Scan(&ln.ID, &ln.ItemID, &ln.Quantity, &ln.PriceCents); err != nil {
            return err
        }
        lines = append(lines, ln)
    }
    if err := rows.Err(); err != nil {
        return err
    }
    res.Lines = lines
    return nil
}

// GetByIDForCustomer returns a single reservation with its lines,
// restricted to the calling customer.  When no reservation with the
// given id exists for the customer, sql.ErrNoRows is returned.
func (r *ReservationRepo) GetByIDForCustomer(ctx context.Context, reservationID uint64, customerID string) (*model.Reservation, error) {
    const q = `SELECT id, customer_id, branch_id, provider_id, start_at, end_at, status, created_at
               FROM reservations WHERE id = ? AND customer_id = ?`
    var res model.Reservation
    if err := r.db.QueryRowContext(ctx, q, reservationID, customerID).Scan(
        &res.ID, &res.CustomerID, &res.BranchID, &res.ProviderID,
        &res.StartAt, &res.EndAt, &res.Status, &res.CreatedAt,
    ); err != nil {
        return nil, err
    }
    if err := r.attachLines(ctx, []*model.Reservation{&res}); err != nil {
        return nil, err
    }
    return &res, nil
}

// ListByCustomer returns all reservations created by the customer,
// newest first, with their lines populated.
func (r *ReservationRepo) ListByCustomer(ctx context.Context, customerID string) ([]model.Reservation, error) {
    const q = `SELECT id, customer_id, branch_id, provider_id, start_at, end_at, status, created_at
               FROM reservations WHERE customer_id = ? ORDER BY created_at DESC`
    return r.list(ctx, q, customerID)
}

// ListByProvider returns all reservations across the provider's
// branches, newest first, with their lines populated.
func (r *ReservationRepo) ListByProvider(ctx context.Context, providerID uint64) ([]model.Reservation, error) {
    const q = `SELECT id, customer_id, branch_id, provider_id, start_at, end_at, status, created_at
               FROM reservations WHERE provider_id = ? ORDER BY created_at DESC`
    return r.list(ctx, q, providerID)
}

func (r *ReservationRepo) list(ctx context.Context, query string, arg interface{}) ([]model.Reservation, error) {
    rows, err := r.db.QueryContext(ctx, query, arg)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    reservations := make([]model.Reservation, 0)
    for rows.Next() {
        var res model.Reservation
        if err := rows.Scan(
            &res.ID, &res.CustomerID, &res.BranchID, &res.ProviderID,
            &res.StartAt, &res.EndAt, &res.Status, &res.CreatedAt,
        ); err != nil {
            return nil, err
        }
        reservations = append(reservations, res)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if len(reservations) == 0 {
        return reservations, nil
    }
    refs := make([]*model.Reservation, len(reservations))
    for i := range reservations {
        refs[i] = &reservations[i]
    }
    if err := r.attachLines(ctx, refs); err != nil {
        return nil, err
    }
    return reservations, nil
}

// attachLines populates the lines of all given reservations with a
// single IN query, mapping rows back by reservation id.
func (r *ReservationRepo) attachLines(ctx context.Context, reservations []*model.Reservation) error {
    ids := make([]interface{}, 0, len(reservations))
    placeholders := make([]string, 0, len(reservations))
    index := make(map[uint64]*model.Reservation, len(reservations))
    for _, res := range reservations {
        ids = append(ids, res.ID)
        placeholders = append(placeholders, "?")
        index[res.ID] = res
        res.Lines = []model.ReservationLine{}
    }
    query := `SELECT id, reservation_id, item_id, quantity, price_cents
              FROM reservation_lines
              WHERE reservation_id IN (` + strings.Join(placeholders, ",") + `)
              ORDER BY reservation_id, id`
    rows, err := r.db.QueryContext(ctx, query, ids...)
    if err != nil {
        return err
    }
    defer rows.Close()
    for rows.Next() {
        var ln model.ReservationLine
        if err := rows.Scan(&ln.ID, &ln.ReservationID, &ln.ItemID, &ln.Quantity, &ln.PriceCents); err != nil {
            return err
        }
        if res, ok := index[ln.ReservationID]; ok {
            res.Lines = append(res.Lines, ln)
        }
    }
    return rows.Err()
}

// GetStatusForUpdateTx loads a reservation's owner ids and current
// status within a transaction, locking the row.  It returns
// sql.ErrNoRows when the reservation does not exist.
func (r *ReservationRepo) GetStatusForUpdateTx(ctx context.Context, tx *sql.Tx, reservationID uint64) (customerID string, providerID uint64, status string, err error) {
    const q = `SELECT customer_id, provider_id, status FROM reservations WHERE id = ? FOR UPDATE`
    err = tx.QueryRowContext(ctx, q, reservationID).Scan(&customerID, &providerID, &status)
    return
}

// UpdateStatusTx transitions a reservation's status within a
// transaction.  Callers are responsible for guarding the transition;
// committed windows and quantities are never edited in place.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, reservationID uint64, status string) error {
    _, err := tx.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, status, reservationID)
    return err
}

// CancelByCustomer moves the customer's own PENDING reservation to
// CANCELLED.  It returns sql.ErrNoRows when the reservation does not
// exist, ErrForbidden when it belongs to another customer and
// ErrConflict when it is no longer PENDING.
func (r *ReservationRepo) CancelByCustomer(ctx context.Context, reservationID uint64, customerID string) error {
    return r.transition(ctx, reservationID, model.StatusCancelled, func(owner string, _ uint64) bool {
        return owner == customerID
    })
}

// SetStatusByProvider transitions a PENDING reservation on one of the
// provider's branches to the given status.  Error semantics match
// CancelByCustomer, with ownership checked against the provider id
// denormalized onto the reservation.
func (r *ReservationRepo) SetStatusByProvider(ctx context.Context, reservationID uint64, providerID uint64, status string) error {
    return r.transition(ctx, reservationID, status, func(_ string, owner uint64) bool {
        return owner == providerID
    })
}

// transition performs a guarded status change under a row lock.
func (r *ReservationRepo) transition(ctx context.Context, reservationID uint64, target string, owns func(customerID string, providerID uint64) bool) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    customerID, providerID, status, err := r.GetStatusForUpdateTx(ctx, tx, reservationID)
    if err != nil {
        return err
    }
    if !owns(customerID, providerID) {
        return ErrForbidden
    }
    if status != model.StatusPending {
        return ErrConflict
    }
    if err := r.UpdateStatusTx(ctx, tx, reservationID, target); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
