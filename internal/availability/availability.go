// Package availability holds the pure admission decisions for the two
// item sharing disciplines.  It performs no I/O: callers load the
// conflicting lines for an item (inside whatever locking scope they
// need) and pass them in, so a decision is reproducible for a given
// input set.
package availability

import (
    "time"

    "github.com/domination/booking-service/internal/model"
)

// Window is a half-open time interval [Start, End).  All comparisons
// assume UTC.
type Window struct {
    Start time.Time
    End   time.Time
}

// Overlaps reports whether two half-open windows share at least one
// instant: s1 < e2 && s2 < e1.  Touching endpoints do not overlap.
func (w Window) Overlaps(o Window) bool {
    return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Valid reports whether the window is well-formed (strictly positive
// duration).
func (w Window) Valid() bool {
    return w.Start.Before(w.End)
}

// BookedLine is an existing, non-cancelled reservation line for the
// item under check: the owning reservation's window plus the booked
// quantity.
type BookedLine struct {
    Window   Window
    Quantity uint32
}

// Decision is the outcome of an availability check for one item.
//
// For a rejected pooled check, Requested and Available carry the
// quantities involved so callers can report them.  Available may be
// negative when concurrent admissions already consumed the pool past
// a chosen window.
type Decision struct {
    Admit     bool
    ItemID    uint64
    Requested int64
    Available int64
}

// CheckExclusive decides admission for an EXCLUSIVE item: any
// overlapping existing line is a hard conflict.  No tie-break is
// applied; the first overlap found rejects.
func CheckExclusive(itemID uint64, w Window, existing []BookedLine) Decision {
    for _, b := range existing {
        if w.Overlaps(b.Window) {
            return Decision{Admit: false, ItemID: itemID, Requested: 1, Available: 0}
        }
    }
    return Decision{Admit: true, ItemID: itemID}
}

// CheckPooled decides admission for a POOLED item with the given
// capacity.  The reserved quantity is the sum over all existing lines
// whose window overlaps the requested one; a line counts its full
// quantity whenever the windows share any instant.  Admission
// requires capacity - reserved >= requested.
func CheckPooled(itemID uint64, w Window, requested, capacity uint32, existing []BookedLine) Decision {
    var reserved int64
    for _, b := range existing {
        if w.Overlaps(b.Window) {
            reserved += int64(b.Quantity)
        }
    }
    available := int64(capacity) - reserved
    if available < int64(requested) {
        return Decision{Admit: false, ItemID: itemID, Requested: int64(requested), Available: available}
    }
    return Decision{Admit: true, ItemID: itemID, Requested: int64(requested), Available: available}
}

// Check dispatches to the discipline-specific check based on the
// item's rental mode.  Unknown modes reject, mirroring the fail-closed
// stance toward catalog data.
func Check(facts *model.ResourceFacts, w Window, requested uint32, existing []BookedLine) Decision {
    switch facts.RentalMode {
    case model.ModeExclusive:
        return CheckExclusive(facts.ItemID, w, existing)
    case model.ModePooled:
        return CheckPooled(facts.ItemID, w, requested, facts.Capacity, existing)
    default:
        return Decision{Admit: false, ItemID: facts.ItemID}
    }
}
