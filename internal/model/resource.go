package model

// Rental modes (sharing disciplines) for a rentable item.  An
// EXCLUSIVE item admits at most one active reservation at any
// instant; a POOLED item admits concurrent reservations as long as
// the summed quantity stays within its capacity.
const (
    ModeExclusive = "EXCLUSIVE"
    ModePooled    = "POOLED"
)

// ResourceFacts is the read-only projection of a rentable item that
// the catalog service returns for an admission check.  It is fetched
// per reservation line and never persisted by this service.
//
// Fields:
//  ItemID         – item identifier in the catalog.
//  BranchID       – branch the item belongs to.
//  ProviderID     – provider owning the branch.
//  Name           – display name of the item.
//  RentalMode     – EXCLUSIVE or POOLED.
//  Capacity       – pool size; meaningful only for POOLED items.
//  Active         – whether the item can currently be reserved.
//  UnitPriceCents – price per unit and reservation, in cents.
type ResourceFacts struct {
    ItemID         uint64 `json:"id"`
    BranchID       uint64 `json:"branch_id"`
    ProviderID     uint64 `json:"provider_id"`
    Name           string `json:"name"`
    RentalMode     string `json:"rental_mode"`
    Capacity       uint32 `json:"quantity_total"`
    Active         bool   `json:"active"`
    UnitPriceCents uint64 `json:"unit_price_cents"`
}
