// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationCreatedItem is one admitted line inside a
// ReservationCreatedEvent.
type ReservationCreatedItem struct {
    ItemID     uint64 `json:"item_id"`
    Quantity   uint32 `json:"quantity"`
    PriceCents uint64 `json:"price_cents"`
}

// ReservationCreatedEvent is published when a reservation has been
// admitted and committed.  It carries enough information for
// downstream consumers to log, notify, or feed analytics without
// querying the primary database.  EventID is assigned by the
// publisher so consumers can deduplicate redeliveries.
type ReservationCreatedEvent struct {
    EventID         string                   `json:"event_id"`
    ReservationID   uint64                   `json:"reservation_id"`
    CustomerID      string                   `json:"customer_id"`
    BranchID        uint64                   `json:"branch_id"`
    ProviderID      uint64                   `json:"provider_id"`
    StartAt         string                   `json:"start_at"`
    EndAt           string                   `json:"end_at"`
    Status          string                   `json:"status"`
    Items           []ReservationCreatedItem `json:"items"`
    TotalPriceCents uint64                   `json:"total_price_cents"`
    CreatedAt       string                   `json:"created_at"`
}
