package engine

// Rejection kinds.  Every rejected submission is classified into
// exactly one of these; handlers translate them into HTTP statuses.
const (
    KindInvalidRequest      = "INVALID_REQUEST"
    KindResourceUnavailable = "RESOURCE_UNAVAILABLE"
    KindScheduleConflict    = "SCHEDULE_CONFLICT"
    KindCapacityExceeded    = "CAPACITY_EXCEEDED"
)

// Rejection is a structured, permanent refusal of a submission.  It is
// returned as an error so it flows through the transaction scope, but
// it is a business outcome, not a fault: a rejected submission must be
// changed by the caller, not retried.
//
// ItemID names the offending line's item when the rejection is
// line-specific (zero for request-level rejections).  Requested and
// Available are populated for capacity rejections.
type Rejection struct {
    Kind      string `json:"kind"`
    ItemID    uint64 `json:"item_id,omitempty"`
    Message   string `json:"message"`
    Requested int64  `json:"requested,omitempty"`
    Available int64  `json:"available,omitempty"`
}

// Error implements the error interface.
func (r *Rejection) Error() string { return r.Message }

func invalidRequest(msg string) *Rejection {
    return &Rejection{Kind: KindInvalidRequest, Message: msg}
}

func resourceUnavailable(itemID uint64, msg string) *Rejection {
    return &Rejection{Kind: KindResourceUnavailable, ItemID: itemID, Message: msg}
}
