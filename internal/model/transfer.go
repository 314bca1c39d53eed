package model

import "time"

// Transfer records one ownership movement of a coin between accounts.
// A transfer starts in the initial status and is closed exactly once,
// either approved (ownership reassigned) or declined.
type Transfer struct {
	ID            int64      `json:"id"`
	SourceID      int64      `json:"source_id"`
	DestinationID int64      `json:"destination_id"`
	CreatorID     int64      `json:"creator_id"`
	CoinID        int64      `json:"coin_id"`
	Comment       string     `json:"comment,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// Transfer statuses. Initial is the only open status; the other two are
// terminal.
const (
	TransferStatusInitial  = "initial"
	TransferStatusApproved = "approved"
	TransferStatusDeclined = "declined"
)

// Closed reports whether the transfer has reached a terminal status.
func (t *Transfer) Closed() bool {
	return t.Status != TransferStatusInitial
}
