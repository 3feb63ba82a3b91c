package models

import "time"

// Member is a billable dashboard identity, keyed by lowercased email.
type Member struct {
	Email      string     `json:"email"`
	Credits    int64      `json:"credits"`
	Status     string     `json:"status"`
	IsAdmin    bool       `json:"is_admin"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
	Online     bool       `json:"online"`
	CreatedAt  time.Time  `json:"created_at"`
}

// OperationKind names one billable unit of generation work.
type OperationKind string

// Billable operation kinds
const (
	KindImage  OperationKind = "image"
	KindVideo  OperationKind = "video"
	KindVoice  OperationKind = "voice"
	KindStudio OperationKind = "studio"
)

// Member lifecycle statuses
const (
	MemberStatusPending = "pending"
	MemberStatusActive  = "active"
)

// Receipt records a successful charge against a member's balance.
type Receipt struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Kind      string    `json:"kind"`
	Cost      int64     `json:"cost"`
	Refunded  bool      `json:"refunded"`
	ChargedAt time.Time `json:"charged_at"`
}

// TopupRequest is a pending credit purchase awaiting admin approval.
type TopupRequest struct {
	ID         int64     `json:"id"`
	TID        string    `json:"tid"`
	Email      string    `json:"email"`
	Amount     int64     `json:"amount"`
	Price      int64     `json:"price"`
	ReceiptURL string    `json:"receipt_url,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Topup request statuses
const (
	TopupStatusPending  = "pending"
	TopupStatusApproved = "approved"
	TopupStatusRejected = "rejected"
)
