package models

import "time"

// Credit transaction types.
const (
	CreditTxAdd    = "add"
	CreditTxDeduct = "deduct"
)

// Credit transaction sources.
const (
	CreditSourceManual  = "manual"
	CreditSourceRequest = "credit_request"
)

// Credit request lifecycle. Approved and rejected are terminal.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// CreditTransaction is one row of a rider's append-only balance history.
// PreviousBalance and NewBalance record the running balance so drift between
// the ledger and the rider row is detectable after the fact.
type CreditTransaction struct {
	ID               int64     `json:"id" db:"id"`
	RiderPhoneNumber string    `json:"riderPhoneNumber" db:"rider_phone_number"`
	Type             string    `json:"type" db:"type"`
	Amount           float64   `json:"amount" db:"amount"`
	PreviousBalance  float64   `json:"previousBalance" db:"previous_balance"`
	NewBalance       float64   `json:"newBalance" db:"new_balance"`
	AdminEmail       string    `json:"adminEmail" db:"admin_email"`
	Source           string    `json:"source" db:"source"`
	RelatedRequestID string    `json:"relatedRequestId,omitempty" db:"related_request_id"`
	CreatedAt        time.Time `json:"timestamp" db:"created_at"`
}

// CreditRequest is a rider-submitted top-up claim awaiting admin verification.
type CreditRequest struct {
	ID             string     `json:"id" db:"id"`
	PhoneKey       string     `json:"phoneKey" db:"phone_key"`
	GcashReference string     `json:"gcashReference" db:"gcash_reference"`
	Status         string     `json:"status" db:"status"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	ApprovedAmount *float64   `json:"approvedAmount,omitempty" db:"approved_amount"`
	ApprovedAt     *time.Time `json:"approvedAt,omitempty" db:"approved_at"`
	RejectedAt     *time.Time `json:"rejectedAt,omitempty" db:"rejected_at"`
	AdminNote      string     `json:"adminNote,omitempty" db:"admin_note"`
}
