package domain

import (
	"time"

	"github.com/google/uuid"
)

type GrantStatus string

const (
	GrantActive       GrantStatus = "active"
	GrantUsed         GrantStatus = "used"
	GrantExpired      GrantStatus = "expired"
	GrantRefundedVoid GrantStatus = "refunded_void"
)

// CreditGrant is a batch of credits issued at one time. Grants are never deleted;
// they are driven to amount 0 and status used.
type CreditGrant struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	UserID    uuid.UUID   `db:"user_id" json:"user_id"`
	Amount    int         `db:"amount" json:"amount"`
	Status    GrantStatus `db:"status" json:"status"`
	IssuedAt  time.Time   `db:"issued_at" json:"issued_at"`
	ExpiresAt *time.Time  `db:"expires_at" json:"expires_at,omitempty"`
}

// ExpiredAt reports whether the grant has passed its expiry at asOf.
func (g *CreditGrant) ExpiredAt(asOf time.Time) bool {
	return g.ExpiresAt != nil && !g.ExpiresAt.After(asOf)
}

// Spendable is true when the grant counts towards the balance at asOf.
func (g *CreditGrant) Spendable(asOf time.Time) bool {
	return g.Status == GrantActive && g.Amount > 0 && !g.ExpiredAt(asOf)
}

type TransactionType string

const (
	TxBooking  TransactionType = "booking"
	TxRefund   TransactionType = "refund"
	TxPurchase TransactionType = "purchase"
)

// CreditTransaction is an append-only audit row. Negative amounts are debits.
type CreditTransaction struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      uuid.UUID       `db:"user_id" json:"user_id"`
	BookingID   *uuid.UUID      `db:"booking_id" json:"booking_id,omitempty"`
	GrantID     uuid.UUID       `db:"grant_id" json:"grant_id"`
	Amount      int             `db:"amount" json:"amount"`
	Type        TransactionType `db:"type" json:"type"`
	Description string          `db:"description" json:"description"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
