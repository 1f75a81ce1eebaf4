package model

import (
	"time"

	"github.com/google/uuid"
)

type ReceivableStatus string

const (
	ReceivableStatusPending ReceivableStatus = "pending"
	ReceivableStatusPaid    ReceivableStatus = "paid"
)

// Receivable is one entry of a signed contract's financial schedule:
// sequence 1 is the down payment when there is one, the rest are the
// monthly installments.
type Receivable struct {
	ID             uuid.UUID        `json:"id"`
	ContractID     uuid.UUID        `json:"contract_id"`
	SequenceNumber int              `json:"sequence_number"`
	TotalCount     int              `json:"total_count"`
	Amount         float64          `json:"amount"`
	DueDate        time.Time        `json:"due_date"`
	Description    string           `json:"description"`
	PaymentMethod  string           `json:"payment_method"`
	Status         ReceivableStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
}
