package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OperationType string

const (
	OpDeposit OperationType = "deposit"
	OpCharge  OperationType = "charge"
)

type OperationStatus string

const (
	OpCompleted OperationStatus = "completed"
)

const (
	MethodOnline = "online"
	MethodManual = "manual"
	MethodAuto   = "auto"
)

// Operation is an immutable ledger entry. Seq is assigned by the store at
// commit and orders a user's history.
type Operation struct {
	ID             string          `json:"id"`
	Seq            int64           `json:"seq"`
	UserID         string          `json:"user_id"`
	Type           OperationType   `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"`
	Status         OperationStatus `json:"status"`
	EventID        *string         `json:"event_id,omitempty"`
	IdempotencyKey *string         `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
}
