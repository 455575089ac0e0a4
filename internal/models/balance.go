package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the current monetary value held for one user. Mutations go
// through the ledger store only.
type Balance struct {
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	UpdatedAt time.Time       `json:"updated_at"`
}
