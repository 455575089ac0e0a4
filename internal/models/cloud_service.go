package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ServiceStatus string

const (
	ServiceActive    ServiceStatus = "active"
	ServiceSuspended ServiceStatus = "suspended"
)

// CloudService is a billable resource charged PricePerDay by the billing pass.
type CloudService struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	PricePerDay decimal.Decimal `json:"price_per_day"`
	Status      ServiceStatus   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}
