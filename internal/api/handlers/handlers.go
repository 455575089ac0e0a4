package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/models"
	"github.com/nordlane/cloudcrm/internal/services"
)

const maxBodyBytes = 1 << 20

// Handler carries everything the HTTP endpoints call into.
type Handler struct {
	Users        *services.UserService
	Ledger       *services.LedgerService
	Webhook      *services.WebhookService
	Billing      *services.BillingTrigger
	Services     *services.CloudServiceService
	SecureCookie bool
	Log          *slog.Logger
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return common.ErrBadRequest
		}
		return errors.Join(common.ErrBadRequest, err)
	}
	return nil
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

type balanceResp struct {
	UserID    string    `json:"user_id"`
	Amount    string    `json:"amount"`
	Exists    bool      `json:"exists"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

func toBalanceResp(b models.Balance, exists bool) balanceResp {
	return balanceResp{UserID: b.UserID, Amount: b.Amount.StringFixed(2), Exists: exists, UpdatedAt: b.UpdatedAt}
}

type operationResp struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Type      string    `json:"type"`
	Amount    string    `json:"amount"`
	Method    string    `json:"method"`
	Status    string    `json:"status"`
	EventID   *string   `json:"event_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toOperationResp(op models.Operation) operationResp {
	return operationResp{
		ID:        op.ID,
		Seq:       op.Seq,
		Type:      string(op.Type),
		Amount:    op.Amount.StringFixed(2),
		Method:    op.Method,
		Status:    string(op.Status),
		EventID:   op.EventID,
		CreatedAt: op.CreatedAt,
	}
}

type serviceResp struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	PricePerDay string    `json:"price_per_day"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toServiceResp(s models.CloudService) serviceResp {
	return serviceResp{
		ID:          s.ID,
		UserID:      s.UserID,
		Name:        s.Name,
		PricePerDay: s.PricePerDay.StringFixed(2),
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt,
	}
}

func fixed(d decimal.Decimal) string { return d.StringFixed(2) }
