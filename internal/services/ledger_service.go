package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/ksuid"
	"github.com/shopspring/decimal"

	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/metrics"
	"github.com/nordlane/cloudcrm/internal/models"
	"github.com/nordlane/cloudcrm/internal/notify"
	repo "github.com/nordlane/cloudcrm/internal/repository"
)

// Notifier is satisfied by *notify.Dispatcher.
type Notifier interface {
	Notify(m notify.Message)
}

type nopNotifier struct{}

func (nopNotifier) Notify(notify.Message) {}

// maxAmount is the largest value numeric(18,2) can hold.
var maxAmount = decimal.New(1, 16)

// ValidateAmount accepts positive amounts with at most two fractional digits.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive: %w", common.ErrBadRequest)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("amount has more than 2 decimal places: %w", common.ErrBadRequest)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("amount too large: %w", common.ErrBadRequest)
	}
	return nil
}

type LedgerService struct {
	ledger repo.Ledger
	notify Notifier
	log    *slog.Logger
}

func NewLedgerService(l repo.Ledger, n Notifier, log *slog.Logger) *LedgerService {
	if n == nil {
		n = nopNotifier{}
	}
	return &LedgerService{ledger: l, notify: n, log: log}
}

func (s *LedgerService) Credit(ctx context.Context, userID string, amount decimal.Decimal, method string) (models.Operation, models.Balance, error) {
	return s.apply(ctx, newOperation(userID, models.OpDeposit, amount, method))
}

// CreditEvent records a provider-driven credit. eventID is always kept on
// the operation; with dedupe it also becomes the idempotency key, so a
// repeated event fails with common.ErrDuplicateEvent and changes nothing.
func (s *LedgerService) CreditEvent(ctx context.Context, userID string, amount decimal.Decimal, method, eventID string, dedupe bool) (models.Operation, models.Balance, error) {
	op := newOperation(userID, models.OpDeposit, amount, method)
	if eventID != "" {
		op.EventID = &eventID
		if dedupe {
			key := method + ":" + eventID
			op.IdempotencyKey = &key
		}
	}
	return s.apply(ctx, op)
}

// Debit fails with common.ErrInsufficientFunds instead of driving the
// balance below zero.
func (s *LedgerService) Debit(ctx context.Context, userID string, amount decimal.Decimal, method string) (models.Operation, models.Balance, error) {
	return s.apply(ctx, newOperation(userID, models.OpCharge, amount, method))
}

func newOperation(userID string, typ models.OperationType, amount decimal.Decimal, method string) models.Operation {
	return models.Operation{
		ID:     ksuid.New().String(),
		UserID: userID,
		Type:   typ,
		Amount: amount,
		Method: method,
		Status: models.OpCompleted,
	}
}

func (s *LedgerService) apply(ctx context.Context, op models.Operation) (models.Operation, models.Balance, error) {
	if op.UserID == "" {
		return models.Operation{}, models.Balance{}, fmt.Errorf("user id required: %w", common.ErrBadRequest)
	}
	if err := ValidateAmount(op.Amount); err != nil {
		return models.Operation{}, models.Balance{}, err
	}

	var (
		saved models.Operation
		bal   models.Balance
		err   error
	)
	switch op.Type {
	case models.OpDeposit:
		saved, bal, err = s.ledger.ApplyCredit(ctx, op)
	case models.OpCharge:
		saved, bal, err = s.ledger.ApplyDebit(ctx, op)
	default:
		return models.Operation{}, models.Balance{}, fmt.Errorf("operation type %q: %w", op.Type, common.ErrBadRequest)
	}
	if err != nil {
		metrics.LedgerFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		return models.Operation{}, models.Balance{}, err
	}

	metrics.LedgerOperationsTotal.WithLabelValues(string(saved.Type)).Inc()
	s.log.Info("ledger operation",
		"op_id", saved.ID, "seq", saved.Seq, "user_id", saved.UserID,
		"type", saved.Type, "amount", saved.Amount.StringFixed(2), "method", saved.Method)

	if saved.Type == models.OpDeposit {
		s.notify.Notify(notify.Message{
			Kind:   notify.KindBalanceCredited,
			UserID: saved.UserID,
			Text: fmt.Sprintf("Balance credited: +%s, balance %s",
				saved.Amount.StringFixed(2), bal.Amount.StringFixed(2)),
		})
	}
	return saved, bal, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, common.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, common.ErrDuplicateEvent):
		return "duplicate"
	case errors.Is(err, common.ErrNotFound):
		return "not_found"
	default:
		return "store"
	}
}

// Read returns the user's balance. ok is false when no balance row exists
// yet; the zero balance is returned in that case.
func (s *LedgerService) Read(ctx context.Context, userID string) (models.Balance, bool, error) {
	b, err := s.ledger.Balance(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return models.Balance{UserID: userID, Amount: decimal.Zero}, false, nil
	}
	if err != nil {
		return models.Balance{}, false, err
	}
	return b, true, nil
}

func (s *LedgerService) History(ctx context.Context, userID string, limit, offset int) ([]models.Operation, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.ListOperations(ctx, userID, limit, offset)
}
