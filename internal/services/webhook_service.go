package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/metrics"
	"github.com/nordlane/cloudcrm/internal/models"
	repo "github.com/nordlane/cloudcrm/internal/repository"
)

const (
	SignatureHeader = "X-Webhook-Signature"

	EventPaymentSucceeded = "payment.succeeded"
)

type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeIgnored          Outcome = "ignored"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeInvalidSignature Outcome = "invalid_signature"
	OutcomeUnknownUser      Outcome = "unknown_user"
	OutcomeMalformed        Outcome = "malformed"
	OutcomeFailed           Outcome = "failed"
)

type WebhookResult struct {
	Outcome   Outcome           `json:"outcome"`
	Operation *models.Operation `json:"operation,omitempty"`
	Balance   *models.Balance   `json:"balance,omitempty"`
}

type paymentEvent struct {
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`
		Amount struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"amount"`
		Metadata struct {
			Email string `json:"email"`
		} `json:"metadata"`
	} `json:"object"`
}

// Sign returns the lowercase hex HMAC-SHA1 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the claimed signature against the exact body
// bytes. An empty secret or signature never verifies.
func VerifySignature(secret string, body []byte, claimed string) bool {
	if secret == "" || claimed == "" {
		return false
	}
	claimed = strings.TrimPrefix(strings.TrimSpace(claimed), "sha1=")
	got, err := hex.DecodeString(claimed)
	if err != nil {
		return false
	}
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

type WebhookService struct {
	secret string
	dedupe bool
	users  repo.Users
	ledger *LedgerService
	log    *slog.Logger
}

func NewWebhookService(secret string, dedupe bool, users repo.Users, ledger *LedgerService, log *slog.Logger) *WebhookService {
	return &WebhookService{secret: secret, dedupe: dedupe, users: users, ledger: ledger, log: log}
}

// Process runs one delivery through signature check, event filter, user
// resolution and the ledger credit. Ignored and duplicate deliveries are
// successes; every other non-completed outcome comes with an error from
// the common taxonomy.
func (s *WebhookService) Process(ctx context.Context, body []byte, signature string) (WebhookResult, error) {
	res, err := s.process(ctx, body, signature)
	metrics.WebhookEventsTotal.WithLabelValues(string(res.Outcome)).Inc()
	return res, err
}

func (s *WebhookService) process(ctx context.Context, body []byte, signature string) (WebhookResult, error) {
	if !VerifySignature(s.secret, body, signature) {
		s.log.Warn("webhook signature rejected")
		return WebhookResult{Outcome: OutcomeInvalidSignature}, common.ErrInvalidSignature
	}

	var evt paymentEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return WebhookResult{Outcome: OutcomeMalformed}, fmt.Errorf("decode webhook: %w", common.ErrBadRequest)
	}

	if evt.Event != EventPaymentSucceeded {
		s.log.Info("webhook ignored", "event", evt.Event)
		return WebhookResult{Outcome: OutcomeIgnored}, nil
	}

	amount, err := decimal.NewFromString(evt.Object.Amount.Value)
	if err != nil {
		return WebhookResult{Outcome: OutcomeMalformed}, fmt.Errorf("amount %q: %w", evt.Object.Amount.Value, common.ErrBadRequest)
	}
	if err := ValidateAmount(amount); err != nil {
		return WebhookResult{Outcome: OutcomeMalformed}, err
	}

	email := models.NormalizeEmail(evt.Object.Metadata.Email)
	if email == "" {
		return WebhookResult{Outcome: OutcomeUnknownUser}, common.ErrUnknownUser
	}
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		s.log.Warn("webhook for unknown user", "event_id", evt.Object.ID)
		return WebhookResult{Outcome: OutcomeUnknownUser}, common.ErrUnknownUser
	}
	if err != nil {
		return WebhookResult{Outcome: OutcomeFailed}, fmt.Errorf("resolve user: %w: %w", common.ErrInternal, err)
	}

	op, bal, err := s.ledger.CreditEvent(ctx, user.ID, amount, models.MethodOnline, evt.Object.ID, s.dedupe)
	if errors.Is(err, common.ErrDuplicateEvent) {
		s.log.Info("webhook duplicate", "event_id", evt.Object.ID, "user_id", user.ID)
		return WebhookResult{Outcome: OutcomeDuplicate}, nil
	}
	if err != nil {
		return WebhookResult{Outcome: OutcomeFailed}, fmt.Errorf("credit: %w: %w", common.ErrInternal, err)
	}

	s.log.Info("webhook applied", "event_id", evt.Object.ID, "user_id", user.ID,
		"amount", amount.StringFixed(2), "currency", evt.Object.Amount.Currency)
	return WebhookResult{Outcome: OutcomeCompleted, Operation: &op, Balance: &bal}, nil
}
