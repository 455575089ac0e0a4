package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/metrics"
	"github.com/nordlane/cloudcrm/internal/models"
	"github.com/nordlane/cloudcrm/internal/notify"
	repo "github.com/nordlane/cloudcrm/internal/repository"
)

const CronSecretHeader = "X-Cron-Secret"

type ChargeReport struct {
	Charged   int `json:"charged"`
	Suspended int `json:"suspended"`
	Failed    int `json:"failed"`
}

// Charger is the periodic charge routine run behind the billing trigger.
type Charger interface {
	Charge(ctx context.Context) (ChargeReport, error)
}

// BillingTrigger gates a Charger behind a shared secret.
type BillingTrigger struct {
	secret  []byte
	charger Charger
	log     *slog.Logger
}

func NewBillingTrigger(secret string, charger Charger, log *slog.Logger) *BillingTrigger {
	return &BillingTrigger{secret: []byte(secret), charger: charger, log: log}
}

// Run fails closed: with no configured secret every call is rejected.
func (t *BillingTrigger) Run(ctx context.Context, supplied string) (ChargeReport, error) {
	if len(t.secret) == 0 || subtle.ConstantTimeCompare(t.secret, []byte(supplied)) != 1 {
		t.log.Warn("billing trigger rejected")
		return ChargeReport{}, common.ErrUnauthenticated
	}

	rep, err := t.charger.Charge(ctx)
	if err != nil {
		t.log.Error("billing pass failed", "err", err)
		return rep, fmt.Errorf("charge: %w: %w", common.ErrInternal, err)
	}
	t.log.Info("billing pass done", "charged", rep.Charged, "suspended", rep.Suspended, "failed", rep.Failed)
	return rep, nil
}

// DailyCharger debits every active service's daily price. A service whose
// owner cannot pay is suspended.
type DailyCharger struct {
	services repo.CloudServices
	ledger   *LedgerService
	notify   Notifier
	method   string
	log      *slog.Logger
}

func NewDailyCharger(services repo.CloudServices, ledger *LedgerService, n Notifier, method string, log *slog.Logger) *DailyCharger {
	if n == nil {
		n = nopNotifier{}
	}
	if method == "" {
		method = models.MethodAuto
	}
	return &DailyCharger{services: services, ledger: ledger, notify: n, method: method, log: log}
}

func (c *DailyCharger) Charge(ctx context.Context) (ChargeReport, error) {
	active, err := c.services.ListActive(ctx)
	if err != nil {
		return ChargeReport{}, fmt.Errorf("list active services: %w", err)
	}

	var rep ChargeReport
	for _, svc := range active {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if !svc.PricePerDay.IsPositive() {
			continue
		}

		_, _, err := c.ledger.Debit(ctx, svc.UserID, svc.PricePerDay, c.method)
		switch {
		case err == nil:
			rep.Charged++
			metrics.BillingChargesTotal.WithLabelValues("charged").Inc()
		case errors.Is(err, common.ErrInsufficientFunds):
			if err := c.services.UpdateStatus(ctx, svc.ID, models.ServiceSuspended); err != nil {
				rep.Failed++
				metrics.BillingChargesTotal.WithLabelValues("failed").Inc()
				c.log.Error("suspend service", "service_id", svc.ID, "err", err)
				continue
			}
			rep.Suspended++
			metrics.BillingChargesTotal.WithLabelValues("suspended").Inc()
			c.notify.Notify(notify.Message{
				Kind:   notify.KindServiceSuspended,
				UserID: svc.UserID,
				Text:   fmt.Sprintf("Service %q suspended: insufficient funds for %s", svc.Name, svc.PricePerDay.StringFixed(2)),
			})
		default:
			rep.Failed++
			metrics.BillingChargesTotal.WithLabelValues("failed").Inc()
			c.log.Error("charge service", "service_id", svc.ID, "user_id", svc.UserID, "err", err)
		}
	}
	return rep, nil
}
