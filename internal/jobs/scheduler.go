package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nordlane/cloudcrm/internal/services"
)

const triggerTimeout = 2 * time.Minute

// Scheduler calls the API's charge endpoint on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	client   *http.Client
	endpoint string
	secret   string
	log      *slog.Logger
}

func NewScheduler(endpoint, secret string, client *http.Client, log *slog.Logger) *Scheduler {
	if client == nil {
		client = &http.Client{Timeout: triggerTimeout}
	}
	return &Scheduler{
		cron:     cron.New(),
		client:   client,
		endpoint: endpoint,
		secret:   secret,
		log:      log,
	}
}

// Start registers the charge run under schedule, a standard five-field cron
// expression or a descriptor such as "@daily".
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	return nil
}

// Stop waits for a running trigger to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
	defer cancel()
	rep, err := s.Trigger(ctx)
	if err != nil {
		s.log.Error("charge trigger failed", "err", err)
		return
	}
	s.log.Info("charge trigger done", "charged", rep.Charged, "suspended", rep.Suspended, "failed", rep.Failed)
}

// Trigger performs one charge call.
func (s *Scheduler) Trigger(ctx context.Context) (services.ChargeReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, nil)
	if err != nil {
		return services.ChargeReport{}, err
	}
	req.Header.Set(services.CronSecretHeader, s.secret)

	resp, err := s.client.Do(req)
	if err != nil {
		return services.ChargeReport{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return services.ChargeReport{}, fmt.Errorf("charge endpoint returned %s", resp.Status)
	}
	var rep services.ChargeReport
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return services.ChargeReport{}, fmt.Errorf("decode charge report: %w", err)
	}
	return rep, nil
}
