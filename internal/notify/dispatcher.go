package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/nordlane/cloudcrm/internal/metrics"
	"github.com/nordlane/cloudcrm/internal/worker"
)

const sendTimeout = 5 * time.Second

// Dispatcher hands sends to the worker pool so callers never wait on the
// notification transport.
type Dispatcher struct {
	n    Notifier
	pool *worker.Pool
	log  *slog.Logger
}

func NewDispatcher(n Notifier, pool *worker.Pool, log *slog.Logger) *Dispatcher {
	return &Dispatcher{n: n, pool: pool, log: log}
}

// Notify schedules m. The request context is deliberately not used: the
// send outlives the request that triggered it.
func (d *Dispatcher) Notify(m Message) {
	if d == nil {
		return
	}
	ok := d.pool.TrySubmit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := d.n.Send(ctx, m); err != nil {
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			d.log.Warn("notification send failed", "kind", m.Kind, "user_id", m.UserID, "err", err)
			return
		}
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	})
	if !ok {
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn("notification dropped", "kind", m.Kind, "user_id", m.UserID)
	}
}
