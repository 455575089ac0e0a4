package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nordlane/cloudcrm/internal/auth"
	"github.com/nordlane/cloudcrm/internal/models"
	"github.com/nordlane/cloudcrm/internal/notify"
	"github.com/nordlane/cloudcrm/internal/repository"
	"github.com/nordlane/cloudcrm/internal/repository/memory"
)

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (f *fakeNotifier) Notify(m notify.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, m)
}

func (f *fakeNotifier) kinds() []notify.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notify.Kind, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.Kind)
	}
	return out
}

type env struct {
	repos    repository.Repositories
	notifier *fakeNotifier
	tokens   *auth.TokenManager
	ledger   *LedgerService
	users    *UserService
	log      *slog.Logger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := memory.New().Repositories()
	n := &fakeNotifier{}
	tokens := auth.NewTokenManager("test-secret", "cloudcrm", 24*time.Hour)
	ledger := NewLedgerService(repos.Ledger, n, log)
	return &env{
		repos:    repos,
		notifier: n,
		tokens:   tokens,
		ledger:   ledger,
		users:    NewUserService(repos.Users, tokens, ledger, 720*time.Hour),
		log:      log,
	}
}

func (e *env) register(t *testing.T, email string) models.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), email, "password123")
	require.NoError(t, err)
	return u
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
