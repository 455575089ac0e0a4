package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/models"
)

func seedUser(t *testing.T, s *Store, email string) models.User {
	t.Helper()
	u, err := s.Repositories().Users.Create(context.Background(), models.User{Email: email, Role: models.RoleClient})
	require.NoError(t, err)
	return u
}

func credit(userID, amount string) models.Operation {
	return models.Operation{
		UserID: userID, Type: models.OpDeposit, Amount: decimal.RequireFromString(amount),
		Method: models.MethodOnline, Status: models.OpCompleted,
	}
}

func TestUsers_EmailUnique(t *testing.T) {
	s := New()
	seedUser(t, s, "a@b.c")

	_, err := s.Repositories().Users.Create(context.Background(), models.User{Email: "a@b.c"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestUsers_UpdateEmail(t *testing.T) {
	s := New()
	repos := s.Repositories()
	a := seedUser(t, s, "a@b.c")
	seedUser(t, s, "x@y.z")
	ctx := context.Background()

	assert.ErrorIs(t, repos.Users.UpdateEmail(ctx, a.ID, "x@y.z"), common.ErrConflict)
	require.NoError(t, repos.Users.UpdateEmail(ctx, a.ID, "new@b.c"))

	got, err := repos.Users.GetByEmail(ctx, "new@b.c")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	_, err = repos.Users.GetByEmail(ctx, "a@b.c")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLedger_CreditCreatesBalance(t *testing.T) {
	s := New()
	ledger := s.Repositories().Ledger
	u := seedUser(t, s, "a@b.c")
	ctx := context.Background()

	_, err := ledger.Balance(ctx, u.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	op, bal, err := ledger.ApplyCredit(ctx, credit(u.ID, "500.00"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), op.Seq)
	assert.True(t, bal.Amount.Equal(decimal.RequireFromString("500")))
}

func TestLedger_CreditUnknownUser(t *testing.T) {
	_, _, err := New().Repositories().Ledger.ApplyCredit(context.Background(), credit("ghost", "1.00"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLedger_DebitInsufficientLeavesStateUnchanged(t *testing.T) {
	s := New()
	ledger := s.Repositories().Ledger
	u := seedUser(t, s, "a@b.c")
	ctx := context.Background()

	_, _, err := ledger.ApplyCredit(ctx, credit(u.ID, "5.00"))
	require.NoError(t, err)

	debit := credit(u.ID, "5.01")
	debit.Type = models.OpCharge
	_, _, err = ledger.ApplyDebit(ctx, debit)
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)

	bal, err := ledger.Balance(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, bal.Amount.Equal(decimal.RequireFromString("5")))
	ops, err := ledger.ListOperations(ctx, u.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, ops, 1)
}

func TestLedger_IdempotencyKey(t *testing.T) {
	s := New()
	ledger := s.Repositories().Ledger
	u := seedUser(t, s, "a@b.c")
	ctx := context.Background()
	key := "pay-1"

	op := credit(u.ID, "10.00")
	op.IdempotencyKey = &key
	_, _, err := ledger.ApplyCredit(ctx, op)
	require.NoError(t, err)
	_, _, err = ledger.ApplyCredit(ctx, op)
	assert.ErrorIs(t, err, common.ErrDuplicateEvent)

	bal, _ := ledger.Balance(ctx, u.ID)
	assert.True(t, bal.Amount.Equal(decimal.RequireFromString("10")))
}

func TestLedger_ConcurrentCreditsSequenced(t *testing.T) {
	s := New()
	ledger := s.Repositories().Ledger
	u := seedUser(t, s, "a@b.c")
	ctx := context.Background()

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := ledger.ApplyCredit(ctx, credit(u.ID, "1.25"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	bal, err := ledger.Balance(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, bal.Amount.Equal(decimal.RequireFromString("80")), bal.Amount.String())

	ops, err := ledger.ListOperations(ctx, u.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, ops, n)
	for i := 1; i < len(ops); i++ {
		assert.Less(t, ops[i-1].Seq, ops[i].Seq)
	}
}

func TestServices_Lifecycle(t *testing.T) {
	s := New()
	repos := s.Repositories()
	u := seedUser(t, s, "a@b.c")
	ctx := context.Background()

	cs, err := repos.CloudServices.Create(ctx, models.CloudService{UserID: u.ID, Name: "vps", PricePerDay: decimal.RequireFromString("3.00")})
	require.NoError(t, err)
	assert.Equal(t, models.ServiceActive, cs.Status)

	active, _ := repos.CloudServices.ListActive(ctx)
	assert.Len(t, active, 1)

	require.NoError(t, repos.CloudServices.UpdateStatus(ctx, cs.ID, models.ServiceSuspended))
	active, _ = repos.CloudServices.ListActive(ctx)
	assert.Empty(t, active)

	require.NoError(t, repos.CloudServices.Delete(ctx, cs.ID))
	assert.ErrorIs(t, repos.CloudServices.Delete(ctx, cs.ID), common.ErrNotFound)
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{3, 4}, page(items, 2, 2))
	assert.Equal(t, []int{}, page(items, 2, 10))
	assert.Equal(t, items, page(items, 0, 0))
}
