package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/models"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLedger_ApplyCredit_Commits(t *testing.T) {
	mock := newMock(t)
	repos := NewRepositories(mock)
	now := time.Now()

	mock.ExpectBeginTx(txOptions)
	mock.ExpectQuery(`INSERT INTO balances`).
		WithArgs("u1", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "amount", "updated_at"}).
			AddRow("u1", dec("600.00"), now))
	mock.ExpectQuery(`INSERT INTO operations`).
		WithArgs("op1", "u1", "deposit", pgxmock.AnyArg(), "online", "completed", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"seq", "created_at"}).AddRow(int64(7), now))
	mock.ExpectCommit()

	op, bal, err := repos.Ledger.ApplyCredit(context.Background(), models.Operation{
		ID: "op1", UserID: "u1", Type: models.OpDeposit, Amount: dec("500.00"),
		Method: models.MethodOnline, Status: models.OpCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), op.Seq)
	assert.True(t, bal.Amount.Equal(dec("600.00")))
}

func TestLedger_ApplyCredit_DuplicateKeyRollsBack(t *testing.T) {
	mock := newMock(t)
	repos := NewRepositories(mock)
	key := "pay-1"

	mock.ExpectBeginTx(txOptions)
	mock.ExpectQuery(`INSERT INTO balances`).
		WithArgs("u1", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "amount", "updated_at"}).
			AddRow("u1", dec("1000.00"), time.Now()))
	mock.ExpectQuery(`INSERT INTO operations`).
		WillReturnError(&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "operations_idempotency_key_key"})
	mock.ExpectRollback()

	_, _, err := repos.Ledger.ApplyCredit(context.Background(), models.Operation{
		ID: "op2", UserID: "u1", Type: models.OpDeposit, Amount: dec("500.00"),
		Method: models.MethodOnline, Status: models.OpCompleted, IdempotencyKey: &key,
	})
	assert.ErrorIs(t, err, common.ErrDuplicateEvent)
}

func TestLedger_ApplyDebit_InsufficientFunds(t *testing.T) {
	mock := newMock(t)
	repos := NewRepositories(mock)

	mock.ExpectBeginTx(txOptions)
	mock.ExpectQuery(`UPDATE balances`).
		WithArgs("u1", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "amount", "updated_at"}))
	mock.ExpectRollback()

	_, _, err := repos.Ledger.ApplyDebit(context.Background(), models.Operation{
		ID: "op3", UserID: "u1", Type: models.OpCharge, Amount: dec("10.00"),
		Method: models.MethodAuto, Status: models.OpCompleted,
	})
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)
}

func TestLedger_ApplyDebit_Commits(t *testing.T) {
	mock := newMock(t)
	repos := NewRepositories(mock)
	now := time.Now()

	mock.ExpectBeginTx(txOptions)
	mock.ExpectQuery(`UPDATE balances`).
		WithArgs("u1", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "amount", "updated_at"}).
			AddRow("u1", dec("90.00"), now))
	mock.ExpectQuery(`INSERT INTO operations`).
		WillReturnRows(pgxmock.NewRows([]string{"seq", "created_at"}).AddRow(int64(3), now))
	mock.ExpectCommit()

	op, bal, err := repos.Ledger.ApplyDebit(context.Background(), models.Operation{
		ID: "op4", UserID: "u1", Type: models.OpCharge, Amount: dec("10.00"),
		Method: models.MethodAuto, Status: models.OpCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), op.Seq)
	assert.True(t, bal.Amount.Equal(dec("90.00")))
}

func TestLedger_BeginFailure(t *testing.T) {
	mock := newMock(t)
	repos := NewRepositories(mock)

	mock.ExpectBeginTx(txOptions).WillReturnError(errors.New("conn refused"))

	_, _, err := repos.Ledger.ApplyCredit(context.Background(), models.Operation{UserID: "u1", Amount: dec("1")})
	assert.Error(t, err)
}

func TestLedger_BalanceNotFound(t *testing.T) {
	mock := newMock(t)
	repos := NewRepositories(mock)

	mock.ExpectQuery(`SELECT user_id, amount, updated_at`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "amount", "updated_at"}))

	_, err := repos.Ledger.Balance(context.Background(), "u1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLedger_ListOperations(t *testing.T) {
	mock := newMock(t)
	repos := NewRepositories(mock)
	now := time.Now()
	evt := "evt-1"

	cols := []string{"seq", "id", "user_id", "type", "amount", "method", "status", "event_id", "idempotency_key", "created_at"}
	mock.ExpectQuery(`FROM operations`).
		WithArgs("u1", 50, 0).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(1), "op1", "u1", "deposit", dec("500.00"), "online", "completed", &evt, nil, now).
			AddRow(int64(2), "op2", "u1", "charge", dec("20.00"), "auto", "completed", nil, nil, now))

	ops, err := repos.Ledger.ListOperations(context.Background(), "u1", 50, 0)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, models.OpDeposit, ops[0].Type)
	require.NotNil(t, ops[0].EventID)
	assert.Equal(t, "evt-1", *ops[0].EventID)
	assert.Equal(t, models.OpCharge, ops[1].Type)
	assert.Nil(t, ops[1].EventID)
}

func TestUsers_CreateConflict(t *testing.T) {
	mock := newMock(t)
	repos := NewRepositories(mock)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "a@b.c", "hash", "client").
		WillReturnError(&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "users_email_key"})

	_, err := repos.Users.Create(context.Background(), models.User{Email: "a@b.c", PasswordHash: "hash", Role: models.RoleClient})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestUsers_GetByEmail(t *testing.T) {
	mock := newMock(t)
	repos := NewRepositories(mock)
	now := time.Now()

	mock.ExpectQuery(`FROM users WHERE email`).
		WithArgs("a@b.c").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "role", "created_at", "updated_at"}).
			AddRow("u1", "a@b.c", "hash", "admin", now, now))

	u, err := repos.Users.GetByEmail(context.Background(), "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, "hash", u.PasswordHash)
}

func TestUsers_UpdateRoleMissing(t *testing.T) {
	mock := newMock(t)
	repos := NewRepositories(mock)

	mock.ExpectExec(`UPDATE users SET role`).
		WithArgs("nope", "admin").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repos.Users.UpdateRole(context.Background(), "nope", models.RoleAdmin)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCloudServices_Delete(t *testing.T) {
	mock := newMock(t)
	repos := NewRepositories(mock)

	mock.ExpectExec(`DELETE FROM cloud_services`).
		WithArgs("s1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM cloud_services`).
		WithArgs("s2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repos.CloudServices.Delete(context.Background(), "s1"))
	assert.ErrorIs(t, repos.CloudServices.Delete(context.Background(), "s2"), common.ErrNotFound)
}

func TestCloudServices_ListActive(t *testing.T) {
	mock := newMock(t)
	repos := NewRepositories(mock)
	now := time.Now()

	mock.ExpectQuery(`FROM cloud_services WHERE status`).
		WithArgs("active").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "name", "price_per_day", "status", "created_at"}).
			AddRow("s1", "u1", "vps-1", dec("12.50"), "active", now))

	list, err := repos.CloudServices.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.ServiceActive, list[0].Status)
	assert.True(t, list[0].PricePerDay.Equal(dec("12.50")))
}
