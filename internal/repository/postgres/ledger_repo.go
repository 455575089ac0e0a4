package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/models"
)

type ledgerRepo struct{ db DB }

const operationColumns = `seq, id, user_id, type, amount, method, status, event_id, idempotency_key, created_at`

// The balance row is written first in both paths. Its row lock serializes
// concurrent operations for one user, so seq values follow commit order.

func (r *ledgerRepo) ApplyCredit(ctx context.Context, op models.Operation) (models.Operation, models.Balance, error) {
	var bal models.Balance
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO balances(user_id, amount, updated_at)
			 VALUES($1, $2, now())
			 ON CONFLICT (user_id) DO UPDATE
			    SET amount = balances.amount + EXCLUDED.amount,
			        updated_at = now()
			 RETURNING user_id, amount, updated_at`,
			op.UserID, op.Amount,
		).Scan(&bal.UserID, &bal.Amount, &bal.UpdatedAt)
		if err != nil {
			if pgCode(err) == codeForeignKeyViolation {
				return fmt.Errorf("user %s: %w", op.UserID, common.ErrNotFound)
			}
			return fmt.Errorf("credit balance: %w", err)
		}
		return insertOperation(ctx, tx, &op)
	})
	if err != nil {
		return models.Operation{}, models.Balance{}, err
	}
	return op, bal, nil
}

func (r *ledgerRepo) ApplyDebit(ctx context.Context, op models.Operation) (models.Operation, models.Balance, error) {
	var bal models.Balance
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE balances
			    SET amount = amount - $2,
			        updated_at = now()
			  WHERE user_id = $1 AND amount >= $2
			  RETURNING user_id, amount, updated_at`,
			op.UserID, op.Amount,
		).Scan(&bal.UserID, &bal.Amount, &bal.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrInsufficientFunds
		}
		if err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}
		return insertOperation(ctx, tx, &op)
	})
	if err != nil {
		return models.Operation{}, models.Balance{}, err
	}
	return op, bal, nil
}

func insertOperation(ctx context.Context, tx pgx.Tx, op *models.Operation) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO operations(id, user_id, type, amount, method, status, event_id, idempotency_key)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING seq, created_at`,
		op.ID, op.UserID, string(op.Type), op.Amount, op.Method, string(op.Status), op.EventID, op.IdempotencyKey,
	).Scan(&op.Seq, &op.CreatedAt)
	if err != nil {
		if pgCode(err) == codeUniqueViolation && constraintName(err) == "operations_idempotency_key_key" {
			return common.ErrDuplicateEvent
		}
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

func (r *ledgerRepo) Balance(ctx context.Context, userID string) (models.Balance, error) {
	var b models.Balance
	err := r.db.QueryRow(ctx,
		`SELECT user_id, amount, updated_at
		   FROM balances
		  WHERE user_id=$1`,
		userID,
	).Scan(&b.UserID, &b.Amount, &b.UpdatedAt)
	return b, notFound(err)
}

func (r *ledgerRepo) ListOperations(ctx context.Context, userID string, limit, offset int) ([]models.Operation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+operationColumns+`
		   FROM operations
		  WHERE user_id=$1
		  ORDER BY seq
		  LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Operation{}
	for rows.Next() {
		var (
			op          models.Operation
			typ, status string
		)
		if err := rows.Scan(&op.Seq, &op.ID, &op.UserID, &typ, &op.Amount, &op.Method, &status,
			&op.EventID, &op.IdempotencyKey, &op.CreatedAt); err != nil {
			return nil, err
		}
		op.Type = models.OperationType(typ)
		op.Status = models.OperationStatus(status)
		out = append(out, op)
	}
	return out, rows.Err()
}
