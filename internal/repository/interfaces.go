package repository

import (
	"context"

	"github.com/nordlane/cloudcrm/internal/models"
)

// Users is the account store. Lookups of a missing row return
// common.ErrNotFound; a taken email returns common.ErrConflict.
type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	UpdateEmail(ctx context.Context, id, email string) error
	UpdateRole(ctx context.Context, id string, role models.Role) error
}

// Ledger owns balances and the operation log. Each Apply* call is one
// atomic unit: the balance change and its operation are either both
// visible or neither is.
type Ledger interface {
	// ApplyCredit adds op.Amount to the user's balance, creating the
	// balance row on first credit.
	ApplyCredit(ctx context.Context, op models.Operation) (models.Operation, models.Balance, error)
	// ApplyDebit subtracts op.Amount. It fails with
	// common.ErrInsufficientFunds and changes nothing when the balance
	// would go negative.
	ApplyDebit(ctx context.Context, op models.Operation) (models.Operation, models.Balance, error)
	Balance(ctx context.Context, userID string) (models.Balance, error)
	ListOperations(ctx context.Context, userID string, limit, offset int) ([]models.Operation, error)
}

type CloudServices interface {
	Create(ctx context.Context, s models.CloudService) (models.CloudService, error)
	Get(ctx context.Context, id string) (models.CloudService, error)
	ListByUser(ctx context.Context, userID string) ([]models.CloudService, error)
	ListActive(ctx context.Context) ([]models.CloudService, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.CloudService, error)
	UpdateStatus(ctx context.Context, id string, status models.ServiceStatus) error
	Delete(ctx context.Context, id string) error
}

type Repositories struct {
	Users         Users
	Ledger        Ledger
	CloudServices CloudServices
}
