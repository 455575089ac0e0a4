// Package memory implements the repositories on top of process memory. It
// backs the test suites and the "memory" database driver; state is lost on
// restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/models"
	"github.com/nordlane/cloudcrm/internal/repository"
)

// Store holds every table behind one lock, so a ledger apply sees a
// consistent view of users, balances and operations.
type Store struct {
	mu sync.RWMutex

	users    map[string]models.User
	byEmail  map[string]string
	balances map[string]models.Balance

	operations []models.Operation
	idemKeys   map[string]struct{}
	seq        int64

	services map[string]models.CloudService

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:    make(map[string]models.User),
		byEmail:  make(map[string]string),
		balances: make(map[string]models.Balance),
		idemKeys: make(map[string]struct{}),
		services: make(map[string]models.CloudService),
		now:      time.Now,
	}
}

func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Users:         usersStore{s},
		Ledger:        ledgerStore{s},
		CloudServices: servicesStore{s},
	}
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Users

type usersStore struct{ s *Store }

func (r usersStore) Create(_ context.Context, u models.User) (models.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[u.Email]; taken {
		return models.User{}, fmt.Errorf("email %q: %w", u.Email, common.ErrConflict)
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return u, nil
}

func (r usersStore) GetByID(_ context.Context, id string) (models.User, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, common.ErrNotFound
	}
	return u, nil
}

func (r usersStore) GetByEmail(_ context.Context, email string) (models.User, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return models.User{}, common.ErrNotFound
	}
	return s.users[id], nil
}

func (r usersStore) List(_ context.Context, limit, offset int) ([]models.User, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r usersStore) UpdatePassword(_ context.Context, id, hash string) error {
	return r.update(id, func(u *models.User) error {
		u.PasswordHash = hash
		return nil
	})
}

func (r usersStore) UpdateEmail(_ context.Context, id, email string) error {
	s := r.s
	return r.update(id, func(u *models.User) error {
		if owner, taken := s.byEmail[email]; taken && owner != id {
			return fmt.Errorf("email %q: %w", email, common.ErrConflict)
		}
		delete(s.byEmail, u.Email)
		s.byEmail[email] = id
		u.Email = email
		return nil
	})
}

func (r usersStore) UpdateRole(_ context.Context, id string, role models.Role) error {
	return r.update(id, func(u *models.User) error {
		u.Role = role
		return nil
	})
}

func (r usersStore) update(id string, fn func(*models.User) error) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return common.ErrNotFound
	}
	if err := fn(&u); err != nil {
		return err
	}
	u.UpdatedAt = s.now()
	s.users[id] = u
	return nil
}

// Ledger

type ledgerStore struct{ s *Store }

func (r ledgerStore) ApplyCredit(_ context.Context, op models.Operation) (models.Operation, models.Balance, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[op.UserID]; !ok {
		return models.Operation{}, models.Balance{}, fmt.Errorf("user %s: %w", op.UserID, common.ErrNotFound)
	}
	if err := s.checkKey(op); err != nil {
		return models.Operation{}, models.Balance{}, err
	}

	bal, ok := s.balances[op.UserID]
	if !ok {
		bal = models.Balance{UserID: op.UserID, Amount: decimal.Zero}
	}
	bal.Amount = bal.Amount.Add(op.Amount)
	return s.commit(op, bal)
}

func (r ledgerStore) ApplyDebit(_ context.Context, op models.Operation) (models.Operation, models.Balance, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	bal, ok := s.balances[op.UserID]
	if !ok || bal.Amount.LessThan(op.Amount) {
		return models.Operation{}, models.Balance{}, common.ErrInsufficientFunds
	}
	if err := s.checkKey(op); err != nil {
		return models.Operation{}, models.Balance{}, err
	}
	bal.Amount = bal.Amount.Sub(op.Amount)
	return s.commit(op, bal)
}

// checkKey and commit must be called with mu held.
func (s *Store) checkKey(op models.Operation) error {
	if op.IdempotencyKey == nil {
		return nil
	}
	if _, dup := s.idemKeys[*op.IdempotencyKey]; dup {
		return common.ErrDuplicateEvent
	}
	return nil
}

func (s *Store) commit(op models.Operation, bal models.Balance) (models.Operation, models.Balance, error) {
	now := s.now()
	s.seq++
	op.Seq = s.seq
	op.CreatedAt = now
	bal.UpdatedAt = now

	s.balances[op.UserID] = bal
	s.operations = append(s.operations, op)
	if op.IdempotencyKey != nil {
		s.idemKeys[*op.IdempotencyKey] = struct{}{}
	}
	return op, bal, nil
}

func (r ledgerStore) Balance(_ context.Context, userID string) (models.Balance, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.balances[userID]
	if !ok {
		return models.Balance{}, common.ErrNotFound
	}
	return b, nil
}

func (r ledgerStore) ListOperations(_ context.Context, userID string, limit, offset int) ([]models.Operation, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	// operations is appended in seq order already
	out := []models.Operation{}
	for _, op := range s.operations {
		if op.UserID == userID {
			out = append(out, op)
		}
	}
	return page(out, limit, offset), nil
}

// Cloud services

type servicesStore struct{ s *Store }

func (r servicesStore) Create(_ context.Context, cs models.CloudService) (models.CloudService, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[cs.UserID]; !ok {
		return models.CloudService{}, fmt.Errorf("user %s: %w", cs.UserID, common.ErrNotFound)
	}
	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}
	if cs.Status == "" {
		cs.Status = models.ServiceActive
	}
	cs.CreatedAt = s.now()
	s.services[cs.ID] = cs
	return cs, nil
}

func (r servicesStore) Get(_ context.Context, id string) (models.CloudService, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	cs, ok := s.services[id]
	if !ok {
		return models.CloudService{}, common.ErrNotFound
	}
	return cs, nil
}

func (r servicesStore) ListByUser(_ context.Context, userID string) ([]models.CloudService, error) {
	return r.filter(func(cs models.CloudService) bool { return cs.UserID == userID }), nil
}

func (r servicesStore) ListActive(_ context.Context) ([]models.CloudService, error) {
	return r.filter(func(cs models.CloudService) bool { return cs.Status == models.ServiceActive }), nil
}

func (r servicesStore) ListAll(_ context.Context, limit, offset int) ([]models.CloudService, error) {
	return page(r.filter(func(models.CloudService) bool { return true }), limit, offset), nil
}

func (r servicesStore) filter(keep func(models.CloudService) bool) []models.CloudService {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.CloudService{}
	for _, cs := range s.services {
		if keep(cs) {
			out = append(out, cs)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r servicesStore) UpdateStatus(_ context.Context, id string, status models.ServiceStatus) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.services[id]
	if !ok {
		return common.ErrNotFound
	}
	cs.Status = status
	s.services[id] = cs
	return nil
}

func (r servicesStore) Delete(_ context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[id]; !ok {
		return common.ErrNotFound
	}
	delete(s.services, id)
	return nil
}
