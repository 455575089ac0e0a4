package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nordlane/cloudcrm/internal/auth"
	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/models"
	repo "github.com/nordlane/cloudcrm/internal/repository"
)

const MinPasswordLen = 8

type UserService struct {
	r         repo.Users
	tokens    *auth.TokenManager
	ledger    *LedgerService
	apiKeyTTL time.Duration
}

func NewUserService(r repo.Users, tokens *auth.TokenManager, ledger *LedgerService, apiKeyTTL time.Duration) *UserService {
	return &UserService{r: r, tokens: tokens, ledger: ledger, apiKeyTTL: apiKeyTTL}
}

// Session is a freshly issued token. TTL is the lifetime it was issued
// with; ExpiresAt is second-aligned and must not be used to derive it.
type Session struct {
	Token     string
	ExpiresAt time.Time
	TTL       time.Duration
	User      models.User
}

func validatePassword(p string) error {
	if len(p) < MinPasswordLen {
		return fmt.Errorf("password shorter than %d: %w", MinPasswordLen, common.ErrBadRequest)
	}
	if len(p) > auth.MaxPasswordBytes {
		return fmt.Errorf("password longer than %d bytes: %w", auth.MaxPasswordBytes, common.ErrBadRequest)
	}
	return nil
}

func (s *UserService) Register(ctx context.Context, email, password string) (models.User, error) {
	u := models.User{Email: email, Role: models.RoleClient}
	if err := u.Validate(); err != nil {
		return models.User{}, err
	}
	if err := validatePassword(password); err != nil {
		return models.User{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	u.PasswordHash = hash
	return s.r.Create(ctx, u)
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// burnCompare spends the same bcrypt work as a real check so unknown emails
// and wrong passwords are indistinguishable by timing.
func burnCompare(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = auth.HashPassword("cloudcrm-dummy-password")
	})
	_ = auth.VerifyPassword(password, dummyHash)
}

func (s *UserService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.r.GetByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, common.ErrNotFound) {
		burnCompare(password)
		return Session{}, common.ErrUnauthenticated
	}
	if err != nil {
		return Session{}, err
	}
	if !auth.VerifyPassword(password, u.PasswordHash) {
		return Session{}, common.ErrUnauthenticated
	}
	return s.issue(u, s.tokens.TTL())
}

func (s *UserService) issue(u models.User, ttl time.Duration) (Session, error) {
	tok, exp, err := s.tokens.IssueWithTTL(u.Principal(), ttl)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: tok, ExpiresAt: exp, TTL: ttl, User: u}, nil
}

// ReissueSession re-reads the stored user so a changed role or email takes
// effect without waiting for the old token to expire.
func (s *UserService) ReissueSession(ctx context.Context, userID string) (Session, error) {
	u, err := s.r.GetByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issue(u, s.tokens.TTL())
}

// IssueAPIKey mints a long-lived bearer token for ownerID. Callers gate it
// with the self-or-admin rule.
func (s *UserService) IssueAPIKey(ctx context.Context, ownerID string) (Session, error) {
	u, err := s.r.GetByID(ctx, ownerID)
	if err != nil {
		return Session{}, err
	}
	return s.issue(u, s.apiKeyTTL)
}

func (s *UserService) checkPassword(ctx context.Context, userID, password string) (models.User, error) {
	u, err := s.r.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if !auth.VerifyPassword(password, u.PasswordHash) {
		return models.User{}, fmt.Errorf("current password mismatch: %w", common.ErrForbidden)
	}
	return u, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if err := validatePassword(next); err != nil {
		return err
	}
	if _, err := s.checkPassword(ctx, userID, current); err != nil {
		return err
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.r.UpdatePassword(ctx, userID, hash)
}

func (s *UserService) ChangeEmail(ctx context.Context, userID, password, newEmail string) (models.User, error) {
	probe := models.User{Email: newEmail, Role: models.RoleClient}
	if err := probe.Validate(); err != nil {
		return models.User{}, err
	}
	if _, err := s.checkPassword(ctx, userID, password); err != nil {
		return models.User{}, err
	}
	if err := s.r.UpdateEmail(ctx, userID, probe.Email); err != nil {
		return models.User{}, err
	}
	return s.r.GetByID(ctx, userID)
}

func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	return s.r.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.r.List(ctx, limit, offset)
}

// SetRole changes the stored role. Tokens already issued keep the old role
// until they expire or the user refreshes the session.
func (s *UserService) SetRole(ctx context.Context, userID string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("role %q: %w", role, common.ErrBadRequest)
	}
	return s.r.UpdateRole(ctx, userID, role)
}

type Subscription struct {
	UserID  string          `json:"user_id"`
	Active  bool            `json:"active"`
	Balance decimal.Decimal `json:"balance"`
}

// Subscription is active while the balance is above zero.
func (s *UserService) Subscription(ctx context.Context, p models.Principal) (Subscription, error) {
	b, _, err := s.ledger.Read(ctx, p.ID)
	if err != nil {
		return Subscription{}, err
	}
	return Subscription{UserID: p.ID, Active: b.Amount.IsPositive(), Balance: b.Amount}, nil
}
