package models

import (
	"strings"
	"time"

	"github.com/nordlane/cloudcrm/internal/common"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleClient }

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the identity carried by a verified session token. It is
// derived from claims alone, so its Role may lag behind the stored user
// until the token is reissued.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u User) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, Role: u.Role}
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) Validate() error {
	u.Email = NormalizeEmail(u.Email)
	if !strings.Contains(u.Email, "@") || len(u.Email) < 3 {
		return common.ErrBadRequest
	}
	if u.Role == "" {
		u.Role = RoleClient
	}
	if !u.Role.Valid() {
		return common.ErrBadRequest
	}
	return nil
}
