package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/models"
)

type usersRepo struct{ db DB }

const userColumns = `id, email, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var (
		u    models.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt)
	u.Role = models.Role(role)
	return u, err
}

func (r *usersRepo) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	created, err := scanUser(r.db.QueryRow(ctx,
		`INSERT INTO users(id, email, password_hash, role)
		 VALUES($1, $2, $3, $4)
		 RETURNING `+userColumns,
		u.ID, u.Email, u.PasswordHash, string(u.Role),
	))
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return models.User{}, fmt.Errorf("email %q: %w", u.Email, common.ErrConflict)
		}
		return models.User{}, err
	}
	return created, nil
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	return u, notFound(err)
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=$1`, email))
	return u, notFound(err)
}

func (r *usersRepo) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+`
		   FROM users
		  ORDER BY created_at DESC
		  LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *usersRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.update(ctx, `UPDATE users SET password_hash=$2, updated_at=now() WHERE id=$1`, id, hash)
}

func (r *usersRepo) UpdateEmail(ctx context.Context, id, email string) error {
	err := r.update(ctx, `UPDATE users SET email=$2, updated_at=now() WHERE id=$1`, id, email)
	if pgCode(err) == codeUniqueViolation {
		return fmt.Errorf("email %q: %w", email, common.ErrConflict)
	}
	return err
}

func (r *usersRepo) UpdateRole(ctx context.Context, id string, role models.Role) error {
	return r.update(ctx, `UPDATE users SET role=$2, updated_at=now() WHERE id=$1`, id, string(role))
}

func (r *usersRepo) update(ctx context.Context, sql string, args ...any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}
