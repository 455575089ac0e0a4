package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/models"
)

type cloudServicesRepo struct{ db DB }

const serviceColumns = `id, user_id, name, price_per_day, status, created_at`

func scanService(row pgx.Row) (models.CloudService, error) {
	var (
		s      models.CloudService
		status string
	)
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.PricePerDay, &status, &s.CreatedAt)
	s.Status = models.ServiceStatus(status)
	return s, err
}

func (r *cloudServicesRepo) Create(ctx context.Context, s models.CloudService) (models.CloudService, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = models.ServiceActive
	}
	created, err := scanService(r.db.QueryRow(ctx,
		`INSERT INTO cloud_services(id, user_id, name, price_per_day, status)
		 VALUES($1, $2, $3, $4, $5)
		 RETURNING `+serviceColumns,
		s.ID, s.UserID, s.Name, s.PricePerDay, string(s.Status),
	))
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return models.CloudService{}, fmt.Errorf("user %s: %w", s.UserID, common.ErrNotFound)
		}
		return models.CloudService{}, err
	}
	return created, nil
}

func (r *cloudServicesRepo) Get(ctx context.Context, id string) (models.CloudService, error) {
	s, err := scanService(r.db.QueryRow(ctx,
		`SELECT `+serviceColumns+` FROM cloud_services WHERE id=$1`, id))
	return s, notFound(err)
}

func (r *cloudServicesRepo) ListByUser(ctx context.Context, userID string) ([]models.CloudService, error) {
	return r.list(ctx,
		`SELECT `+serviceColumns+` FROM cloud_services WHERE user_id=$1 ORDER BY created_at`, userID)
}

func (r *cloudServicesRepo) ListActive(ctx context.Context) ([]models.CloudService, error) {
	return r.list(ctx,
		`SELECT `+serviceColumns+` FROM cloud_services WHERE status=$1 ORDER BY user_id, created_at`,
		string(models.ServiceActive))
}

func (r *cloudServicesRepo) ListAll(ctx context.Context, limit, offset int) ([]models.CloudService, error) {
	return r.list(ctx,
		`SELECT `+serviceColumns+` FROM cloud_services ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
}

func (r *cloudServicesRepo) list(ctx context.Context, sql string, args ...any) ([]models.CloudService, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.CloudService{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *cloudServicesRepo) UpdateStatus(ctx context.Context, id string, status models.ServiceStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE cloud_services SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *cloudServicesRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cloud_services WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}
