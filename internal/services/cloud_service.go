package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/models"
	"github.com/nordlane/cloudcrm/internal/notify"
	repo "github.com/nordlane/cloudcrm/internal/repository"
)

type CloudServiceService struct {
	r      repo.CloudServices
	notify Notifier
}

func NewCloudServiceService(r repo.CloudServices, n Notifier) *CloudServiceService {
	if n == nil {
		n = nopNotifier{}
	}
	return &CloudServiceService{r: r, notify: n}
}

func (s *CloudServiceService) ListForUser(ctx context.Context, userID string) ([]models.CloudService, error) {
	return s.r.ListByUser(ctx, userID)
}

func (s *CloudServiceService) ListAll(ctx context.Context, limit, offset int) ([]models.CloudService, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.r.ListAll(ctx, limit, offset)
}

func (s *CloudServiceService) Create(ctx context.Context, userID, name string, pricePerDay decimal.Decimal) (models.CloudService, error) {
	name = strings.TrimSpace(name)
	if userID == "" || name == "" {
		return models.CloudService{}, fmt.Errorf("user_id and name required: %w", common.ErrBadRequest)
	}
	if pricePerDay.IsNegative() || !pricePerDay.Equal(pricePerDay.Round(2)) {
		return models.CloudService{}, fmt.Errorf("price_per_day: %w", common.ErrBadRequest)
	}
	return s.r.Create(ctx, models.CloudService{
		UserID:      userID,
		Name:        name,
		PricePerDay: pricePerDay,
		Status:      models.ServiceActive,
	})
}

// Delete removes the service and tells its owner.
func (s *CloudServiceService) Delete(ctx context.Context, id string) error {
	svc, err := s.r.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.r.Delete(ctx, id); err != nil {
		return err
	}
	s.notify.Notify(notify.Message{
		Kind:   notify.KindServiceDeleted,
		UserID: svc.UserID,
		Text:   fmt.Sprintf("Service %q was deleted", svc.Name),
	})
	return nil
}
