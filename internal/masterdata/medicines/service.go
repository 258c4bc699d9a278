package medicines

import (
	"context"
	"fmt"
	"time"

	"github.com/clinova/clinova/internal/masterdata/shared"
	"github.com/clinova/clinova/internal/platform/httpx"
)

// Service exposes read access to the medicine catalog. Writes happen through
// stock import commits only.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters, lowStock bool) ([]Medicine, int, error) {
	return s.repo.List(ctx, filters, lowStock)
}

func (s *Service) Get(ctx context.Context, id int64) (Medicine, error) {
	if id <= 0 {
		return Medicine{}, fmt.Errorf("%w: invalid medicine ID", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Expiring lists stocked batches expiring within the next withinDays days.
func (s *Service) Expiring(ctx context.Context, withinDays int) ([]Batch, error) {
	if withinDays <= 0 {
		withinDays = 90
	}
	cutoff := s.now().UTC().AddDate(0, 0, withinDays)
	return s.repo.ExpiringBatches(ctx, cutoff)
}
