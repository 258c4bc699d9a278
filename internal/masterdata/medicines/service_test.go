package medicines

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clinova/clinova/internal/masterdata/shared"
	"github.com/clinova/clinova/internal/platform/httpx"
)

type fakeRepo struct {
	medicines []Medicine
	batches   []Batch
	cutoff    time.Time
}

func (f *fakeRepo) List(ctx context.Context, filters shared.ListFilters, lowStock bool) ([]Medicine, int, error) {
	if lowStock {
		var low []Medicine
		for _, m := range f.medicines {
			if m.TotalStockUnits <= m.MinStockLevel {
				low = append(low, m)
			}
		}
		return low, len(low), nil
	}
	return f.medicines, len(f.medicines), nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (Medicine, error) {
	for _, m := range f.medicines {
		if m.ID == id {
			return m, nil
		}
	}
	return Medicine{}, httpx.ErrNotFound
}

func (f *fakeRepo) ExpiringBatches(ctx context.Context, before time.Time) ([]Batch, error) {
	f.cutoff = before
	return f.batches, nil
}

func TestGetRejectsInvalidID(t *testing.T) {
	svc := NewService(&fakeRepo{})
	_, err := svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestListLowStockFilter(t *testing.T) {
	repo := &fakeRepo{medicines: []Medicine{
		{ID: 1, Name: "Paracetamol 500mg", TotalStockUnits: 5, MinStockLevel: 10},
		{ID: 2, Name: "Ibuprofen 400mg", TotalStockUnits: 100, MinStockLevel: 10},
	}}
	svc := NewService(repo)

	low, total, err := svc.List(context.Background(), shared.ListFilters{}, true)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.EqualValues(t, 1, low[0].ID)
}

func TestExpiringDefaultsToNinetyDays(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.Expiring(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, now.AddDate(0, 0, 90), repo.cutoff)
}
