package pob_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/pob"
	"stockledger/internal/domain/stock"
	"stockledger/internal/domain/stock/stocktest"
)

type entryKey struct {
	location id.ID
	day      string
}

type memoryRepo struct {
	entries map[entryKey]pob.Entry
}

func (r *memoryRepo) Upsert(_ context.Context, e *pob.Entry) error {
	k := entryKey{e.LocationID, e.EntryDate.Format(time.DateOnly)}
	if existing, ok := r.entries[k]; ok {
		existing.Count = e.Count
		existing.RecordedBy = e.RecordedBy
		existing.UpdatedAt = e.UpdatedAt
		*e = existing
	}
	r.entries[k] = *e
	return nil
}

func (r *memoryRepo) List(_ context.Context, f pob.ListFilter) ([]pob.Entry, int64, error) {
	var out []pob.Entry
	for _, e := range r.entries {
		if f.LocationID == nil || e.LocationID == *f.LocationID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryRepo) Sum(_ context.Context, locationID id.ID, from, to time.Time) (int64, int, error) {
	var total int64
	var days int
	for _, e := range r.entries {
		if e.LocationID != locationID || e.EntryDate.Before(from) || e.EntryDate.After(to) {
			continue
		}
		total += e.Count
		days++
	}
	return total, days, nil
}

type periods map[id.ID]*period.Period

func (p periods) Get(_ context.Context, periodID id.ID) (*period.Period, error) {
	if v, ok := p[periodID]; ok {
		return v, nil
	}
	return nil, apperror.NewNotFound("period", periodID.String())
}

func day(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

func TestRecord_UpsertsPerDay(t *testing.T) {
	repo := &memoryRepo{entries: map[entryKey]pob.Entry{}}
	svc := pob.NewService(repo, periods{}, stock.NewService(stocktest.NewMemoryRepository()))
	ctx := context.Background()
	loc := id.New()

	first, err := svc.Record(ctx, pob.RecordInput{LocationID: loc, Date: day("2026-10-01").Add(15 * time.Hour), Count: 40})
	require.NoError(t, err)
	assert.Equal(t, day("2026-10-01"), first.EntryDate)

	second, err := svc.Record(ctx, pob.RecordInput{LocationID: loc, Date: day("2026-10-01"), Count: 42})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 42, second.Count)
	assert.Len(t, repo.entries, 1)

	_, err = svc.Record(ctx, pob.RecordInput{LocationID: loc, Date: day("2026-10-02"), Count: -1})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.Record(ctx, pob.RecordInput{LocationID: loc, Count: 1})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestMandayCost(t *testing.T) {
	ctx := context.Background()
	stockRepo := stocktest.NewMemoryRepository()
	stockSvc := stock.NewService(stockRepo)
	repo := &memoryRepo{entries: map[entryKey]pob.Entry{}}

	oct := &period.Period{ID: id.New(), StartDate: day("2026-10-01"), EndDate: day("2026-10-31"), Status: period.StatusOpen}
	svc := pob.NewService(repo, periods{oct.ID: oct}, stockSvc)
	loc, other, item := id.New(), id.New(), id.New()

	stockRepo.Seed(loc, item, types.MustQuantity("100"), types.MustMoney("3"))
	stockRepo.Seed(other, item, types.MustQuantity("100"), types.MustMoney("3"))
	for _, qty := range []string{"20", "30"} {
		_, err := stockSvc.Issue(ctx, stock.IssueInput{
			LocationID: loc, ItemID: item, Quantity: types.MustQuantity(qty),
			Source: stock.Source{Type: stock.SourceIssue, ID: id.New(), PeriodID: oct.ID},
		})
		require.NoError(t, err)
	}
	_, err := stockSvc.Issue(ctx, stock.IssueInput{
		LocationID: other, ItemID: item, Quantity: types.MustQuantity("10"),
		Source: stock.Source{Type: stock.SourceIssue, ID: id.New(), PeriodID: oct.ID},
	})
	require.NoError(t, err)

	empty, err := svc.MandayCost(ctx, loc, oct.ID)
	require.NoError(t, err)
	assert.Equal(t, "150.00", empty.TotalCost.StringFixed(2))
	assert.Zero(t, empty.Mandays)
	assert.Nil(t, empty.CostPerManday)

	for d, n := range map[string]int64{"2026-10-01": 20, "2026-10-02": 25, "2026-10-03": 15, "2026-11-01": 99} {
		_, err := svc.Record(ctx, pob.RecordInput{LocationID: loc, Date: day(d), Count: n})
		require.NoError(t, err)
	}

	res, err := svc.MandayCost(ctx, loc, oct.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 60, res.Mandays)
	assert.Equal(t, 3, res.DaysRecorded)
	require.NotNil(t, res.CostPerManday)
	assert.Equal(t, "2.50", res.CostPerManday.StringFixed(2))

	_, err = svc.MandayCost(ctx, loc, id.New())
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}
