package issue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain"
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/stock"
	"stockledger/internal/domain/stock/stocktest"
)

type memoryRepo struct {
	docs  map[id.ID]*issue.Issue
	lines map[id.ID][]issue.Line
}

func (r *memoryRepo) Create(_ context.Context, d *issue.Issue) error {
	cp := *d
	r.docs[d.ID] = &cp
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, docID id.ID) (*issue.Issue, error) {
	d, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("issue", docID.String())
	}
	cp := *d
	return &cp, nil
}

func (r *memoryRepo) List(context.Context, issue.ListFilter) ([]*issue.Issue, int64, error) {
	var out []*issue.Issue
	for _, d := range r.docs {
		out = append(out, d)
	}
	return out, int64(len(out)), nil
}

func (r *memoryRepo) GetLines(_ context.Context, docID id.ID) ([]issue.Line, error) {
	return r.lines[docID], nil
}

func (r *memoryRepo) SaveLines(_ context.Context, docID id.ID, lines []issue.Line) error {
	r.lines[docID] = lines
	return nil
}

type openPeriod struct{ p *period.Period }

func (o openPeriod) ResolveOpen(context.Context, time.Time, id.ID) (*period.Period, error) {
	return o.p, nil
}

func newService() (*issue.Service, *memoryRepo, *stocktest.MemoryRepository) {
	repo := &memoryRepo{docs: map[id.ID]*issue.Issue{}, lines: map[id.ID][]issue.Line{}}
	stockRepo := stocktest.NewMemoryRepository()
	svc := issue.NewService(repo, &numerator.MockGenerator{}, &tx.MockManager{},
		openPeriod{p: &period.Period{ID: id.New(), Status: period.StatusOpen}},
		stock.NewService(stockRepo), domain.NopPublisher{})
	return svc, repo, stockRepo
}

func TestService_CreateCapturesValueAtWAC(t *testing.T) {
	svc, repo, stockRepo := newService()
	ctx := context.Background()
	location, rice, beans := id.New(), id.New(), id.New()
	stockRepo.Seed(location, rice, types.MustQuantity("20"), types.MustMoney("1.25"))
	stockRepo.Seed(location, beans, types.MustQuantity("5"), types.MustMoney("3.3333"))

	doc := issue.NewIssue(location)
	doc.CostCentre = "GALLEY"
	doc.AddLine(rice, types.MustQuantity("8"))
	doc.AddLine(beans, types.MustQuantity("3"))
	require.NoError(t, svc.Create(ctx, doc))

	assert.Contains(t, doc.Number, "ISS-")
	assert.True(t, doc.Lines[0].WACAtIssue.Equal(types.MustMoney("1.25")))
	assert.Equal(t, "10.00", doc.Lines[0].LineValue.StringFixed(2))
	assert.Equal(t, "10.00", doc.Lines[1].LineValue.StringFixed(2))
	assert.Equal(t, "20.00", doc.TotalValue.StringFixed(2))

	bal, err := stock.NewService(stockRepo).GetBalance(ctx, location, rice)
	require.NoError(t, err)
	assert.Equal(t, types.MustQuantity("12"), bal.Quantity)
	assert.True(t, bal.WAC.Equal(types.MustMoney("1.25")))

	got, err := svc.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, got.Lines, 2)
	assert.Len(t, repo.docs, 1)
}

func TestService_CreateRejectsNegativeStock(t *testing.T) {
	svc, repo, stockRepo := newService()
	location, item := id.New(), id.New()
	stockRepo.Seed(location, item, types.MustQuantity("2"), types.MustMoney("1"))

	doc := issue.NewIssue(location)
	doc.AddLine(item, types.MustQuantity("3"))
	err := svc.Create(context.Background(), doc)

	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	assert.Empty(t, repo.docs)
}

func TestService_List(t *testing.T) {
	svc, _, stockRepo := newService()
	location, item := id.New(), id.New()
	stockRepo.Seed(location, item, types.MustQuantity("2"), types.MustMoney("1"))

	doc := issue.NewIssue(location)
	doc.AddLine(item, types.MustQuantity("1"))
	require.NoError(t, svc.Create(context.Background(), doc))

	res, err := svc.List(context.Background(), issue.ListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.TotalCount)
	assert.Equal(t, domain.DefaultPageLimit, res.Limit)
}
