package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	issuesTable     = "doc_issues"
	issueLinesTable = "doc_issue_lines"
)

// IssueRepo implements issue.Repository.
type IssueRepo struct {
	*BaseDocumentRepo[*issue.Issue]
	lines *LineTable[issue.Line]
}

// NewIssueRepo creates a new issue repository.
func NewIssueRepo(txm *postgres.TxManager) *IssueRepo {
	return &IssueRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			issuesTable,
			"issue",
			postgres.ExtractDBColumns[issue.Issue](),
			func() *issue.Issue { return &issue.Issue{} },
		),
		lines: NewLineTable[issue.Line](txm, issueLinesTable),
	}
}

// List retrieves issues with filtering.
func (r *IssueRepo) List(ctx context.Context, filter issue.ListFilter) ([]*issue.Issue, int64, error) {
	q := r.BaseSelect()

	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.PeriodID != nil {
		q = q.Where(squirrel.Eq{"period_id": *filter.PeriodID})
	}
	if filter.CostCentre != "" {
		q = q.Where(squirrel.Eq{"cost_centre": filter.CostCentre})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"doc_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"doc_date": *filter.DateTo})
	}

	return r.BaseDocumentRepo.List(ctx, q, filter.Limit, filter.Offset)
}

// GetLines retrieves lines for an issue.
func (r *IssueRepo) GetLines(ctx context.Context, docID id.ID) ([]issue.Line, error) {
	return r.lines.Get(ctx, docID)
}

// SaveLines replaces the lines of an issue.
func (r *IssueRepo) SaveLines(ctx context.Context, docID id.ID, lines []issue.Line) error {
	return r.lines.Replace(ctx, docID, lines)
}

var _ issue.Repository = (*IssueRepo)(nil)
