// Package approval_repo provides the PostgreSQL implementation of approval.Repository.
package approval_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/approval"
	"stockledger/internal/infrastructure/storage/postgres"
)

const approvalsTable = "approvals"

// ApprovalRepo implements approval.Repository.
type ApprovalRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	columns []string
}

// NewApprovalRepo creates a new approval repository.
func NewApprovalRepo(txm *postgres.TxManager) *ApprovalRepo {
	return &ApprovalRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[approval.Approval](),
	}
}

// Create inserts a new approval. The (entity_type, entity_id) pair is unique.
func (r *ApprovalRepo) Create(ctx context.Context, a *approval.Approval) error {
	sql, args, err := r.builder.Insert(approvalsTable).
		Columns(r.columns...).
		Values(postgres.RowValues(a, r.columns)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert approval: %w", err), "approval", a.ID)
	}
	return nil
}

// Update writes status fields with optimistic locking on Version.
func (r *ApprovalRepo) Update(ctx context.Context, a *approval.Approval) error {
	sql, args, err := r.builder.Update(approvalsTable).
		Set("status", a.Status).
		Set("requested_by", a.RequestedBy).
		Set("requested_at", a.RequestedAt).
		Set("reviewed_by", a.ReviewedBy).
		Set("reviewed_at", a.ReviewedAt).
		Set("comment", a.Comment).
		Set("auto_approved", a.AutoApproved).
		Set("context", a.Context).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", a.UpdatedAt).
		Where(squirrel.Eq{"id": a.ID, "version": a.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update approval: %w", err), "approval", a.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("approval", a.ID)
	}

	a.Version++
	return nil
}

// GetByID retrieves an approval by ID.
func (r *ApprovalRepo) GetByID(ctx context.Context, approvalID id.ID) (*approval.Approval, error) {
	return r.get(ctx, r.selectAll().Where(squirrel.Eq{"id": approvalID}), approvalID)
}

// GetForUpdate retrieves an approval with row lock.
func (r *ApprovalRepo) GetForUpdate(ctx context.Context, approvalID id.ID) (*approval.Approval, error) {
	return r.get(ctx, r.selectAll().Where(squirrel.Eq{"id": approvalID}).Suffix("FOR UPDATE"), approvalID)
}

// GetByEntityForUpdate returns nil, nil when the entity has no approval yet.
func (r *ApprovalRepo) GetByEntityForUpdate(ctx context.Context, entityType approval.EntityType, entityID id.ID) (*approval.Approval, error) {
	return r.find(ctx, r.selectAll().
		Where(squirrel.Eq{"entity_type": entityType, "entity_id": entityID}).
		Suffix("FOR UPDATE"))
}

// GetByEntity returns the approval of an entity, or nil.
func (r *ApprovalRepo) GetByEntity(ctx context.Context, entityType approval.EntityType, entityID id.ID) (*approval.Approval, error) {
	return r.find(ctx, r.selectAll().
		Where(squirrel.Eq{"entity_type": entityType, "entity_id": entityID}))
}

// List retrieves approvals, most recently requested first.
func (r *ApprovalRepo) List(ctx context.Context, filter approval.ListFilter) ([]*approval.Approval, int64, error) {
	q := r.selectAll()
	if filter.EntityType != nil {
		q = q.Where(squirrel.Eq{"entity_type": *filter.EntityType})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	querier := r.txm.GetQuerier(ctx)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count approvals: %w", err)
	}

	q = q.OrderBy("requested_at DESC", "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var items []*approval.Approval
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list approvals: %w", err)
	}
	return items, total, nil
}

func (r *ApprovalRepo) selectAll() squirrel.SelectBuilder {
	return r.builder.Select(r.columns...).From(approvalsTable)
}

func (r *ApprovalRepo) get(ctx context.Context, q squirrel.SelectBuilder, approvalID id.ID) (*approval.Approval, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var a approval.Approval
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &a, sql, args...); err != nil {
		return nil, postgres.MapError(err, "approval", approvalID)
	}
	return &a, nil
}

func (r *ApprovalRepo) find(ctx context.Context, q squirrel.SelectBuilder) (*approval.Approval, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var a approval.Approval
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &a, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find approval: %w", err)
	}
	return &a, nil
}

var _ approval.Repository = (*ApprovalRepo)(nil)
