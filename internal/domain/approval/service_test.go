package approval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
)

type memoryRepo struct {
	byID map[id.ID]*Approval
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byID: make(map[id.ID]*Approval)}
}

func (r *memoryRepo) Create(_ context.Context, a *Approval) error {
	for _, existing := range r.byID {
		if existing.EntityType == a.EntityType && existing.EntityID == a.EntityID {
			return apperror.NewDuplicate("approval", "entity_id", a.EntityID.String())
		}
	}
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memoryRepo) Update(_ context.Context, a *Approval) error {
	stored, ok := r.byID[a.ID]
	if !ok {
		return apperror.NewNotFound("approval", a.ID.String())
	}
	if stored.Version != a.Version {
		return apperror.NewConcurrentModification("approval", a.ID.String())
	}
	a.Version++
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, approvalID id.ID) (*Approval, error) {
	a, ok := r.byID[approvalID]
	if !ok {
		return nil, apperror.NewNotFound("approval", approvalID.String())
	}
	cp := *a
	return &cp, nil
}

func (r *memoryRepo) GetForUpdate(ctx context.Context, approvalID id.ID) (*Approval, error) {
	return r.GetByID(ctx, approvalID)
}

func (r *memoryRepo) GetByEntity(_ context.Context, et EntityType, entityID id.ID) (*Approval, error) {
	for _, a := range r.byID {
		if a.EntityType == et && a.EntityID == entityID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) GetByEntityForUpdate(ctx context.Context, et EntityType, entityID id.ID) (*Approval, error) {
	return r.GetByEntity(ctx, et, entityID)
}

func (r *memoryRepo) List(_ context.Context, f ListFilter) ([]*Approval, int64, error) {
	var out []*Approval
	for _, a := range r.byID {
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.EntityType != nil && a.EntityType != *f.EntityType {
			continue
		}
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

type recordingHandler struct {
	approved []id.ID
	rejected []id.ID
	err      error
}

func (h *recordingHandler) OnApproved(_ context.Context, a *Approval) error {
	if h.err != nil {
		return h.err
	}
	h.approved = append(h.approved, a.EntityID)
	return nil
}

func (h *recordingHandler) OnRejected(_ context.Context, a *Approval) error {
	h.rejected = append(h.rejected, a.EntityID)
	return nil
}

func asUser(userID string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: userID})
}

func newTestService(t *testing.T, policy Policy, cfg Config) (*Service, *memoryRepo, *recordingHandler) {
	t.Helper()
	repo := newMemoryRepo()
	svc := NewService(repo, &tx.MockManager{}, policy, cfg, domain.NopAuditRecorder{}, domain.NopPublisher{})
	h := &recordingHandler{}
	svc.Register(EntityTransfer, h)
	svc.Register(EntityPRF, h)
	return svc, repo, h
}

func TestService_RequestAndApprove(t *testing.T) {
	svc, _, h := newTestService(t, nil, Config{})
	entityID := id.New()

	a, err := svc.Request(asUser("requester"), RequestInput{EntityType: EntityTransfer, EntityID: entityID})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, a.Status)
	assert.Equal(t, "requester", a.RequestedBy)

	decided, err := svc.Approve(asUser("manager"), a.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, decided.Status)
	assert.Equal(t, "manager", decided.ReviewedBy)
	assert.NotNil(t, decided.ReviewedAt)
	assert.Equal(t, []id.ID{entityID}, h.approved)

	_, err = svc.Approve(asUser("manager"), a.ID, "again")
	assert.True(t, apperror.HasCode(err, apperror.CodeApprovalNotPending))
}

func TestService_RequestTwiceIsConflict(t *testing.T) {
	svc, _, _ := newTestService(t, nil, Config{})
	entityID := id.New()

	_, err := svc.Request(asUser("requester"), RequestInput{EntityType: EntityPRF, EntityID: entityID})
	require.NoError(t, err)

	_, err = svc.Request(asUser("requester"), RequestInput{EntityType: EntityPRF, EntityID: entityID})
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
}

func TestService_RejectThenResubmitReusesRecord(t *testing.T) {
	svc, repo, h := newTestService(t, nil, Config{})
	entityID := id.New()

	a, err := svc.Request(asUser("requester"), RequestInput{EntityType: EntityPRF, EntityID: entityID})
	require.NoError(t, err)

	_, err = svc.Reject(asUser("manager"), a.ID, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	rejected, err := svc.Reject(asUser("manager"), a.ID, "over budget")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, []id.ID{entityID}, h.rejected)

	again, err := svc.Request(asUser("requester"), RequestInput{EntityType: EntityPRF, EntityID: entityID})
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID)
	assert.Equal(t, StatusPending, again.Status)
	assert.Empty(t, again.ReviewedBy)
	assert.Len(t, repo.byID, 1)
}

func TestService_SelfApproval(t *testing.T) {
	svc, _, _ := newTestService(t, nil, Config{})
	a, err := svc.Request(asUser("alex"), RequestInput{EntityType: EntityTransfer, EntityID: id.New()})
	require.NoError(t, err)

	_, err = svc.Approve(asUser("alex"), a.ID, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeSelfApprovalForbidden))

	permissive, _, _ := newTestService(t, nil, Config{AllowSelfApproval: true})
	b, err := permissive.Request(asUser("alex"), RequestInput{EntityType: EntityTransfer, EntityID: id.New()})
	require.NoError(t, err)
	_, err = permissive.Approve(asUser("alex"), b.ID, "")
	assert.NoError(t, err)
}

func TestService_ReviewRequiresIdentity(t *testing.T) {
	svc, _, _ := newTestService(t, nil, Config{})
	a, err := svc.Request(asUser("requester"), RequestInput{EntityType: EntityTransfer, EntityID: id.New()})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), a.ID, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestService_HandlerFailureAbortsDecision(t *testing.T) {
	svc, repo, h := newTestService(t, nil, Config{})
	a, err := svc.Request(asUser("requester"), RequestInput{EntityType: EntityTransfer, EntityID: id.New()})
	require.NoError(t, err)

	h.err = errors.New("stock moved")
	_, err = svc.Approve(asUser("manager"), a.ID, "")
	require.ErrorIs(t, err, h.err)
	assert.Empty(t, h.approved)
	assert.NotNil(t, repo.byID[a.ID])
}

func TestService_AutoApproveByPolicy(t *testing.T) {
	policy, err := NewCELPolicy(map[string]string{
		"TRANSFER": `total_value < 500.0 && line_count <= 3`,
	})
	require.NoError(t, err)

	svc, _, h := newTestService(t, policy, Config{})

	small, err := svc.Request(asUser("requester"), RequestInput{
		EntityType: EntityTransfer, EntityID: id.New(),
		Summary: Summary{TotalValue: 120, LineCount: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, small.Status)
	assert.True(t, small.AutoApproved)
	assert.Equal(t, appctx.SystemActor, small.ReviewedBy)
	assert.Len(t, h.approved, 1)

	large, err := svc.Request(asUser("requester"), RequestInput{
		EntityType: EntityTransfer, EntityID: id.New(),
		Summary: Summary{TotalValue: 9000, LineCount: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, large.Status)

	prf, err := svc.Request(asUser("requester"), RequestInput{
		EntityType: EntityPRF, EntityID: id.New(),
		Summary: Summary{TotalValue: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, prf.Status)
}

func TestNewCELPolicy_RejectsBadRules(t *testing.T) {
	_, err := NewCELPolicy(map[string]string{"TRANSFER": `total_value +`})
	assert.Error(t, err)

	_, err = NewCELPolicy(map[string]string{"TRANSFER": `total_value * 2.0`})
	assert.Error(t, err)

	_, err = NewCELPolicy(map[string]string{"INVOICE": `true`})
	assert.Error(t, err)
}
