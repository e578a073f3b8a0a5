package approval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/pkg/logger"
)

// Config controls reviewer rules.
type Config struct {
	// AllowSelfApproval lets the requester decide their own request.
	AllowSelfApproval bool
}

// Service manages approval records and dispatches decisions to the handler
// registered for each entity type.
type Service struct {
	repo      Repository
	txManager tx.Manager
	policy    Policy
	cfg       Config
	audit     domain.AuditRecorder
	events    domain.EventPublisher
	handlers  map[EntityType]Handler
	now       func() time.Time
}

// NewService creates a new approval service.
func NewService(
	repo Repository,
	txManager tx.Manager,
	policy Policy,
	cfg Config,
	audit domain.AuditRecorder,
	events domain.EventPublisher,
) *Service {
	if policy == nil {
		policy = NoAutoApproval{}
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		policy:    policy,
		cfg:       cfg,
		audit:     audit,
		events:    events,
		handlers:  make(map[EntityType]Handler),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register binds the handler executed when an entity type is decided.
func (s *Service) Register(entityType EntityType, h Handler) {
	s.handlers[entityType] = h
}

// Request opens (or reopens after rejection) the approval of an entity.
// It joins the caller's transaction when there is one.
func (s *Service) Request(ctx context.Context, in RequestInput) (*Approval, error) {
	if !in.EntityType.Valid() {
		return nil, apperror.NewValidation("unknown approval entity type").
			WithDetail("entity_type", in.EntityType)
	}
	if id.IsNil(in.EntityID) {
		return nil, apperror.NewValidation("entity id is required")
	}

	var result *Approval
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByEntityForUpdate(ctx, in.EntityType, in.EntityID)
		if err != nil {
			return fmt.Errorf("get approval: %w", err)
		}

		now := s.now()
		requester := appctx.ActorOrSystem(ctx)

		a := existing
		if a == nil {
			a = &Approval{
				ID:          id.New(),
				EntityType:  in.EntityType,
				EntityID:    in.EntityID,
				Status:      StatusPending,
				RequestedBy: requester,
				RequestedAt: now,
				Context:     in.Summary.toMap(),
				Version:     1,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.repo.Create(ctx, a); err != nil {
				return fmt.Errorf("create approval: %w", err)
			}
		} else {
			if a.Status != StatusRejected {
				return apperror.NewConflict("approval already requested").
					WithDetail("approval_id", a.ID.String()).
					WithDetail("status", a.Status)
			}
			a.Status = StatusPending
			a.RequestedBy = requester
			a.RequestedAt = now
			a.ReviewedBy = ""
			a.ReviewedAt = nil
			a.Comment = ""
			a.AutoApproved = false
			a.Context = in.Summary.toMap()
			a.UpdatedAt = now
			if err := s.repo.Update(ctx, a); err != nil {
				return fmt.Errorf("reopen approval: %w", err)
			}
		}

		if err := s.events.Publish(ctx, domain.Event{
			AggregateType: "approval",
			AggregateID:   a.ID,
			EventType:     "approval.requested",
			Payload:       a,
		}); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}

		auto, rule, err := s.policy.AutoApprove(a)
		if err != nil {
			logger.Warn(ctx, "auto-approval rule failed, leaving approval pending",
				"approval_id", a.ID, "entity_type", a.EntityType, "error", err)
			auto = false
		}
		if auto {
			a.AutoApproved = true
			if err := s.decide(ctx, a, StatusApproved, appctx.SystemActor, "auto-approved: "+rule); err != nil {
				return err
			}
		}

		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "approval requested",
		"approval_id", result.ID,
		"entity_type", result.EntityType,
		"entity_id", result.EntityID,
		"status", result.Status)

	return result, nil
}

// Approve records a positive decision and executes the gated action.
func (s *Service) Approve(ctx context.Context, approvalID id.ID, comment string) (*Approval, error) {
	return s.review(ctx, approvalID, StatusApproved, comment)
}

// Reject records a negative decision. A comment is required.
func (s *Service) Reject(ctx context.Context, approvalID id.ID, comment string) (*Approval, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, apperror.NewValidation("a comment is required when rejecting").
			WithDetail("field", "comment")
	}
	return s.review(ctx, approvalID, StatusRejected, comment)
}

func (s *Service) review(ctx context.Context, approvalID id.ID, status Status, comment string) (*Approval, error) {
	reviewer := appctx.GetUserID(ctx)
	if reviewer == "" {
		return nil, apperror.NewUnauthorized("reviewer identity is required")
	}

	var result *Approval
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetForUpdate(ctx, approvalID)
		if err != nil {
			return err
		}
		if a.Status != StatusPending {
			return apperror.NewApprovalNotPending(a.ID.String(), string(a.Status))
		}
		if !s.cfg.AllowSelfApproval && a.RequestedBy == reviewer {
			return apperror.NewSelfApprovalForbidden(a.ID.String())
		}

		if err := s.decide(ctx, a, status, reviewer, comment); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "approval decided",
		"approval_id", result.ID,
		"entity_type", result.EntityType,
		"entity_id", result.EntityID,
		"status", result.Status)

	return result, nil
}

// decide persists the decision and runs the entity handler in the current transaction.
func (s *Service) decide(ctx context.Context, a *Approval, status Status, reviewer, comment string) error {
	h, ok := s.handlers[a.EntityType]
	if !ok {
		return apperror.NewInternal(fmt.Errorf("no approval handler for %s", a.EntityType))
	}

	now := s.now()
	a.Status = status
	a.ReviewedBy = reviewer
	a.ReviewedAt = &now
	a.Comment = comment
	a.UpdatedAt = now

	if err := s.repo.Update(ctx, a); err != nil {
		return fmt.Errorf("update approval: %w", err)
	}

	var err error
	if status == StatusApproved {
		err = h.OnApproved(ctx, a)
	} else {
		err = h.OnRejected(ctx, a)
	}
	if err != nil {
		return err
	}

	if err := s.audit.Record(ctx, "approval", a.ID, strings.ToLower(string(status)), map[string]any{
		"entity_type": a.EntityType,
		"entity_id":   a.EntityID,
		"reviewed_by": reviewer,
		"comment":     comment,
	}); err != nil {
		return fmt.Errorf("audit approval: %w", err)
	}

	return s.events.Publish(ctx, domain.Event{
		AggregateType: "approval",
		AggregateID:   a.ID,
		EventType:     "approval." + strings.ToLower(string(status)),
		Payload:       a,
	})
}

// Get returns an approval by ID.
func (s *Service) Get(ctx context.Context, approvalID id.ID) (*Approval, error) {
	return s.repo.GetByID(ctx, approvalID)
}

// GetForEntity returns the approval of an entity, or NotFound.
func (s *Service) GetForEntity(ctx context.Context, entityType EntityType, entityID id.ID) (*Approval, error) {
	a, err := s.repo.GetByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperror.NewNotFound("approval", entityID.String())
	}
	return a, nil
}

// List returns approvals matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Approval], error) {
	page := domain.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*Approval]{}, err
	}
	return domain.ListResult[*Approval]{
		Items:      items,
		TotalCount: total,
		Limit:      page.Limit,
		Offset:     page.Offset,
	}, nil
}
