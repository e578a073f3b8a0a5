package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/approval"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// ApprovalHandler exposes the approval queue and decisions.
type ApprovalHandler struct {
	*BaseHandler
	service *approval.Service
}

// NewApprovalHandler creates a new approval handler.
func NewApprovalHandler(base *BaseHandler, service *approval.Service) *ApprovalHandler {
	return &ApprovalHandler{BaseHandler: base, service: service}
}

// List returns approvals.
// GET /approvals?status=PENDING&entity_type=TRANSFER
func (h *ApprovalHandler) List(c *gin.Context) {
	var f approval.ListFilter
	if s := c.Query("status"); s != "" {
		status := approval.Status(s)
		f.Status = &status
	}
	if s := c.Query("entity_type"); s != "" {
		et := approval.EntityType(s)
		if !et.Valid() {
			h.Error(c, apperror.NewValidation("unknown entity_type").WithDetail("entity_type", s))
			return
		}
		f.EntityType = &et
	}
	page := h.Page(c)
	f.Limit, f.Offset = page.Limit, page.Offset

	result, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Get returns one approval.
// GET /approvals/:id
func (h *ApprovalHandler) Get(c *gin.Context) {
	approvalID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	a, err := h.service.Get(c.Request.Context(), approvalID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, a)
}

// Approve grants a pending approval and executes the gated entity.
// POST /approvals/:id/approve
func (h *ApprovalHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject refuses a pending approval.
// POST /approvals/:id/reject
func (h *ApprovalHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

type decision func(ctx context.Context, approvalID id.ID, comment string) (*approval.Approval, error)

func (h *ApprovalHandler) decide(c *gin.Context, fn decision) {
	approvalID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.CommentRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	a, err := fn(c.Request.Context(), approvalID, req.Comment)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, a)
}
