package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/id"
	"stockledger/internal/infrastructure/storage/postgres"
)

// AuditHistory reads the change log of an entity.
type AuditHistory interface {
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

// AuditHandler exposes the audit log.
type AuditHandler struct {
	*BaseHandler
	history AuditHistory
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, history AuditHistory) *AuditHandler {
	return &AuditHandler{BaseHandler: base, history: history}
}

// History returns the newest audit entries of an entity.
// GET /audit/:entity_type/:entity_id?limit=
func (h *AuditHandler) History(c *gin.Context) {
	entityID, ok := h.PathID(c, "entity_id")
	if !ok {
		return
	}
	limit := h.Page(c).Limit

	entries, err := h.history.GetEntityHistory(c.Request.Context(), c.Param("entity_type"), entityID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": entries})
}
