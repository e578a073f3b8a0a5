// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/infrastructure/http/v1/dto"
	"stockledger/internal/infrastructure/http/v1/middleware"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers error on Gin context and aborts request.
// The JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// PathID parses a UUID path parameter.
func (h *BaseHandler) PathID(c *gin.Context, name string) (id.ID, bool) {
	raw := c.Param(name)
	parsed, err := id.Parse(raw)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+name).WithDetail(name, raw))
		return id.Nil(), false
	}
	return parsed, true
}

// QueryID parses an optional UUID query parameter.
func (h *BaseHandler) QueryID(c *gin.Context, name string) (*id.ID, bool) {
	parsed, err := id.ParseOptional(c.Query(name))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+name).WithDetail(name, c.Query(name)))
		return nil, false
	}
	return parsed, true
}

// RequiredQueryID parses a mandatory UUID query parameter.
func (h *BaseHandler) RequiredQueryID(c *gin.Context, name string) (id.ID, bool) {
	parsed, ok := h.QueryID(c, name)
	if !ok {
		return id.Nil(), false
	}
	if parsed == nil {
		h.Error(c, apperror.NewValidation(name+" is required"))
		return id.Nil(), false
	}
	return *parsed, true
}

// QueryIDs parses a repeated UUID query parameter (?item_id=a&item_id=b).
func (h *BaseHandler) QueryIDs(c *gin.Context, name string) ([]id.ID, bool) {
	raw := c.QueryArray(name)
	out := make([]id.ID, 0, len(raw))
	for _, s := range raw {
		parsed, err := id.Parse(s)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid "+name).WithDetail(name, s))
			return nil, false
		}
		out = append(out, parsed)
	}
	return out, true
}

// QueryDate parses an optional YYYY-MM-DD query parameter.
func (h *BaseHandler) QueryDate(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	d, err := dto.ParseDate(raw)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+name).WithDetail(name, raw))
		return nil, false
	}
	return &d.Time, true
}

// QueryBool parses an optional boolean query parameter.
func (h *BaseHandler) QueryBool(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+name).WithDetail(name, raw))
		return nil, false
	}
	return &v, true
}

// Page reads limit and offset, clamped to the list bounds.
func (h *BaseHandler) Page(c *gin.Context) domain.Page {
	return domain.Page{
		Limit:  h.ParseIntQuery(c, "limit", domain.DefaultPageLimit),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}.Normalize()
}

// ParseIntQuery parses integer query parameter with default value.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// GetUserID extracts user ID from request context.
func (h *BaseHandler) GetUserID(c *gin.Context) string {
	return appctx.GetUserID(c.Request.Context())
}

// Created sends 201 response with the created resource.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	middleware.CompleteIdempotency(c, http.StatusCreated, "application/json", data)
	c.JSON(http.StatusCreated, data)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	middleware.CompleteIdempotency(c, http.StatusOK, "application/json", data)
	c.JSON(http.StatusOK, data)
}

// NoContent sends 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	// 204 must replay as 204 with empty body.
	middleware.CompleteIdempotency(c, http.StatusNoContent, "", nil)
	c.Status(http.StatusNoContent)
}
