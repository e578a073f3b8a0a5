package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// IssueHandler handles stock issues.
type IssueHandler struct {
	*BaseHandler
	service *issue.Service
}

// NewIssueHandler creates a new issue handler.
func NewIssueHandler(base *BaseHandler, service *issue.Service) *IssueHandler {
	return &IssueHandler{BaseHandler: base, service: service}
}

// Create posts an issue at the current WAC.
// POST /issues
func (h *IssueHandler) Create(c *gin.Context) {
	var req dto.CreateIssueRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, doc)
}

// Get returns an issue.
// GET /issues/:id
func (h *IssueHandler) Get(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// List returns issues.
// GET /issues?location_id=&period_id=&cost_centre=&from=&to=
func (h *IssueHandler) List(c *gin.Context) {
	var (
		f  issue.ListFilter
		ok bool
	)
	if f.LocationID, ok = h.QueryID(c, "location_id"); !ok {
		return
	}
	if f.PeriodID, ok = h.QueryID(c, "period_id"); !ok {
		return
	}
	if f.DateFrom, ok = h.QueryDate(c, "from"); !ok {
		return
	}
	if f.DateTo, ok = h.QueryDate(c, "to"); !ok {
		return
	}
	f.CostCentre = c.Query("cost_centre")
	page := h.Page(c)
	f.Limit, f.Offset = page.Limit, page.Offset

	result, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}
