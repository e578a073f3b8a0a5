package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/stocktake"
	"stockledger/internal/domain/reports"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// ReconciliationHandler handles stock takes and the period value report.
type ReconciliationHandler struct {
	*BaseHandler
	service *stocktake.Service
	reports *reports.Service
}

// NewReconciliationHandler creates a new reconciliation handler.
func NewReconciliationHandler(base *BaseHandler, service *stocktake.Service, reports *reports.Service) *ReconciliationHandler {
	return &ReconciliationHandler{BaseHandler: base, service: service, reports: reports}
}

// Create opens a DRAFT stock take.
// POST /reconciliations
func (h *ReconciliationHandler) Create(c *gin.Context) {
	var req dto.CreateStockTakeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, doc)
}

// Start fills the count sheet from current balances.
// POST /reconciliations/:id/start
func (h *ReconciliationHandler) Start(c *gin.Context) {
	h.transition(c, h.service.Start)
}

// Complete posts adjustments for every counted difference.
// POST /reconciliations/:id/complete
func (h *ReconciliationHandler) Complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

// Cancel abandons a stock take.
// POST /reconciliations/:id/cancel
func (h *ReconciliationHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *ReconciliationHandler) transition(c *gin.Context, fn func(ctx context.Context, docID id.ID) (*stocktake.StockTake, error)) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	doc, err := fn(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// AddItem adds an item that has no balance to the count sheet.
// POST /reconciliations/:id/items
func (h *ReconciliationHandler) AddItem(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.AddStockTakeItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.AddItem(c.Request.Context(), docID, req.ItemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// SetCounted records the physical count of one line.
// PUT /reconciliations/:id/lines/:line
func (h *ReconciliationHandler) SetCounted(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	lineNo, err := strconv.Atoi(c.Param("line"))
	if err != nil || lineNo < 1 {
		h.Error(c, apperror.NewValidation("invalid line").WithDetail("line", c.Param("line")))
		return
	}

	var req dto.SetCountedRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.SetCounted(c.Request.Context(), docID, lineNo, req.Counted)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// Get returns a stock take with its lines.
// GET /reconciliations/:id
func (h *ReconciliationHandler) Get(c *gin.Context) {
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

// List returns stock takes.
// GET /reconciliations?period_id=&location_id=&status=
func (h *ReconciliationHandler) List(c *gin.Context) {
	var (
		f  stocktake.ListFilter
		ok bool
	)
	if f.PeriodID, ok = h.QueryID(c, "period_id"); !ok {
		return
	}
	if f.LocationID, ok = h.QueryID(c, "location_id"); !ok {
		return
	}
	if s := c.Query("status"); s != "" {
		status := stocktake.Status(s)
		f.Status = &status
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

// Report returns the value reconciliation of a location over a period.
// GET /reconciliations/report?period_id=&location_id=
func (h *ReconciliationHandler) Report(c *gin.Context) {
	periodID, ok := h.RequiredQueryID(c, "period_id")
	if !ok {
		return
	}
	locationID, ok := h.RequiredQueryID(c, "location_id")
	if !ok {
		return
	}

	report, err := h.reports.ValueReport(c.Request.Context(), periodID, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}
