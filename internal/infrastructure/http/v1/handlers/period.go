package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/period"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// PeriodHandler manages accounting periods, locked prices and per-location
// readiness.
type PeriodHandler struct {
	*BaseHandler
	service *period.Service
}

// NewPeriodHandler creates a new period handler.
func NewPeriodHandler(base *BaseHandler, service *period.Service) *PeriodHandler {
	return &PeriodHandler{BaseHandler: base, service: service}
}

// Create creates a DRAFT period.
// POST /periods
func (h *PeriodHandler) Create(c *gin.Context) {
	var req dto.CreatePeriodRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, p)
}

// Get returns a period.
// GET /periods/:id
func (h *PeriodHandler) Get(c *gin.Context) {
	periodID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// List returns periods.
// GET /periods?status=
func (h *PeriodHandler) List(c *gin.Context) {
	var f period.ListFilter
	if s := c.Query("status"); s != "" {
		status := period.Status(s)
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

// Open opens a DRAFT period and locks its prices.
// POST /periods/:id/open
func (h *PeriodHandler) Open(c *gin.Context) {
	h.transition(c, h.service.Open)
}

// RequestClose asks for approval to close a period.
// POST /periods/:id/request-close
func (h *PeriodHandler) RequestClose(c *gin.Context) {
	h.transition(c, h.service.RequestClose)
}

// Close closes an APPROVED period and writes its snapshot.
// POST /periods/:id/close
func (h *PeriodHandler) Close(c *gin.Context) {
	h.transition(c, h.service.Close)
}

func (h *PeriodHandler) transition(c *gin.Context, fn func(ctx context.Context, periodID id.ID) (*period.Period, error)) {
	periodID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	p, err := fn(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// SetPrices upserts locked prices of a DRAFT period.
// PUT /periods/:id/prices
func (h *PeriodHandler) SetPrices(c *gin.Context) {
	periodID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.SetPricesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.SetPrices(c.Request.Context(), periodID, req.ToInput()); err != nil {
		h.Error(c, err)
		return
	}

	prices, err := h.service.ListPrices(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": prices})
}

// CopyPrices copies locked prices from another period into a DRAFT period.
// POST /periods/:id/prices/copy
func (h *PeriodHandler) CopyPrices(c *gin.Context) {
	periodID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.CopyPricesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	n, err := h.service.CopyPrices(c.Request.Context(), req.FromPeriodID, periodID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.CountResponse{Count: n})
}

// ListPrices returns the locked prices of a period.
// GET /periods/:id/prices
func (h *PeriodHandler) ListPrices(c *gin.Context) {
	periodID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	prices, err := h.service.ListPrices(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": prices})
}

// ListLocations returns the sub-status of every location in a period.
// GET /periods/:id/locations
func (h *PeriodHandler) ListLocations(c *gin.Context) {
	periodID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	states, err := h.service.ListLocationStates(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": states})
}

// MarkLocationReady marks a location READY for close.
// POST /periods/:id/locations/:location/ready
func (h *PeriodHandler) MarkLocationReady(c *gin.Context) {
	h.locationTransition(c, h.service.MarkLocationReady)
}

// ReopenLocation returns a READY location to OPEN.
// POST /periods/:id/locations/:location/reopen
func (h *PeriodHandler) ReopenLocation(c *gin.Context) {
	h.locationTransition(c, h.service.ReopenLocation)
}

func (h *PeriodHandler) locationTransition(c *gin.Context, fn func(ctx context.Context, periodID, locationID id.ID) (*period.LocationState, error)) {
	periodID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	locationID, ok := h.PathID(c, "location")
	if !ok {
		return
	}

	state, err := fn(c.Request.Context(), periodID, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, state)
}

// ListSnapshots returns the close snapshot of a period.
// GET /periods/:id/snapshots?location_id=
func (h *PeriodHandler) ListSnapshots(c *gin.Context) {
	periodID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	locationID, ok := h.QueryID(c, "location_id")
	if !ok {
		return
	}

	snaps, err := h.service.ListSnapshots(c.Request.Context(), periodID, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": snaps})
}
