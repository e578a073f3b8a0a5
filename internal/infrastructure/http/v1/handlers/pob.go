package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/pob"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// POBHandler records daily headcount and reports the manday cost.
type POBHandler struct {
	*BaseHandler
	service *pob.Service
}

// NewPOBHandler creates a new POB handler.
func NewPOBHandler(base *BaseHandler, service *pob.Service) *POBHandler {
	return &POBHandler{BaseHandler: base, service: service}
}

// Record stores the headcount of a location for one day.
// PUT /pob
func (h *POBHandler) Record(c *gin.Context) {
	var req dto.RecordPOBRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entry, err := h.service.Record(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, entry)
}

// List returns POB entries.
// GET /pob?location_id=&from=&to=
func (h *POBHandler) List(c *gin.Context) {
	var (
		f  pob.ListFilter
		ok bool
	)
	if f.LocationID, ok = h.QueryID(c, "location_id"); !ok {
		return
	}
	if f.From, ok = h.QueryDate(c, "from"); !ok {
		return
	}
	if f.To, ok = h.QueryDate(c, "to"); !ok {
		return
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

// MandayCost divides the issue value of a period by its mandays.
// GET /pob/manday-cost?location_id=&period_id=
func (h *POBHandler) MandayCost(c *gin.Context) {
	locationID, ok := h.RequiredQueryID(c, "location_id")
	if !ok {
		return
	}
	periodID, ok := h.RequiredQueryID(c, "period_id")
	if !ok {
		return
	}

	cost, err := h.service.MandayCost(c.Request.Context(), locationID, periodID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, cost)
}
