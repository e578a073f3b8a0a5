package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/documents/ncr"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// NCRHandler handles non-conformance reports.
type NCRHandler struct {
	*BaseHandler
	service *ncr.Service
}

// NewNCRHandler creates a new NCR handler.
func NewNCRHandler(base *BaseHandler, service *ncr.Service) *NCRHandler {
	return &NCRHandler{BaseHandler: base, service: service}
}

// Create raises a manual NCR.
// POST /ncrs
func (h *NCRHandler) Create(c *gin.Context) {
	var req dto.CreateNCRRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.CreateManual(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, doc)
}

// Transition acknowledges or resolves an NCR.
// POST /ncrs/:id/transition
func (h *NCRHandler) Transition(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.TransitionNCRRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Transition(c.Request.Context(), docID, req.Status, req.Resolution)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// Get returns an NCR.
// GET /ncrs/:id
func (h *NCRHandler) Get(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.Get(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// List returns NCRs.
// GET /ncrs?location_id=&supplier_id=&delivery_id=&type=&status=&auto=&from=&to=
func (h *NCRHandler) List(c *gin.Context) {
	var (
		f  ncr.ListFilter
		ok bool
	)
	if f.LocationID, ok = h.QueryID(c, "location_id"); !ok {
		return
	}
	if f.SupplierID, ok = h.QueryID(c, "supplier_id"); !ok {
		return
	}
	if f.DeliveryID, ok = h.QueryID(c, "delivery_id"); !ok {
		return
	}
	if f.Auto, ok = h.QueryBool(c, "auto"); !ok {
		return
	}
	if f.DateFrom, ok = h.QueryDate(c, "from"); !ok {
		return
	}
	if f.DateTo, ok = h.QueryDate(c, "to"); !ok {
		return
	}
	if s := c.Query("type"); s != "" {
		t := ncr.Type(s)
		f.Type = &t
	}
	if s := c.Query("status"); s != "" {
		status := ncr.Status(s)
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
