package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// DeliveryHandler handles goods received from suppliers.
type DeliveryHandler struct {
	*BaseHandler
	service *delivery.Service
}

// NewDeliveryHandler creates a new delivery handler.
func NewDeliveryHandler(base *BaseHandler, service *delivery.Service) *DeliveryHandler {
	return &DeliveryHandler{BaseHandler: base, service: service}
}

// Create posts a delivery.
// POST /deliveries
func (h *DeliveryHandler) Create(c *gin.Context) {
	var req dto.CreateDeliveryRequest
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

// Get returns a delivery with its lines.
// GET /deliveries/:id
func (h *DeliveryHandler) Get(c *gin.Context) {
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

// List returns deliveries, newest first.
// GET /deliveries?location_id=&supplier_id=&period_id=&po_id=&has_variance=&from=&to=
func (h *DeliveryHandler) List(c *gin.Context) {
	var (
		f  delivery.ListFilter
		ok bool
	)
	if f.LocationID, ok = h.QueryID(c, "location_id"); !ok {
		return
	}
	if f.SupplierID, ok = h.QueryID(c, "supplier_id"); !ok {
		return
	}
	if f.PeriodID, ok = h.QueryID(c, "period_id"); !ok {
		return
	}
	if f.POID, ok = h.QueryID(c, "po_id"); !ok {
		return
	}
	if f.HasVariance, ok = h.QueryBool(c, "has_variance"); !ok {
		return
	}
	if f.DateFrom, ok = h.QueryDate(c, "from"); !ok {
		return
	}
	if f.DateTo, ok = h.QueryDate(c, "to"); !ok {
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
