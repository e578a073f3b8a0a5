package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/documents/purchase_order"
	"stockledger/internal/domain/documents/purchase_requisition"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// RequisitionHandler handles purchase requisitions (PRF).
type RequisitionHandler struct {
	*BaseHandler
	service *purchase_requisition.Service
	orders  *purchase_order.Service
}

// NewRequisitionHandler creates a new requisition handler.
func NewRequisitionHandler(base *BaseHandler, service *purchase_requisition.Service, orders *purchase_order.Service) *RequisitionHandler {
	return &RequisitionHandler{BaseHandler: base, service: service, orders: orders}
}

// Create raises a DRAFT requisition.
// POST /prfs
func (h *RequisitionHandler) Create(c *gin.Context) {
	var req dto.CreateRequisitionRequest
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

// Submit sends a requisition for approval.
// POST /prfs/:id/submit
func (h *RequisitionHandler) Submit(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.Submit(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// CreatePurchaseOrder converts an approved requisition into a DRAFT PO.
// POST /prfs/:id/purchase-order
func (h *RequisitionHandler) CreatePurchaseOrder(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.ConvertRequisitionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput(docID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid priceOverrides key").WithDetail("error", err.Error()))
		return
	}

	po, err := h.orders.CreateFromRequisition(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, po)
}

// Get returns a requisition.
// GET /prfs/:id
func (h *RequisitionHandler) Get(c *gin.Context) {
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

// List returns requisitions.
// GET /prfs?location_id=&status=&requested_by=&from=&to=
func (h *RequisitionHandler) List(c *gin.Context) {
	var (
		f  purchase_requisition.ListFilter
		ok bool
	)
	if f.LocationID, ok = h.QueryID(c, "location_id"); !ok {
		return
	}
	if f.DateFrom, ok = h.QueryDate(c, "from"); !ok {
		return
	}
	if f.DateTo, ok = h.QueryDate(c, "to"); !ok {
		return
	}
	if s := c.Query("status"); s != "" {
		status := purchase_requisition.Status(s)
		f.Status = &status
	}
	f.RequestedBy = c.Query("requested_by")
	page := h.Page(c)
	f.Limit, f.Offset = page.Limit, page.Offset

	result, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// OrderHandler handles purchase orders.
type OrderHandler struct {
	*BaseHandler
	service *purchase_order.Service
}

// NewOrderHandler creates a new purchase order handler.
func NewOrderHandler(base *BaseHandler, service *purchase_order.Service) *OrderHandler {
	return &OrderHandler{BaseHandler: base, service: service}
}

// Create raises a DRAFT purchase order.
// POST /pos
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
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

// Submit sends a purchase order for approval.
// POST /pos/:id/submit
func (h *OrderHandler) Submit(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.Submit(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// Cancel cancels a purchase order that has not been received.
// POST /pos/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.Cancel(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// Get returns a purchase order with received quantities.
// GET /pos/:id
func (h *OrderHandler) Get(c *gin.Context) {
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

// List returns purchase orders.
// GET /pos?supplier_id=&location_id=&prf_id=&status=&from=&to=
func (h *OrderHandler) List(c *gin.Context) {
	var (
		f  purchase_order.ListFilter
		ok bool
	)
	if f.SupplierID, ok = h.QueryID(c, "supplier_id"); !ok {
		return
	}
	if f.LocationID, ok = h.QueryID(c, "location_id"); !ok {
		return
	}
	if f.PRFID, ok = h.QueryID(c, "prf_id"); !ok {
		return
	}
	if f.DateFrom, ok = h.QueryDate(c, "from"); !ok {
		return
	}
	if f.DateTo, ok = h.QueryDate(c, "to"); !ok {
		return
	}
	if s := c.Query("status"); s != "" {
		status := purchase_order.Status(s)
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
