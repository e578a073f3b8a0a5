package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/documents/transfer"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// TransferHandler handles inter-location transfers.
type TransferHandler struct {
	*BaseHandler
	service *transfer.Service
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(base *BaseHandler, service *transfer.Service) *TransferHandler {
	return &TransferHandler{BaseHandler: base, service: service}
}

// Create requests a transfer. Stock moves once the approval is granted,
// which may happen immediately under an auto-approval rule.
// POST /transfers
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.CreateTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Create(c.Request.Context(), req.ToEntity())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, doc)
}

// Get returns a transfer.
// GET /transfers/:id
func (h *TransferHandler) Get(c *gin.Context) {
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

// List returns transfers.
// GET /transfers?location_id=&from_location_id=&to_location_id=&status=&from=&to=
func (h *TransferHandler) List(c *gin.Context) {
	var (
		f  transfer.ListFilter
		ok bool
	)
	if f.LocationID, ok = h.QueryID(c, "location_id"); !ok {
		return
	}
	if f.FromLocationID, ok = h.QueryID(c, "from_location_id"); !ok {
		return
	}
	if f.ToLocationID, ok = h.QueryID(c, "to_location_id"); !ok {
		return
	}
	if f.DateFrom, ok = h.QueryDate(c, "from"); !ok {
		return
	}
	if f.DateTo, ok = h.QueryDate(c, "to"); !ok {
		return
	}
	if s := c.Query("status"); s != "" {
		status := transfer.Status(s)
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
