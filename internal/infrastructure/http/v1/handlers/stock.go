package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/reports"
	"stockledger/internal/domain/stock"
)

// StockHandler exposes balances, the movement ledger and valuation.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
	reports *reports.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service, reports *reports.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service, reports: reports}
}

// ListBalances returns balances, optionally for one location.
// GET /stock/balances?location_id=&item_id=&exclude_zero=
func (h *StockHandler) ListBalances(c *gin.Context) {
	var (
		f  stock.BalanceFilter
		ok bool
	)
	if f.LocationID, ok = h.QueryID(c, "location_id"); !ok {
		return
	}
	if f.ItemIDs, ok = h.QueryIDs(c, "item_id"); !ok {
		return
	}
	excludeZero, ok := h.QueryBool(c, "exclude_zero")
	if !ok {
		return
	}
	f.ExcludeZero = excludeZero != nil && *excludeZero

	balances, err := h.service.ListBalances(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": balances})
}

// GetBalance returns the balance of one item at one location. A pair with
// no history reports zero quantity and zero WAC.
// GET /stock/balances/:location/:item
func (h *StockHandler) GetBalance(c *gin.Context) {
	locationID, ok := h.PathID(c, "location")
	if !ok {
		return
	}
	itemID, ok := h.PathID(c, "item")
	if !ok {
		return
	}

	bal, err := h.service.GetBalance(c.Request.Context(), locationID, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, bal)
}

// ListMovements returns ledger rows.
// GET /stock/movements?location_id=&item_id=&period_id=&kind=&source_id=
func (h *StockHandler) ListMovements(c *gin.Context) {
	var (
		f  stock.MovementFilter
		ok bool
	)
	if f.LocationID, ok = h.QueryID(c, "location_id"); !ok {
		return
	}
	if f.ItemID, ok = h.QueryID(c, "item_id"); !ok {
		return
	}
	if f.PeriodID, ok = h.QueryID(c, "period_id"); !ok {
		return
	}
	if f.SourceID, ok = h.QueryID(c, "source_id"); !ok {
		return
	}
	if s := c.Query("kind"); s != "" {
		kind := stock.MovementKind(s)
		f.Kind = &kind
	}
	page := h.Page(c)
	f.Limit, f.Offset = page.Limit, page.Offset

	movements, err := h.service.ListMovements(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": movements, "limit": f.Limit, "offset": f.Offset})
}

// Valuation values balances at their current WAC.
// GET /stock/valuation?location_id=&item_id=&exclude_zero=
func (h *StockHandler) Valuation(c *gin.Context) {
	var (
		f  reports.StockValuationFilter
		ok bool
	)
	if f.LocationIDs, ok = h.QueryIDs(c, "location_id"); !ok {
		return
	}
	if f.ItemIDs, ok = h.QueryIDs(c, "item_id"); !ok {
		return
	}
	excludeZero, ok := h.QueryBool(c, "exclude_zero")
	if !ok {
		return
	}
	f.ExcludeZero = excludeZero != nil && *excludeZero
	page := h.Page(c)
	f.Limit, f.Offset = page.Limit, page.Offset

	valuation, err := h.reports.GetStockValuation(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, valuation)
}
