// Package reports provides read-only valuation and reconciliation reports.
package reports

import (
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/stock"
)

// --- Period value reconciliation ---

// ValueReport reconciles the value of a location over a period:
// opening + inbound - outbound = computed closing, compared with the actual
// value held.
type ValueReport struct {
	PeriodID   id.ID  `json:"periodId"`
	PeriodName string `json:"periodName"`
	LocationID id.ID  `json:"locationId"`

	// OpeningPeriodID is the closed period the opening value comes from.
	OpeningPeriodID *id.ID      `json:"openingPeriodId,omitempty"`
	Opening         types.Money `json:"opening"`

	Movements []KindLine  `json:"movements"`
	Inbound   types.Money `json:"inbound"`
	Outbound  types.Money `json:"outbound"`

	ComputedClosing types.Money `json:"computedClosing"`

	// Actual is the close snapshot for a CLOSED period, otherwise the live
	// balance value.
	Actual       types.Money `json:"actual"`
	ActualSource string      `json:"actualSource"`
	Discrepancy  types.Money `json:"discrepancy"`
	Balanced     bool        `json:"balanced"`

	GeneratedAt time.Time `json:"generatedAt"`
}

// KindLine is the value moved by one movement kind.
type KindLine struct {
	Kind     stock.MovementKind `json:"kind"`
	Inbound  bool               `json:"inbound"`
	Quantity types.Quantity     `json:"quantity"`
	Value    types.Money        `json:"value"`
}

// Actual value sources.
const (
	ActualFromSnapshot = "SNAPSHOT"
	ActualFromBalances = "BALANCES"
)

// --- Stock valuation ---

// StockValuationFilter defines filter for the stock valuation report.
type StockValuationFilter struct {
	LocationIDs []id.ID
	ItemIDs     []id.ID
	ExcludeZero bool

	Limit  int
	Offset int
}

// StockValuationItem is one valued balance with master data names.
type StockValuationItem struct {
	LocationID   id.ID          `db:"location_id" json:"locationId"`
	LocationCode string         `db:"location_code" json:"locationCode"`
	LocationName string         `db:"location_name" json:"locationName"`
	ItemID       id.ID          `db:"item_id" json:"itemId"`
	ItemCode     string         `db:"item_code" json:"itemCode"`
	ItemName     string         `db:"item_name" json:"itemName"`
	Unit         string         `db:"unit" json:"unit"`
	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	WAC          types.Money    `db:"wac" json:"wac"`
	Value        types.Money    `db:"value" json:"value"`
}

// StockValuation is the full stock valuation report.
type StockValuation struct {
	AsOf       time.Time            `json:"asOf"`
	Items      []StockValuationItem `json:"items"`
	TotalItems int64                `json:"totalItems"`
	TotalValue types.Money          `json:"totalValue"`
}
