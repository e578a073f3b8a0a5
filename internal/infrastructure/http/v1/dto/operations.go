package dto

import (
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/documents/ncr"
	"stockledger/internal/domain/documents/stocktake"
	"stockledger/internal/domain/pob"
)

// --- NCR ---

// CreateNCRRequest raises a manual non-conformance report.
type CreateNCRRequest struct {
	Type        ncr.Type       `json:"type" binding:"required,oneof=QUANTITY QUALITY OTHER"`
	Date        *Date          `json:"date,omitempty"`
	LocationID  id.ID          `json:"locationId" binding:"required"`
	SupplierID  *id.ID         `json:"supplierId,omitempty"`
	ItemID      *id.ID         `json:"itemId,omitempty"`
	DeliveryID  *id.ID         `json:"deliveryId,omitempty"`
	Quantity    types.Quantity `json:"quantity" binding:"gte=0"`
	Description string         `json:"description" binding:"required"`
}

// ToInput converts the request for the NCR service.
func (r *CreateNCRRequest) ToInput() ncr.ManualInput {
	return ncr.ManualInput{
		Type:        r.Type,
		Date:        r.Date.OrToday(),
		LocationID:  r.LocationID,
		SupplierID:  r.SupplierID,
		ItemID:      r.ItemID,
		DeliveryID:  r.DeliveryID,
		Quantity:    r.Quantity,
		Description: r.Description,
	}
}

// TransitionNCRRequest moves an NCR forward.
type TransitionNCRRequest struct {
	Status     ncr.Status `json:"status" binding:"required,oneof=ACKNOWLEDGED RESOLVED"`
	Resolution string     `json:"resolution,omitempty"`
}

// --- Stock take ---

// CreateStockTakeRequest opens a DRAFT stock take.
type CreateStockTakeRequest struct {
	LocationID id.ID  `json:"locationId" binding:"required"`
	Date       *Date  `json:"date,omitempty"`
	Comment    string `json:"comment,omitempty"`
}

// ToInput converts the request for the stock take service.
func (r *CreateStockTakeRequest) ToInput() stocktake.CreateInput {
	return stocktake.CreateInput{
		LocationID: r.LocationID,
		Date:       r.Date.OrToday(),
		Comment:    r.Comment,
	}
}

// AddStockTakeItemRequest adds an item without a balance to the count sheet.
type AddStockTakeItemRequest struct {
	ItemID id.ID `json:"itemId" binding:"required"`
}

// SetCountedRequest records a physical count.
type SetCountedRequest struct {
	Counted types.Quantity `json:"counted" binding:"gte=0"`
}

// --- POB ---

// RecordPOBRequest stores the headcount of a location for one day.
type RecordPOBRequest struct {
	LocationID id.ID `json:"locationId" binding:"required"`
	Date       Date  `json:"date" binding:"required"`
	Count      int64 `json:"count" binding:"gte=0"`
}

// ToInput converts the request for the POB service.
func (r *RecordPOBRequest) ToInput() pob.RecordInput {
	return pob.RecordInput{
		LocationID: r.LocationID,
		Date:       r.Date.Time,
		Count:      r.Count,
	}
}
