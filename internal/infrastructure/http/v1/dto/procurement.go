package dto

import (
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/documents/purchase_order"
	"stockledger/internal/domain/documents/purchase_requisition"
)

// --- Purchase requisitions ---

// CreateRequisitionRequest raises a DRAFT PRF.
type CreateRequisitionRequest struct {
	LocationID    id.ID                    `json:"locationId" binding:"required"`
	Date          *Date                    `json:"date,omitempty"`
	NeededBy      *Date                    `json:"neededBy,omitempty"`
	Justification string                   `json:"justification" binding:"required"`
	Comment       string                   `json:"comment,omitempty"`
	Lines         []RequisitionLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// RequisitionLineRequest is one requested item.
type RequisitionLineRequest struct {
	ItemID         id.ID          `json:"itemId" binding:"required"`
	Quantity       types.Quantity `json:"quantity" binding:"gt=0"`
	EstimatedPrice types.Money    `json:"estimatedPrice" binding:"decimal_non_negative"`
	Note           string         `json:"note,omitempty"`
}

// ToEntity converts request to domain entity.
func (r *CreateRequisitionRequest) ToEntity() *purchase_requisition.PurchaseRequisition {
	doc := purchase_requisition.NewPurchaseRequisition(r.LocationID)
	doc.Date = r.Date.OrToday()
	doc.NeededBy = r.NeededBy.Ptr()
	doc.Justification = r.Justification
	doc.Comment = r.Comment
	for _, l := range r.Lines {
		doc.AddLine(l.ItemID, l.Quantity, l.EstimatedPrice, l.Note)
	}
	return doc
}

// ConvertRequisitionRequest raises a PO from an approved PRF.
type ConvertRequisitionRequest struct {
	SupplierID id.ID `json:"supplierId" binding:"required"`
	// PriceOverrides is keyed by PRF line id.
	PriceOverrides map[string]types.Money `json:"priceOverrides,omitempty"`
}

// ToInput converts the request for the PO service.
func (r *ConvertRequisitionRequest) ToInput(prfID id.ID) (purchase_order.FromRequisitionInput, error) {
	in := purchase_order.FromRequisitionInput{
		PRFID:      prfID,
		SupplierID: r.SupplierID,
	}
	if len(r.PriceOverrides) > 0 {
		in.PriceOverrides = make(map[id.ID]types.Money, len(r.PriceOverrides))
		for k, v := range r.PriceOverrides {
			lineID, err := id.Parse(k)
			if err != nil {
				return in, err
			}
			in.PriceOverrides[lineID] = v
		}
	}
	return in, nil
}

// --- Purchase orders ---

// CreateOrderRequest raises a DRAFT PO directly.
type CreateOrderRequest struct {
	SupplierID   id.ID              `json:"supplierId" binding:"required"`
	LocationID   id.ID              `json:"locationId" binding:"required"`
	Date         *Date              `json:"date,omitempty"`
	ExpectedDate *Date              `json:"expectedDate,omitempty"`
	Comment      string             `json:"comment,omitempty"`
	Lines        []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// OrderLineRequest is one ordered item.
type OrderLineRequest struct {
	ItemID    id.ID          `json:"itemId" binding:"required"`
	Quantity  types.Quantity `json:"quantity" binding:"gt=0"`
	UnitPrice types.Money    `json:"unitPrice" binding:"decimal_non_negative"`
}

// ToEntity converts request to domain entity.
func (r *CreateOrderRequest) ToEntity() *purchase_order.PurchaseOrder {
	doc := purchase_order.NewPurchaseOrder(r.SupplierID, r.LocationID)
	doc.Date = r.Date.OrToday()
	doc.ExpectedDate = r.ExpectedDate.Ptr()
	doc.Comment = r.Comment
	for _, l := range r.Lines {
		doc.AddLine(l.ItemID, l.Quantity, l.UnitPrice)
	}
	return doc
}
