package dto

import (
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/domain/documents/transfer"
)

// --- Deliveries ---

// CreateDeliveryRequest records goods received from a supplier.
type CreateDeliveryRequest struct {
	SupplierID id.ID                 `json:"supplierId" binding:"required"`
	LocationID id.ID                 `json:"locationId" binding:"required"`
	POID       *id.ID                `json:"poId,omitempty"`
	Date       *Date                 `json:"date,omitempty"`
	InvoiceNo  string                `json:"invoiceNo,omitempty" binding:"max=64"`
	Comment    string                `json:"comment,omitempty"`
	Lines      []DeliveryLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// DeliveryLineRequest is one received item.
type DeliveryLineRequest struct {
	ItemID    id.ID          `json:"itemId" binding:"required"`
	POLineID  *id.ID         `json:"poLineId,omitempty"`
	Quantity  types.Quantity `json:"quantity" binding:"gt=0"`
	UnitPrice types.Money    `json:"unitPrice" binding:"decimal_non_negative"`
}

// ToEntity converts request to domain entity.
func (r *CreateDeliveryRequest) ToEntity() *delivery.Delivery {
	doc := delivery.NewDelivery(r.SupplierID, r.LocationID)
	doc.POID = r.POID
	doc.Date = r.Date.OrToday()
	doc.InvoiceNo = r.InvoiceNo
	doc.Comment = r.Comment
	for _, l := range r.Lines {
		doc.AddLine(l.ItemID, l.Quantity, l.UnitPrice, l.POLineID)
	}
	return doc
}

// --- Issues ---

// CreateIssueRequest consumes stock at a location.
type CreateIssueRequest struct {
	LocationID id.ID              `json:"locationId" binding:"required"`
	Date       *Date              `json:"date,omitempty"`
	CostCentre string             `json:"costCentre,omitempty" binding:"max=64"`
	Purpose    string             `json:"purpose,omitempty"`
	Comment    string             `json:"comment,omitempty"`
	Lines      []QuantityLineItem `json:"lines" binding:"required,min=1,dive"`
}

// QuantityLineItem is an item and a quantity.
type QuantityLineItem struct {
	ItemID   id.ID          `json:"itemId" binding:"required"`
	Quantity types.Quantity `json:"quantity" binding:"gt=0"`
}

// ToEntity converts request to domain entity.
func (r *CreateIssueRequest) ToEntity() *issue.Issue {
	doc := issue.NewIssue(r.LocationID)
	doc.Date = r.Date.OrToday()
	doc.CostCentre = r.CostCentre
	doc.Purpose = r.Purpose
	doc.Comment = r.Comment
	for _, l := range r.Lines {
		doc.AddLine(l.ItemID, l.Quantity)
	}
	return doc
}

// --- Transfers ---

// CreateTransferRequest moves stock between two locations once approved.
type CreateTransferRequest struct {
	FromLocationID id.ID              `json:"fromLocationId" binding:"required"`
	ToLocationID   id.ID              `json:"toLocationId" binding:"required,nefield=FromLocationID"`
	Date           *Date              `json:"date,omitempty"`
	Comment        string             `json:"comment,omitempty"`
	Lines          []QuantityLineItem `json:"lines" binding:"required,min=1,dive"`
}

// ToEntity converts request to domain entity.
func (r *CreateTransferRequest) ToEntity() *transfer.Transfer {
	doc := transfer.NewTransfer(r.FromLocationID, r.ToLocationID)
	doc.Date = r.Date.OrToday()
	doc.Comment = r.Comment
	for _, l := range r.Lines {
		doc.AddLine(l.ItemID, l.Quantity)
	}
	return doc
}
