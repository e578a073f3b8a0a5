package dto

import (
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/period"
)

// CreatePeriodRequest creates a DRAFT period.
type CreatePeriodRequest struct {
	Name           string `json:"name" binding:"required,max=100"`
	StartDate      Date   `json:"startDate" binding:"required"`
	EndDate        Date   `json:"endDate" binding:"required"`
	CopyPricesFrom *id.ID `json:"copyPricesFrom,omitempty"`
}

// ToInput converts the request for the period service.
func (r *CreatePeriodRequest) ToInput() period.CreateInput {
	return period.CreateInput{
		Name:           r.Name,
		StartDate:      r.StartDate.Time,
		EndDate:        r.EndDate.Time,
		CopyPricesFrom: r.CopyPricesFrom,
	}
}

// SetPricesRequest upserts locked prices of a DRAFT period.
type SetPricesRequest struct {
	Prices []PriceRequest `json:"prices" binding:"required,min=1,dive"`
}

// PriceRequest is the locked price of one item.
type PriceRequest struct {
	ItemID id.ID       `json:"itemId" binding:"required"`
	Price  types.Money `json:"price" binding:"decimal_non_negative"`
}

// ToInput converts the request for the period service.
func (r *SetPricesRequest) ToInput() []period.PriceInput {
	out := make([]period.PriceInput, 0, len(r.Prices))
	for _, p := range r.Prices {
		out = append(out, period.PriceInput{ItemID: p.ItemID, Price: p.Price})
	}
	return out
}

// CopyPricesRequest copies locked prices from another period.
type CopyPricesRequest struct {
	FromPeriodID id.ID `json:"fromPeriodId" binding:"required"`
}

// CloseApprovedResponse reports periods closed by a sweep.
type CloseApprovedResponse struct {
	Closed int `json:"closed"`
}
