package apperror

import (
	"fmt"
	"net/http"
)

const (
	CodeInsufficientStock     = "INSUFFICIENT_STOCK"
	CodePeriodClosed          = "PERIOD_CLOSED"
	CodePeriodNotOpen         = "PERIOD_NOT_OPEN"
	CodeLocationNotOpen       = "LOCATION_NOT_OPEN"
	CodeInvalidTransition     = "INVALID_STATUS_TRANSITION"
	CodeApprovalNotPending    = "APPROVAL_NOT_PENDING"
	CodeSelfApprovalForbidden = "SELF_APPROVAL_FORBIDDEN"
	CodeOverReceipt           = "OVER_RECEIPT"
	CodePriceAlreadyLocked    = "PRICE_ALREADY_LOCKED"
)

// NewInsufficientStock is returned when an outgoing movement would take the
// on-hand quantity below zero.
func NewInsufficientStock(locationID, itemID, requested, available string) *AppError {
	return newError(http.StatusUnprocessableEntity, CodeInsufficientStock, "insufficient stock").
		withDetails("location_id", locationID, "item_id", itemID, "requested", requested, "available", available)
}

func NewPeriodClosed(period string) *AppError {
	return newError(http.StatusUnprocessableEntity, CodePeriodClosed, fmt.Sprintf("period %s is closed", period)).
		withDetails("period", period)
}

// NewPeriodNotOpen is returned when no open period covers a business date.
func NewPeriodNotOpen(date string) *AppError {
	return newError(http.StatusUnprocessableEntity, CodePeriodNotOpen, "no open period covers "+date).
		withDetails("date", date)
}

// NewLocationNotOpen is returned once a location is ready or closed within
// the period.
func NewLocationNotOpen(periodID, locationID, status string) *AppError {
	return newError(http.StatusUnprocessableEntity, CodeLocationNotOpen, "location is not open for movements in this period").
		withDetails("period_id", periodID, "location_id", locationID, "status", status)
}

func NewInvalidTransition(entity, from, to string) *AppError {
	return newError(http.StatusUnprocessableEntity, CodeInvalidTransition, fmt.Sprintf("%s cannot move from %s to %s", entity, from, to)).
		withDetails("entity", entity, "from", from, "to", to)
}

func NewApprovalNotPending(approvalID, status string) *AppError {
	return newError(http.StatusConflict, CodeApprovalNotPending, "approval has already been decided").
		withDetails("approval_id", approvalID, "status", status)
}

func NewSelfApprovalForbidden(approvalID string) *AppError {
	return newError(http.StatusForbidden, CodeSelfApprovalForbidden, "requester cannot review their own request").
		withDetails("approval_id", approvalID)
}

// NewOverReceipt is returned when a delivery would receive more than the
// purchase order line has left.
func NewOverReceipt(poLineID, ordered, received, incoming string) *AppError {
	return newError(http.StatusUnprocessableEntity, CodeOverReceipt, "delivered quantity exceeds the quantity remaining on the purchase order").
		withDetails("po_line_id", poLineID, "ordered", ordered, "received", received, "incoming", incoming)
}

func NewPriceAlreadyLocked(periodID, status string) *AppError {
	return newError(http.StatusUnprocessableEntity, CodePriceAlreadyLocked, "prices are locked once the period is opened").
		withDetails("period_id", periodID, "status", status)
}
