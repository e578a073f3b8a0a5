// Package audit stamps the acting user onto documents before they are stored.
package audit

import (
	"context"

	appctx "stockledger/internal/core/context"
)

// creatorSetter is implemented by entity.Document.
type creatorSetter interface {
	SetCreatedBy(string)
}

// EnrichCreatedBy sets CreatedBy and UpdatedBy from the context user.
// Use as a BeforeCreate hook. It is a no-op when no user is in context.
func EnrichCreatedBy[T creatorSetter](ctx context.Context, doc T) error {
	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return nil
	}
	doc.SetCreatedBy(userID)
	return nil
}
