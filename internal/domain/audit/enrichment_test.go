package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/entity"
)

func TestEnrichCreatedBy(t *testing.T) {
	doc := entity.NewDocument()

	require.NoError(t, EnrichCreatedBy(context.Background(), &doc))
	assert.Empty(t, doc.CreatedBy)

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "storekeeper-1"})
	require.NoError(t, EnrichCreatedBy(ctx, &doc))
	assert.Equal(t, "storekeeper-1", doc.CreatedBy)
	assert.Equal(t, "storekeeper-1", doc.UpdatedBy)
}
