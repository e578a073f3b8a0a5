package supplier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"stockledger/internal/core/apperror"
)

func TestSupplier_Validate(t *testing.T) {
	ctx := context.Background()

	s := NewSupplier("ACME", "Acme Foods")
	assert.NoError(t, s.Validate(ctx))

	bad := "not-an-email"
	s.ContactEmail = &bad
	assert.True(t, apperror.HasCode(s.Validate(ctx), apperror.CodeValidation))

	good := "orders@acme.example"
	s.ContactEmail = &good
	assert.NoError(t, s.Validate(ctx))

	s.PaymentTermsDays = -1
	assert.True(t, apperror.HasCode(s.Validate(ctx), apperror.CodeValidation))
}
