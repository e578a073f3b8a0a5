package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/location"
	"stockledger/internal/domain/pob"
)

func TestWriteMandayCost(t *testing.T) {
	loc := location.NewLocation("CAMP-A", "Camp Alpha", location.TypeSite)
	base := pob.MandayCost{
		LocationID: loc.ID,
		PeriodID:   id.New(),
		From:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:         time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	perManday := decimal.RequireFromString("9.9562")
	withPOB := base
	withPOB.TotalCost = decimal.RequireFromString("12345.678")
	withPOB.Mandays = 1240
	withPOB.DaysRecorded = 31
	withPOB.CostPerManday = &perManday

	noPOB := base
	noPOB.TotalCost = decimal.Zero

	tests := []struct {
		name string
		mc   pob.MandayCost
	}{
		{"manday_cost", withPOB},
		{"manday_cost_no_pob", noPOB},
	}

	g := goldie.New(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeMandayCost(&buf, loc, &tt.mc))
			g.Assert(t, tt.name, buf.Bytes())
		})
	}
}
