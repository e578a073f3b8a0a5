//go:build integration

package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"stockledger/internal/config"
	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/approval"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/catalogs/location"
	"stockledger/internal/domain/catalogs/supplier"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/domain/documents/ncr"
	"stockledger/internal/domain/period"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/migrations"
)

// startPostgres runs a disposable PostgreSQL container with the schema applied.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stockledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrations.New(dsn)
	require.NoError(t, err)
	require.NoError(t, m.Up(ctx))
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Positive(t, version)
	require.NoError(t, m.Close())

	return dsn
}

func newIntegrationApp(t *testing.T, dsn string) *App {
	t.Helper()
	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	cfg := &config.Config{
		App:  config.AppConfig{Name: "stockledger", Env: "test"},
		HTTP: config.HTTPConfig{IdempotencyTTL: time.Hour},
		Valuation: config.ValuationConfig{
			VarianceTolerancePct: decimal.Zero,
		},
	}
	a, err := New(ctx, cfg, pool.Unwrap(), nil)
	require.NoError(t, err)
	return a
}

func asUser(userID string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: userID, Name: userID})
}

func TestPeriodLifecycle_Postgres(t *testing.T) {
	a := newIntegrationApp(t, startPostgres(t))
	keeper := asUser("keeper")
	manager := asUser("manager")

	camp, err := a.Locations.Upsert(keeper, location.NewLocation("CAMP-A", "Camp Alpha", location.TypeSite))
	require.NoError(t, err)
	rice, err := a.Items.Upsert(keeper, item.NewItem("RICE-25", "Rice 25kg", "kg"))
	require.NoError(t, err)
	acme, err := a.Suppliers.Upsert(keeper, supplier.NewSupplier("ACME", "Acme Foods"))
	require.NoError(t, err)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	p, err := a.Periods.Create(keeper, period.CreateInput{
		Name:      "current",
		StartDate: today.AddDate(0, 0, -1),
		EndDate:   today.AddDate(0, 0, 30),
	})
	require.NoError(t, err)
	require.NoError(t, a.Periods.SetPrices(keeper, p.ID, []period.PriceInput{
		{ItemID: rice.ID, Price: decimal.RequireFromString("3.00")},
	}))
	_, err = a.Periods.Open(keeper, p.ID)
	require.NoError(t, err)

	// Received above the locked price: stock moves in and an NCR is raised.
	d := delivery.NewDelivery(acme.ID, camp.ID)
	d.AddLine(rice.ID, types.MustQuantity("10"), decimal.RequireFromString("3.20"), nil)
	require.NoError(t, a.Deliveries.Create(keeper, d))
	assert.True(t, d.HasVariance)
	assert.Equal(t, p.ID, d.PeriodID)

	deliveryID := d.ID
	ncrs, err := a.NCRs.List(keeper, ncr.ListFilter{DeliveryID: &deliveryID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, ncrs.TotalCount)

	iss := issue.NewIssue(camp.ID)
	iss.AddLine(rice.ID, types.MustQuantity("4"))
	require.NoError(t, a.Issues.Create(keeper, iss))

	bal, err := a.Stock.GetBalance(keeper, camp.ID, rice.ID)
	require.NoError(t, err)
	assert.Equal(t, types.MustQuantity("6"), bal.Quantity)
	assert.True(t, decimal.RequireFromString("3.2").Equal(bal.WAC), "wac %s", bal.WAC)

	tooMuch := issue.NewIssue(camp.ID)
	tooMuch.AddLine(rice.ID, types.MustQuantity("100"))
	err = a.Issues.Create(keeper, tooMuch)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	_, err = a.Periods.MarkLocationReady(keeper, p.ID, camp.ID)
	require.NoError(t, err)
	p, err = a.Periods.RequestClose(keeper, p.ID)
	require.NoError(t, err)
	assert.Equal(t, period.StatusPendingClose, p.Status)

	req, err := a.Approvals.GetForEntity(keeper, approval.EntityPeriodClose, p.ID)
	require.NoError(t, err)

	_, err = a.Approvals.Approve(keeper, req.ID, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeSelfApprovalForbidden))

	_, err = a.Approvals.Approve(manager, req.ID, "counts verified")
	require.NoError(t, err)

	p, err = a.Periods.Close(manager, p.ID)
	require.NoError(t, err)
	assert.Equal(t, period.StatusClosed, p.Status)
	assert.Equal(t, "manager", p.ClosedBy)

	snaps, err := a.Periods.ListSnapshots(manager, p.ID, nil)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, types.MustQuantity("6"), snaps[0].Quantity)
	assert.True(t, decimal.RequireFromString("19.2").Equal(snaps[0].Value), "value %s", snaps[0].Value)

	history, err := a.Audit.GetEntityHistory(manager, "period", p.ID, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, history)
}
