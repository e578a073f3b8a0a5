// Package app wires repositories and services into one object graph shared
// by the server, the worker and the operator CLI.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"stockledger/internal/config"
	corenumerator "stockledger/internal/core/numerator"
	"stockledger/internal/domain/approval"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/catalogs/location"
	"stockledger/internal/domain/catalogs/supplier"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/domain/documents/ncr"
	"stockledger/internal/domain/documents/purchase_order"
	"stockledger/internal/domain/documents/purchase_requisition"
	"stockledger/internal/domain/documents/stocktake"
	"stockledger/internal/domain/documents/transfer"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/pob"
	"stockledger/internal/domain/reports"
	"stockledger/internal/domain/stock"
	"stockledger/internal/infrastructure/cache"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/approval_repo"
	"stockledger/internal/infrastructure/storage/postgres/catalog_repo"
	"stockledger/internal/infrastructure/storage/postgres/document_repo"
	"stockledger/internal/infrastructure/storage/postgres/period_repo"
	"stockledger/internal/infrastructure/storage/postgres/register_repo"
	"stockledger/internal/infrastructure/storage/postgres/report_repo"
	"stockledger/pkg/logger"
	"stockledger/pkg/numerator"
)

// App is the wired service graph.
type App struct {
	TxManager   *postgres.TxManager
	Audit       *postgres.AuditService
	Outbox      *postgres.OutboxPublisher
	Idempotency *postgres.IdempotencyStore
	Numerator   corenumerator.Generator
	Prices      *cache.PriceCache // nil without Redis

	Locations *location.Service
	Items     *item.Service
	Suppliers *supplier.Service

	Stock        *stock.Service
	Approvals    *approval.Service
	Periods      *period.Service
	Deliveries   *delivery.Service
	Issues       *issue.Service
	Transfers    *transfer.Service
	Requisitions *purchase_requisition.Service
	Orders       *purchase_order.Service
	NCRs         *ncr.Service
	StockTakes   *stocktake.Service
	POB          *pob.Service
	Reports      *reports.Service
}

// New builds the service graph on pool. rdb may be nil, in which case locked
// prices are read straight from PostgreSQL.
func New(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client) (*App, error) {
	txm := postgres.NewTxManager(pool).WithStatementTimeout(cfg.Database.StatementTimeout)

	auditService, err := postgres.NewAuditService(txm)
	if err != nil {
		return nil, fmt.Errorf("create audit service: %w", err)
	}
	outbox := postgres.NewOutboxPublisher(txm)

	// Strict numbers must be taken inside the business transaction.
	numerators := numerator.NewWithProvider(func(ctx context.Context) numerator.Querier {
		return txm.GetQuerier(ctx)
	})

	policy, err := approvalPolicy(cfg.Approvals.AutoApprove)
	if err != nil {
		return nil, err
	}

	a := &App{
		TxManager:   txm,
		Audit:       auditService,
		Outbox:      outbox,
		Idempotency: postgres.NewIdempotencyStore(txm, cfg.HTTP.IdempotencyTTL),
		Numerator:   numerators,
	}

	a.Locations = location.NewService(catalog_repo.NewLocationRepo(txm))
	a.Items = item.NewService(catalog_repo.NewItemRepo(txm))
	a.Suppliers = supplier.NewService(catalog_repo.NewSupplierRepo(txm))

	stockRepo := register_repo.NewStockRepo(txm)
	a.Stock = stock.NewService(stockRepo)

	a.Approvals = approval.NewService(
		approval_repo.NewApprovalRepo(txm),
		txm,
		policy,
		approval.Config{AllowSelfApproval: cfg.Approvals.AllowSelfApproval},
		auditService,
		outbox,
	)

	periodRepo := period_repo.NewPeriodRepo(txm)
	var prices period.PriceReader = periodRepo
	if rdb != nil {
		a.Prices = cache.NewPriceCache(rdb, periodRepo, cache.WithPriceTTL(cfg.Redis.PriceTTL))
		prices = a.Prices
	}
	a.Periods = period.NewService(period.Deps{
		Repo:      periodRepo,
		Prices:    prices,
		Locations: a.Locations,
		Balances:  a.Stock,
		Approvals: a.Approvals,
		TxManager: txm,
		Audit:     auditService,
		Events:    outbox,
	})

	a.NCRs = ncr.NewService(document_repo.NewNCRRepo(txm), numerators, txm, auditService, outbox)
	a.Requisitions = purchase_requisition.NewService(
		document_repo.NewRequisitionRepo(txm), numerators, txm, a.Approvals, outbox)
	a.Orders = purchase_order.NewService(
		document_repo.NewPurchaseOrderRepo(txm), numerators, txm, a.Approvals, a.Requisitions, outbox)

	a.Deliveries = delivery.NewService(delivery.Deps{
		Repo:      document_repo.NewDeliveryRepo(txm),
		Numerator: numerators,
		TxManager: txm,
		Periods:   a.Periods,
		Stock:     a.Stock,
		Orders:    a.Orders,
		NCRs:      a.NCRs,
		Events:    outbox,
	}, delivery.Config{VarianceTolerancePct: cfg.Valuation.VarianceTolerancePct})

	a.Issues = issue.NewService(document_repo.NewIssueRepo(txm), numerators, txm, a.Periods, a.Stock, outbox)

	a.Transfers = transfer.NewService(transfer.Deps{
		Repo:      document_repo.NewTransferRepo(txm),
		Numerator: numerators,
		TxManager: txm,
		Approvals: a.Approvals,
		Periods:   a.Periods,
		Stock:     a.Stock,
		Events:    outbox,
	})

	a.StockTakes = stocktake.NewService(stocktake.Deps{
		Repo:      document_repo.NewStockTakeRepo(txm),
		Numerator: numerators,
		TxManager: txm,
		Periods:   a.Periods,
		Stock:     a.Stock,
		Events:    outbox,
	})

	a.POB = pob.NewService(register_repo.NewPOBRepo(txm), a.Periods, a.Stock)
	a.Reports = reports.NewService(report_repo.NewReportRepo(txm), a.Periods, a.Stock)

	a.Approvals.Register(approval.EntityTransfer, a.Transfers)
	a.Approvals.Register(approval.EntityPRF, a.Requisitions)
	a.Approvals.Register(approval.EntityPO, a.Orders)
	a.Approvals.Register(approval.EntityPeriodClose, a.Periods)

	logger.Info(ctx, "services wired",
		"price_cache", rdb != nil,
		"auto_approve_rules", len(cfg.Approvals.AutoApprove),
		"allow_self_approval", cfg.Approvals.AllowSelfApproval)

	return a, nil
}

func approvalPolicy(rules map[string]string) (approval.Policy, error) {
	if len(rules) == 0 {
		return approval.NoAutoApproval{}, nil
	}
	policy, err := approval.NewCELPolicy(rules)
	if err != nil {
		return nil, fmt.Errorf("compile auto-approve rules: %w", err)
	}
	return policy, nil
}
