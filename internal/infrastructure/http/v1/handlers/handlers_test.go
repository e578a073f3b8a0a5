package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain"
	"stockledger/internal/domain/approval"
	"stockledger/internal/domain/approval/approvaltest"
	"stockledger/internal/domain/stock"
	"stockledger/internal/domain/stock/stocktest"
	"stockledger/internal/infrastructure/http/v1/dto"
	"stockledger/internal/infrastructure/http/v1/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}

const testUserHeader = "X-Test-User"

// newRouter mounts the error handler and a fake authenticator taking the
// user id from a header.
func newRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		if u := c.GetHeader(testUserHeader); u != "" {
			ctx := appctx.WithUser(c.Request.Context(), &appctx.UserContext{UserID: u})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	})
	return r
}

func do(r *gin.Engine, method, path, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(testUserHeader, user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestDeliveryRequestValidation(t *testing.T) {
	base := NewBaseHandler()
	r := newRouter()
	r.POST("/deliveries", func(c *gin.Context) {
		var req dto.CreateDeliveryRequest
		if !base.BindJSON(c, &req) {
			return
		}
		base.OK(c, req.ToEntity())
	})

	supplier, location, item := id.New(), id.New(), id.New()
	payload := func(qty, price string) string {
		return `{"supplierId":"` + supplier.String() + `","locationId":"` + location.String() +
			`","date":"2026-03-02","lines":[{"itemId":"` + item.String() + `","quantity":` + qty + `,"unitPrice":` + price + `}]}`
	}

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "valid", body: payload("10", `"2.50"`), status: http.StatusOK},
		{name: "numeric price", body: payload("1.5", "3"), status: http.StatusOK},
		{name: "zero price allowed", body: payload("1", `"0"`), status: http.StatusOK},
		{name: "negative price", body: payload("1", `"-1"`), status: http.StatusBadRequest},
		{name: "zero quantity", body: payload("0", `"1"`), status: http.StatusBadRequest},
		{name: "no lines", body: `{"supplierId":"` + supplier.String() + `","locationId":"` + location.String() + `","lines":[]}`, status: http.StatusBadRequest},
		{name: "missing supplier", body: `{"locationId":"` + location.String() + `","lines":[{"itemId":"` + item.String() + `","quantity":1,"unitPrice":1}]}`, status: http.StatusBadRequest},
		{name: "bad date", body: strings.Replace(payload("1", "1"), "2026-03-02", "02/03/2026", 1), status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/deliveries", "", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status == http.StatusBadRequest {
				assert.Equal(t, apperror.CodeValidation, decode(t, w)["code"])
			}
		})
	}

	t.Run("entity mapping", func(t *testing.T) {
		w := do(r, http.MethodPost, "/deliveries", "", payload("4", `"2.50"`))
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, supplier.String(), body["supplierId"])
		assert.Equal(t, "2026-03-02T00:00:00Z", body["date"])
		assert.Equal(t, "10", body["totalAmount"])
	})
}

func TestPeriodRequestValidation(t *testing.T) {
	base := NewBaseHandler()
	r := newRouter()
	r.POST("/periods", func(c *gin.Context) {
		var req dto.CreatePeriodRequest
		if !base.BindJSON(c, &req) {
			return
		}
		base.OK(c, gin.H{"start": req.ToInput().StartDate})
	})
	r.PUT("/prices", func(c *gin.Context) {
		var req dto.SetPricesRequest
		if !base.BindJSON(c, &req) {
			return
		}
		base.OK(c, gin.H{"n": len(req.ToInput())})
	})

	w := do(r, http.MethodPost, "/periods", "", `{"name":"March","startDate":"2026-03-01","endDate":"2026-03-31"}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodPost, "/periods", "", `{"name":"March","endDate":"2026-03-31"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "startDate is required")

	item := id.New().String()
	w = do(r, http.MethodPut, "/prices", "", `{"prices":[{"itemId":"`+item+`","price":"0"}]}`)
	assert.Equal(t, http.StatusOK, w.Code, "a zero locked price is allowed")

	w = do(r, http.MethodPut, "/prices", "", `{"prices":[{"itemId":"`+item+`","price":"-0.01"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "locked price cannot be negative")

	w = do(r, http.MethodPut, "/prices", "", `{"prices":[{"itemId":"`+item+`","price":"4.2500"}]}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSchemaHandler(t *testing.T) {
	h := NewSchemaHandler(NewBaseHandler())
	r := newRouter()
	r.GET("/schemas", h.List)
	r.GET("/schemas/:name", h.Get)

	w := do(r, http.MethodGet, "/schemas/delivery", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var schema struct {
		Title      string                    `json:"title"`
		Required   []string                  `json:"required"`
		Properties map[string]map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schema))
	assert.Equal(t, "delivery", schema.Title)
	assert.Equal(t, "uuid", schema.Properties["supplierId"]["format"])
	assert.Equal(t, "date", schema.Properties["date"]["format"])
	assert.Contains(t, schema.Required, "lines")
	assert.NotContains(t, schema.Required, "poId")

	w = do(r, http.MethodGet, "/schemas/unknown", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/schemas", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reconciliation-count"`)
}

func TestHealthHandler(t *testing.T) {
	ok := PingerFunc(func(context.Context) error { return nil })
	down := PingerFunc(func(context.Context) error { return errors.New("connection refused") })

	r := newRouter()
	r.GET("/up", NewHealthHandler("test", map[string]Pinger{"database": ok}).Ready)
	r.GET("/down", NewHealthHandler("test", map[string]Pinger{"database": ok, "redis": down}).Ready)

	w := do(r, http.MethodGet, "/up", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = do(r, http.MethodGet, "/down", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Contains(t, checks["redis"], "connection refused")
}

type nopApprovalHandler struct{}

func (nopApprovalHandler) OnApproved(context.Context, *approval.Approval) error { return nil }
func (nopApprovalHandler) OnRejected(context.Context, *approval.Approval) error { return nil }

func TestApprovalHandler(t *testing.T) {
	svc := approval.NewService(approvaltest.NewMemoryRepository(), &tx.MockManager{}, nil,
		approval.Config{}, domain.NopAuditRecorder{}, domain.NopPublisher{})
	svc.Register(approval.EntityTransfer, nopApprovalHandler{})

	requester := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "storekeeper"})
	pending, err := svc.Request(requester, approval.RequestInput{EntityType: approval.EntityTransfer, EntityID: id.New()})
	require.NoError(t, err)
	second, err := svc.Request(requester, approval.RequestInput{EntityType: approval.EntityTransfer, EntityID: id.New()})
	require.NoError(t, err)

	h := NewApprovalHandler(NewBaseHandler(), svc)
	r := newRouter()
	r.GET("/approvals", h.List)
	r.GET("/approvals/:id", h.Get)
	r.POST("/approvals/:id/approve", h.Approve)
	r.POST("/approvals/:id/reject", h.Reject)

	t.Run("list pending", func(t *testing.T) {
		w := do(r, http.MethodGet, "/approvals?status=PENDING&entity_type=TRANSFER", "manager", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 2, decode(t, w)["totalCount"])
	})

	t.Run("unknown entity type", func(t *testing.T) {
		w := do(r, http.MethodGet, "/approvals?entity_type=INVOICE", "manager", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := do(r, http.MethodGet, "/approvals/not-a-uuid", "manager", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("requester cannot approve", func(t *testing.T) {
		w := do(r, http.MethodPost, "/approvals/"+pending.ID.String()+"/approve", "storekeeper", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, apperror.CodeSelfApprovalForbidden, decode(t, w)["code"])
	})

	t.Run("approve", func(t *testing.T) {
		w := do(r, http.MethodPost, "/approvals/"+pending.ID.String()+"/approve", "manager", `{"comment":"ok"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		assert.Equal(t, "APPROVED", body["status"])
		assert.Equal(t, "manager", body["reviewedBy"])
	})

	t.Run("second decision conflicts", func(t *testing.T) {
		w := do(r, http.MethodPost, "/approvals/"+pending.ID.String()+"/reject", "manager", `{"comment":"late"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("reject needs comment", func(t *testing.T) {
		w := do(r, http.MethodPost, "/approvals/"+second.ID.String()+"/reject", "manager", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(r, http.MethodPost, "/approvals/"+second.ID.String()+"/reject", "manager", `{"comment":"not needed"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "REJECTED", decode(t, w)["status"])
	})
}

func TestStockHandler(t *testing.T) {
	repo := stocktest.NewMemoryRepository()
	location, item := id.New(), id.New()
	repo.Seed(location, item, types.MustQuantity("12.5"), types.NewMoney(3.2))

	h := NewStockHandler(NewBaseHandler(), stock.NewService(repo), nil)
	r := newRouter()
	r.GET("/stock/balances", h.ListBalances)
	r.GET("/stock/balances/:location/:item", h.GetBalance)

	w := do(r, http.MethodGet, "/stock/balances/"+location.String()+"/"+item.String(), "u", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 12.5, body["quantity"])
	assert.Equal(t, "3.2", body["wac"])

	w = do(r, http.MethodGet, "/stock/balances/"+location.String()+"/"+id.New().String(), "u", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["quantity"])

	w = do(r, http.MethodGet, "/stock/balances?location_id="+location.String(), "u", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 1)

	w = do(r, http.MethodGet, "/stock/balances?location_id=nope", "u", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
