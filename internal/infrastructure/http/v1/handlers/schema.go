package handlers

import (
	"net/http"
	"reflect"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/types"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// requestSchemas lists the request payloads published under /schemas.
var requestSchemas = map[string]any{
	"delivery":             dto.CreateDeliveryRequest{},
	"issue":                dto.CreateIssueRequest{},
	"transfer":             dto.CreateTransferRequest{},
	"prf":                  dto.CreateRequisitionRequest{},
	"prf-purchase-order":   dto.ConvertRequisitionRequest{},
	"po":                   dto.CreateOrderRequest{},
	"period":               dto.CreatePeriodRequest{},
	"period-prices":        dto.SetPricesRequest{},
	"period-prices-copy":   dto.CopyPricesRequest{},
	"ncr":                  dto.CreateNCRRequest{},
	"ncr-transition":       dto.TransitionNCRRequest{},
	"reconciliation":       dto.CreateStockTakeRequest{},
	"reconciliation-item":  dto.AddStockTakeItemRequest{},
	"reconciliation-count": dto.SetCountedRequest{},
	"pob":                  dto.RecordPOBRequest{},
	"approval-decision":    dto.CommentRequest{},
}

var (
	uuidType     = reflect.TypeOf(uuid.UUID{})
	decimalType  = reflect.TypeOf(decimal.Decimal{})
	quantityType = reflect.TypeOf(types.Quantity(0))
	dateType     = reflect.TypeOf(dto.Date{})
)

// SchemaHandler publishes JSON Schema documents for request payloads.
type SchemaHandler struct {
	*BaseHandler
	reflector *jsonschema.Reflector

	mu    sync.Mutex
	cache map[string]*jsonschema.Schema
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(base *BaseHandler) *SchemaHandler {
	return &SchemaHandler{
		BaseHandler: base,
		reflector: &jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
			Mapper:                    mapDomainTypes,
		},
		cache: make(map[string]*jsonschema.Schema),
	}
}

// List returns the names of the published schemas.
// GET /schemas
func (h *SchemaHandler) List(c *gin.Context) {
	names := make([]string, 0, len(requestSchemas))
	for name := range requestSchemas {
		names = append(names, name)
	}
	sort.Strings(names)
	c.JSON(http.StatusOK, gin.H{"items": names})
}

// Get returns the schema of one request payload.
// GET /schemas/:name
func (h *SchemaHandler) Get(c *gin.Context) {
	name := c.Param("name")
	schema, ok := h.schema(name)
	if !ok {
		h.Error(c, apperror.NewNotFound("schema", name))
		return
	}
	c.JSON(http.StatusOK, schema)
}

func (h *SchemaHandler) schema(name string) (*jsonschema.Schema, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.cache[name]; ok {
		return s, true
	}
	v, ok := requestSchemas[name]
	if !ok {
		return nil, false
	}
	s := h.reflector.Reflect(v)
	s.Title = name
	h.cache[name] = s
	return s, true
}

// mapDomainTypes describes types whose JSON form differs from their Go shape.
func mapDomainTypes(t reflect.Type) *jsonschema.Schema {
	switch t {
	case uuidType:
		return &jsonschema.Schema{Type: "string", Format: "uuid"}
	case decimalType:
		return &jsonschema.Schema{
			Type:        "string",
			Pattern:     `^-?\d+(\.\d+)?$`,
			Description: "decimal amount, a JSON number is also accepted",
		}
	case quantityType:
		return &jsonschema.Schema{
			Type:        "number",
			Description: "quantity with up to 4 decimal places",
		}
	case dateType:
		return &jsonschema.Schema{Type: "string", Format: "date"}
	}
	return nil
}
