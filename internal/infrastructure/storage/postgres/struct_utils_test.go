package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

type mockDocument struct {
	entity.Document
	LocationID id.ID          `db:"location_id"`
	Quantity   types.Quantity `db:"quantity"`
	Lines      []string       `db:"-"`
	internal   string
}

func TestExtractDBColumns_EmbeddedDocument(t *testing.T) {
	cols := ExtractDBColumns[mockDocument]()

	assert.Equal(t, []string{
		"id", "version",
		"created_at", "updated_at", "created_by", "updated_by",
		"number", "doc_date", "comment",
		"location_id", "quantity",
	}, cols)
	assert.NotContains(t, cols, "-")
}

func TestExtractDBColumns_Pointer(t *testing.T) {
	assert.Equal(t, ExtractDBColumns[mockDocument](), ExtractDBColumns[*mockDocument]())
}

func TestStructToMap_EmbeddedDocument(t *testing.T) {
	doc := mockDocument{
		Document:   entity.NewDocument(),
		LocationID: id.New(),
		Quantity:   types.MustQuantity("2.5"),
		internal:   "hidden",
	}
	doc.Number = "ISS-2026-00001"
	doc.Date = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	m := StructToMap(&doc)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, 1, m["version"])
	assert.Equal(t, "ISS-2026-00001", m["number"])
	assert.Equal(t, doc.Date, m["doc_date"])
	assert.Equal(t, doc.LocationID, m["location_id"])
	assert.Equal(t, types.MustQuantity("2.5"), m["quantity"])
	assert.NotContains(t, m, "internal")
	assert.NotContains(t, m, "Lines")
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}

func TestColumnsExceptAndRowValues(t *testing.T) {
	cols := ColumnsExcept([]string{"id", "version", "number", "comment"}, "version", "comment")
	assert.Equal(t, []string{"id", "number"}, cols)

	doc := mockDocument{Document: entity.NewDocument()}
	doc.Number = "X-1"
	row := RowValues(doc, []string{"number", "missing", "id"})
	assert.Equal(t, []any{"X-1", nil, doc.ID}, row)
}
