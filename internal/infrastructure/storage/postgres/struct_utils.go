package postgres

import (
	"reflect"
	"slices"
	"sync"
)

// column maps a "db" tag to the field index path that reaches it, so that
// fields promoted from embedded structs (entity.Document and friends) are
// read with a single FieldByIndex.
type column struct {
	name  string
	index []int
}

var columnCache sync.Map // reflect.Type -> []column

func columnsOf(t reflect.Type) []column {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]column)
	}

	cols := appendColumns(nil, t, nil)
	actual, _ := columnCache.LoadOrStore(t, cols)
	return actual.([]column)
}

func appendColumns(cols []column, t reflect.Type, prefix []int) []column {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append(make([]int, 0, len(prefix)+1), prefix...), i)

		if f.Anonymous {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				// nil embedded pointers cannot be walked
				continue
			}
			if ft.Kind() == reflect.Struct {
				cols = appendColumns(cols, ft, index)
			}
			continue
		}

		tag := f.Tag.Get("db")
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		cols = append(cols, column{name: tag, index: index})
	}
	return cols
}

// ExtractDBColumns lists the "db" columns of T in declaration order, embedded
// structs first where they are declared. Repositories call it once at
// construction.
func ExtractDBColumns[T any]() []string {
	cols := columnsOf(reflect.TypeOf((*T)(nil)).Elem())
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// StructToMap returns the "db"-tagged fields of v keyed by column. It returns
// nil when v is not a struct or a pointer to one.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	cols := columnsOf(rv.Type())
	m := make(map[string]any, len(cols))
	for _, c := range cols {
		m[c.name] = rv.FieldByIndex(c.index).Interface()
	}
	return m
}

// ColumnsExcept returns cols without the excluded names, keeping order.
func ColumnsExcept(cols []string, exclude ...string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if !slices.Contains(exclude, c) {
			out = append(out, c)
		}
	}
	return out
}

// RowValues returns the values of v for columns, in column order. Unknown
// columns yield nil.
func RowValues(v any, columns []string) []any {
	m := StructToMap(v)
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = m[c]
	}
	return row
}
