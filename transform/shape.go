package transform

import (
	"strings"

	"github.com/glassbead-io/prism/types"
)

// Shape identifies which data binding a generated artifact consumes.
type Shape string

const (
	// ShapeTabular binds the query result as-is: {columns, rows, row_count}.
	ShapeTabular Shape = "tabular"
	// ShapeRecords binds an array of column-keyed records, one per row.
	ShapeRecords Shape = "records"
)

// tabularAccessors are the literal field references that mark a source as
// consuming the tabular shape. Heuristic text search, not a parse: a false
// match in an unrelated expression selects the wrong shape. When a source
// references both shapes, tabular wins — the record form is derivable from
// it in-component, the reverse is not.
var tabularAccessors = []string{
	ScopeData + ".columns",
	ScopeData + ".rows",
	ScopeData + ".row_count",
}

// SelectShape inspects normalized source text for tabular field accessors.
func SelectShape(source string) Shape {
	for _, accessor := range tabularAccessors {
		if strings.Contains(source, accessor) {
			return ShapeTabular
		}
	}
	return ShapeRecords
}

// BindData produces the value bound to the data scope name for the given
// source and result. A nil result binds nil under either shape; generated
// code defends against absent data by documented contract.
func BindData(source string, result *types.QueryResult) (any, Shape) {
	shape := SelectShape(source)
	if result == nil {
		return nil, shape
	}
	if shape == ShapeTabular {
		return result, shape
	}
	return result.Records(), shape
}
