package transform

import "github.com/glassbead-io/prism/types"

// Artifact is an evaluator-ready unit: final source text plus the scope
// bindings it references. Derived deterministically from a (code, data)
// pair; never persisted, safe to recompute at any point in the session.
type Artifact struct {
	// Source is the normalized, rewritten source text.
	Source string
	// Scope maps binding names to values the source may reference.
	// Component-library primitives are merged in by the evaluator.
	Scope map[string]any
	// Shape records which data binding was selected.
	Shape Shape
}

// Prepare runs the full chain — normalize, rewrite, bind — on a completed
// code accumulation and the latest query result. Pure and synchronous;
// repeated calls with equal inputs yield equal artifacts.
func Prepare(code string, result *types.QueryResult, params map[string]any) Artifact {
	normalized := Normalize(code)
	value, shape := BindData(normalized, result)

	var paramsValue any
	if params != nil {
		paramsValue = params
	}

	return Artifact{
		Source: Rewrite(normalized),
		Scope: map[string]any{
			ScopeData:   value,
			ScopeParams: paramsValue,
		},
		Shape: shape,
	}
}
