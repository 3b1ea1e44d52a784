package transform

import (
	"fmt"
	"regexp"
	"strings"
)

// Scope binding names the synthesized wrapper references. These are part of
// the contract with the evaluator collaborator: the evaluator must supply
// bindings under these names alongside the prepared source.
const (
	// ScopeData is the binding name for the shaped query result.
	ScopeData = "data"
	// ScopeParams is the binding name for optional user parameters.
	ScopeParams = "params"
)

// wrapperName is the identifier of the synthesized default export.
// Underscore-prefixed to stay clear of generated identifiers.
const wrapperName = "__app"

// defaultExportFn locates a default-exported named function declaration
// and captures its identifier.
var defaultExportFn = regexp.MustCompile(`export\s+default\s+function\s+([A-Za-z_$][\w$]*)\s*\(`)

// Rewrite strips the export qualifier from the default-exported function
// declaration and appends a wrapper constant that invokes it with the scope
// bindings, default-exporting the wrapper instead.
//
// When no default-exported named function is found — an unsupported export
// style, or an incomplete declaration mid-stream — the input is returned
// byte-identical. A partial artifact must render harmlessly, never raise
// during preparation.
func Rewrite(source string) string {
	m := defaultExportFn.FindStringSubmatchIndex(source)
	if m == nil {
		return source
	}
	name := source[m[2]:m[3]]

	var b strings.Builder
	b.Grow(len(source) + 96)
	b.WriteString(source[:m[0]])
	b.WriteString("function ")
	b.WriteString(name)
	b.WriteString("(")
	b.WriteString(source[m[1]:])
	fmt.Fprintf(&b, "\n\nconst %s = %s({ %s, %s });\nexport default %s;\n",
		wrapperName, name, ScopeData, ScopeParams, wrapperName)
	return b.String()
}
