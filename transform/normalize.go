// Package transform prepares freshly generated UI source text for execution
// by the sandboxed evaluator: ambient import stripping, default-export
// rewriting, and data shape binding.
//
// All transforms are pure string -> string functions. They are total: any
// input, including partial mid-stream artifacts, produces a string result
// and never a panic. Non-matching input passes through unchanged.
//
// Matching is regex-based, not a parser. Import statements quoted inside
// string literals or block comments at the start of a line are a known
// blind spot of this approximation; the realistic input distribution
// (markdown-extracted component code) does not produce them.
package transform

import (
	"regexp"
	"strings"
)

// ambientModules matches the module specifiers supplied by the evaluator's
// ambient scope: the rendering framework, the charting and icon libraries,
// and internal path-aliased modules.
const ambientModules = `(?:react|recharts|lucide-react|@/[^'"]+)`

// importPatterns cover default, named, namespace, and mixed import forms,
// with or without a trailing semicolon. Named import braces may span lines.
var importPatterns = []*regexp.Regexp{
	// import X from '...'; import * as N from '...'; import X, { A } from '...';
	// import { A, B } from '...'
	regexp.MustCompile(`(?m)^[ \t]*import[ \t]+(?:\*[ \t]*as[ \t]+[\w$]+|[\w$]+(?:[ \t]*,[ \t]*\{[^}]*\})?|\{[^}]*\})[ \t\n]*from[ \t]*['"]` + ambientModules + `['"][ \t]*;?[ \t]*\r?\n?`),
	// import '...' (side-effect only)
	regexp.MustCompile(`(?m)^[ \t]*import[ \t]*['"]` + ambientModules + `['"][ \t]*;?[ \t]*\r?\n?`),
}

// blankRuns matches 3-or-more consecutive line breaks.
var blankRuns = regexp.MustCompile(`\n{3,}`)

// Normalize removes import statements referencing ambient modules and
// collapses the resulting blank-line runs, then trims the edges.
//
// Idempotent: Normalize(Normalize(s)) == Normalize(s) for any s.
func Normalize(source string) string {
	for _, pattern := range importPatterns {
		source = pattern.ReplaceAllString(source, "")
	}
	source = blankRuns.ReplaceAllString(source, "\n\n")
	return strings.TrimSpace(source)
}
