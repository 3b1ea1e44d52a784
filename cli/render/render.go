// Package render provides centralized output rendering for the prism CLI.
//
// Format selection rules:
//   - If output is a TTY, default to table
//   - If output is not a TTY, default to json
//   - --format flag always overrides defaults
//   - Invalid formats are errors
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/glassbead-io/prism/types"
)

// Format represents an output format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat parses a format string, returning an error for invalid formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "":
		return "", nil // Let caller decide default
	default:
		return "", fmt.Errorf("invalid format: %q (must be json or table)", s)
	}
}

// Renderer handles output formatting for query results.
type Renderer struct {
	format Format
	out    io.Writer
}

// NewRenderer creates a renderer from CLI context.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}

	// Apply default format based on TTY detection
	if format == "" {
		if isTTY(os.Stdout) {
			format = FormatTable
		} else {
			format = FormatJSON
		}
	}

	return &Renderer{format: format, out: os.Stdout}, nil
}

// NewRendererWithWriter creates a renderer with a custom writer (for testing).
func NewRendererWithWriter(format Format, out io.Writer) *Renderer {
	return &Renderer{format: format, out: out}
}

// Result outputs a query result in the configured format.
func (r *Renderer) Result(result *types.QueryResult) error {
	switch r.format {
	case FormatJSON:
		return r.renderJSON(result)
	case FormatTable:
		return r.renderTable(result)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

func (r *Renderer) renderJSON(data any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (r *Renderer) renderTable(result *types.QueryResult) error {
	if result == nil || len(result.Columns) == 0 {
		fmt.Fprintln(r.out, "(no results)")
		return nil
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(result.Columns, "\t"))

	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = formatCell(cell)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}

	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "(%d rows)\n", result.RowCount)
	return nil
}

func formatCell(v any) string {
	if v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		// JSON numbers decode as float64; print integers without a fraction
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// StreamPrinter renders live session events as plain text.
// It is the non-TUI rendering path for prism chat.
type StreamPrinter struct {
	out         io.Writer
	lastThought string
}

// NewStreamPrinter creates a plain-text event printer.
func NewStreamPrinter(out io.Writer) *StreamPrinter {
	return &StreamPrinter{out: out}
}

// Thought prints a status line. Repeated identical thoughts are suppressed.
func (p *StreamPrinter) Thought(content string) {
	if content == p.lastThought {
		return
	}
	p.lastThought = content
	fmt.Fprintf(p.out, "* %s\n", content)
}

// Code writes a code chunk verbatim. Chunks concatenate into the full source,
// so no per-chunk framing is added.
func (p *StreamPrinter) Code(chunk string) {
	fmt.Fprint(p.out, chunk)
}

// CodeDone terminates the code block if any code was written.
func (p *StreamPrinter) CodeDone(accumulated string) {
	if accumulated != "" && !strings.HasSuffix(accumulated, "\n") {
		fmt.Fprintln(p.out)
	}
}

// Data prints a summary line followed by the result table.
func (p *StreamPrinter) Data(result types.QueryResult) {
	fmt.Fprintf(p.out, "\n= result: %d columns, %d rows\n", len(result.Columns), result.RowCount)

	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = formatCell(cell)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
}

// Error prints an error line.
func (p *StreamPrinter) Error(err error) {
	fmt.Fprintf(p.out, "! %v\n", err)
}

// isTTY returns true if the writer is a TTY.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
