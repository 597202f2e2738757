package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/nao1215/portdog/internal/model"
)

// Table column widths. The final banner column is unpadded; its dash rule
// is capped at 50 characters so the header line stays inside 80 columns.
const (
	portColumnWidth    = 10
	stateColumnWidth   = 10
	serviceColumnWidth = 15
	bannerRuleWidth    = 50
)

// ruleWidth is the width of the horizontal rule printed above the table.
const ruleWidth = 80

// TableWriter outputs a human-readable table of open ports.
// This format is designed for terminal display.
//
// Design decision: Cells are padded to their column width first and
// colorized second. Coloring first would make the fmt width verbs count
// the invisible escape sequences as cell content and break the alignment
// of every colored column.
type TableWriter struct {
	baseWriter

	// colorize enables ANSI color output.
	colorize bool

	// Column styles, populated only when colorize is true.
	headStyle    *color.Color
	portStyle    *color.Color
	stateStyle   *color.Color
	serviceStyle *color.Color
}

// TableWriterOption configures a TableWriter.
type TableWriterOption func(*TableWriter)

// WithColor enables or disables ANSI color output.
// Callers should pass the result of their own terminal detection; the
// writer itself never inspects the output destination.
func WithColor(enabled bool) TableWriterOption {
	return func(w *TableWriter) {
		w.colorize = enabled
	}
}

// NewTableWriter creates a TableWriter that outputs to the given writer.
// Color is off by default so piped output stays clean.
func NewTableWriter(output io.Writer, opts ...TableWriterOption) *TableWriter {
	w := &TableWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.colorize {
		// EnableColor pins each style on, so the writer's output does not
		// flip with the global TTY detection after the caller decided.
		w.headStyle = color.New(color.Bold)
		w.headStyle.EnableColor()
		w.portStyle = color.New(color.FgYellow)
		w.portStyle.EnableColor()
		w.stateStyle = color.New(color.FgGreen)
		w.stateStyle.EnableColor()
		w.serviceStyle = color.New(color.FgBlue)
		w.serviceStyle.EnableColor()
	}

	return w
}

// Write outputs the open ports table. A scan with no open ports produces
// the rule followed by "No open ports found." instead of an empty table.
func (w *TableWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")

	if len(report.OpenPorts) == 0 {
		sb.WriteString("No open ports found.\n")
		return w.output.Write([]byte(sb.String()))
	}

	w.writeHeader(&sb)
	for _, p := range report.OpenPorts {
		w.writeRow(&sb, p)
	}

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the column headers and the dash rule under them.
func (w *TableWriter) writeHeader(sb *strings.Builder) {
	sb.WriteString(fmt.Sprintf("%s %s %s %s\n",
		w.paint(fmt.Sprintf("%-*s", portColumnWidth, "PORT"), w.headStyle),
		w.paint(fmt.Sprintf("%-*s", stateColumnWidth, "STATE"), w.headStyle),
		w.paint(fmt.Sprintf("%-*s", serviceColumnWidth, "SERVICE"), w.headStyle),
		w.paint("BANNER", w.headStyle),
	))
	sb.WriteString(fmt.Sprintf("%s %s %s %s\n",
		strings.Repeat("-", portColumnWidth),
		strings.Repeat("-", stateColumnWidth),
		strings.Repeat("-", serviceColumnWidth),
		strings.Repeat("-", bannerRuleWidth),
	))
}

// writeRow writes a single open-port row.
func (w *TableWriter) writeRow(sb *strings.Builder, p model.PortReport) {
	portCell := fmt.Sprintf("%-*s", portColumnWidth, fmt.Sprintf("%d/tcp", p.Port))
	stateCell := fmt.Sprintf("%-*s", stateColumnWidth, p.State)
	serviceCell := fmt.Sprintf("%-*s", serviceColumnWidth, p.Service)

	sb.WriteString(fmt.Sprintf("%s %s %s %s\n",
		w.paint(portCell, w.portStyle),
		w.paint(stateCell, w.stateStyle),
		w.paint(serviceCell, w.serviceStyle),
		flattenBanner(p.Banner),
	))
}

// paint applies the style to an already-padded cell when color is enabled.
func (w *TableWriter) paint(cell string, style *color.Color) string {
	if !w.colorize || style == nil {
		return cell
	}
	return style.Sprint(cell)
}

// flattenBanner folds a multi-line banner onto one line so it cannot break
// the table layout. Each CR and LF becomes a space, then the result is
// trimmed.
func flattenBanner(banner string) string {
	flattened := strings.NewReplacer("\r", " ", "\n", " ").Replace(banner)
	return strings.TrimSpace(flattened)
}
