package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/portdog/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	// Header
	w.writeHeader(md, report)

	// Open ports
	w.writeOpenPorts(md, report)

	// Service distribution
	w.writeServiceDistribution(md, report)

	// Footer
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ScanReport) {
	md.H1("Port Scan Report")
	md.PlainText("")

	rows := [][]string{
		{"Target", "`" + report.Target + "`"},
	}
	if report.ResolvedIP != "" && report.ResolvedIP != report.Target {
		rows = append(rows, []string{"Resolved IP", "`" + report.ResolvedIP + "`"})
	}
	rows = append(rows,
		[]string{"Scan Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
		[]string{"Duration", report.Elapsed.Round(time.Millisecond).String()},
		[]string{"Ports Scanned", strconv.Itoa(report.PortsScanned)},
		[]string{"Open Ports", strconv.Itoa(len(report.OpenPorts))},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeOpenPorts writes the open ports section.
func (w *MarkdownWriter) writeOpenPorts(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Open Ports")
	md.PlainText("")

	if len(report.OpenPorts) == 0 {
		md.PlainText("No open ports found.")
		md.PlainText("")
		md.Tip("No open ports were detected in the scanned range.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.OpenPorts))
	for i, p := range report.OpenPorts {
		rows[i] = []string{
			fmt.Sprintf("%d/tcp", p.Port),
			p.State,
			p.Service,
			truncateString(flattenBanner(p.Banner), 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Port", "State", "Service", "Banner"},
		Rows:   rows,
	})
	md.PlainText("")

	md.Importantf(
		"%d open port(s) detected. Review whether each service should be reachable from the scanning host.",
		len(report.OpenPorts),
	)
	md.PlainText("")
}

// writeServiceDistribution writes a mermaid pie chart of services on open ports.
func (w *MarkdownWriter) writeServiceDistribution(md *markdown.Markdown, report *model.ScanReport) {
	distribution := report.ServiceDistribution()
	if len(distribution) == 0 {
		return
	}

	md.H2("Service Distribution")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Services on Open Ports"),
		piechart.WithShowData(true),
	)

	// Sort service names so the chart is stable across runs
	services := make([]string, 0, len(distribution))
	for service := range distribution {
		services = append(services, service)
	}
	sort.Strings(services)

	for _, service := range services {
		chart.LabelAndIntValue(service, uint64(distribution[service]))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [portdog](https://github.com/nao1215/portdog)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
