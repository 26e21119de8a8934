package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/query"
	"github.com/shivasurya/code-pathfinder/sast-engine/model"
)

// TextFormatter formats query tuples as human-readable text.
type TextFormatter struct {
	writer  io.Writer
	options *OutputOptions
	logger  *Logger
	reader  *SnippetReader
}

// NewTextFormatter creates a text formatter.
func NewTextFormatter(opts *OutputOptions, logger *Logger) *TextFormatter {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	return &TextFormatter{
		writer:  os.Stdout,
		options: opts,
		logger:  logger,
		reader:  NewSnippetReader(opts.ContextLines),
	}
}

// NewTextFormatterWithWriter creates a formatter with custom writer (for testing).
func NewTextFormatterWithWriter(w io.Writer, opts *OutputOptions, logger *Logger) *TextFormatter {
	tf := NewTextFormatter(opts, logger)
	tf.writer = w
	return tf
}

// Format outputs all tuples as formatted text.
func (f *TextFormatter) Format(tuples []query.Tuple, summary *Summary) error {
	findings := findingsOnly(tuples)
	if len(findings) == 0 {
		f.writeNoFindings()
		return nil
	}

	f.writeHeader()
	f.writeResults(findings)
	f.writeSummary(summary)

	if f.options.ShouldShowStatistics() {
		f.writeStatistics(summary)
	}

	return nil
}

// findingsOnly drops diagnostic tuples (no Rule) from rendering — the text
// report shows security findings, not is_unresolved_call-style diagnostics.
func findingsOnly(tuples []query.Tuple) []query.Tuple {
	out := make([]query.Tuple, 0, len(tuples))
	for _, t := range tuples {
		if t.Rule.ID != "" {
			out = append(out, t)
		}
	}
	return out
}

func (f *TextFormatter) writeHeader() {
	fmt.Fprintln(f.writer, "Code Pathfinder Security Scan")
	fmt.Fprintln(f.writer)
}

func (f *TextFormatter) writeNoFindings() {
	fmt.Fprintln(f.writer, "Code Pathfinder Security Scan")
	fmt.Fprintln(f.writer)
	fmt.Fprintln(f.writer, "No security issues found.")
}

func (f *TextFormatter) writeResults(tuples []query.Tuple) {
	fmt.Fprintln(f.writer, "Results:")
	fmt.Fprintln(f.writer)

	grouped := f.groupBySeverity(tuples)

	severityOrder := []query.Severity{query.SeverityCritical, query.SeverityHigh, query.SeverityMedium, query.SeverityLow}
	for _, sev := range severityOrder {
		if group, ok := grouped[sev]; ok && len(group) > 0 {
			f.writeSeverityGroup(sev, group)
		}
	}
}

func (f *TextFormatter) groupBySeverity(tuples []query.Tuple) map[query.Severity][]query.Tuple {
	grouped := make(map[query.Severity][]query.Tuple)
	for _, t := range tuples {
		grouped[t.Rule.Severity] = append(grouped[t.Rule.Severity], t)
	}
	return grouped
}

func (f *TextFormatter) writeSeverityGroup(severity query.Severity, tuples []query.Tuple) {
	title := fmt.Sprintf("%s Issues (%d):", strings.Title(string(severity)), len(tuples))
	fmt.Fprintln(f.writer, title)
	fmt.Fprintln(f.writer)

	showDetailed := severity == query.SeverityCritical || severity == query.SeverityHigh

	for _, t := range tuples {
		if showDetailed {
			f.writeDetailedFinding(t)
		} else {
			f.writeAbbreviatedFinding(t)
		}
	}
	fmt.Fprintln(f.writer)
}

func (f *TextFormatter) writeDetailedFinding(t query.Tuple) {
	fmt.Fprintf(f.writer, "  [%s] %s: %s\n", t.Rule.Severity, t.Rule.ID, t.Rule.Name)
	fmt.Fprintln(f.writer)

	loc := t.Node.GetLocation()
	fmt.Fprintf(f.writer, "    %s\n", formatLocation(loc))
	fmt.Fprintf(f.writer, "    %s\n", t.Message)

	snippet := f.reader.For(loc.File, loc.StartLine)
	if len(snippet.Lines) > 0 {
		f.writeCodeSnippet(snippet)
	}
	fmt.Fprintln(f.writer)

	if len(t.Context) > 0 {
		f.writeContext(t.Context)
	}
}

func (f *TextFormatter) writeAbbreviatedFinding(t query.Tuple) {
	loc := t.Node.GetLocation()
	fmt.Fprintf(f.writer, "  [%s] %s: %s\n", t.Rule.Severity, t.Rule.ID, formatLocation(loc))
}

func formatLocation(loc model.Location) string {
	if loc.File == "" {
		return "<unknown>"
	}
	if loc.StartLine > 0 {
		return fmt.Sprintf("%s:%d", loc.File, loc.StartLine)
	}
	return loc.File
}

func (f *TextFormatter) writeCodeSnippet(snippet Snippet) {
	maxLineNum := 0
	for _, line := range snippet.Lines {
		if line.Number > maxLineNum {
			maxLineNum = line.Number
		}
	}
	lineWidth := len(fmt.Sprintf("%d", maxLineNum))

	for _, line := range snippet.Lines {
		marker := " "
		if line.IsHighlight {
			marker = ">"
		}
		fmt.Fprintf(f.writer, "      %s %*d | %s\n", marker, lineWidth, line.Number, line.Content)
	}
}

// writeContext renders a Tuple's supporting nodes — a taint path's source, an
// interprocedural call site, the write the query flagged — in the order the
// query returned them (most to least specific).
func (f *TextFormatter) writeContext(context []*graph.Node) {
	fmt.Fprintln(f.writer, "    Context:")
	for _, n := range context {
		loc := n.GetLocation()
		fmt.Fprintf(f.writer, "      -> %s (%s)\n", formatLocation(loc), n.Kind)
	}
}

func (f *TextFormatter) writeSummary(summary *Summary) {
	fmt.Fprintln(f.writer, "Summary:")
	fmt.Fprintf(f.writer, "  %d findings across %d rules\n", summary.TotalFindings, summary.RulesExecuted)

	var parts []string
	for _, sev := range []query.Severity{query.SeverityCritical, query.SeverityHigh, query.SeverityMedium, query.SeverityLow} {
		if count, ok := summary.BySeverity[sev]; ok && count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", count, sev))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(f.writer, "  %s\n", strings.Join(parts, " | "))
	}
	fmt.Fprintln(f.writer)
}

func (f *TextFormatter) writeStatistics(summary *Summary) {
	fmt.Fprintln(f.writer, "Findings by rule:")
	for rule, count := range summary.ByRule {
		fmt.Fprintf(f.writer, "  %s: %d findings\n", rule, count)
	}
	fmt.Fprintln(f.writer)
}

// Summary holds aggregated statistics for a query run.
type Summary struct {
	TotalFindings int
	RulesExecuted int
	BySeverity    map[query.Severity]int
	ByRule        map[string]int
	FilesScanned  int
	Duration      string
}

// BuildSummary creates a Summary from a query run's tuples. Diagnostic
// tuples (no Rule) are excluded from the finding counts.
func BuildSummary(tuples []query.Tuple, rulesExecuted int) *Summary {
	summary := &Summary{
		RulesExecuted: rulesExecuted,
		BySeverity:    make(map[query.Severity]int),
		ByRule:        make(map[string]int),
	}

	for _, t := range tuples {
		if t.Rule.ID == "" {
			continue
		}
		summary.TotalFindings++
		summary.BySeverity[t.Rule.Severity]++
		summary.ByRule[t.Rule.ID]++
	}

	return summary
}
