package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/query"
)

// JSONFormatter formats query tuples as JSON.
type JSONFormatter struct {
	writer  io.Writer
	options *OutputOptions
	reader  *SnippetReader
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(opts *OutputOptions) *JSONFormatter {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	return &JSONFormatter{
		writer:  os.Stdout,
		options: opts,
		reader:  NewSnippetReader(opts.ContextLines),
	}
}

// NewJSONFormatterWithWriter creates a formatter with custom writer (for testing).
func NewJSONFormatterWithWriter(w io.Writer, opts *OutputOptions) *JSONFormatter {
	jf := NewJSONFormatter(opts)
	jf.writer = w
	return jf
}

// JSONOutput represents the complete JSON output structure.
type JSONOutput struct {
	Tool    JSONTool     `json:"tool"`
	Scan    JSONScan     `json:"scan"`
	Results []JSONResult `json:"results"`
	Summary JSONSummary  `json:"summary"`
	Errors  []string     `json:"errors,omitempty"`
}

// JSONTool contains tool metadata.
type JSONTool struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	URL     string `json:"url"`
}

// JSONScan contains scan metadata.
type JSONScan struct {
	Target        string  `json:"target"`
	Timestamp     string  `json:"timestamp"`
	Duration      float64 `json:"duration"`
	RulesExecuted int     `json:"rules_executed"` //nolint:tagliatelle
}

// JSONResult represents a single query tuple.
type JSONResult struct {
	RuleID   string         `json:"rule_id"`   //nolint:tagliatelle
	RuleName string         `json:"rule_name"` //nolint:tagliatelle
	Message  string         `json:"message"`
	Severity string         `json:"severity"`
	Location JSONLocation   `json:"location"`
	Context  []JSONLocation `json:"context,omitempty"`
}

// JSONLocation contains a node's resolved location.
type JSONLocation struct {
	File    string       `json:"file"`
	Line    int          `json:"line"`
	Column  int          `json:"column,omitempty"`
	Kind    string       `json:"kind,omitempty"`
	Snippet *JSONSnippet `json:"snippet,omitempty"`
}

// JSONSnippet contains code context.
type JSONSnippet struct {
	StartLine int      `json:"start_line"` //nolint:tagliatelle
	EndLine   int      `json:"end_line"`   //nolint:tagliatelle
	Lines     []string `json:"lines"`
}

// JSONSummary contains aggregated statistics.
type JSONSummary struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"by_severity"` //nolint:tagliatelle
	ByRule     map[string]int `json:"by_rule"`     //nolint:tagliatelle
}

// ScanInfo contains metadata about the scan.
type ScanInfo struct {
	Target        string
	Version       string
	Duration      time.Duration
	RulesExecuted int
	Errors        []string
}

// Format outputs all tuples as JSON.
func (f *JSONFormatter) Format(tuples []query.Tuple, summary *Summary, scanInfo ScanInfo) error {
	output := f.buildOutput(tuples, summary, scanInfo)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func (f *JSONFormatter) buildOutput(tuples []query.Tuple, summary *Summary, scanInfo ScanInfo) JSONOutput {
	version := scanInfo.Version
	if version == "" {
		version = "unknown"
	}

	bySeverity := make(map[string]int, len(summary.BySeverity))
	for sev, count := range summary.BySeverity {
		bySeverity[string(sev)] = count
	}

	return JSONOutput{
		Tool: JSONTool{
			Name:    "Code Pathfinder",
			Version: version,
			URL:     "https://github.com/shivasurya/code-pathfinder",
		},
		Scan: JSONScan{
			Target:        scanInfo.Target,
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			Duration:      scanInfo.Duration.Seconds(),
			RulesExecuted: scanInfo.RulesExecuted,
		},
		Results: f.buildResults(findingsOnly(tuples)),
		Summary: JSONSummary{
			Total:      summary.TotalFindings,
			BySeverity: bySeverity,
			ByRule:     summary.ByRule,
		},
		Errors: scanInfo.Errors,
	}
}

func (f *JSONFormatter) buildResults(tuples []query.Tuple) []JSONResult {
	results := make([]JSONResult, 0, len(tuples))

	for _, t := range tuples {
		result := JSONResult{
			RuleID:   t.Rule.ID,
			RuleName: t.Rule.Name,
			Message:  t.Message,
			Severity: string(t.Rule.Severity),
			Location: f.buildLocation(t.Node),
		}
		for _, ctx := range t.Context {
			result.Context = append(result.Context, f.buildLocationNoSnippet(ctx))
		}
		results = append(results, result)
	}

	return results
}

func (f *JSONFormatter) buildLocation(n *graph.Node) JSONLocation {
	loc := f.buildLocationNoSnippet(n)

	gloc := n.GetLocation()
	snippet := f.reader.For(gloc.File, gloc.StartLine)
	if len(snippet.Lines) > 0 {
		lines := make([]string, len(snippet.Lines))
		for i, sl := range snippet.Lines {
			lines[i] = sl.Content
		}
		loc.Snippet = &JSONSnippet{
			StartLine: snippet.StartLine,
			EndLine:   snippet.StartLine + len(snippet.Lines) - 1,
			Lines:     lines,
		}
	}

	return loc
}

func (f *JSONFormatter) buildLocationNoSnippet(n *graph.Node) JSONLocation {
	gloc := n.GetLocation()
	return JSONLocation{
		File:   gloc.File,
		Line:   gloc.StartLine,
		Column: gloc.StartCol,
		Kind:   string(n.Kind),
	}
}
