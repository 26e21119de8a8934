package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	sarif "github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/query"
)

// SARIFFormatter formats query tuples as SARIF 2.1.0.
type SARIFFormatter struct {
	writer  io.Writer
	options *OutputOptions
}

// NewSARIFFormatter creates a SARIF formatter.
func NewSARIFFormatter(opts *OutputOptions) *SARIFFormatter {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	return &SARIFFormatter{
		writer:  os.Stdout,
		options: opts,
	}
}

// NewSARIFFormatterWithWriter creates a formatter with custom writer (for testing).
func NewSARIFFormatterWithWriter(w io.Writer, opts *OutputOptions) *SARIFFormatter {
	sf := NewSARIFFormatter(opts)
	sf.writer = w
	return sf
}

// Format outputs all tuples as SARIF.
func (f *SARIFFormatter) Format(tuples []query.Tuple, scanInfo ScanInfo) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}

	run := sarif.NewRunWithInformationURI("Code Pathfinder", "https://github.com/shivasurya/code-pathfinder")

	findings := findingsOnly(tuples)
	f.buildRules(findings, run)

	for _, t := range findings {
		f.buildResult(t, run)
	}

	report.AddRun(run)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (f *SARIFFormatter) buildRules(tuples []query.Tuple, run *sarif.Run) map[string]bool {
	seen := make(map[string]bool)

	for _, t := range tuples {
		if seen[t.Rule.ID] {
			continue
		}
		seen[t.Rule.ID] = true

		sarifRule := run.AddRule(t.Rule.ID).
			WithDescription(t.Rule.Name).
			WithName(t.Rule.Name).
			WithHelpURI("https://github.com/shivasurya/code-pathfinder")

		level := f.severityToLevelString(t.Rule.Severity)
		sarifRule.WithDefaultConfiguration(sarif.NewReportingConfiguration().WithLevel(level))

		sarifRule.WithProperties(f.buildRuleProperties(t.Rule))
	}

	return seen
}

func (f *SARIFFormatter) severityToLevelString(severity query.Severity) string {
	switch severity {
	case query.SeverityCritical, query.SeverityHigh:
		return "error"
	case query.SeverityMedium:
		return "warning"
	case query.SeverityLow:
		return "note"
	default:
		return "warning"
	}
}

func (f *SARIFFormatter) buildRuleProperties(rule query.Rule) map[string]interface{} {
	props := make(map[string]interface{})
	props["tags"] = []string{"security"}
	props["security-severity"] = f.severityToScore(rule.Severity)
	props["precision"] = "high"
	return props
}

func (f *SARIFFormatter) severityToScore(severity query.Severity) string {
	switch severity {
	case query.SeverityCritical:
		return "9.0"
	case query.SeverityHigh:
		return "7.0"
	case query.SeverityMedium:
		return "5.0"
	case query.SeverityLow:
		return "3.0"
	default:
		return "5.0"
	}
}

func (f *SARIFFormatter) buildResult(t query.Tuple, run *sarif.Run) {
	result := run.CreateResultForRule(t.Rule.ID).
		WithMessage(sarif.NewTextMessage(t.Message))

	f.addLocation(t.Node, result)

	if len(t.Context) > 0 {
		f.addCodeFlow(t, result)
	}
}

func (f *SARIFFormatter) addLocation(n *graph.Node, result *sarif.Result) {
	loc := n.GetLocation()

	region := sarif.NewRegion().WithStartLine(loc.StartLine)
	if loc.StartCol > 0 {
		region.WithStartColumn(loc.StartCol)
	}

	location := sarif.NewLocation().
		WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(loc.File)).
				WithRegion(region),
		)

	result.AddLocation(location)
}

// addCodeFlow generalizes the teacher's two-point taint source->sink thread
// flow into an N-point flow through Tuple.Context, ending at the finding
// node itself.
func (f *SARIFFormatter) addCodeFlow(t query.Tuple, result *sarif.Result) {
	nodes := append(append([]*graph.Node{}, t.Context...), t.Node)

	var flowLocations []*sarif.ThreadFlowLocation
	for i, n := range nodes {
		loc := n.GetLocation()
		msg := fmt.Sprintf("step %d: %s", i+1, n.Kind)
		sarifLoc := sarif.NewLocation().
			WithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewArtifactLocation().WithUri(loc.File)).
					WithRegion(sarif.NewRegion().WithStartLine(loc.StartLine)),
			).
			WithMessage(sarif.NewTextMessage(msg))
		flowLocations = append(flowLocations, sarif.NewThreadFlowLocation().WithLocation(sarifLoc))
	}

	threadFlow := sarif.NewThreadFlow().WithLocations(flowLocations)

	flowMsg := fmt.Sprintf("Flow through %d node(s) to the finding", len(nodes))
	codeFlow := sarif.NewCodeFlow().
		WithThreadFlows([]*sarif.ThreadFlow{threadFlow}).
		WithMessage(sarif.NewTextMessage(flowMsg))

	result.WithCodeFlows([]*sarif.CodeFlow{codeFlow})

	firstLoc := t.Context[0].GetLocation()
	relatedLocation := sarif.NewLocation().
		WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(firstLoc.File)).
				WithRegion(sarif.NewRegion().WithStartLine(firstLoc.StartLine)),
		).
		WithMessage(sarif.NewTextMessage("Context"))

	result.WithRelatedLocations([]*sarif.Location{relatedLocation})
}
