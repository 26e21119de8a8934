package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/query"
	"github.com/shivasurya/code-pathfinder/sast-engine/model"
)

func writeFixtureSource(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "Bank.sol")
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func callNode(file string, line int) *graph.Node {
	return graph.NewNode("call1", graph.KindCallExpression, model.Location{File: file, StartLine: line})
}

func TestNewTextFormatter(t *testing.T) {
	tf := NewTextFormatter(nil, nil)
	if tf == nil {
		t.Fatal("expected non-nil formatter")
	}
	if tf.options == nil {
		t.Error("expected default options")
	}
}

func TestTextFormatterNoFindings(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil, nil)

	err := tf.Format(nil, &Summary{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "No security issues found") {
		t.Errorf("expected 'No security issues found', got: %s", output)
	}
}

func TestTextFormatterWithFindings(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil, nil)

	file := writeFixtureSource(t,
		"contract Bank {",
		"    function withdraw(uint amount) public {",
		"        msg.sender.call{value: amount}(\"\");",
		"        balances[msg.sender] -= amount;",
		"    }",
		"}",
	)

	tuples := []query.Tuple{
		{
			Node:    callNode(file, 3),
			Message: "state write follows external call without a prior effect",
			Rule:    query.Rule{ID: "cei-violation-direct", Name: "Checks-Effects-Interactions Violation", Severity: query.SeverityCritical},
		},
	}

	summary := BuildSummary(tuples, 5)
	err := tf.Format(tuples, summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "Code Pathfinder Security Scan") {
		t.Error("missing header")
	}
	if !strings.Contains(output, "Critical Issues (1)") {
		t.Error("missing critical issues section")
	}
	if !strings.Contains(output, "cei-violation-direct") {
		t.Error("missing rule ID")
	}
	if !strings.Contains(output, "3") {
		t.Error("missing line number in location")
	}
	if !strings.Contains(output, "1 findings across 5 rules") {
		t.Error("missing summary")
	}
}

func TestTextFormatterSeverityGrouping(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil, nil)

	tuples := []query.Tuple{
		{Node: callNode("Bank.sol", 1), Message: "m", Rule: query.Rule{ID: "low1", Severity: query.SeverityLow}},
		{Node: callNode("Bank.sol", 2), Message: "m", Rule: query.Rule{ID: "crit1", Severity: query.SeverityCritical}},
		{Node: callNode("Bank.sol", 3), Message: "m", Rule: query.Rule{ID: "high1", Severity: query.SeverityHigh}},
	}

	summary := BuildSummary(tuples, 3)
	tf.Format(tuples, summary)

	output := buf.String()

	critIdx := strings.Index(output, "Critical Issues")
	highIdx := strings.Index(output, "High Issues")
	lowIdx := strings.Index(output, "Low Issues")

	if critIdx == -1 || highIdx == -1 || lowIdx == -1 {
		t.Fatal("missing severity sections")
	}
	if critIdx > highIdx {
		t.Error("critical should come before high")
	}
	if highIdx > lowIdx {
		t.Error("high should come before low")
	}
}

func TestTextFormatterDetailedVsAbbreviated(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil, nil)

	tuples := []query.Tuple{
		{Node: callNode("Bank.sol", 10), Message: "m", Rule: query.Rule{ID: "crit1", Name: "Critical Bug", Severity: query.SeverityCritical}},
		{Node: callNode("Bank.sol", 20), Message: "m", Rule: query.Rule{ID: "low1", Name: "Low Bug", Severity: query.SeverityLow}},
	}

	summary := BuildSummary(tuples, 2)
	tf.Format(tuples, summary)

	output := buf.String()

	lines := strings.Split(output, "\n")
	lowLineCount := 0
	inLowSection := false
	for _, line := range lines {
		if strings.Contains(line, "Low Issues") {
			inLowSection = true
			continue
		}
		if inLowSection && strings.HasPrefix(strings.TrimSpace(line), "[low]") {
			lowLineCount++
		}
	}
	if lowLineCount != 1 {
		t.Errorf("expected 1 abbreviated low finding line, got %d", lowLineCount)
	}
}

func TestTextFormatterCodeSnippet(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil, nil)

	file := writeFixtureSource(t,
		"contract Bank {",
		"    function withdraw() public {",
		"        uint amount = balances[msg.sender];",
		"        msg.sender.call{value: amount}(\"\");",
		"        balances[msg.sender] = 0;",
		"    }",
		"}",
	)

	tuples := []query.Tuple{
		{Node: callNode(file, 4), Message: "m", Rule: query.Rule{ID: "test", Severity: query.SeverityCritical}},
	}

	summary := BuildSummary(tuples, 1)
	tf.Format(tuples, summary)

	output := buf.String()

	if !strings.Contains(output, "contract Bank") {
		t.Error("missing snippet context line")
	}
	if !strings.Contains(output, "msg.sender.call") {
		t.Error("missing highlighted snippet line")
	}
	if !strings.Contains(output, "> ") {
		t.Error("missing highlight marker")
	}
}

func TestTextFormatterContext(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil, nil)

	tuples := []query.Tuple{
		{
			Node:    callNode("Bank.sol", 20),
			Message: "state write reachable from an external call via _updateBalance",
			Context: []*graph.Node{callNode("Bank.sol", 10)},
			Rule:    query.Rule{ID: "cei-violation-interprocedural", Severity: query.SeverityCritical},
		},
	}

	summary := BuildSummary(tuples, 1)
	tf.Format(tuples, summary)

	output := buf.String()

	if !strings.Contains(output, "Context:") {
		t.Error("missing context section")
	}
	if !strings.Contains(output, "Bank.sol:10") {
		t.Error("missing context node location")
	}
}

func TestFormatLocation(t *testing.T) {
	tests := []struct {
		name     string
		loc      model.Location
		expected string
	}{
		{"file with line", model.Location{File: "Bank.sol", StartLine: 42}, "Bank.sol:42"},
		{"no line number", model.Location{File: "Bank.sol"}, "Bank.sol"},
		{"no file", model.Location{}, "<unknown>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatLocation(tt.loc)
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestBuildSummary(t *testing.T) {
	tuples := []query.Tuple{
		{Node: callNode("Bank.sol", 1), Rule: query.Rule{ID: "r1", Severity: query.SeverityCritical}},
		{Node: callNode("Bank.sol", 2), Rule: query.Rule{ID: "r1", Severity: query.SeverityCritical}},
		{Node: callNode("Bank.sol", 3), Rule: query.Rule{ID: "r2", Severity: query.SeverityHigh}},
		{Node: callNode("Bank.sol", 4), Rule: query.Rule{ID: "r3", Severity: query.SeverityLow}},
		{Node: callNode("Bank.sol", 5), Message: "diagnostic, no rule"},
	}

	summary := BuildSummary(tuples, 10)

	if summary.TotalFindings != 4 {
		t.Errorf("TotalFindings: got %d, want 4", summary.TotalFindings)
	}
	if summary.RulesExecuted != 10 {
		t.Errorf("RulesExecuted: got %d, want 10", summary.RulesExecuted)
	}
	if summary.BySeverity[query.SeverityCritical] != 2 {
		t.Errorf("critical count: got %d, want 2", summary.BySeverity[query.SeverityCritical])
	}
	if summary.BySeverity[query.SeverityHigh] != 1 {
		t.Errorf("high count: got %d, want 1", summary.BySeverity[query.SeverityHigh])
	}
	if summary.ByRule["r1"] != 2 {
		t.Errorf("r1 count: got %d, want 2", summary.ByRule["r1"])
	}
}

func TestTextFormatterStatistics(t *testing.T) {
	var buf bytes.Buffer
	opts := &OutputOptions{Verbosity: VerbosityVerbose}
	tf := NewTextFormatterWithWriter(&buf, opts, nil)

	tuples := []query.Tuple{
		{Node: callNode("Bank.sol", 1), Message: "m", Rule: query.Rule{ID: "test", Severity: query.SeverityHigh}},
	}

	summary := BuildSummary(tuples, 5)
	tf.Format(tuples, summary)

	output := buf.String()

	if !strings.Contains(output, "Findings by rule:") {
		t.Error("verbose mode should show per-rule statistics")
	}
}

func TestTextFormatterEmptySnippetFileMissing(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil, nil)

	tuples := []query.Tuple{
		{Node: callNode("does/not/exist.sol", 10), Message: "m", Rule: query.Rule{ID: "test", Name: "Test", Severity: query.SeverityCritical}},
	}

	summary := BuildSummary(tuples, 1)
	err := tf.Format(tuples, summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "does/not/exist.sol:10") {
		t.Error("missing location despite unreadable source")
	}
}

func TestGroupBySeverity(t *testing.T) {
	tf := NewTextFormatter(nil, nil)

	tuples := []query.Tuple{
		{Node: callNode("Bank.sol", 1), Rule: query.Rule{Severity: query.SeverityCritical}},
		{Node: callNode("Bank.sol", 2), Rule: query.Rule{Severity: query.SeverityCritical}},
		{Node: callNode("Bank.sol", 3), Rule: query.Rule{Severity: query.SeverityHigh}},
		{Node: callNode("Bank.sol", 4), Rule: query.Rule{Severity: query.SeverityLow}},
		{Node: callNode("Bank.sol", 5), Rule: query.Rule{Severity: query.SeverityLow}},
		{Node: callNode("Bank.sol", 6), Rule: query.Rule{Severity: query.SeverityLow}},
	}

	grouped := tf.groupBySeverity(tuples)

	if len(grouped[query.SeverityCritical]) != 2 {
		t.Errorf("critical: got %d, want 2", len(grouped[query.SeverityCritical]))
	}
	if len(grouped[query.SeverityHigh]) != 1 {
		t.Errorf("high: got %d, want 1", len(grouped[query.SeverityHigh]))
	}
	if len(grouped[query.SeverityLow]) != 3 {
		t.Errorf("low: got %d, want 3", len(grouped[query.SeverityLow]))
	}
}

func TestWriteSnippetAlignment(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil, nil)

	lines := make([]string, 0, 101)
	for i := 1; i <= 101; i++ {
		lines = append(lines, strings.Repeat("x", 1))
	}
	file := filepath.Join(t.TempDir(), "Bank.sol")
	if err := os.WriteFile(file, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	opts := &OutputOptions{ContextLines: 2}
	tf = NewTextFormatterWithWriter(&buf, opts, nil)

	tuples := []query.Tuple{
		{Node: callNode(file, 100), Message: "m", Rule: query.Rule{ID: "test", Severity: query.SeverityCritical}},
	}

	summary := BuildSummary(tuples, 1)
	tf.Format(tuples, summary)

	output := buf.String()

	if !strings.Contains(output, " 98 |") {
		t.Error("missing aligned line 98")
	}
	if !strings.Contains(output, " 99 |") {
		t.Error("missing aligned line 99")
	}
	if !strings.Contains(output, "100 |") {
		t.Error("missing aligned line 100")
	}
}

func TestTextFormatterEmptySummary(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil, nil)

	tuples := []query.Tuple{
		{Node: callNode("Bank.sol", 1), Message: "m", Rule: query.Rule{ID: "test", Severity: query.SeverityHigh}},
	}

	summary := &Summary{
		TotalFindings: 1,
		RulesExecuted: 1,
		BySeverity:    map[query.Severity]int{},
		ByRule:        map[string]int{},
	}

	err := tf.Format(tuples, summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "1 findings across 1 rules") {
		t.Error("missing summary line")
	}
}
