package output

import (
	"testing"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/query"
	"github.com/shivasurya/code-pathfinder/sast-engine/model"
	"github.com/stretchr/testify/assert"
)

func tupleWithSeverity(severity query.Severity) query.Tuple {
	node := graph.NewNode("n1", graph.KindCallExpression, model.Location{File: "Bank.sol", StartLine: 10})
	return query.Tuple{
		Node:    node,
		Message: "finding",
		Rule:    query.Rule{ID: "cei-violation-direct", Name: "reentrancy", Severity: severity},
	}
}

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name      string
		tuples    []query.Tuple
		failOn    []string
		hadErrors bool
		expected  ExitCode
	}{
		{
			name:     "No tuples, no fail-on",
			tuples:   []query.Tuple{},
			failOn:   []string{},
			expected: ExitCodeSuccess,
		},
		{
			name:     "Tuples present, no fail-on",
			tuples:   []query.Tuple{tupleWithSeverity(query.SeverityCritical)},
			failOn:   []string{},
			expected: ExitCodeSuccess,
		},
		{
			name:     "Critical finding matches fail-on critical",
			tuples:   []query.Tuple{tupleWithSeverity(query.SeverityCritical)},
			failOn:   []string{"critical"},
			expected: ExitCodeFindings,
		},
		{
			name:     "High finding matches fail-on high",
			tuples:   []query.Tuple{tupleWithSeverity(query.SeverityHigh)},
			failOn:   []string{"high"},
			expected: ExitCodeFindings,
		},
		{
			name: "Multiple severities, matches critical",
			tuples: []query.Tuple{
				tupleWithSeverity(query.SeverityCritical),
				tupleWithSeverity(query.SeverityLow),
			},
			failOn:   []string{"critical", "high"},
			expected: ExitCodeFindings,
		},
		{
			name:     "Finding does not match fail-on",
			tuples:   []query.Tuple{tupleWithSeverity(query.SeverityLow)},
			failOn:   []string{"critical", "high"},
			expected: ExitCodeSuccess,
		},
		{
			name:      "Errors take precedence over no findings",
			tuples:    []query.Tuple{},
			failOn:    []string{"critical"},
			hadErrors: true,
			expected:  ExitCodeError,
		},
		{
			name:      "Errors take precedence over findings",
			tuples:    []query.Tuple{tupleWithSeverity(query.SeverityCritical)},
			failOn:    []string{"critical"},
			hadErrors: true,
			expected:  ExitCodeError,
		},
		{
			name:     "Case insensitive matching - uppercase fail-on",
			tuples:   []query.Tuple{tupleWithSeverity(query.SeverityCritical)},
			failOn:   []string{"CRITICAL"},
			expected: ExitCodeFindings,
		},
		{
			name: "All severities match",
			tuples: []query.Tuple{
				tupleWithSeverity(query.SeverityCritical),
				tupleWithSeverity(query.SeverityHigh),
				tupleWithSeverity(query.SeverityMedium),
				tupleWithSeverity(query.SeverityLow),
			},
			failOn:   []string{"critical", "high", "medium", "low"},
			expected: ExitCodeFindings,
		},
		{
			name: "Diagnostic tuple (no Rule) never triggers fail-on",
			tuples: []query.Tuple{
				{Node: graph.NewNode("n2", graph.KindCallExpression, model.Location{File: "Bank.sol"}), Message: "unresolved call"},
			},
			failOn:   []string{"critical", "high", "medium", "low"},
			expected: ExitCodeSuccess,
		},
		{
			name:      "Empty fail-on with errors",
			tuples:    []query.Tuple{tupleWithSeverity(query.SeverityCritical)},
			failOn:    []string{},
			hadErrors: true,
			expected:  ExitCodeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetermineExitCode(tt.tuples, tt.failOn, tt.hadErrors)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseFailOn(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "Empty string", input: "", expected: []string{}},
		{name: "Whitespace only", input: "   ", expected: []string{}},
		{name: "Single severity", input: "critical", expected: []string{"critical"}},
		{name: "Multiple severities", input: "critical,high", expected: []string{"critical", "high"}},
		{name: "Multiple severities with spaces", input: "critical, high, medium", expected: []string{"critical", "high", "medium"}},
		{name: "Trimming leading/trailing spaces", input: "  critical  ,  high  ", expected: []string{"critical", "high"}},
		{name: "All severities", input: "critical,high,medium,low", expected: []string{"critical", "high", "medium", "low"}},
		{name: "Empty segments ignored", input: "critical,,high", expected: []string{"critical", "high"}},
		{name: "Trailing comma ignored", input: "critical,high,", expected: []string{"critical", "high"}},
		{name: "Leading comma ignored", input: ",critical,high", expected: []string{"critical", "high"}},
		{name: "Mixed case preserved", input: "CRITICAL,High,MeDiUm", expected: []string{"CRITICAL", "High", "MeDiUm"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseFailOn(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestValidateSeverities(t *testing.T) {
	tests := []struct {
		name      string
		input     []string
		wantError bool
		errorMsg  string
	}{
		{name: "Empty list", input: []string{}, wantError: false},
		{name: "Valid single severity - critical", input: []string{"critical"}, wantError: false},
		{name: "Valid single severity - high", input: []string{"high"}, wantError: false},
		{name: "Valid single severity - medium", input: []string{"medium"}, wantError: false},
		{name: "Valid single severity - low", input: []string{"low"}, wantError: false},
		{name: "Valid multiple severities", input: []string{"critical", "high", "medium"}, wantError: false},
		{name: "Valid all severities", input: []string{"critical", "high", "medium", "low"}, wantError: false},
		{
			name:      "Invalid severity",
			input:     []string{"invalid"},
			wantError: true,
			errorMsg:  "invalid severity 'invalid', must be one of: critical, high, medium, low",
		},
		{
			name:      "Valid then invalid",
			input:     []string{"critical", "invalid"},
			wantError: true,
			errorMsg:  "invalid severity 'invalid', must be one of: critical, high, medium, low",
		},
		{name: "Case insensitive - uppercase", input: []string{"CRITICAL", "HIGH"}, wantError: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSeverities(tt.input)
			if tt.wantError {
				assert.Error(t, err)
				assert.Equal(t, tt.errorMsg, err.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
