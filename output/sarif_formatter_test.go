package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/query"
	"github.com/shivasurya/code-pathfinder/sast-engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSARIFFormatter(t *testing.T) {
	sf := NewSARIFFormatter(nil)
	assert.NotNil(t, sf)
	assert.NotNil(t, sf.writer)
	assert.NotNil(t, sf.options)
}

func TestSARIFFormatterVersion(t *testing.T) {
	var buf bytes.Buffer
	sf := NewSARIFFormatterWithWriter(&buf, nil)

	tuples := []query.Tuple{
		{Node: callNode("test.sol", 1), Message: "m", Rule: query.Rule{ID: "test", Name: "Test", Severity: query.SeverityHigh}},
	}

	err := sf.Format(tuples, ScanInfo{Target: "/project"})
	require.NoError(t, err)

	var report map[string]interface{}
	err = json.Unmarshal(buf.Bytes(), &report)
	require.NoError(t, err)

	assert.Equal(t, "2.1.0", report["version"])
}

func TestSARIFFormatterTool(t *testing.T) {
	var buf bytes.Buffer
	sf := NewSARIFFormatterWithWriter(&buf, nil)

	tuples := []query.Tuple{
		{Node: callNode("test.sol", 1), Message: "m", Rule: query.Rule{ID: "test", Name: "Test", Severity: query.SeverityHigh}},
	}

	err := sf.Format(tuples, ScanInfo{})
	require.NoError(t, err)

	var report map[string]interface{}
	err = json.Unmarshal(buf.Bytes(), &report)
	require.NoError(t, err)

	runs := report["runs"].([]interface{})
	require.Len(t, runs, 1)

	run := runs[0].(map[string]interface{})
	tool := run["tool"].(map[string]interface{})
	driver := tool["driver"].(map[string]interface{})
	assert.Equal(t, "Code Pathfinder", driver["name"])
}

func TestSARIFFormatterRules(t *testing.T) {
	var buf bytes.Buffer
	sf := NewSARIFFormatterWithWriter(&buf, nil)

	tuples := []query.Tuple{
		{
			Node:    callNode("test.sol", 1),
			Message: "state write follows external call",
			Rule:    query.Rule{ID: "cei-violation-direct", Name: "Checks-Effects-Interactions Violation", Severity: query.SeverityCritical},
		},
	}

	err := sf.Format(tuples, ScanInfo{})
	require.NoError(t, err)

	var report map[string]interface{}
	err = json.Unmarshal(buf.Bytes(), &report)
	require.NoError(t, err)

	runs := report["runs"].([]interface{})
	run := runs[0].(map[string]interface{})
	tool := run["tool"].(map[string]interface{})
	driver := tool["driver"].(map[string]interface{})
	rules := driver["rules"].([]interface{})
	require.Len(t, rules, 1)

	rule := rules[0].(map[string]interface{})
	assert.Equal(t, "cei-violation-direct", rule["id"])
	assert.Equal(t, "Checks-Effects-Interactions Violation", rule["name"])
}

func TestSARIFFormatterRuleProperties(t *testing.T) {
	var buf bytes.Buffer
	sf := NewSARIFFormatterWithWriter(&buf, nil)

	tuples := []query.Tuple{
		{Node: callNode("test.sol", 1), Message: "m", Rule: query.Rule{ID: "test", Name: "Test", Severity: query.SeverityCritical}},
	}

	err := sf.Format(tuples, ScanInfo{})
	require.NoError(t, err)

	var report map[string]interface{}
	err = json.Unmarshal(buf.Bytes(), &report)
	require.NoError(t, err)

	runs := report["runs"].([]interface{})
	run := runs[0].(map[string]interface{})
	tool := run["tool"].(map[string]interface{})
	driver := tool["driver"].(map[string]interface{})
	rules := driver["rules"].([]interface{})
	rule := rules[0].(map[string]interface{})

	props := rule["properties"].(map[string]interface{})
	assert.Equal(t, "9.0", props["security-severity"])
	assert.Equal(t, "high", props["precision"])
	assert.Contains(t, props["tags"], "security")
}

func TestSARIFFormatterResults(t *testing.T) {
	var buf bytes.Buffer
	sf := NewSARIFFormatterWithWriter(&buf, nil)

	node := graph.NewNode("n1", graph.KindCallExpression, model.Location{File: "auth/login.sol", StartLine: 20, StartCol: 8})
	tuples := []query.Tuple{
		{Node: node, Message: "command injection via shell sink", Rule: query.Rule{ID: "cmd-inj", Name: "Command Injection", Severity: query.SeverityCritical}},
	}

	err := sf.Format(tuples, ScanInfo{})
	require.NoError(t, err)

	var report map[string]interface{}
	err = json.Unmarshal(buf.Bytes(), &report)
	require.NoError(t, err)

	runs := report["runs"].([]interface{})
	run := runs[0].(map[string]interface{})
	results := run["results"].([]interface{})
	require.Len(t, results, 1)

	result := results[0].(map[string]interface{})
	assert.Equal(t, "cmd-inj", result["ruleId"])
	if level, ok := result["level"]; ok {
		assert.Equal(t, "error", level)
	}

	locations := result["locations"].([]interface{})
	require.Len(t, locations, 1)
	loc := locations[0].(map[string]interface{})
	physLoc := loc["physicalLocation"].(map[string]interface{})
	artifact := physLoc["artifactLocation"].(map[string]interface{})
	assert.Equal(t, "auth/login.sol", artifact["uri"])

	region := physLoc["region"].(map[string]interface{})
	assert.Equal(t, float64(20), region["startLine"])
	assert.Equal(t, float64(8), region["startColumn"])
}

func TestSARIFFormatterCodeFlows(t *testing.T) {
	var buf bytes.Buffer
	sf := NewSARIFFormatterWithWriter(&buf, nil)

	tuples := []query.Tuple{
		{
			Node:    callNode("test.sol", 20),
			Message: "tainted value reaches sink",
			Context: []*graph.Node{callNode("test.sol", 10)},
			Rule:    query.Rule{ID: "test", Name: "Test", Severity: query.SeverityHigh},
		},
	}

	err := sf.Format(tuples, ScanInfo{})
	require.NoError(t, err)

	var report map[string]interface{}
	err = json.Unmarshal(buf.Bytes(), &report)
	require.NoError(t, err)

	runs := report["runs"].([]interface{})
	run := runs[0].(map[string]interface{})
	results := run["results"].([]interface{})
	result := results[0].(map[string]interface{})

	codeFlows := result["codeFlows"].([]interface{})
	require.Len(t, codeFlows, 1)

	codeFlow := codeFlows[0].(map[string]interface{})
	threadFlows := codeFlow["threadFlows"].([]interface{})
	require.Len(t, threadFlows, 1)

	threadFlow := threadFlows[0].(map[string]interface{})
	tfLocations := threadFlow["locations"].([]interface{})
	require.Len(t, tfLocations, 2)

	sourceLoc := tfLocations[0].(map[string]interface{})
	sourcePhys := sourceLoc["location"].(map[string]interface{})["physicalLocation"].(map[string]interface{})
	sourceRegion := sourcePhys["region"].(map[string]interface{})
	assert.Equal(t, float64(10), sourceRegion["startLine"])

	sinkLoc := tfLocations[1].(map[string]interface{})
	sinkPhys := sinkLoc["location"].(map[string]interface{})["physicalLocation"].(map[string]interface{})
	sinkRegion := sinkPhys["region"].(map[string]interface{})
	assert.Equal(t, float64(20), sinkRegion["startLine"])
}

func TestSARIFFormatterRelatedLocations(t *testing.T) {
	var buf bytes.Buffer
	sf := NewSARIFFormatterWithWriter(&buf, nil)

	tuples := []query.Tuple{
		{
			Node:    callNode("test.sol", 20),
			Message: "m",
			Context: []*graph.Node{callNode("test.sol", 10)},
			Rule:    query.Rule{ID: "test", Name: "Test", Severity: query.SeverityHigh},
		},
	}

	err := sf.Format(tuples, ScanInfo{})
	require.NoError(t, err)

	var report map[string]interface{}
	err = json.Unmarshal(buf.Bytes(), &report)
	require.NoError(t, err)

	runs := report["runs"].([]interface{})
	run := runs[0].(map[string]interface{})
	results := run["results"].([]interface{})
	result := results[0].(map[string]interface{})

	relatedLocs := result["relatedLocations"].([]interface{})
	require.Len(t, relatedLocs, 1)

	relatedLoc := relatedLocs[0].(map[string]interface{})
	physLoc := relatedLoc["physicalLocation"].(map[string]interface{})
	region := physLoc["region"].(map[string]interface{})
	assert.Equal(t, float64(10), region["startLine"])
}

func TestSARIFFormatterNoCodeFlowWithoutContext(t *testing.T) {
	var buf bytes.Buffer
	sf := NewSARIFFormatterWithWriter(&buf, nil)

	tuples := []query.Tuple{
		{Node: callNode("test.sol", 10), Message: "m", Rule: query.Rule{ID: "test", Name: "Test", Severity: query.SeverityHigh}},
	}

	err := sf.Format(tuples, ScanInfo{})
	require.NoError(t, err)

	var report map[string]interface{}
	err = json.Unmarshal(buf.Bytes(), &report)
	require.NoError(t, err)

	runs := report["runs"].([]interface{})
	run := runs[0].(map[string]interface{})
	results := run["results"].([]interface{})
	result := results[0].(map[string]interface{})

	_, hasCodeFlows := result["codeFlows"]
	assert.False(t, hasCodeFlows)

	_, hasRelatedLocs := result["relatedLocations"]
	assert.False(t, hasRelatedLocs)
}

func TestSARIFFormatterSeverityLevels(t *testing.T) {
	tests := []struct {
		severity query.Severity
		expected string
	}{
		{query.SeverityCritical, "error"},
		{query.SeverityHigh, "error"},
		{query.SeverityMedium, "warning"},
		{query.SeverityLow, "note"},
		{query.Severity("unknown"), "warning"},
	}

	sf := NewSARIFFormatter(nil)
	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			got := sf.severityToLevelString(tt.severity)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSARIFFormatterSecuritySeverity(t *testing.T) {
	tests := []struct {
		severity query.Severity
		expected string
	}{
		{query.SeverityCritical, "9.0"},
		{query.SeverityHigh, "7.0"},
		{query.SeverityMedium, "5.0"},
		{query.SeverityLow, "3.0"},
		{query.Severity("unknown"), "5.0"},
	}

	sf := NewSARIFFormatter(nil)
	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			got := sf.severityToScore(tt.severity)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSARIFFormatterMultipleRules(t *testing.T) {
	var buf bytes.Buffer
	sf := NewSARIFFormatterWithWriter(&buf, nil)

	tuples := []query.Tuple{
		{Node: callNode("test1.sol", 1), Message: "m", Rule: query.Rule{ID: "rule1", Name: "Rule 1", Severity: query.SeverityHigh}},
		{Node: callNode("test2.sol", 2), Message: "m", Rule: query.Rule{ID: "rule2", Name: "Rule 2", Severity: query.SeverityMedium}},
		{Node: callNode("test3.sol", 3), Message: "m", Rule: query.Rule{ID: "rule1", Name: "Rule 1", Severity: query.SeverityHigh}},
	}

	err := sf.Format(tuples, ScanInfo{})
	require.NoError(t, err)

	var report map[string]interface{}
	err = json.Unmarshal(buf.Bytes(), &report)
	require.NoError(t, err)

	runs := report["runs"].([]interface{})
	run := runs[0].(map[string]interface{})
	tool := run["tool"].(map[string]interface{})
	driver := tool["driver"].(map[string]interface{})

	rules := driver["rules"].([]interface{})
	assert.Len(t, rules, 2)

	results := run["results"].([]interface{})
	assert.Len(t, results, 3)
}

func TestSARIFFormatterDropsDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	sf := NewSARIFFormatterWithWriter(&buf, nil)

	tuples := []query.Tuple{
		{Node: callNode("test1.sol", 1), Message: "m", Rule: query.Rule{ID: "rule1", Name: "Rule 1", Severity: query.SeverityHigh}},
		{Node: callNode("test2.sol", 2), Message: "unresolved call"},
	}

	err := sf.Format(tuples, ScanInfo{})
	require.NoError(t, err)

	var report map[string]interface{}
	err = json.Unmarshal(buf.Bytes(), &report)
	require.NoError(t, err)

	runs := report["runs"].([]interface{})
	run := runs[0].(map[string]interface{})
	results := run["results"].([]interface{})
	assert.Len(t, results, 1)
}
