package query

import (
	"sort"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
)

// Severity mirrors the teacher's four-level scale (dsl.RuleMetadata.Severity)
// so output/*.go's --fail-on and SARIF level mapping carry over unchanged.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rule identifies which query produced a Tuple, the way the teacher's
// RuleMetadata labels an EnrichedDetection.
type Rule struct {
	ID       string
	Name     string
	Severity Severity
}

// Tuple is a single query result: spec.md §6's "(node, message, *context)".
// Context carries whatever additional nodes matter to the finding — a taint
// path's source, an interprocedural call site, the write this query flagged
// — ordered from most to least specific. A Tuple with no Rule is a
// diagnostic (is_unresolved_call and friends), not a security finding.
type Tuple struct {
	Node    *graph.Node
	Message string
	Context []*graph.Node
	Rule    Rule
}

// Sort orders tuples deterministically by (file, start line, start col),
// falling back to node ID — spec.md §5's ordering guarantee that result
// enumeration is otherwise unspecified but must be made deterministic by
// the query layer.
func Sort(tuples []Tuple) {
	sort.SliceStable(tuples, func(i, j int) bool {
		a, b := tuples[i].Node.GetLocation(), tuples[j].Node.GetLocation()
		if a.File != b.File {
			return a.File < b.File
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		if a.StartCol != b.StartCol {
			return a.StartCol < b.StartCol
		}
		return tuples[i].Node.ID() < tuples[j].Node.ID()
	})
}

// Dedupe drops tuples that share a Rule ID and Node — the same relation can
// legitimately be re-derived along more than one path (e.g. two distinct
// external calls both reaching the same write), but the query runtime
// reports the finding once.
func Dedupe(tuples []Tuple) []Tuple {
	seen := map[string]bool{}
	out := make([]Tuple, 0, len(tuples))
	for _, t := range tuples {
		key := t.Rule.ID + "\x00" + t.Node.ID()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
