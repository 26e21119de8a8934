package query

import (
	"fmt"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/builder"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/cfg"
)

// CEIViolationsDirect implements spec.md §8 scenario 1: a state variable
// write reachable, within the same function, via CFG successor+ from an
// external call. This is deliberately not phrased through the taint
// fixpoint — the scenario is explicit that has_flow does not fire directly
// here (there's no value flowing from the call into the write); the query
// is a plain reachability question over the CFG's successor relation.
func CEIViolationsDirect(r *Runtime) []Tuple {
	var out []Tuple
	for _, entry := range r.Functions() {
		result := r.Analyze(entry)
		if result.FunctionCFG == nil {
			continue
		}
		writes := stateWriteNodes(entry.Node, r.StateVars)
		if len(writes) == 0 {
			continue
		}
		for _, call := range externalCallNodes(entry.Node, r) {
			reach := nodeReachableSet(result.FunctionCFG, enclosingCFGNode(call))
			for _, w := range writes {
				if reach[enclosingCFGNode(w)] {
					out = append(out, Tuple{
						Node:    w,
						Message: fmt.Sprintf("state variable write reachable from an external call earlier in %s (checks-effects-interactions violation)", entry.FQN),
						Context: []*graph.Node{call},
						Rule:    Rule{ID: "cei-violation-direct", Name: "Reentrancy: state write after external call", Severity: SeverityHigh},
					})
				}
			}
		}
	}
	return out
}

// CEIViolationsInterprocedural implements spec.md §8 scenario 2: an
// internal call, reachable via CFG successor+ from an external call in the
// same function, whose resolved target (transitively, per ModifiesState)
// writes a state variable. The direct query above does not see this case,
// since the write lives in a different function than the external call.
func CEIViolationsInterprocedural(r *Runtime) []Tuple {
	modifies := ModifiesState(r)
	var out []Tuple
	for _, entry := range r.Functions() {
		result := r.Analyze(entry)
		if result.FunctionCFG == nil {
			continue
		}
		calls := externalCallNodes(entry.Node, r)
		if len(calls) == 0 {
			continue
		}
		for _, internal := range internalCallNodes(entry.Node, r) {
			site, resolved := r.ResolveCall(internal)
			if !resolved || !modifies[site.TargetFQN] {
				continue
			}
			internalStmt := enclosingCFGNode(internal)
			for _, call := range calls {
				reach := nodeReachableSet(result.FunctionCFG, enclosingCFGNode(call))
				if reach[internalStmt] {
					out = append(out, Tuple{
						Node:    internal,
						Message: fmt.Sprintf("call to %s reachable from an external call earlier in %s resolves to a function that writes state (checks-effects-interactions violation)", site.TargetFQN, entry.FQN),
						Context: []*graph.Node{call},
						Rule:    Rule{ID: "cei-violation-interprocedural", Name: "Reentrancy: state write via internal call after external call", Severity: SeverityHigh},
					})
					break
				}
			}
		}
	}
	return out
}

// ModifiesState is spec.md §9's "functionModifiesState" relation: the least
// fixpoint over direct state writes and calls to functions that modify
// state, following the call graph's internal (resolved) edges.
func ModifiesState(r *Runtime) map[string]bool {
	modifies := map[string]bool{}
	for _, entry := range r.Functions() {
		if len(stateWriteNodes(entry.Node, r.StateVars)) > 0 {
			modifies[entry.FQN] = true
		}
	}
	for changed := true; changed; {
		changed = false
		for caller, callees := range r.Build.CallGraph.Edges {
			if modifies[caller] {
				continue
			}
			for _, callee := range callees {
				if modifies[callee] {
					modifies[caller] = true
					changed = true
					break
				}
			}
		}
	}
	return modifies
}

func stateWriteNodes(fn *graph.Node, stateVars map[string]bool) []*graph.Node {
	var out []*graph.Node
	walk(fn, func(n *graph.Node) {
		var left *graph.Node
		switch n.Kind {
		case graph.KindAssignmentExpression, graph.KindAugmentedAssignmentExpression:
			left = n.Field("left")
		}
		if left == nil {
			return
		}
		if writesStateVariable(left, stateVars) {
			out = append(out, n)
		}
	})
	return out
}

// writesStateVariable reports whether the left-hand side of an assignment
// names a state variable directly ("balances = ...") or indexes into one
// ("balances[msg.sender] = ...", the mapping/array-typed case), per §1's
// name-based (not alias-analyzed) state-variable identification.
func writesStateVariable(left *graph.Node, stateVars map[string]bool) bool {
	switch left.Kind {
	case graph.KindIdentifier:
		return stateVars[left.Name]
	case graph.KindArrayAccess:
		base := left.Field("base")
		return base != nil && base.Kind == graph.KindIdentifier && stateVars[base.Name]
	}
	return false
}

func externalCallNodes(fn *graph.Node, r *Runtime) []*graph.Node {
	var out []*graph.Node
	walk(fn, func(n *graph.Node) {
		if n.Kind == graph.KindCallExpression && r.IsExternalCall(n) {
			out = append(out, n)
		}
	})
	return out
}

func internalCallNodes(fn *graph.Node, r *Runtime) []*graph.Node {
	var out []*graph.Node
	walk(fn, func(n *graph.Node) {
		if n.Kind != graph.KindCallExpression {
			return
		}
		c := builder.ClassifyCall(n)
		if c.Kind == builder.CallKindInternal || c.Kind == builder.CallKindThis || c.Kind == builder.CallKindSuper {
			out = append(out, n)
		}
	})
	return out
}

func walk(n *graph.Node, visit func(*graph.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.Children() {
		walk(c, visit)
	}
}

// enclosingCFGNode maps an arbitrary expression node to the statement-level
// node the CFG builder actually wires edges between (graph/callgraph/cfg's
// builder.build only emits one CFG node per statement, using a branching
// statement's condition in place of the statement itself). Needed because
// a query cares about a sub-expression (a write, a call) but CFG successor+
// is only defined between these coarser nodes.
func enclosingCFGNode(n *graph.Node) *graph.Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		switch cur.Kind {
		case graph.KindIfStatement, graph.KindWhileStatement, graph.KindDoWhileStatement, graph.KindForStatement:
			if cond := cur.Field("condition"); cond != nil {
				return cond
			}
			return cur
		case graph.KindExpressionStatement, graph.KindVariableDeclarationStatement, graph.KindEmitStatement,
			graph.KindReturnStatement, graph.KindBreakStatement, graph.KindContinueStatement,
			graph.KindRevertStatement, graph.KindAssemblyStatement, graph.KindTryStatement:
			return cur
		}
	}
	return n
}

// nodeReachableSet computes { m : successor+(from, m) } over fcfg's
// statement-level edges — spec.md §4.1's successor relation, transitively
// closed, not reflexive (from itself is only included if a cycle loops
// back to it).
func nodeReachableSet(fcfg *cfg.FunctionCFG, from *graph.Node) map[*graph.Node]bool {
	visited := map[*graph.Node]bool{}
	queue := []*graph.Node{from}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range fcfg.SuccessorsOf(n) {
			if visited[e.To] {
				continue
			}
			visited[e.To] = true
			queue = append(queue, e.To)
		}
	}
	return visited
}
