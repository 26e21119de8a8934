// Package taint implements spec.md §4.6's configurable data-flow engine:
// local (intra-expression/SSA) steps, jump (cross-function) steps, a fixed
// set of additional non-value-preserving taint steps, and the configurable
// source/sink/sanitizer fixpoint built on top of them. Grounded on the
// teacher's graph/callgraph/analysis/taint/analyzer.go forward-propagation
// idiom, without its confidence decay (the fixpoint here is boolean),
// generalized from per-statement Python string matching to per-node
// Solidity flow over the call graph and SSA built elsewhere in this module.
package taint

import "github.com/shivasurya/code-pathfinder/sast-engine/graph"

// localStep covers intra-function, value-preserving flow that isn't already
// captured by SSA def/use chains: which node receives a value immediately
// from which other node, within one expression.
func localStep(n *graph.Node) []*graph.Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case graph.KindAssignmentExpression:
		if n.Field("right") == nil {
			break
		}
		out := []*graph.Node{n} // right's taint flows to the assignment's own value
		if left := n.Field("left"); left != nil {
			out = append(out, left)
		}
		return out

	case graph.KindAugmentedAssignmentExpression:
		if left := n.Field("left"); left != nil {
			return []*graph.Node{left}
		}

	case graph.KindVariableDeclarationStatement:
		if n.Field("initializer") != nil {
			return []*graph.Node{n}
		}

	case graph.KindTernaryExpression:
		return []*graph.Node{n}

	case graph.KindParenthesizedExpression, graph.KindTupleExpression:
		return []*graph.Node{n}
	}

	// An argument expression's taint flows into the call node hosting it —
	// the call-result node, per spec.md §4.6's local_step wording ("argument
	// expression -> argument node; call's return value expression ->
	// return-value node; call-result node").
	if parent := n.Parent(); parent != nil && parent.Kind == graph.KindCallExpression {
		for _, arg := range parent.ListField("arguments") {
			if arg == n {
				return []*graph.Node{parent}
			}
		}
	}
	return nil
}

// additionalStep covers spec.md §4.6's mandatory non-value-preserving taint
// steps: array subscript, member access, hash builtins, and known
// taint-propagating library calls.
func additionalStep(n *graph.Node) []*graph.Node {
	if n == nil {
		return nil
	}
	parent := n.Parent()
	if parent == nil {
		return nil
	}
	switch parent.Kind {
	case graph.KindArrayAccess:
		if parent.Field("index") == n {
			return []*graph.Node{parent}
		}
	case graph.KindMemberExpression:
		if parent.Field("object") == n {
			return []*graph.Node{parent}
		}
	case graph.KindCallExpression:
		callee := parent.Field("callee")
		isHashBuiltin := callee != nil && callee.Kind == graph.KindIdentifier &&
			(callee.Name == "keccak256" || callee.Name == "sha256" || callee.Name == "ripemd160")
		if isHashBuiltin || propagatesViaKnownLibrary(parent) {
			for _, arg := range parent.ListField("arguments") {
				if arg == n {
					return []*graph.Node{parent}
				}
			}
		}
	}
	return nil
}
