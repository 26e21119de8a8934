package taint

import (
	"strings"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/builder"
)

// StateVariableNames collects every state variable name declared across
// tree's contracts/libraries — used by DefaultConfig's sink predicate,
// since "write to a state variable" is name-based, not alias-analyzed
// (spec.md §1's non-goal).
func StateVariableNames(tree graph.Tree) map[string]bool {
	names := map[string]bool{}
	for _, file := range tree.Files() {
		for _, root := range tree.Roots(file) {
			for _, member := range root.ListField("members") {
				if member.Kind == graph.KindStateVariableDeclaration && member.Name != "" {
					names[member.Name] = true
				}
			}
		}
	}
	return names
}

// DefaultConfig returns spec.md §4.6's predefined Solidity source/sink/
// sanitizer predicates. registry is passed to the sanitizer predicate, which
// does not consult it (external calls are classified without it);
// stateVars names every state variable, for the write-to-state-variable
// sink.
func DefaultConfig(registry *builder.Registry, stateVars map[string]bool) Config {
	return Config{
		IsSource: func(n *graph.Node) bool { return isPredefinedSource(n) },
		IsSink:   func(n *graph.Node) bool { return isPredefinedSink(n, stateVars) },
		IsSanitizer: func(n *graph.Node) bool {
			return isPredefinedSanitizer(n, registry)
		},
	}
}

func isPredefinedSource(n *graph.Node) bool {
	if n == nil {
		return false
	}
	if n.Kind == graph.KindParameter {
		return true
	}
	if isGlobalMember(n, "msg", "sender") || isGlobalMember(n, "msg", "value") ||
		isGlobalMember(n, "msg", "data") || isGlobalMember(n, "tx", "origin") ||
		isGlobalMember(n, "block", "timestamp") {
		return true
	}
	if n.Kind == graph.KindCallExpression {
		c := builder.ClassifyCall(n)
		if builder.IsExternalCall(c, nil, "") {
			return true
		}
	}
	return false
}

func isPredefinedSink(n *graph.Node, stateVars map[string]bool) bool {
	if n == nil {
		return false
	}
	parent := n.Parent()
	if parent == nil {
		return false
	}
	switch parent.Kind {
	case graph.KindCallExpression:
		c := builder.ClassifyCall(parent)
		isArg := argPosition(parent, n) >= 0
		if !isArg {
			return false
		}
		switch c.Kind {
		case builder.CallKindLowLevelCall, builder.CallKindTransfer:
			return true
		case builder.CallKindBuiltIn:
			return c.CalleeName == "selfdestruct"
		}
		return false
	case graph.KindArrayAccess:
		return parent.Field("index") == n
	case graph.KindAssignmentExpression:
		left := parent.Field("left")
		return parent.Field("right") == n && left != nil && writesStateVariableTarget(left, stateVars)
	}
	return false
}

// writesStateVariableTarget reports whether left names a state variable
// directly or indexes into one (the mapping/array-typed case), per §1's
// name-based (not alias-analyzed) state-variable identification.
func writesStateVariableTarget(left *graph.Node, stateVars map[string]bool) bool {
	switch left.Kind {
	case graph.KindIdentifier:
		return stateVars[left.Name]
	case graph.KindArrayAccess:
		base := left.Field("base")
		return base != nil && base.Kind == graph.KindIdentifier && stateVars[base.Name]
	}
	return false
}

func isPredefinedSanitizer(n *graph.Node, registry *builder.Registry) bool {
	if n == nil {
		return false
	}
	if parent := n.Parent(); parent != nil && parent.Kind == graph.KindCallExpression {
		callee := parent.Field("callee")
		if callee != nil && callee.Kind == graph.KindIdentifier && (callee.Name == "require" || callee.Name == "assert") {
			if argPosition(parent, n) >= 0 {
				return true
			}
		}
	}
	if parent := n.Parent(); parent != nil && parent.Kind == graph.KindBinaryExpression {
		if parent.Operator == "==" || parent.Operator == "!=" {
			left, right := parent.Field("left"), parent.Field("right")
			other := left
			if other == n {
				other = right
			}
			if isGlobalMember(other, "msg", "sender") && n.Kind == graph.KindIdentifier && strings.Contains(strings.ToLower(n.Name), "owner") {
				return true
			}
		}
	}
	if isGuardedByReentrancyModifier(n, registry) {
		return true
	}
	return false
}

func isGlobalMember(n *graph.Node, object, member string) bool {
	if n == nil || n.Kind != graph.KindMemberExpression || n.Name != member {
		return false
	}
	obj := n.Field("object")
	return obj != nil && obj.Kind == graph.KindIdentifier && obj.Name == object
}

// isGuardedByReentrancyModifier reports whether n's enclosing function
// carries a modifier whose name suggests a reentrancy guard (the common
// OpenZeppelin "nonReentrant" convention) — a name-based approximation,
// consistent with spec.md §1's non-goals.
func isGuardedByReentrancyModifier(n *graph.Node, registry *builder.Registry) bool {
	var fn *graph.Node
	for cur := n; cur != nil; cur = cur.Parent() {
		switch cur.Kind {
		case graph.KindFunctionDefinition, graph.KindConstructorDefinition, graph.KindFallbackReceiveDefinition:
			fn = cur
		}
	}
	if fn == nil {
		return false
	}
	for _, mi := range fn.ListField("modifiers") {
		if strings.Contains(strings.ToLower(mi.Name), "nonreentrant") {
			return true
		}
	}
	return false
}
