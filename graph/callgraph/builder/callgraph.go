package builder

import (
	"fmt"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/core"
)

// Build walks every contract-like declaration in tree and produces the
// program's call graph: one edge per call site resolved to a concrete
// function, classified per spec.md §4.4, plus the set of call sites that
// could not be resolved (tracked separately — an unresolved call is not an
// error, §7, just the absence of an edge).
type Build struct {
	CallGraph        *core.CallGraph
	Registry         *Registry
	UnresolvedCalls  []UnresolvedCall
	UnresolvedModifiers []UnresolvedModifier
}

// UnresolvedCall records a call site whose target could not be classified
// to a known function — queryable via is_unresolved_call.
type UnresolvedCall struct {
	CallerFQN string
	Call      *graph.Node
	Reason    string
}

// UnresolvedModifier parallels UnresolvedCall for a modifier invocation
// that named no visible ModifierDefinition — the supplemented
// is_unresolved_modifier relation.
type UnresolvedModifier struct {
	FunctionFQN string
	Invocation  *graph.Node
}

// BuildCallGraph constructs the full call graph for tree.
func BuildCallGraph(tree graph.Tree) *Build {
	registry := NewRegistry(tree)
	b := &Build{CallGraph: core.NewCallGraph(), Registry: registry}

	for _, file := range tree.Files() {
		for _, root := range tree.Roots(file) {
			if !isContractLike(root.Kind) {
				continue
			}
			for _, member := range root.ListField("members") {
				if member.Kind != graph.KindFunctionDefinition &&
					member.Kind != graph.KindConstructorDefinition &&
					member.Kind != graph.KindModifierDefinition &&
					member.Kind != graph.KindFallbackReceiveDefinition {
					continue
				}
				fqn := FunctionFQN(root.Name, member)
				b.CallGraph.Functions[fqn] = member
				b.checkModifiers(root.Name, fqn, member)
				b.walkCalls(root.Name, fqn, member.Field("body"))
			}
		}
	}
	return b
}

// FunctionFQN names a function the way every downstream relation (CFG,
// SSA, taint, call graph) refers to it: "Contract.function".
func FunctionFQN(contract string, fn *graph.Node) string {
	name := fn.Name
	if name == "" {
		name = string(fn.Kind)
	}
	return fmt.Sprintf("%s.%s", contract, name)
}

func (b *Build) checkModifiers(contractName, fqn string, fn *graph.Node) {
	for _, mi := range fn.ListField("modifiers") {
		if def := b.Registry.ResolveVirtual(contractName, mi.Name); def == nil {
			b.UnresolvedModifiers = append(b.UnresolvedModifiers, UnresolvedModifier{FunctionFQN: fqn, Invocation: mi})
		}
	}
}

func (b *Build) walkCalls(contractName, callerFQN string, n *graph.Node) {
	if n == nil {
		return
	}
	if n.Kind == graph.KindCallExpression {
		b.resolveCall(contractName, callerFQN, n)
	}
	for _, child := range n.Children() {
		b.walkCalls(contractName, callerFQN, child)
	}
}

func (b *Build) resolveCall(contractName, callerFQN string, call *graph.Node) {
	classification := ClassifyCall(call)
	loc := call.GetLocation()
	site := core.CallSite{
		Target:   classification.CalleeName,
		Location: core.Location{File: loc.File, Line: loc.StartLine, Column: loc.StartCol},
		Node:     call,
	}

	var target *graph.Node
	switch classification.Kind {
	case CallKindInternal:
		target = b.Registry.ResolveVirtual(contractName, classification.CalleeName)
	case CallKindThis:
		target = b.Registry.ResolveThis(contractName, classification.CalleeName)
	case CallKindSuper:
		target = b.Registry.ResolveSuper(contractName, classification.CalleeName)
	default:
		// Interface/external/low-level/transfer/built-in calls have no
		// resolvable target within this tree by construction.
	}

	if target == nil {
		site.Resolved = false
		if classification.Kind == CallKindInternal || classification.Kind == CallKindThis || classification.Kind == CallKindSuper {
			site.FailureReason = "not_found_in_hierarchy"
			b.UnresolvedCalls = append(b.UnresolvedCalls, UnresolvedCall{CallerFQN: callerFQN, Call: call, Reason: site.FailureReason})
		} else {
			site.FailureReason = string(classification.Kind)
		}
		b.CallGraph.AddCallSite(callerFQN, site)
		return
	}

	targetContract := contractName
	if owner := owningContract(b.Registry, target); owner != "" {
		targetContract = owner
	}
	targetFQN := FunctionFQN(targetContract, target)
	site.Resolved = true
	site.TargetFQN = targetFQN
	b.CallGraph.AddCallSite(callerFQN, site)
	b.CallGraph.AddEdge(callerFQN, targetFQN)
}

func owningContract(r *Registry, fn *graph.Node) string {
	for name, info := range r.Contracts {
		for _, m := range info.Node.ListField("members") {
			if m == fn {
				return name
			}
		}
	}
	return ""
}
