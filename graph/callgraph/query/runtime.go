package query

import (
	"fmt"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/builder"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/cfg"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/core"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/ssa"
)

// Runtime bundles everything a query needs to evaluate spec.md §6's
// relations over one tree: the call graph build, a per-function analysis
// cache (CFG/blocks/dominance/SSA), and the state-variable name set the
// taint predicates key off.
type Runtime struct {
	Tree      graph.Tree
	Build     *builder.Build
	Cache     *builder.AnalysisCache
	StateVars map[string]bool
}

// NewRuntime runs the call-graph build over tree and wires a fresh analysis
// cache, ready for relation queries.
func NewRuntime(tree graph.Tree, cacheSize int) (*Runtime, error) {
	cache, err := builder.NewAnalysisCache(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("query: construct analysis cache: %w", err)
	}
	return &Runtime{
		Tree:      tree,
		Build:     builder.BuildCallGraph(tree),
		Cache:     cache,
		StateVars: stateVariableNames(tree),
	}, nil
}

func stateVariableNames(tree graph.Tree) map[string]bool {
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

// Functions enumerates every analyzable function-like member in the tree,
// paired with its FQN and owning contract name.
type FunctionEntry struct {
	FQN      string
	Contract string
	Node     *graph.Node
}

func (r *Runtime) Functions() []FunctionEntry {
	var out []FunctionEntry
	for fqn, node := range r.Build.CallGraph.Functions {
		out = append(out, FunctionEntry{FQN: fqn, Contract: owningContractOf(r.Build.Registry, node), Node: node})
	}
	return out
}

func owningContractOf(r *builder.Registry, fn *graph.Node) string {
	for name, info := range r.Contracts {
		for _, m := range info.Node.ListField("members") {
			if m == fn {
				return name
			}
		}
	}
	return ""
}

// Analyze runs (or reuses, from cache) the intra-procedural relations for
// one function: spec.md §6's first/last/successor, basic_block_of,
// dominance, and ssa_definitions/uses_of/phi_inputs, all bundled together.
func (r *Runtime) Analyze(entry FunctionEntry) *builder.AnalysisResult {
	lookup := func(name string) *graph.Node { return r.Build.Registry.ResolveVirtual(entry.Contract, name) }
	return r.Cache.GetOrAnalyze(entry.FQN, entry.Node, cfg.ModifierLookup(lookup))
}

// ResolveCall is spec.md §6's resolve_call(call) — the set of functions a
// call site was resolved to (at most one, since dispatch here is
// name-based, not type-polymorphic across multiple matches).
func (r *Runtime) ResolveCall(call *graph.Node) (*core.CallSite, bool) {
	for _, sites := range r.Build.CallGraph.CallSites {
		for i := range sites {
			if sites[i].Node == call {
				return &sites[i], sites[i].Resolved
			}
		}
	}
	return nil, false
}

// IsExternalCall is spec.md §6's is_external_call(call), plus its
// low-level/self/interface variants via builder.ClassifyCall.
func (r *Runtime) IsExternalCall(call *graph.Node) bool {
	c := builder.ClassifyCall(call)
	return builder.IsExternalCall(c, r.Build.Registry, "")
}

// UnresolvedCalls renders every builder.UnresolvedCall as a diagnostic tuple
// — spec.md §7's "unresolved reference is not an error," queryable via
// is_unresolved_call.
func (r *Runtime) UnresolvedCalls() []Tuple {
	var out []Tuple
	for _, uc := range r.Build.UnresolvedCalls {
		out = append(out, Tuple{
			Node:    uc.Call,
			Message: fmt.Sprintf("call in %s could not be resolved to a known function", uc.CallerFQN),
			Rule:    Rule{ID: "is_unresolved_call", Name: "Unresolved call", Severity: SeverityLow},
		})
	}
	return out
}

// UnresolvedModifiers parallels UnresolvedCalls for is_unresolved_modifier
// (SPEC_FULL.md's supplemented relation, symmetric with the call side).
func (r *Runtime) UnresolvedModifiers() []Tuple {
	var out []Tuple
	for _, um := range r.Build.UnresolvedModifiers {
		out = append(out, Tuple{
			Node:    um.Invocation,
			Message: fmt.Sprintf("modifier invocation in %s names no visible ModifierDefinition", um.FunctionFQN),
			Rule:    Rule{ID: "is_unresolved_modifier", Name: "Unresolved modifier", Severity: SeverityLow},
		})
	}
	return out
}

// SSAFunctions builds (or reuses) SSA for every function in the tree,
// keyed by FQN — the shape analysis/taint.NewEngine needs.
func (r *Runtime) SSAFunctions() map[string]*ssa.Function {
	out := make(map[string]*ssa.Function)
	for _, entry := range r.Functions() {
		out[entry.FQN] = r.Analyze(entry).SSA
	}
	return out
}
