package taint

import (
	"github.com/shivasurya/code-pathfinder/sast-engine/engineerr"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/builder"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/core"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/ssa"
)

// defaultFixpointBudget bounds the worklist per source (§7: resource
// exhaustion surfaces as a truncated result, never a crash).
const defaultFixpointBudget = 50000

// Config supplies the four predicates spec.md §4.6's fixpoint is defined
// over. A nil predicate is treated as "never."
type Config struct {
	IsSource       func(n *graph.Node) bool
	IsSink         func(n *graph.Node) bool
	IsSanitizer    func(n *graph.Node) bool
	AdditionalStep func(n *graph.Node) []*graph.Node // beyond the four built-in additional steps
}

func (c Config) isSource(n *graph.Node) bool    { return c.IsSource != nil && c.IsSource(n) }
func (c Config) isSink(n *graph.Node) bool      { return c.IsSink != nil && c.IsSink(n) }
func (c Config) isSanitizer(n *graph.Node) bool { return c.IsSanitizer != nil && c.IsSanitizer(n) }

// Flow is one confirmed source-to-sink taint path.
type Flow struct {
	Source *graph.Node
	Sink   *graph.Node
}

// Engine runs the configurable taint fixpoint (`reaches`) over every
// function's SSA form plus the program's call graph, per spec.md §4.6.
type Engine struct {
	config Config
	cg     *core.CallGraph

	ssaByFQN     map[string]*ssa.Function
	paramsByFQN  map[string][]*graph.Node // DefParameter nodes, indexed by position
	defUseByFQN  map[string]map[*ssa.Definition][]*ssa.Use
	defByNode    map[*graph.Node]*ssa.Definition
	fqnByDef     map[*ssa.Definition]string
	sitesByTgt   map[string][]*core.CallSite
	Budget       int
}

// NewEngine builds the cross-function indexes Engine needs once: def/use
// closures through phi chains, a node->definition index, and call sites
// grouped by resolved target, so every step lookup afterward is O(1)-ish.
func NewEngine(cfg Config, cg *core.CallGraph, ssaByFQN map[string]*ssa.Function) *Engine {
	e := &Engine{
		config:      cfg,
		cg:          cg,
		ssaByFQN:    ssaByFQN,
		paramsByFQN: make(map[string][]*graph.Node),
		defUseByFQN: make(map[string]map[*ssa.Definition][]*ssa.Use),
		defByNode:   make(map[*graph.Node]*ssa.Definition),
		fqnByDef:    make(map[*ssa.Definition]string),
		sitesByTgt:  make(map[string][]*core.CallSite),
		Budget:      defaultFixpointBudget,
	}

	for fqn, fn := range ssaByFQN {
		e.defUseByFQN[fqn] = closeDefUses(fn)
		var params []*graph.Node
		for _, d := range fn.Definitions {
			if d.Node != nil {
				e.defByNode[d.Node] = d
				e.fqnByDef[d] = fqn
			}
			if d.Kind == ssa.DefParameter {
				params = append(params, d.Node)
			}
		}
		e.paramsByFQN[fqn] = params
	}

	if cg != nil {
		for _, sites := range cg.CallSites {
			for i := range sites {
				site := &sites[i]
				if site.Resolved && site.TargetFQN != "" {
					e.sitesByTgt[site.TargetFQN] = append(e.sitesByTgt[site.TargetFQN], site)
				}
			}
		}
	}
	return e
}

// closeDefUses maps every SSA definition (including phis) to the full set
// of uses it reaches, following phi-input chains — phi definitions have no
// graph.Node of their own, so their taint has to be forwarded to whichever
// concrete uses eventually read them.
func closeDefUses(fn *ssa.Function) map[*ssa.Definition][]*ssa.Use {
	usesByDef := map[*ssa.Definition][]*ssa.Use{}
	for _, u := range fn.Uses {
		if u.ReachingDef != nil {
			usesByDef[u.ReachingDef] = append(usesByDef[u.ReachingDef], u)
		}
	}
	phiConsumers := map[*ssa.Definition][]*ssa.Definition{}
	for _, d := range fn.Definitions {
		if d.Kind != ssa.DefPhi {
			continue
		}
		for _, input := range d.PhiInputs {
			if input != nil {
				phiConsumers[input] = append(phiConsumers[input], d)
			}
		}
	}

	memo := map[*ssa.Definition][]*ssa.Use{}
	var resolve func(d *ssa.Definition, seen map[*ssa.Definition]bool) []*ssa.Use
	resolve = func(d *ssa.Definition, seen map[*ssa.Definition]bool) []*ssa.Use {
		if seen[d] {
			return nil
		}
		seen[d] = true
		if cached, ok := memo[d]; ok {
			return cached
		}
		out := append([]*ssa.Use{}, usesByDef[d]...)
		for _, phi := range phiConsumers[d] {
			out = append(out, resolve(phi, seen)...)
		}
		memo[d] = out
		return out
	}

	result := map[*ssa.Definition][]*ssa.Use{}
	for _, d := range fn.Definitions {
		result[d] = resolve(d, map[*ssa.Definition]bool{})
	}
	return result
}

// ssaStep forwards a definition's value to every use it reaches (directly
// or through a phi chain) — spec.md §4.6's "variable-read def-to-use chains
// through SSA."
func (e *Engine) ssaStep(n *graph.Node) []*graph.Node {
	def, ok := e.defByNode[n]
	if !ok {
		return nil
	}
	fqn := e.fqnByDef[def]
	var out []*graph.Node
	for _, use := range e.defUseByFQN[fqn][def] {
		out = append(out, use.Node)
	}
	return out
}

// jumpStep implements spec.md §4.6's cross-function edges: an argument
// flows into the resolved callee's corresponding parameter, and a return
// expression flows into the call-result node at every call site resolved to
// the enclosing function.
func (e *Engine) jumpStep(n *graph.Node) []*graph.Node {
	var out []*graph.Node

	if parent := n.Parent(); parent != nil && parent.Kind == graph.KindCallExpression {
		if pos := argPosition(parent, n); pos >= 0 {
			if site := e.callSiteForNode(parent); site != nil && site.Resolved {
				if params := e.paramsByFQN[site.TargetFQN]; pos < len(params) {
					out = append(out, params[pos])
				}
			}
		}
	}

	if fqn := enclosingReturnFunction(n); fqn != "" {
		for _, site := range e.sitesByTgt[fqn] {
			if site.Node != nil {
				out = append(out, site.Node)
			}
		}
	}
	return out
}

func (e *Engine) callSiteForNode(call *graph.Node) *core.CallSite {
	for _, sites := range e.cg.CallSites {
		for i := range sites {
			if sites[i].Node == call {
				return &sites[i]
			}
		}
	}
	return nil
}

func argPosition(call, arg *graph.Node) int {
	for i, a := range call.ListField("arguments") {
		if a == arg {
			return i
		}
	}
	return -1
}

// enclosingReturnFunction returns the FQN of the function whose return
// statement n is part of, or "" if n isn't inside a return expression.
func enclosingReturnFunction(n *graph.Node) string {
	inReturn := false
	var contract, fn *graph.Node
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Kind == graph.KindReturnStatement {
			inReturn = true
		}
		switch cur.Kind {
		case graph.KindFunctionDefinition, graph.KindConstructorDefinition,
			graph.KindModifierDefinition, graph.KindFallbackReceiveDefinition:
			fn = cur
		case graph.KindContractDeclaration, graph.KindInterfaceDeclaration, graph.KindLibraryDeclaration:
			contract = cur
		}
	}
	if !inReturn || fn == nil || contract == nil {
		return ""
	}
	return builder.FunctionFQN(contract.Name, fn)
}

func (e *Engine) step(n *graph.Node) []*graph.Node {
	var out []*graph.Node
	out = append(out, localStep(n)...)
	out = append(out, e.ssaStep(n)...)
	out = append(out, e.jumpStep(n)...)
	out = append(out, additionalStep(n)...)
	if e.config.AdditionalStep != nil {
		out = append(out, e.config.AdditionalStep(n)...)
	}
	return out
}

// reachableFrom computes {m : reaches(source, m)}, per spec.md §4.6's
// fixpoint definition, as a worklist over the step relation with a sanitizer
// cutoff. Bounded by Budget nodes visited; budget overflow truncates the
// result rather than looping forever (§7).
func (e *Engine) reachableFrom(source *graph.Node) (map[*graph.Node]bool, bool) {
	if e.config.isSanitizer(source) {
		return map[*graph.Node]bool{}, true
	}
	visited := map[*graph.Node]bool{source: true}
	queue := []*graph.Node{source}
	visitedCount := 1
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, m := range e.step(n) {
			if visited[m] {
				continue
			}
			if e.config.isSanitizer(m) {
				continue
			}
			visited[m] = true
			visitedCount++
			if visitedCount > e.Budget {
				return visited, false
			}
			queue = append(queue, m)
		}
	}
	return visited, true
}

// HasFlow reports whether source (a source node) reaches sink (a sink
// node) under the configured fixpoint.
func (e *Engine) HasFlow(source, sink *graph.Node) bool {
	if !e.config.isSource(source) || !e.config.isSink(sink) {
		return false
	}
	reach, _ := e.reachableFrom(source)
	return reach[sink]
}

// Flows enumerates every (source, sink) pair with has_flow(source, sink),
// given the full node set to scan for sources/sinks. err is a non-nil
// *engineerr.Budget if any source's search was truncated by Budget — flows
// found before truncation are still returned, per spec.md §7's "truncated
// relation, never a crash."
func (e *Engine) Flows(allNodes []*graph.Node) (flows []Flow, err error) {
	for _, s := range allNodes {
		if !e.config.isSource(s) {
			continue
		}
		reach, complete := e.reachableFrom(s)
		if !complete {
			err = &engineerr.Budget{Relation: "has_flow", Limit: e.Budget}
		}
		for _, n := range allNodes {
			if e.config.isSink(n) && reach[n] {
				flows = append(flows, Flow{Source: s, Sink: n})
			}
		}
	}
	return flows, err
}

func propagatesViaKnownLibrary(call *graph.Node) bool {
	c := builder.ClassifyCall(call)
	if info, found := builder.LookupKnownLibraryCall(c.ObjectName, c.CalleeName); found {
		return info.Propagates
	}
	return false
}
