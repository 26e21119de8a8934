// Package ssa builds minimal SSA form over one function's basic-block CFG
// (spec.md §4.5): a Definition per assignment/declaration/parameter/phi, phi
// nodes placed at the iterated dominance frontier of each variable's
// definition sites, and a reaching-definition chain from every use back to
// the Definition that reaches it.
package ssa

import (
	"fmt"
	"sort"

	"github.com/shivasurya/code-pathfinder/sast-engine/engineerr"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/cfg"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/dominance"
)

// StrictMode, when true, turns a phi-input-count invariant violation (see
// engineerr.Invariant) into a panic instead of leaving the phi's input set
// short. config.Options.StrictMode sets this for debug runs.
var StrictMode bool

// DefKind tags how a Definition came to exist.
type DefKind string

const (
	DefAssignment          DefKind = "assignment"
	DefAugmentedAssignment DefKind = "augmented_assignment"
	DefDeclarationWithInit DefKind = "declaration_with_init"
	DefParameter           DefKind = "parameter"
	DefPhi                 DefKind = "phi"
)

// Definition is one SSA definition of a source variable.
type Definition struct {
	ID        string
	Variable  string
	Kind      DefKind
	Block     string
	Node      *graph.Node // nil for Kind == DefPhi
	PhiInputs map[string]*Definition // predecessor block ID -> incoming definition
}

// Use is one read of a source variable, resolved to the Definition that
// reaches it (nil if the variable is read before any definition reaches —
// an uninitialized read, or a state variable/global this package doesn't
// track).
type Use struct {
	Node        *graph.Node
	Variable    string
	Block       string
	ReachingDef *Definition
}

// Function is the SSA form for one function body.
type Function struct {
	FunctionFQN string
	Variables   []string
	Definitions []*Definition
	Uses        []*Use
	ByVariable  map[string][]*Definition
}

// Build constructs SSA form for fqn's body, given its partitioned CFG
// (cfg.Partition's result) and that CFG's dominance analysis.
func Build(fqn string, fn *graph.Node, blocks *cfg.ControlFlowGraph, dom *dominance.Result) *Function {
	f := &Function{FunctionFQN: fqn, ByVariable: make(map[string][]*Definition)}
	defSeq := 0
	nextID := func() string {
		defSeq++
		return fmt.Sprintf("%s:ssa%d", fqn, defSeq)
	}

	defBlocksByVar := map[string]map[string]bool{}
	seenVar := map[string]bool{}
	var varsOrder []string
	markVar := func(v string) {
		if !seenVar[v] {
			seenVar[v] = true
			varsOrder = append(varsOrder, v)
		}
	}

	for blockID, b := range blocks.Blocks {
		for _, n := range b.Nodes {
			if v, _, _, ok := definitionOf(n); ok {
				if defBlocksByVar[v] == nil {
					defBlocksByVar[v] = map[string]bool{}
				}
				defBlocksByVar[v][blockID] = true
				markVar(v)
			}
		}
	}
	for _, p := range fn.ListField("parameters") {
		if p.Name == "" {
			continue
		}
		if defBlocksByVar[p.Name] == nil {
			defBlocksByVar[p.Name] = map[string]bool{}
		}
		defBlocksByVar[p.Name][blocks.EntryBlockID] = true
		markVar(p.Name)
	}
	sort.Strings(varsOrder)

	phiDefs := map[string]map[string]*Definition{}
	for _, v := range varsOrder {
		var seeds []string
		for b := range defBlocksByVar[v] {
			seeds = append(seeds, b)
		}
		idf := dom.IteratedDominanceFrontier(seeds)
		if len(idf) == 0 {
			continue
		}
		phiDefs[v] = map[string]*Definition{}
		for blockID := range idf {
			d := &Definition{ID: nextID(), Variable: v, Kind: DefPhi, Block: blockID, PhiInputs: map[string]*Definition{}}
			phiDefs[v][blockID] = d
			f.Definitions = append(f.Definitions, d)
			f.ByVariable[v] = append(f.ByVariable[v], d)
		}
	}

	domChildren := map[string][]string{}
	for blockID := range blocks.Blocks {
		if idomID := dom.ImmediateDominator(blockID); idomID != "" {
			domChildren[idomID] = append(domChildren[idomID], blockID)
		}
	}

	current := map[string]*Definition{}

	var processBlock func(blockID string)
	processBlock = func(blockID string) {
		saved := make(map[string]*Definition, len(current))
		for v, d := range current {
			saved[v] = d
		}

		for v, m := range phiDefs {
			if d, ok := m[blockID]; ok {
				current[v] = d
			}
		}

		if blockID == blocks.EntryBlockID {
			for _, p := range fn.ListField("parameters") {
				if p.Name == "" {
					continue
				}
				d := &Definition{ID: nextID(), Variable: p.Name, Kind: DefParameter, Block: blockID, Node: p}
				f.Definitions = append(f.Definitions, d)
				f.ByVariable[p.Name] = append(f.ByVariable[p.Name], d)
				current[p.Name] = d
			}
		}

		block := blocks.Blocks[blockID]
		for _, n := range block.Nodes {
			v, kind, rhs, isDef := definitionOf(n)
			if isDef {
				for _, readVar := range collectReads(rhs) {
					if !seenVar[readVar] {
						continue
					}
					f.Uses = append(f.Uses, &Use{Node: n, Variable: readVar, Block: blockID, ReachingDef: current[readVar]})
				}
				d := &Definition{ID: nextID(), Variable: v, Kind: kind, Block: blockID, Node: n}
				f.Definitions = append(f.Definitions, d)
				f.ByVariable[v] = append(f.ByVariable[v], d)
				current[v] = d
			} else {
				for _, readVar := range collectReads(n) {
					if !seenVar[readVar] {
						continue
					}
					f.Uses = append(f.Uses, &Use{Node: n, Variable: readVar, Block: blockID, ReachingDef: current[readVar]})
				}
			}
		}

		for _, succID := range block.Successors {
			for v, m := range phiDefs {
				if phi, ok := m[succID]; ok {
					phi.PhiInputs[blockID] = current[v]
				}
			}
		}

		sortedChildren := append([]string{}, domChildren[blockID]...)
		sort.Strings(sortedChildren)
		for _, child := range sortedChildren {
			processBlock(child)
		}

		current = saved
	}
	processBlock(blocks.EntryBlockID)

	checkPhiInputs(f, blocks)

	f.Variables = varsOrder
	return f
}

// checkPhiInputs verifies spec.md §8's phi invariant: every phi definition
// has exactly one input per predecessor of its block. A shortfall means an
// unreachable predecessor was never visited by processBlock — an engine
// defect, not anything the source program did.
func checkPhiInputs(f *Function, blocks *cfg.ControlFlowGraph) {
	for _, d := range f.Definitions {
		if d.Kind != DefPhi {
			continue
		}
		block, ok := blocks.Blocks[d.Block]
		if !ok {
			continue
		}
		if len(d.PhiInputs) < len(block.Predecessors) {
			err := &engineerr.Invariant{
				Relation: "phi_inputs",
				Detail:   fmt.Sprintf("%s: phi for %s in block %s has %d input(s), block has %d predecessor(s)", f.FunctionFQN, d.Variable, d.Block, len(d.PhiInputs), len(block.Predecessors)),
			}
			if StrictMode {
				panic(err)
			}
		}
	}
}

// definitionOf reports whether n is a definition site and, if so, its
// variable name, def kind, and the subtree to scan for reads on its
// right-hand side (for an augmented assignment, the whole node — "x += 1"
// both reads and writes x).
func definitionOf(n *graph.Node) (variable string, kind DefKind, rhs *graph.Node, ok bool) {
	switch n.Kind {
	case graph.KindVariableDeclarationStatement:
		if n.Name == "" {
			return "", "", nil, false
		}
		return n.Name, DefDeclarationWithInit, n.Field("initializer"), true
	case graph.KindExpressionStatement:
		expr := n.Field("expression")
		if expr == nil {
			return "", "", nil, false
		}
		switch expr.Kind {
		case graph.KindAssignmentExpression:
			left := expr.Field("left")
			if left != nil && left.Kind == graph.KindIdentifier {
				return left.Name, DefAssignment, expr.Field("right"), true
			}
		case graph.KindAugmentedAssignmentExpression:
			left := expr.Field("left")
			if left != nil && left.Kind == graph.KindIdentifier {
				return left.Name, DefAugmentedAssignment, expr, true
			}
		}
	}
	return "", "", nil, false
}

// collectReads walks n's subtree and returns every Identifier's name.
// Imprecise about which identifiers are genuine variable reads versus
// member/function names — callers filter against the set of variables this
// function actually tracks.
func collectReads(n *graph.Node) []string {
	if n == nil {
		return nil
	}
	var out []string
	var walk func(*graph.Node)
	walk = func(cur *graph.Node) {
		if cur == nil {
			return
		}
		if cur.Kind == graph.KindIdentifier {
			out = append(out, cur.Name)
		}
		for _, c := range cur.Children() {
			walk(c)
		}
	}
	walk(n)
	return out
}
