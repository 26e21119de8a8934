// Package dominance computes dominator trees, dominance frontiers, and
// natural loops over the basic-block graphs cfg.Partition produces
// (spec.md §4.3). The algorithm is the same iterative worklist style as
// cfg.ControlFlowGraph.ComputeDominators, generalized to also produce
// immediate dominators, the dominance frontier, post-dominance (by running
// the same fixpoint over the reversed graph), and natural loops from
// back-edge detection.
package dominance

import (
	"sort"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/cfg"
)

// Result holds every dominance-family relation for one function's CFG.
type Result struct {
	cfgRef *cfg.ControlFlowGraph

	dom     map[string]map[string]bool // block -> set of blocks dominating it
	idom    map[string]string          // block -> immediate dominator ("" for entry)
	frontier map[string]map[string]bool

	postDom  map[string]map[string]bool
	ipostDom map[string]string

	loops []NaturalLoop
}

// NaturalLoop is a back-edge (tail -> head, where head dominates tail) plus
// the set of blocks in the loop body.
type NaturalLoop struct {
	Head, Tail string
	Body       map[string]bool
}

// Compute runs the full dominance analysis over g. g.ComputeDominators must
// not have been relied upon already — Compute recomputes everything itself
// so Result's relations are always internally consistent with one another.
func Compute(g *cfg.ControlFlowGraph) *Result {
	r := &Result{cfgRef: g}
	r.dom = computeDom(g, g.EntryBlockID, predecessorsOf(g))
	r.idom = immediateDominators(r.dom, g.EntryBlockID)
	r.frontier = dominanceFrontier(g, r.idom)

	r.postDom = computeDom(g, g.ExitBlockID, successorsOf(g))
	r.ipostDom = immediateDominators(r.postDom, g.ExitBlockID)

	r.loops = naturalLoops(g, r.dom)
	return r
}

func successorsOf(g *cfg.ControlFlowGraph) func(string) []string {
	return func(id string) []string {
		b, ok := g.Blocks[id]
		if !ok {
			return nil
		}
		return b.Successors
	}
}

func predecessorsOf(g *cfg.ControlFlowGraph) func(string) []string {
	return func(id string) []string {
		b, ok := g.Blocks[id]
		if !ok {
			return nil
		}
		return b.Predecessors
	}
}

// computeDom is the classic iterative dominator fixpoint, parameterized on
// which direction counts as "predecessor": block.Predecessors for ordinary
// dominance (preds==predecessorsOf(g)), block.Successors for post-dominance
// over the reversed graph (preds==successorsOf(g)).
func computeDom(g *cfg.ControlFlowGraph, root string, preds func(string) []string) map[string]map[string]bool {
	all := make([]string, 0, len(g.Blocks))
	for id := range g.Blocks {
		all = append(all, id)
	}
	sort.Strings(all)

	dom := make(map[string]map[string]bool, len(all))
	full := setOf(all)
	for _, id := range all {
		if id == root {
			dom[id] = setOf([]string{root})
		} else {
			dom[id] = cloneSet(full)
		}
	}

	changed := true
	for changed {
		changed = false
		for _, id := range all {
			if id == root {
				continue
			}
			predIDs := preds(id)
			if len(predIDs) == 0 {
				continue
			}
			newDom := cloneSet(dom[predIDs[0]])
			for _, p := range predIDs[1:] {
				newDom = intersectSets(newDom, dom[p])
			}
			newDom[id] = true
			if !setsEqual(newDom, dom[id]) {
				dom[id] = newDom
				changed = true
			}
		}
	}
	return dom
}

func immediateDominators(dom map[string]map[string]bool, root string) map[string]string {
	idom := make(map[string]string, len(dom))
	for id, doms := range dom {
		if id == root {
			idom[id] = ""
			continue
		}
		// The immediate dominator is the strict dominator that dominates no
		// other strict dominator (the closest one).
		var candidates []string
		for d := range doms {
			if d != id {
				candidates = append(candidates, d)
			}
		}
		best := ""
		for _, c := range candidates {
			dominatedByAnother := false
			for _, other := range candidates {
				if other == c {
					continue
				}
				if dom[other][c] {
					dominatedByAnother = true
					break
				}
			}
			if !dominatedByAnother {
				best = c
				break
			}
		}
		idom[id] = best
	}
	return idom
}

// dominanceFrontier computes DF(n) for every block: the set of blocks where
// n's dominance stops — join points reachable from n without n strictly
// dominating them.
func dominanceFrontier(g *cfg.ControlFlowGraph, idom map[string]string) map[string]map[string]bool {
	df := make(map[string]map[string]bool)
	for id := range g.Blocks {
		df[id] = make(map[string]bool)
	}
	for id, block := range g.Blocks {
		if len(block.Predecessors) < 2 {
			continue
		}
		for _, pred := range block.Predecessors {
			runner := pred
			for runner != "" && runner != idom[id] {
				df[runner][id] = true
				runner = idom[runner]
			}
		}
	}
	return df
}

// naturalLoops finds every back edge (tail -> head where head dominates
// tail) and computes its loop body: tail plus every block that can reach
// tail without going through head.
func naturalLoops(g *cfg.ControlFlowGraph, dom map[string]map[string]bool) []NaturalLoop {
	var loops []NaturalLoop
	ids := make([]string, 0, len(g.Blocks))
	for id := range g.Blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, tail := range ids {
		block := g.Blocks[tail]
		for _, head := range block.Successors {
			if dom[tail][head] {
				loops = append(loops, NaturalLoop{Head: head, Tail: tail, Body: loopBody(g, head, tail)})
			}
		}
	}
	return loops
}

func loopBody(g *cfg.ControlFlowGraph, head, tail string) map[string]bool {
	body := map[string]bool{head: true, tail: true}
	stack := []string{tail}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == head {
			continue
		}
		block, ok := g.Blocks[n]
		if !ok {
			continue
		}
		for _, p := range block.Predecessors {
			if !body[p] {
				body[p] = true
				stack = append(stack, p)
			}
		}
	}
	return body
}

func setOf(ids []string) map[string]bool {
	s := make(map[string]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

func cloneSet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func intersectSets(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// Dominates reports whether a dominates b (reflexively).
func (r *Result) Dominates(a, b string) bool { return r.dom[b][a] }

// StrictlyDominates reports whether a dominates b and a != b.
func (r *Result) StrictlyDominates(a, b string) bool { return a != b && r.dom[b][a] }

// ImmediateDominator returns b's immediate dominator, or "" if b is the
// entry block or unreachable.
func (r *Result) ImmediateDominator(b string) string { return r.idom[b] }

// DominanceFrontier returns the dominance frontier of b.
func (r *Result) DominanceFrontier(b string) map[string]bool { return r.frontier[b] }

// IteratedDominanceFrontier closes a seed block set under DominanceFrontier
// until no new blocks are added — the set SSA phi placement inserts at.
func (r *Result) IteratedDominanceFrontier(seeds []string) map[string]bool {
	result := make(map[string]bool)
	worklist := append([]string{}, seeds...)
	for len(worklist) > 0 {
		n := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for f := range r.DominanceFrontier(n) {
			if !result[f] {
				result[f] = true
				worklist = append(worklist, f)
			}
		}
	}
	return result
}

// PostDominates reports whether a post-dominates b (reflexively).
func (r *Result) PostDominates(a, b string) bool { return r.postDom[b][a] }

// ImmediatePostDominator returns b's immediate post-dominator.
func (r *Result) ImmediatePostDominator(b string) string { return r.ipostDom[b] }

// NaturalLoops returns every natural loop found, ordered by the sorted ID of
// each back edge's tail block for a stable iteration order across runs.
func (r *Result) NaturalLoops() []NaturalLoop { return r.loops }
