package cfg

import (
	"fmt"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/core"
)

// Partition groups a statement-level FunctionCFG into maximal basic
// blocks (spec.md §4.2): a new block starts at the function's entry
// node(s), and whenever a node has more than one predecessor (a join) or
// its sole predecessor has more than one successor (a branch), so the
// invariant "single entry, single exit" holds for every block produced.
//
// The resulting ControlFlowGraph reuses the block/dominator machinery in
// cfg.go — ComputeDominators runs unchanged over the blocks Partition
// produces.
func Partition(fcfg *FunctionCFG) *ControlFlowGraph {
	preds := make(map[*graph.Node][]Edge)
	succs := make(map[*graph.Node][]Edge)
	for _, e := range fcfg.Edges {
		preds[e.To] = append(preds[e.To], e)
		succs[e.From] = append(succs[e.From], e)
	}

	leaderOf := make(map[*graph.Node]bool)
	for _, start := range fcfg.EntryTargets {
		leaderOf[start] = true
	}
	for n, ps := range preds {
		if len(ps) != 1 {
			leaderOf[n] = true // join, or unreachable/multi-entry node
			continue
		}
		pred := ps[0].From
		if len(succs[pred]) > 1 {
			leaderOf[n] = true // successor of a branch
		}
	}
	leaderOf[fcfg.ExitNode] = true

	cg := NewControlFlowGraph(functionFQN(fcfg.Function))
	cg.EntryBlockID = functionFQN(fcfg.Function) + ":entry"
	cg.ExitBlockID = functionFQN(fcfg.Function) + ":exit-block"

	blockOf := make(map[*graph.Node]*BasicBlock)
	visited := make(map[*graph.Node]bool)

	var order []*graph.Node
	var walk func(n *graph.Node)
	walk = func(n *graph.Node) {
		if n == nil || visited[n] {
			return
		}
		visited[n] = true
		order = append(order, n)
		for _, e := range succs[n] {
			walk(e.To)
		}
	}
	for _, start := range fcfg.EntryTargets {
		walk(start)
	}
	walk(fcfg.ExitNode)

	var current *BasicBlock
	blockSeq := 0
	for _, n := range order {
		if leaderOf[n] || current == nil {
			blockSeq++
			id := fmt.Sprintf("%s:block%d", functionFQN(fcfg.Function), blockSeq)
			current = &BasicBlock{ID: id, Type: classifyBlockStart(n, fcfg), Instructions: []core.CallSite{}}
			cg.Blocks[id] = current
		}
		current.Nodes = append(current.Nodes, n)
		if n.Loc.StartLine != 0 {
			if current.StartLine == 0 || n.Loc.StartLine < current.StartLine {
				current.StartLine = n.Loc.StartLine
			}
			if n.Loc.EndLine > current.EndLine {
				current.EndLine = n.Loc.EndLine
			}
		}
		if isConditionNode(n, fcfg) {
			current.Type = BlockTypeConditional
			current.Condition = n.Text()
			if current.Condition == "" {
				current.Condition = string(n.Kind)
			}
		}
		blockOf[n] = current
	}

	for _, n := range order {
		from := blockOf[n]
		for _, e := range succs[n] {
			to := blockOf[e.To]
			if from == nil || to == nil || from == to {
				continue
			}
			cg.AddEdge(from.ID, to.ID)
		}
	}

	if len(fcfg.EntryTargets) > 0 {
		if b, ok := blockOf[fcfg.EntryTargets[0]]; ok {
			cg.EntryBlockID = b.ID
			b.Type = BlockTypeEntry
		}
	}
	if b, ok := blockOf[fcfg.ExitNode]; ok {
		cg.ExitBlockID = b.ID
		b.Type = BlockTypeExit
	}

	delete(cg.Blocks, functionFQN(fcfg.Function)+":entry")
	delete(cg.Blocks, functionFQN(fcfg.Function)+":exit")

	cg.ComputeDominators()
	return cg
}

func functionFQN(n *graph.Node) string {
	if n == nil || n.Name == "" {
		return "anonymous"
	}
	return n.Name
}

func classifyBlockStart(n *graph.Node, fcfg *FunctionCFG) BlockType {
	if n == fcfg.ExitNode {
		return BlockTypeExit
	}
	switch n.Kind {
	case graph.KindTryStatement:
		return BlockTypeTry
	case graph.KindCatchClause:
		return BlockTypeCatch
	}
	return BlockTypeNormal
}

// isConditionNode reports whether n is the node on which a boolean
// completion (true/false) is recorded — i.e. it heads a conditional branch.
func isConditionNode(n *graph.Node, fcfg *FunctionCFG) bool {
	for _, e := range fcfg.Edges {
		if e.From == n && e.Completion.Kind == graph.CompletionBoolean {
			return true
		}
	}
	return false
}
