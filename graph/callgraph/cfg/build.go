package cfg

import (
	"fmt"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
)

// Edge is one statement/expression-level control-flow edge: from completes
// with Completion and control passes to To. This is the graph spec.md §4.1
// calls `successor(node, completion)`; the block-level ControlFlowGraph in
// cfg.go is built on top of it in blocks.go.
type Edge struct {
	From       *graph.Node
	To         *graph.Node
	Completion graph.Completion
}

// FunctionCFG is the statement-level control-flow graph for one function (or
// modifier) body, including any modifier invocations inlined at their
// placeholder ("_;") points.
type FunctionCFG struct {
	Function     *graph.Node
	EntryTargets []*graph.Node
	ExitNode     *graph.Node
	Edges        []Edge
}

// SuccessorsOf returns every (to, completion) pair recorded for from.
func (f *FunctionCFG) SuccessorsOf(from *graph.Node) []Edge {
	var out []Edge
	for _, e := range f.Edges {
		if e.From == from {
			out = append(out, e)
		}
	}
	return out
}

// PredecessorsOf returns every (from, completion) pair whose edge targets to.
func (f *FunctionCFG) PredecessorsOf(to *graph.Node) []Edge {
	var out []Edge
	for _, e := range f.Edges {
		if e.To == to {
			out = append(out, e)
		}
	}
	return out
}

type loopTargets struct {
	continueTo []*graph.Node
	breakTo    []*graph.Node
}

type builder struct {
	cfg                     *FunctionCFG
	loops                   []loopTargets
	placeholderContinuation func(after []*graph.Node) []*graph.Node
	synthID                 int
}

func (b *builder) addEdge(from *graph.Node, tos []*graph.Node, c graph.Completion) {
	for _, to := range tos {
		if from == nil || to == nil {
			continue
		}
		b.cfg.Edges = append(b.cfg.Edges, Edge{From: from, To: to, Completion: c})
	}
}

func (b *builder) pushLoop(continueTo, breakTo []*graph.Node) {
	b.loops = append(b.loops, loopTargets{continueTo: continueTo, breakTo: breakTo})
}

func (b *builder) popLoop() { b.loops = b.loops[:len(b.loops)-1] }

func (b *builder) currentContinueTarget() []*graph.Node {
	if len(b.loops) == 0 {
		return []*graph.Node{b.cfg.ExitNode}
	}
	return b.loops[len(b.loops)-1].continueTo
}

func (b *builder) currentBreakTarget() []*graph.Node {
	if len(b.loops) == 0 {
		return []*graph.Node{b.cfg.ExitNode}
	}
	return b.loops[len(b.loops)-1].breakTo
}

// isPlaceholder reports whether stmt is Solidity's modifier-body splice
// point, "_;" — parsed as an ExpressionStatement wrapping a bare
// Identifier named "_".
func isPlaceholder(stmt *graph.Node) bool {
	if stmt == nil || stmt.Kind != graph.KindExpressionStatement {
		return false
	}
	expr := stmt.Field("expression")
	return expr != nil && expr.Kind == graph.KindIdentifier && expr.Name == "_"
}

// build wires n's internal control flow, with `next` as the node(s) to which
// n's normal completion flows. It returns the node(s) that are first
// executed when control reaches n — the same shape spec.md §4.1 calls
// `first(n)`.
func (b *builder) build(n *graph.Node, next []*graph.Node) []*graph.Node {
	if n == nil {
		return next
	}
	switch n.Kind {
	case graph.KindBlockStatement:
		stmts := n.ListField("statements")
		cur := next
		for i := len(stmts) - 1; i >= 0; i-- {
			stmt := stmts[i]
			if isPlaceholder(stmt) && b.placeholderContinuation != nil {
				cur = b.placeholderContinuation(cur)
				continue
			}
			cur = b.build(stmt, cur)
		}
		return cur

	case graph.KindIfStatement:
		cond := n.Field("condition")
		thenEntry := b.build(n.Field("consequent"), next)
		var elseEntry []*graph.Node
		if alt := n.Field("alternate"); alt != nil {
			elseEntry = b.build(alt, next)
		} else {
			elseEntry = next
		}
		b.addEdge(cond, thenEntry, graph.Boolean(true))
		b.addEdge(cond, elseEntry, graph.Boolean(false))
		return []*graph.Node{cond}

	case graph.KindWhileStatement:
		cond := n.Field("condition")
		b.pushLoop([]*graph.Node{cond}, next)
		bodyEntry := b.build(n.Field("body"), []*graph.Node{cond})
		b.popLoop()
		b.addEdge(cond, bodyEntry, graph.Boolean(true))
		b.addEdge(cond, next, graph.Boolean(false))
		return []*graph.Node{cond}

	case graph.KindDoWhileStatement:
		cond := n.Field("condition")
		b.pushLoop([]*graph.Node{cond}, next)
		bodyEntry := b.build(n.Field("body"), []*graph.Node{cond})
		b.popLoop()
		b.addEdge(cond, bodyEntry, graph.Boolean(true))
		b.addEdge(cond, next, graph.Boolean(false))
		return bodyEntry

	case graph.KindForStatement:
		return b.buildFor(n, next)

	case graph.KindTryStatement:
		return b.buildTry(n, next)

	case graph.KindReturnStatement:
		b.addEdge(n, []*graph.Node{b.cfg.ExitNode}, graph.Abnormal(graph.CompletionReturn))
		return []*graph.Node{n}

	case graph.KindBreakStatement:
		b.addEdge(n, b.currentBreakTarget(), graph.Abnormal(graph.CompletionBreak))
		return []*graph.Node{n}

	case graph.KindContinueStatement:
		b.addEdge(n, b.currentContinueTarget(), graph.Abnormal(graph.CompletionContinue))
		return []*graph.Node{n}

	case graph.KindRevertStatement:
		b.addEdge(n, []*graph.Node{b.cfg.ExitNode}, graph.Abnormal(graph.CompletionRevert))
		return []*graph.Node{n}

	case graph.KindAssemblyStatement:
		// Opaque blob: no internal edges produced (§4.1 — unrecognized
		// constructs contribute no edges, the CFG stays a sound partial graph).
		b.addEdge(n, next, graph.Normal())
		return []*graph.Node{n}

	default:
		// ExpressionStatement, VariableDeclarationStatement, EmitStatement,
		// and any other single-step statement: normal fallthrough.
		b.addEdge(n, next, graph.Normal())
		return []*graph.Node{n}
	}
}

// buildFor wires "for (init; condition; update) body". A missing condition
// means the loop never exits except via break (an infinite loop is a valid,
// if unusual, Solidity program).
func (b *builder) buildFor(n *graph.Node, next []*graph.Node) []*graph.Node {
	cond := n.Field("condition")
	updateStmt := n.Field("update")

	// afterBody is where control goes once the loop body completes normally:
	// through the update (if present) and back to the condition check.
	var afterBody []*graph.Node
	if updateStmt != nil {
		if cond != nil {
			afterBody = b.build(updateStmt, []*graph.Node{cond})
		} else {
			afterBody = b.build(updateStmt, nil) // patched to self-loop below
		}
	} else if cond != nil {
		afterBody = []*graph.Node{cond}
	} else {
		afterBody = []*graph.Node{n} // the for node itself stands in as the loop head
	}

	b.pushLoop(afterBody, next)
	bodyEntry := b.build(n.Field("body"), afterBody)
	b.popLoop()

	switch {
	case cond != nil:
		b.addEdge(cond, bodyEntry, graph.Boolean(true))
		b.addEdge(cond, next, graph.Boolean(false))
	case updateStmt != nil:
		// No condition: update always loops back into the body.
		b.addEdge(afterBody[0], bodyEntry, graph.Normal())
	default:
		// No condition, no update: the body's normal completion returns to
		// the for node, which loops back into the body.
		b.addEdge(n, bodyEntry, graph.Normal())
	}

	if initStmt := n.Field("init"); initStmt != nil {
		target := bodyEntry
		if cond != nil {
			target = []*graph.Node{cond}
		}
		return b.build(initStmt, target)
	}
	if cond != nil {
		return []*graph.Node{cond}
	}
	return bodyEntry
}

func (b *builder) buildTry(n *graph.Node, next []*graph.Node) []*graph.Node {
	tryNode := n
	bodyEntry := b.build(n.Field("body"), next)
	b.addEdge(tryNode, bodyEntry, graph.Normal())

	handlers := n.ListField("handlers")
	if len(handlers) == 0 {
		b.addEdge(tryNode, []*graph.Node{b.cfg.ExitNode}, graph.Abnormal(graph.CompletionThrow))
	}
	for _, h := range handlers {
		hEntry := b.build(h.Field("body"), next)
		b.addEdge(tryNode, hEntry, graph.Abnormal(graph.CompletionThrow))
	}
	return []*graph.Node{tryNode}
}

// ModifierLookup resolves a modifier invocation's name to the declaring
// ModifierDefinition node, following inheritance if needed. Callers in the
// builder package supply one backed by the inheritance-aware call graph;
// tests may supply a flat map lookup.
type ModifierLookup func(name string) *graph.Node

// BuildFunctionCFG constructs the statement-level CFG for fn, inlining the
// bodies of fn's modifier invocations in declaration order around the
// function body at each modifier's "_;" placeholder, per spec.md's
// modifier-chain inlining requirement.
func BuildFunctionCFG(fn *graph.Node, lookup ModifierLookup) *FunctionCFG {
	fqn := fn.Name
	if fqn == "" {
		fqn = "anonymous"
	}
	exit := graph.NewNode(fmt.Sprintf("%s:exit", fqn), graph.KindBlockStatement, fn.Loc)
	cfg := &FunctionCFG{Function: fn, ExitNode: exit}
	b := &builder{cfg: cfg}

	var mods []*graph.Node
	if lookup != nil {
		for _, mi := range fn.ListField("modifiers") {
			if def := lookup(mi.Name); def != nil {
				mods = append(mods, def)
			}
		}
	}

	entry := b.buildChain(mods, 0, fn.Field("body"), []*graph.Node{exit})
	cfg.EntryTargets = entry
	return cfg
}

func (b *builder) buildChain(mods []*graph.Node, idx int, fnBody *graph.Node, next []*graph.Node) []*graph.Node {
	if idx >= len(mods) {
		if fnBody == nil {
			return next
		}
		return b.build(fnBody, next)
	}
	modDef := mods[idx]
	prevContinuation := b.placeholderContinuation
	b.placeholderContinuation = func(after []*graph.Node) []*graph.Node {
		return b.buildChain(mods, idx+1, fnBody, after)
	}
	entry := b.build(modDef.Field("body"), next)
	b.placeholderContinuation = prevContinuation
	return entry
}
