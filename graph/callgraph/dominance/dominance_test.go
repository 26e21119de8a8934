package dominance

import (
	"testing"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/cfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diamond builds Entry -> b1 -> {b2, b3} -> b4 -> Exit, the smallest CFG
// with a genuine join point.
func diamond() *cfg.ControlFlowGraph {
	g := cfg.NewControlFlowGraph("diamond")
	for _, id := range []string{"b1", "b2", "b3", "b4"} {
		g.AddBlock(&cfg.BasicBlock{ID: id, Type: cfg.BlockTypeNormal, Successors: []string{}, Predecessors: []string{}})
	}
	g.AddEdge(g.EntryBlockID, "b1")
	g.AddEdge("b1", "b2")
	g.AddEdge("b1", "b3")
	g.AddEdge("b2", "b4")
	g.AddEdge("b3", "b4")
	g.AddEdge("b4", g.ExitBlockID)
	return g
}

func TestCompute_Diamond_Dominance(t *testing.T) {
	g := diamond()
	r := Compute(g)

	assert.True(t, r.Dominates(g.EntryBlockID, "b4"))
	assert.True(t, r.StrictlyDominates("b1", "b4"))
	assert.False(t, r.StrictlyDominates("b2", "b4"), "b2 and b3 are alternative paths, neither dominates the join")
	assert.False(t, r.StrictlyDominates("b3", "b4"))

	assert.Equal(t, "b1", r.ImmediateDominator("b4"))
	assert.Equal(t, g.EntryBlockID, r.ImmediateDominator("b1"))
	assert.Equal(t, "", r.ImmediateDominator(g.EntryBlockID))
}

func TestCompute_Diamond_DominanceFrontier(t *testing.T) {
	g := diamond()
	r := Compute(g)

	// b4 is the join point where b2's and b3's dominance both end.
	assert.True(t, r.DominanceFrontier("b2")["b4"])
	assert.True(t, r.DominanceFrontier("b3")["b4"])
	// b1 strictly dominates b4, so b4 isn't in b1's own frontier.
	assert.False(t, r.DominanceFrontier("b1")["b4"])
}

func TestCompute_Diamond_IteratedDominanceFrontier(t *testing.T) {
	g := diamond()
	r := Compute(g)

	idf := r.IteratedDominanceFrontier([]string{"b2", "b3"})
	assert.True(t, idf["b4"])
	assert.Len(t, idf, 1)
}

func TestCompute_Diamond_PostDominance(t *testing.T) {
	g := diamond()
	r := Compute(g)

	// Every path from b2 or b3 to Exit passes through b4.
	assert.True(t, r.PostDominates("b4", "b2"))
	assert.True(t, r.PostDominates("b4", "b3"))
	assert.Equal(t, "b4", r.ImmediatePostDominator("b2"))
	assert.Equal(t, "b4", r.ImmediatePostDominator("b3"))
}

func TestCompute_Diamond_NoNaturalLoops(t *testing.T) {
	g := diamond()
	r := Compute(g)
	assert.Empty(t, r.NaturalLoops())
}

// loopGraph builds Entry -> head -> body -> head (back edge) -> tail -> Exit,
// the smallest CFG with a genuine back edge.
func loopGraph() *cfg.ControlFlowGraph {
	g := cfg.NewControlFlowGraph("loop")
	for _, id := range []string{"head", "body", "tail"} {
		g.AddBlock(&cfg.BasicBlock{ID: id, Type: cfg.BlockTypeNormal, Successors: []string{}, Predecessors: []string{}})
	}
	g.AddEdge(g.EntryBlockID, "head")
	g.AddEdge("head", "body")
	g.AddEdge("body", "head") // back edge
	g.AddEdge("head", "tail")
	g.AddEdge("tail", g.ExitBlockID)
	return g
}

func TestCompute_Loop_NaturalLoopFound(t *testing.T) {
	g := loopGraph()
	r := Compute(g)

	loops := r.NaturalLoops()
	require.Len(t, loops, 1)
	assert.Equal(t, "head", loops[0].Head)
	assert.Equal(t, "body", loops[0].Tail)
	assert.True(t, loops[0].Body["head"])
	assert.True(t, loops[0].Body["body"])
	assert.False(t, loops[0].Body["tail"], "tail block outside the loop must not be in the loop body")
}

func TestCompute_Loop_HeadDominatesBody(t *testing.T) {
	g := loopGraph()
	r := Compute(g)

	assert.True(t, r.StrictlyDominates("head", "body"))
	assert.False(t, r.StrictlyDominates("body", "head"), "the back edge's target dominates its source, never the reverse")
}

func TestCompute_Linear_EveryBlockHasUniqueImmediateDominator(t *testing.T) {
	g := cfg.NewControlFlowGraph("linear")
	g.AddBlock(&cfg.BasicBlock{ID: "b1", Successors: []string{}, Predecessors: []string{}})
	g.AddBlock(&cfg.BasicBlock{ID: "b2", Successors: []string{}, Predecessors: []string{}})
	g.AddEdge(g.EntryBlockID, "b1")
	g.AddEdge("b1", "b2")
	g.AddEdge("b2", g.ExitBlockID)

	r := Compute(g)
	assert.Equal(t, g.EntryBlockID, r.ImmediateDominator("b1"))
	assert.Equal(t, "b1", r.ImmediateDominator("b2"))
	assert.Equal(t, "b2", r.ImmediateDominator(g.ExitBlockID))
}
