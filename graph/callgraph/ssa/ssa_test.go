package ssa

import (
	"testing"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/cfg"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/dominance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const branchingSource = `
contract Counter {
    uint256 count;

    function increment(uint256 step) public {
        if (step > 0) {
            count = count + step;
        } else {
            count = count;
        }
        count = count;
    }
}
`

func findFunction(t *testing.T, tree graph.Tree, contract, fn string) *graph.Node {
	t.Helper()
	for _, file := range tree.Files() {
		for _, root := range tree.Roots(file) {
			if root.Name != contract {
				continue
			}
			for _, m := range root.ListField("members") {
				if m.Name == fn {
					return m
				}
			}
		}
	}
	t.Fatalf("function %s.%s not found", contract, fn)
	return nil
}

func buildSSA(t *testing.T, src, contract, fn string) (*Function, *cfg.ControlFlowGraph) {
	t.Helper()
	tree, diags := graph.ParseFile(contract+".sol", src)
	require.Empty(t, diags)

	node := findFunction(t, tree, contract, fn)
	fcfg := cfg.BuildFunctionCFG(node, nil)
	blocks := cfg.Partition(fcfg)
	dom := dominance.Compute(blocks)
	return Build(contract+"."+fn, node, blocks, dom), blocks
}

func TestBuild_TracksParameterAndStateVariable(t *testing.T) {
	f, _ := buildSSA(t, branchingSource, "Counter", "increment")

	assert.Contains(t, f.Variables, "step")
	assert.Contains(t, f.Variables, "count")
}

func TestBuild_ParameterGetsADefinitionInEntryBlock(t *testing.T) {
	f, blocks := buildSSA(t, branchingSource, "Counter", "increment")

	defs := f.ByVariable["step"]
	require.NotEmpty(t, defs)
	assert.Equal(t, DefParameter, defs[0].Kind)
	assert.Equal(t, blocks.EntryBlockID, defs[0].Block)
}

func TestBuild_PhiPlacedAtJoinForVariableAssignedOnBothBranches(t *testing.T) {
	f, _ := buildSSA(t, branchingSource, "Counter", "increment")

	var phis []*Definition
	for _, d := range f.ByVariable["count"] {
		if d.Kind == DefPhi {
			phis = append(phis, d)
		}
	}
	require.NotEmpty(t, phis, "count is assigned on both branches, so a phi must be placed at their join")
}

func TestBuild_PhiInputCountMatchesBlockPredecessorCount(t *testing.T) {
	f, blocks := buildSSA(t, branchingSource, "Counter", "increment")

	for _, d := range f.Definitions {
		if d.Kind != DefPhi {
			continue
		}
		block, ok := blocks.Blocks[d.Block]
		require.True(t, ok)
		assert.Len(t, d.PhiInputs, len(block.Predecessors),
			"phi for %s in %s must have exactly one input per predecessor", d.Variable, d.Block)
	}
}

func TestBuild_UsesResolveToReachingDefinition(t *testing.T) {
	f, _ := buildSSA(t, branchingSource, "Counter", "increment")

	found := false
	for _, u := range f.Uses {
		if u.Variable == "step" {
			found = true
			require.NotNil(t, u.ReachingDef, "the read of step must resolve to its parameter definition")
			assert.Equal(t, DefParameter, u.ReachingDef.Kind)
		}
	}
	assert.True(t, found, "expected at least one use of step")
}

func TestBuild_FinalReadOfCountResolvesThroughThePhi(t *testing.T) {
	f, _ := buildSSA(t, branchingSource, "Counter", "increment")

	var last *Use
	for _, u := range f.Uses {
		if u.Variable == "count" {
			last = u
		}
	}
	require.NotNil(t, last)
	require.NotNil(t, last.ReachingDef)
	assert.Equal(t, DefPhi, last.ReachingDef.Kind,
		"the final use of count, after the if/else, must reach through the join's phi")
}

func TestCheckPhiInputs_StrictModePanicsOnShortfall(t *testing.T) {
	defer func() { StrictMode = false }()
	StrictMode = true

	f := &Function{FunctionFQN: "X.f"}
	d := &Definition{ID: "d1", Variable: "v", Kind: DefPhi, Block: "join", PhiInputs: map[string]*Definition{}}
	f.Definitions = append(f.Definitions, d)

	blocks := cfg.NewControlFlowGraph("X.f")
	blocks.AddBlock(&cfg.BasicBlock{ID: "join", Predecessors: []string{"a", "b"}, Successors: []string{}})

	assert.Panics(t, func() { checkPhiInputs(f, blocks) })
}

func TestCheckPhiInputs_NonStrictModeDoesNotPanic(t *testing.T) {
	StrictMode = false

	f := &Function{FunctionFQN: "X.f"}
	d := &Definition{ID: "d1", Variable: "v", Kind: DefPhi, Block: "join", PhiInputs: map[string]*Definition{}}
	f.Definitions = append(f.Definitions, d)

	blocks := cfg.NewControlFlowGraph("X.f")
	blocks.AddBlock(&cfg.BasicBlock{ID: "join", Predecessors: []string{"a", "b"}, Successors: []string{}})

	assert.NotPanics(t, func() { checkPhiInputs(f, blocks) })
}
