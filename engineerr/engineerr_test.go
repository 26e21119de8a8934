package engineerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvariant_SatisfiesError(t *testing.T) {
	var err error = &Invariant{Relation: "idom", Detail: "block b3 has two immediate dominators"}
	require.EqualError(t, err, "engineerr: invariant violated for idom: block b3 has two immediate dominators")
}

func TestBudget_SatisfiesError(t *testing.T) {
	var err error = &Budget{Relation: "has_flow", Limit: 50000}
	require.EqualError(t, err, "engineerr: has_flow search exceeded its budget of 50000 nodes")
}

func TestErrors_AreDistinctTypes(t *testing.T) {
	var inv error = &Invariant{Relation: "idom"}
	var bud error = &Budget{Relation: "has_flow", Limit: 1}

	var target *Invariant
	require.True(t, errors.As(inv, &target))
	require.False(t, errors.As(bud, &target))
}
