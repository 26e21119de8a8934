package engineerr

import "fmt"

// Invariant is an implementation defect: the engine computed a relation
// that violates one of its own stated invariants (spec.md §8), e.g. a block
// with two immediate dominators, or a phi definition with fewer inputs than
// its block has predecessors.
type Invariant struct {
	Relation string // the relation that was found inconsistent, e.g. "idom" or "phi_inputs"
	Detail   string
}

func (e *Invariant) Error() string {
	return fmt.Sprintf("engineerr: invariant violated for %s: %s", e.Relation, e.Detail)
}

// Budget is a fixpoint iteration cap hit during taint propagation
// (analysis/taint.Engine.Budget). It is never a crash: the caller gets a
// truncated relation back alongside this as a warning.
type Budget struct {
	Relation string // the relation whose search was truncated, e.g. "has_flow"
	Limit    int
}

func (e *Budget) Error() string {
	return fmt.Sprintf("engineerr: %s search exceeded its budget of %d nodes", e.Relation, e.Limit)
}
