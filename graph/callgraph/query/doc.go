// Package query is spec.md §6's query runtime: it evaluates declarative
// relations over the CFG, dominance, call graph, SSA, and taint relations
// built elsewhere in this module, and emits results as tuples
// (node, message, *context). It is deliberately thin — the full query
// surface (reentrancy, delegatecall, access-control, ...) is named in
// spec.md §1 as an external collaborator's concern; this package hosts only
// the relation plumbing and the handful of concrete queries SPEC_FULL.md
// adds to exercise it end to end.
package query
