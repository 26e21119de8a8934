// Package engineerr names the two internal-defect error kinds spec.md §7
// distinguishes from an unresolved reference (which is not an error at all,
// just the absence of a tuple — see graph/callgraph/query's
// is_unresolved_call/is_unresolved_modifier).
//
// Invariant marks a relation the engine itself violated (a phi with fewer
// inputs than predecessors). Budget marks a fixpoint search that hit its
// iteration cap. Neither aborts an analysis run on its own. With
// config.Options.StrictMode set (applied as ssa.StrictMode) an Invariant
// panics; otherwise it is constructed and discarded, and the relation is
// kept as computed.
package engineerr
