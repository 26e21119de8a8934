// Package builder constructs the inheritance-aware call graph for a parsed
// program (spec.md §4.4) and caches the CFG/dominance/SSA analysis of each
// function.
//
// # Components
//
//   - Registry (inheritance.go): C3-linearizes every contract/interface/
//     library's base chain in declaration order and resolves virtual/
//     super/this dispatch against it.
//   - ClassifyCall / IsExternalCall (classify.go): classifies each call site
//     per spec.md's taxonomy (internal, super, this, interface, low-level
//     call, transfer, built-in, external, unresolved) and decides whether it
//     crosses the analyzed contract's trust boundary.
//   - knownLibraryCalls (library_table.go): taint-propagation behavior for
//     the handful of OpenZeppelin-style library calls spec.md names
//     explicitly, since their source isn't part of the analyzed tree.
//   - BuildCallGraph (callgraph.go): walks every contract-like declaration,
//     resolves each call site against the Registry, and records everything
//     that couldn't be resolved — an unresolved call is not an error (§7),
//     just the absence of a graph edge.
//   - AnalysisCache (cache.go): a content-addressed, per-function cache of
//     CFG, basic-block partition, dominance, and SSA results, keyed by a
//     digest of the function's own source text so an unrelated edit
//     elsewhere in the file doesn't invalidate it.
package builder
