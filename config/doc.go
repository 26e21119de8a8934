// Package config loads pathfinder.yaml: the taint engine's configurable
// source/sink/sanitizer additions (spec.md §4.6's predicate framework is
// deliberately pluggable) and per-run knobs — fixpoint iteration budget,
// worker count, and strict mode (engineerr.Invariant panics when on and is
// discarded when off).
package config
