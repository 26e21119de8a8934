// Package core provides foundational type definitions for the callgraph analyzer.
//
// This package contains pure data structures with minimal dependencies that form
// the contract for all other callgraph packages. Types in this package should:
//
//   - Have zero circular dependencies
//   - Contain minimal business logic
//   - Be stable and rarely change
//
// # Core Types
//
// CallGraph represents the complete call graph with edges between functions.
//
// CallSite carries the syntax node and resolution metadata for one call
// expression, shared by the builder and the taint engine's jump step.
//
// TaintSummary stores results of taint analysis for a function.
//
// # Usage
//
//	import "github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/core"
//
//	cg := core.NewCallGraph()
//	cg.AddEdge("main.foo", "main.bar")
package core
