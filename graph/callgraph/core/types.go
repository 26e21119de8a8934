package core

import (
	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
)

// Location represents a source code location for tracking call sites.
// This enables precise mapping of where calls occur in the source code.
type Location struct {
	File   string // Absolute path to the source file
	Line   int    // Line number (1-indexed)
	Column int    // Column number (1-indexed)
}

// CallSite represents a function/method call location in the source code.
// It captures both the syntactic information (where the call is) and
// semantic information (what is being called and with what arguments).
type CallSite struct {
	Target        string     // The name of the function being called (e.g., "eval", "utils.sanitize")
	Location      Location   // Where this call occurs in the source code
	Arguments     []Argument // Arguments passed to the call
	Resolved      bool       // Whether we successfully resolved this call to a definition
	TargetFQN     string     // Fully qualified name after resolution (e.g., "myapp.utils.sanitize")
	FailureReason string     // Why resolution failed (empty if Resolved=true)

	// Node is the CallExpression syntax node this call site was extracted
	// from. Lets the taint engine's jump step map an argument/call-result
	// node straight back to the call site that resolved it, without
	// re-running classification.
	Node *graph.Node

	// Phase 2: Type inference metadata
	ResolvedViaTypeInference bool    // Was this resolved using type inference?
	InferredType             string  // The inferred type FQN (e.g., "builtins.str", "test.User")
	TypeConfidence           float32 // Confidence score of the type inference (0.0-1.0)
	TypeSource               string  // How type was inferred (e.g., "literal", "return_type", "class_instantiation")
}

// Resolution failure reasons the builder records in CallSite.FailureReason:
// - "not_found_in_hierarchy" - an internal, this or super call whose name
//   no contract in the caller's inheritance chain declares
// - otherwise the call's builder.CallKind string, for calls (external,
//   low-level, transfer, built-in, unresolved) that have no target inside
//   the analyzed tree

// Argument represents a single argument passed to a function call.
// Tracks both the value/expression and metadata about the argument.
type Argument struct {
	Value      string // The argument expression as a string
	IsVariable bool   // Whether this argument is a variable reference
	Position   int    // Position in the argument list (0-indexed)
}

// CallGraph represents the complete call graph of a program.
// It maps function definitions to their call sites and provides
// both forward (callers → callees) and reverse (callees → callers) edges.
//
// Example:
//
//	Function A calls B and C
//	edges: {"A": ["B", "C"]}
//	reverseEdges: {"B": ["A"], "C": ["A"]}
type CallGraph struct {
	// Forward edges: maps fully qualified function name to list of functions it calls
	// Key: caller FQN (e.g., "myapp.views.get_user")
	// Value: list of callee FQNs (e.g., ["myapp.db.query", "myapp.utils.sanitize"])
	Edges map[string][]string

	// Reverse edges: maps fully qualified function name to list of functions that call it
	// Useful for backward slicing and finding all callers of a function
	// Key: callee FQN
	// Value: list of caller FQNs
	ReverseEdges map[string][]string

	// Detailed call site information for each function
	// Key: caller FQN
	// Value: list of all call sites within that function
	CallSites map[string][]CallSite

	// Map from fully qualified name to the actual function node in the graph
	// This allows quick lookup of function metadata (line number, file, etc.)
	Functions map[string]*graph.Node

	// Taint summaries for each function (intra-procedural analysis results)
	// Key: function FQN
	// Value: TaintSummary with taint flow information
	Summaries map[string]*TaintSummary
}

// NewCallGraph creates and initializes a new CallGraph instance.
// All maps are pre-allocated to avoid nil pointer issues.
func NewCallGraph() *CallGraph {
	return &CallGraph{
		Edges:        make(map[string][]string),
		ReverseEdges: make(map[string][]string),
		CallSites:    make(map[string][]CallSite),
		Functions:    make(map[string]*graph.Node),
		Summaries:    make(map[string]*TaintSummary),
	}
}

// AddEdge adds a directed edge from caller to callee in the call graph.
// Automatically updates both forward and reverse edges.
//
// Parameters:
//   - caller: fully qualified name of the calling function
//   - callee: fully qualified name of the called function
func (cg *CallGraph) AddEdge(caller, callee string) {
	// Add forward edge
	if !contains(cg.Edges[caller], callee) {
		cg.Edges[caller] = append(cg.Edges[caller], callee)
	}

	// Add reverse edge
	if !contains(cg.ReverseEdges[callee], caller) {
		cg.ReverseEdges[callee] = append(cg.ReverseEdges[callee], caller)
	}
}

// AddCallSite adds a call site to the call graph.
// This stores detailed information about where and how a function is called.
//
// Parameters:
//   - caller: fully qualified name of the calling function
//   - callSite: detailed information about the call
func (cg *CallGraph) AddCallSite(caller string, callSite CallSite) {
	cg.CallSites[caller] = append(cg.CallSites[caller], callSite)
}

// GetCallers returns all functions that call the specified function.
// Uses the reverse edges for efficient lookup.
//
// Parameters:
//   - callee: fully qualified name of the function
//
// Returns:
//   - list of caller FQNs, or empty slice if no callers found
func (cg *CallGraph) GetCallers(callee string) []string {
	if callers, ok := cg.ReverseEdges[callee]; ok {
		return callers
	}
	return []string{}
}

// GetCallees returns all functions called by the specified function.
// Uses the forward edges for efficient lookup.
//
// Parameters:
//   - caller: fully qualified name of the function
//
// Returns:
//   - list of callee FQNs, or empty slice if no callees found
func (cg *CallGraph) GetCallees(caller string) []string {
	if callees, ok := cg.Edges[caller]; ok {
		return callees
	}
	return []string{}
}

// Helper function to check if a string slice contains a specific string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
