package graph

// Tree is the contract the external parser (spec.md §1, out of core scope)
// must satisfy. Everything downstream — CFG, dominance, SSA, call graph,
// taint — is a pure function of one or more Trees; nothing in this module
// ever mutates a Tree after it's handed in.
type Tree interface {
	// Files lists the source files represented by this tree, in a stable
	// order so two runs over identical input produce identical output.
	Files() []string

	// Roots returns the top-level declarations (contracts, interfaces,
	// libraries, free functions) for a file, in source order.
	Roots(file string) []*Node

	// NodeByID looks up any node previously seen in this tree by its
	// identifier. Returns nil if unknown.
	NodeByID(id string) *Node

	// AllNodes returns every node in the tree in a deterministic order. The
	// in-memory tree lists files in the order they were first added, each
	// file's roots in insertion order, each root walked pre-order; query
	// tuples are sorted separately (query.Sort).
	AllNodes() []*Node
}

// InMemoryTree is a concrete Tree backed by nodes built directly (via
// NewNode/SetField/AddListField) or produced by the lexer/parser in
// parser.go. It is the type both test fixtures and the CLI's own reader
// construct.
type InMemoryTree struct {
	files   []string
	roots   map[string][]*Node
	byID    map[string]*Node
}

// NewInMemoryTree constructs an empty tree; use AddRoot to populate it.
func NewInMemoryTree() *InMemoryTree {
	return &InMemoryTree{
		roots: make(map[string][]*Node),
		byID:  make(map[string]*Node),
	}
}

// AddRoot registers a top-level declaration under file, and indexes it and
// its entire subtree by ID for NodeByID lookups.
func (t *InMemoryTree) AddRoot(file string, root *Node) {
	if _, ok := t.roots[file]; !ok {
		t.files = append(t.files, file)
	}
	t.roots[file] = append(t.roots[file], root)
	t.index(root)
}

func (t *InMemoryTree) index(n *Node) {
	if n == nil {
		return
	}
	t.byID[n.id] = n
	for _, c := range n.children {
		t.index(c)
	}
}

func (t *InMemoryTree) Files() []string { return t.files }

func (t *InMemoryTree) Roots(file string) []*Node { return t.roots[file] }

func (t *InMemoryTree) NodeByID(id string) *Node { return t.byID[id] }

func (t *InMemoryTree) AllNodes() []*Node {
	out := make([]*Node, 0, len(t.byID))
	for _, file := range t.files {
		for _, root := range t.roots[file] {
			out = append(out, collectInOrder(root)...)
		}
	}
	return out
}

func collectInOrder(n *Node) []*Node {
	if n == nil {
		return nil
	}
	out := []*Node{n}
	for _, c := range n.children {
		out = append(out, collectInOrder(c)...)
	}
	return out
}
