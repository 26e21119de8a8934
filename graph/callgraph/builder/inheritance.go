// Package builder constructs the inheritance-aware call graph (spec.md
// §4.4): C3 linearization of each contract's base chain, virtual/super/this
// dispatch resolution, call-site classification, the known-library taint
// table, and the external-call predicate. It is rewritten from the
// teacher's three-pass Python/Java import-resolution builder for a single
// inheritance-based dispatch model instead of module imports.
package builder

import (
	"fmt"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
)

// ContractInfo is one contract/interface/library declaration plus its
// resolved inheritance chain.
type ContractInfo struct {
	Node *graph.Node
	Name string
	Kind graph.NodeKind

	// BaseNames are the directly declared base names, in source
	// (declaration) order — the order C3 linearization must preserve.
	BaseNames []string

	// Linearization is the full C3-linearized ancestor chain, most-derived
	// (this contract) first. Populated by LinearizeAll.
	Linearization []string
}

// Registry indexes every contract/interface/library in a tree by name and
// holds their resolved linearizations.
type Registry struct {
	Contracts   map[string]*ContractInfo
	Diagnostics []string
}

// NewRegistry walks every root of every file in tree and indexes the
// contract-like declarations it finds.
func NewRegistry(tree graph.Tree) *Registry {
	r := &Registry{Contracts: make(map[string]*ContractInfo)}
	for _, file := range tree.Files() {
		for _, root := range tree.Roots(file) {
			if !isContractLike(root.Kind) {
				continue
			}
			info := &ContractInfo{Node: root, Name: root.Name, Kind: root.Kind}
			for _, spec := range root.ListField("baseContracts") {
				info.BaseNames = append(info.BaseNames, spec.Name)
			}
			r.Contracts[root.Name] = info
		}
	}
	r.linearizeAll()
	return r
}

func isContractLike(k graph.NodeKind) bool {
	return k == graph.KindContractDeclaration || k == graph.KindInterfaceDeclaration || k == graph.KindLibraryDeclaration
}

// linearizeAll computes the C3 linearization for every registered contract,
// memoizing as it goes since bases must be linearized before derivatives.
func (r *Registry) linearizeAll() {
	memo := make(map[string][]string)
	var resolve func(name string, inProgress map[string]bool) []string
	resolve = func(name string, inProgress map[string]bool) []string {
		if l, ok := memo[name]; ok {
			return l
		}
		info, ok := r.Contracts[name]
		if !ok {
			// Base not found in this tree (e.g. an external/library
			// dependency we never parsed) — treat as a leaf with itself only.
			return []string{name}
		}
		if inProgress[name] {
			r.Diagnostics = append(r.Diagnostics, fmt.Sprintf("inheritance cycle detected at %s", name))
			return []string{name}
		}
		inProgress[name] = true

		var baseLists [][]string
		for _, base := range info.BaseNames {
			baseLists = append(baseLists, resolve(base, inProgress))
		}
		baseLists = append(baseLists, append([]string{}, info.BaseNames...))

		merged, ok := c3Merge(baseLists)
		if !ok {
			r.Diagnostics = append(r.Diagnostics, fmt.Sprintf("%s: inconsistent inheritance hierarchy, falling back to declaration order", name))
			merged = fallbackOrder(info.BaseNames, baseLists)
		}
		result := append([]string{name}, merged...)
		memo[name] = result
		delete(inProgress, name)
		return result
	}

	for name := range r.Contracts {
		r.Contracts[name].Linearization = resolve(name, map[string]bool{})
	}
}

// c3Merge implements the classic C3 merge: repeatedly take the head of the
// first list that does not occur in the tail of any list, in declaration
// order (never alphabetically) — the REDESIGN-FLAG-corrected behavior this
// spec calls for, since Solidity's own linearization is declaration-order,
// not lexicographic.
func c3Merge(lists [][]string) ([]string, bool) {
	var result []string
	lists = cloneLists(lists)
	for {
		lists = dropEmpty(lists)
		if len(lists) == 0 {
			return result, true
		}
		var candidate string
		found := false
		for _, l := range lists {
			head := l[0]
			if !inAnyTail(head, lists) {
				candidate = head
				found = true
				break
			}
		}
		if !found {
			return result, false
		}
		result = append(result, candidate)
		lists = removeFromAllHeads(lists, candidate)
	}
}

func cloneLists(lists [][]string) [][]string {
	out := make([][]string, len(lists))
	for i, l := range lists {
		out[i] = append([]string{}, l...)
	}
	return out
}

func dropEmpty(lists [][]string) [][]string {
	var out [][]string
	for _, l := range lists {
		if len(l) > 0 {
			out = append(out, l)
		}
	}
	return out
}

func inAnyTail(name string, lists [][]string) bool {
	for _, l := range lists {
		for _, x := range l[1:] {
			if x == name {
				return true
			}
		}
	}
	return false
}

func removeFromAllHeads(lists [][]string, name string) [][]string {
	var out [][]string
	for _, l := range lists {
		if len(l) > 0 && l[0] == name {
			l = l[1:]
		}
		out = append(out, l)
	}
	return out
}

// fallbackOrder handles a genuine C3 conflict (diamond inheritance that
// can't be linearized consistently) by concatenating the base lists in
// declaration order and deduping, keeping first occurrence. Non-goal: no
// attempt to diagnose *why* the hierarchy conflicts beyond the one
// diagnostic message already recorded.
func fallbackOrder(baseNames []string, baseLists [][]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range baseLists {
		for _, name := range l {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// ResolveVirtual returns the FunctionDefinition/ModifierDefinition node that
// a virtual call to funcName dispatches to when made from within fromContract
// — the most-derived override in fromContract's own linearization.
func (r *Registry) ResolveVirtual(fromContract, funcName string) *graph.Node {
	info, ok := r.Contracts[fromContract]
	if !ok {
		return nil
	}
	return r.findInChain(info.Linearization, funcName)
}

// ResolveSuper returns the function a `super.funcName()` call resolves to:
// the first definition in fromContract's linearization *after* fromContract
// itself.
func (r *Registry) ResolveSuper(fromContract, funcName string) *graph.Node {
	info, ok := r.Contracts[fromContract]
	if !ok || len(info.Linearization) < 2 {
		return nil
	}
	return r.findInChain(info.Linearization[1:], funcName)
}

// ResolveThis is identical to ResolveVirtual: a `this.funcName()` call in
// Solidity still dispatches virtually, since `this` is the running contract.
func (r *Registry) ResolveThis(fromContract, funcName string) *graph.Node {
	return r.ResolveVirtual(fromContract, funcName)
}

func (r *Registry) findInChain(chain []string, funcName string) *graph.Node {
	for _, contractName := range chain {
		info, ok := r.Contracts[contractName]
		if !ok {
			continue
		}
		for _, member := range info.Node.ListField("members") {
			if (member.Kind == graph.KindFunctionDefinition || member.Kind == graph.KindModifierDefinition) && member.Name == funcName {
				return member
			}
		}
	}
	return nil
}

// FindMember looks up a member (function, modifier, state var) declared
// directly on contractName, ignoring inheritance.
func (r *Registry) FindMember(contractName, memberName string) *graph.Node {
	info, ok := r.Contracts[contractName]
	if !ok {
		return nil
	}
	for _, member := range info.Node.ListField("members") {
		if member.Name == memberName {
			return member
		}
	}
	return nil
}
