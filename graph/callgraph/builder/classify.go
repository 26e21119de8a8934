package builder

import "github.com/shivasurya/code-pathfinder/sast-engine/graph"

// CallKind tags a call site per spec.md §4.4's classification table.
type CallKind string

const (
	CallKindInternal      CallKind = "internal"
	CallKindSuper         CallKind = "super"
	CallKindThis          CallKind = "this"
	CallKindInterface     CallKind = "interface"
	CallKindLowLevelCall  CallKind = "low_level_call"
	CallKindTransfer      CallKind = "transfer"
	CallKindBuiltIn       CallKind = "built_in"
	CallKindExternal      CallKind = "external"
	CallKindUnresolved    CallKind = "unresolved"
)

var lowLevelCallMembers = map[string]bool{
	"call": true, "delegatecall": true, "staticcall": true,
}

var transferMembers = map[string]bool{"transfer": true, "send": true}

var builtInNames = map[string]bool{
	"require": true, "assert": true, "revert": true,
	"keccak256": true, "sha256": true, "ripemd160": true, "ecrecover": true,
	"addmod": true, "mulmod": true, "selfdestruct": true, "blockhash": true,
	"gasleft": true,
}

// Classification is the result of classifying one CallExpression node.
type Classification struct {
	Kind       CallKind
	CalleeName string // the bare function/member name being invoked
	ObjectName string // for member calls, the base identifier ("super", "this", a variable/contract name)
}

// ClassifyCall inspects a CallExpression's callee and returns its
// classification. It never errors: an unrecognized shape classifies as
// CallKindUnresolved rather than aborting (§7).
func ClassifyCall(call *graph.Node) Classification {
	if call == nil || call.Kind != graph.KindCallExpression {
		return Classification{Kind: CallKindUnresolved}
	}
	callee := call.Field("callee")
	switch {
	case callee == nil:
		return Classification{Kind: CallKindUnresolved}

	case callee.Kind == graph.KindIdentifier:
		if builtInNames[callee.Name] {
			return Classification{Kind: CallKindBuiltIn, CalleeName: callee.Name}
		}
		return Classification{Kind: CallKindInternal, CalleeName: callee.Name}

	case callee.Kind == graph.KindMemberExpression:
		object := callee.Field("object")
		member := callee.Name

		if object != nil && object.Kind == graph.KindIdentifier {
			switch object.Name {
			case "super":
				return Classification{Kind: CallKindSuper, CalleeName: member, ObjectName: "super"}
			case "this":
				return Classification{Kind: CallKindThis, CalleeName: member, ObjectName: "this"}
			case "abi":
				return Classification{Kind: CallKindBuiltIn, CalleeName: member, ObjectName: "abi"}
			}
		}

		if lowLevelCallMembers[member] {
			return Classification{Kind: CallKindLowLevelCall, CalleeName: member, ObjectName: objectName(object)}
		}
		if transferMembers[member] {
			return Classification{Kind: CallKindTransfer, CalleeName: member, ObjectName: objectName(object)}
		}

		return Classification{Kind: CallKindExternal, CalleeName: member, ObjectName: objectName(object)}

	default:
		return Classification{Kind: CallKindUnresolved}
	}
}

// RefineWithType upgrades an External classification to Interface when
// declaredType names an interface declaration in registry — the one piece
// of name-based type recognition spec.md §1 keeps in scope ("no type
// inference beyond name-based contract/interface recognition").
func RefineWithType(c Classification, declaredType string, registry *Registry) Classification {
	if c.Kind != CallKindExternal || declaredType == "" || registry == nil {
		return c
	}
	if info, ok := registry.Contracts[declaredType]; ok && info.Kind == graph.KindInterfaceDeclaration {
		c.Kind = CallKindInterface
	}
	return c
}

func objectName(n *graph.Node) string {
	if n == nil {
		return ""
	}
	if n.Kind == graph.KindIdentifier {
		return n.Name
	}
	return ""
}

// IsExternalCall reports whether a classified call site can transfer control
// to code outside the analyzed contract's trust boundary — the predicate
// reentrancy-style queries (see the supplemented CEI queries) are built on.
// Per spec.md's non-goals, this never attempts sound delegatecall target
// modeling: delegatecall is classified as a low-level call like any other.
func IsExternalCall(c Classification, registry *Registry, fromContract string) bool {
	switch c.Kind {
	case CallKindLowLevelCall, CallKindTransfer, CallKindInterface:
		return true
	case CallKindInternal, CallKindSuper, CallKindThis, CallKindBuiltIn:
		return false
	case CallKindExternal:
		// A member call on a known library type (SafeMath, Address, ...) used
		// as a value type isn't a cross-contract jump; anything else
		// (an interface-typed variable, an arbitrary contract reference) is.
		if _, ok := knownLibraryCalls[c.ObjectName+"."+c.CalleeName]; ok {
			return knownLibraryCalls[c.ObjectName+"."+c.CalleeName].IsExternalCall
		}
		return true
	default:
		return false
	}
}
