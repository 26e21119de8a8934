package builder

// LibraryCallInfo describes how a well-known OpenZeppelin-style library call
// behaves for taint purposes, since its source isn't part of the analyzed
// tree: whether it forwards taint from its arguments to its result,
// whether it counts as an external call, and whether it sanitizes (clears)
// taint on its result. Sanitizes is carried but not read: analysis/taint's
// sanitizer predicate does not consult this table, and no built-in entry
// sets it.
type LibraryCallInfo struct {
	Propagates     bool
	IsExternalCall bool
	Sanitizes      bool
}

// knownLibraryCalls is keyed "ReceiverOrLibraryName.member". Only the
// handful of calls spec.md names explicitly (SafeMath, Address, ECDSA,
// SafeERC20) are modeled; anything else falls through to the generic
// external/internal classification.
var knownLibraryCalls = map[string]LibraryCallInfo{
	"SafeMath.add": {Propagates: true},
	"SafeMath.sub": {Propagates: true},
	"SafeMath.mul": {Propagates: true},
	"SafeMath.div": {Propagates: true},
	"SafeMath.mod": {Propagates: true},

	"Address.isContract":   {Propagates: false},
	"Address.sendValue":    {Propagates: true, IsExternalCall: true},
	"Address.functionCall": {Propagates: true, IsExternalCall: true},

	"ECDSA.recover":        {Propagates: true},
	"ECDSA.toEthSignedMessageHash": {Propagates: true},

	"SafeERC20.safeTransfer":     {Propagates: true, IsExternalCall: true},
	"SafeERC20.safeTransferFrom": {Propagates: true, IsExternalCall: true},
	"SafeERC20.safeApprove":      {Propagates: true, IsExternalCall: true},
}

// LookupKnownLibraryCall reports the modeled behavior for a
// "receiver.member" call, if any is known.
func LookupKnownLibraryCall(receiver, member string) (LibraryCallInfo, bool) {
	info, ok := knownLibraryCalls[receiver+"."+member]
	return info, ok
}

// RegisterKnownLibraryCall adds or overrides an entry in the known-library
// table, for project-specific library flags loaded from pathfinder.yaml
// (see config.Config.KnownLibraries) that the built-in table doesn't cover.
func RegisterKnownLibraryCall(receiver, member string, info LibraryCallInfo) {
	knownLibraryCalls[receiver+"."+member] = info
}
