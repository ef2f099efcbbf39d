// Package access implements the Access-Control Triad (§4.6): the Policy
// Retrieval Point (PRP) that walks a target's ACR-chain of ancestors, two
// interchangeable Policy Decision Points (ACP and WAC semantics), the
// Policy Enforcement Point that maps repo operations to required modes,
// and a Layered Access-Controlled Repo that wraps any repo.Repo with the
// PEP. Grounded on the teacher's pkg/rbac (Checker/PermissionMiddleware
// PDP/PEP-shaped pair) for the Go interface idiom, and on
// fcrates/acp/src/engine.rs plus manas_access_control's pdp/impl_/{acp,wac}
// (original_source) for the exact chain-walk and policy-satisfaction
// algorithms.
package access

// Mode is one of the four WAC/ACP access modes, named by their full IRI so
// that parsed acl:mode triples map onto it directly.
type Mode string

const (
	aclNS = "http://www.w3.org/ns/auth/acl#"

	// ModeRead grants read access.
	ModeRead Mode = aclNS + "Read"
	// ModeAppend grants append-only write access.
	ModeAppend Mode = aclNS + "Append"
	// ModeWrite grants full write access (implies Append in practice, but
	// the two are tracked independently per §4.6.3's least-privilege map).
	ModeWrite Mode = aclNS + "Write"
	// ModeControl grants the ability to manage the resource's own access
	// control resource.
	ModeControl Mode = aclNS + "Control"
)

// ModeSet is a set of granted (or required) access modes.
type ModeSet map[Mode]bool

// NewModeSet builds a ModeSet from a list of modes.
func NewModeSet(modes ...Mode) ModeSet {
	s := make(ModeSet, len(modes))
	for _, m := range modes {
		s[m] = true
	}
	return s
}

// AllModes returns the full set of supported access modes.
func AllModes() ModeSet {
	return NewModeSet(ModeRead, ModeAppend, ModeWrite, ModeControl)
}

// Has reports whether m contains mode.
func (m ModeSet) Has(mode Mode) bool { return m[mode] }

// Union returns the union of m and o, leaving both unmodified.
func (m ModeSet) Union(o ModeSet) ModeSet {
	out := make(ModeSet, len(m)+len(o))
	for k := range m {
		out[k] = true
	}
	for k := range o {
		out[k] = true
	}
	return out
}

// IsSubsetOf reports whether every mode in m is also present in o.
func (m ModeSet) IsSubsetOf(o ModeSet) bool {
	for k := range m {
		if !o[k] {
			return false
		}
	}
	return true
}

// Slice returns m's modes in a stable, deterministic order (useful for
// rendering the Wac-Allow header).
func (m ModeSet) Slice() []Mode {
	out := make([]Mode, 0, len(m))
	for _, candidate := range []Mode{ModeRead, ModeAppend, ModeWrite, ModeControl} {
		if m[candidate] {
			out = append(out, candidate)
		}
	}
	return out
}
