package access

import (
	"context"

	"github.com/solidstack/podspace/pkg/space"
)

// Operation is a generalised resource operation the PEP maps to a
// required ModeSet via the storage's least-privilege map (§4.6.3).
type Operation int

const (
	// OpRead is a read of an existing representation.
	OpRead Operation = iota
	// OpAppend is an append-only write (a patch whose inserts are non-empty
	// and whose deletes are empty).
	OpAppend
	// OpWrite is a full-body write or a patch with non-empty deletes.
	OpWrite
	// OpCreate is creation of a new child resource under a container.
	OpCreate
	// OpDelete is removal of an existing resource.
	OpDelete
)

func (o Operation) String() string {
	switch o {
	case OpRead:
		return "READ"
	case OpAppend:
		return "APPEND"
	case OpWrite:
		return "WRITE"
	case OpCreate:
		return "CREATE"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// LeastPrivilegeMap maps each Operation to its minimally required modes.
type LeastPrivilegeMap map[Operation]ModeSet

// DefaultLeastPrivilegeMap returns the mapping described in §4.6.3:
// READ->{Read}, APPEND->{Append}, WRITE/CREATE/DELETE->{Write}.
func DefaultLeastPrivilegeMap() LeastPrivilegeMap {
	return LeastPrivilegeMap{
		OpRead:   NewModeSet(ModeRead),
		OpAppend: NewModeSet(ModeAppend),
		OpWrite:  NewModeSet(ModeWrite),
		OpCreate: NewModeSet(ModeWrite),
		OpDelete: NewModeSet(ModeWrite),
	}
}

// ActionOpList bundles the target URI an HTTP method service is about to
// act on with the non-empty vector of operations it justifies.
type ActionOpList struct {
	TargetURI string
	Ops       []Operation
}

// ResolvedAccessControl records one operation's grants, for the HTTP
// marshaller to render as the Wac-Allow header and for dev-mode error
// bodies to surface (spec §4.6.3, §6).
type ResolvedAccessControl struct {
	TargetURI   string
	Credentials Context
	Granted     ModeSet
}

// Decision is the PEP's verdict for one ActionOpList.
type Decision struct {
	Allowed   bool
	Resolved  ResolvedAccessControl
	DeniedOps []Operation
}

// PEP is the Policy Enforcement Point (§4.6.3): it resolves grants via a
// PDP, applies the storage-owner carve-outs on the root and root ACR, and
// reports which (if any) of the requested operations are denied.
type PEP struct {
	pdp            PDP
	lpm            LeastPrivilegeMap
	ownerWebID     string
	rootURI        string
	rootACRURI     string
	ownerRootGrant ModeSet
}

// NewPEP builds a PEP over pdp, enforcing lpm, with ownerRootGrant unioned
// into the storage owner's grants on the root resource (and, if it
// includes Control, the full supported mode set on the root's ACR, so the
// owner can never lock themselves out — spec §4.6.3).
func NewPEP(sp *space.Space, pdp PDP, lpm LeastPrivilegeMap, ownerRootGrant ModeSet) *PEP {
	return &PEP{
		pdp:            pdp,
		lpm:            lpm,
		ownerWebID:     sp.OwnerID(),
		rootURI:        sp.RootURI(),
		rootACRURI:     sp.RootURI() + "._aux/" + sp.AccessControlRelType(),
		ownerRootGrant: ownerRootGrant,
	}
}

// Enforce resolves grants for ops.TargetURI under creds and decides
// whether every operation in ops.Ops is permitted.
func (p *PEP) Enforce(ctx context.Context, ops ActionOpList, creds Context) (Decision, error) {
	granted, err := p.pdp.Resolve(ctx, ops.TargetURI, creds)
	if err != nil {
		return Decision{}, err
	}

	if creds.Authenticated && creds.WebID == p.ownerWebID {
		if ops.TargetURI == p.rootURI {
			granted = granted.Union(p.ownerRootGrant)
		}
		if ops.TargetURI == p.rootACRURI && p.ownerRootGrant.Has(ModeControl) {
			granted = granted.Union(AllModes())
		}
	}

	var denied []Operation
	for _, op := range ops.Ops {
		if !p.lpm[op].IsSubsetOf(granted) {
			denied = append(denied, op)
		}
	}

	return Decision{
		Allowed: len(denied) == 0,
		Resolved: ResolvedAccessControl{
			TargetURI:   ops.TargetURI,
			Credentials: creds,
			Granted:     granted,
		},
		DeniedOps: denied,
	}, nil
}
