package access

import (
	"context"
	"fmt"

	"github.com/solidstack/podspace/pkg/semslot"
	"github.com/solidstack/podspace/pkg/space"
)

// PDP is the Policy Decision Point (§4.6.2): given a resolved target URI
// and request context, it returns the set of access modes granted to
// that context. Two interchangeable implementations are provided —
// NewACPPDP and NewWACPDP — selected per storage.
type PDP interface {
	Resolve(ctx context.Context, targetURI string, rc Context) (ModeSet, error)
}

// evaluator combines a target's own ACR and its Contains-ancestors' ACRs
// (the chain beyond the first item) into a granted ModeSet. ACP
// accumulates policies from every ancestor; WAC falls back to the
// nearest ancestor whose ACL actually exists.
type evaluator func(own ChainItem, ancestors []ChainItem, rc Context) ModeSet

// chainPDP implements the chain-walk dispatch shared by ACP and WAC
// (§4.6.2's "Edges" list): an auxiliary edge at the target itself is
// handled specially per its AccessResolutionRole before ever consulting
// the ancestor chain; everything else defers to the PRP and an evaluator.
type chainPDP struct {
	sp    *space.Space
	codec *semslot.Codec
	prp   *PRP
	eval  evaluator
}

// NewACPPDP builds a PDP implementing ACP resolution semantics.
func NewACPPDP(sp *space.Space, codec *semslot.Codec, prp *PRP) PDP {
	return &chainPDP{sp: sp, codec: codec, prp: prp, eval: acpEvaluate}
}

// NewWACPDP builds a PDP implementing WAC resolution semantics.
func NewWACPDP(sp *space.Space, codec *semslot.Codec, prp *PRP) PDP {
	return &chainPDP{sp: sp, codec: codec, prp: prp, eval: wacEvaluate}
}

func (d *chainPDP) Resolve(ctx context.Context, targetURI string, rc Context) (ModeSet, error) {
	proc, err := d.codec.Decode(targetURI)
	if err != nil {
		return nil, fmt.Errorf("access: pdp: %w", err)
	}

	if len(proc) > 0 {
		last := proc[len(proc)-1]
		if last.StepKind == semslot.Aux {
			kind, ok := d.sp.AuxPolicy().Lookup(last.RelType)
			if !ok {
				return nil, fmt.Errorf("access: pdp: unknown aux rel type %q", last.RelType)
			}
			subjectURI, err := d.codec.Encode(proc[:len(proc)-1])
			if err != nil {
				return nil, err
			}
			switch kind.Role {
			case space.Independent:
				own, bound, err := d.prp.fetcher.FetchACR(ctx, targetURI)
				if err != nil {
					return nil, err
				}
				return d.eval(ChainItem{SlotURI: targetURI, ACR: own, Bound: bound}, nil, rc), nil
			case space.SubjectResource:
				// The aux resource's grants are identical to its
				// subject's; resolve for the subject and return
				// directly (spec §4.6.2).
				return d.Resolve(ctx, subjectURI, rc)
			case space.SubjectResourceControl:
				subjGrants, err := d.Resolve(ctx, subjectURI, rc)
				if err != nil {
					return nil, err
				}
				if subjGrants.Has(ModeControl) {
					return AllModes(), nil
				}
				// Never leak any other subject grant.
				return ModeSet{}, nil
			}
		}
	}

	chain, err := d.prp.Chain(ctx, targetURI)
	if err != nil {
		return nil, err
	}
	own := chain[0]
	var ancestors []ChainItem
	if len(chain) > 1 {
		ancestors = chain[1:]
	}
	return d.eval(own, ancestors, rc), nil
}

// acpEvaluate accumulates every satisfied policy across the target's own
// direct access controls and every ancestor's member access controls
// (spec §4.6.2, "ACP resolution").
func acpEvaluate(own ChainItem, ancestors []ChainItem, rc Context) ModeSet {
	var ownACR, inherited []Policy
	if own.Bound {
		ownACR = gatherOwnACPPolicies(own.ACR)
	}
	for _, a := range ancestors {
		if a.Bound {
			inherited = append(inherited, gatherMemberACPPolicies(a.ACR)...)
		}
	}
	return evaluateACP(ownACR, inherited, rc)
}

// wacEvaluate uses the target's own ACL if bound (its accessTo
// authorizations), else falls back to the nearest ancestor whose ACL
// exists, using that ancestor's default authorizations (spec §4.6.2,
// "WAC resolution").
func wacEvaluate(own ChainItem, ancestors []ChainItem, rc Context) ModeSet {
	if own.Bound {
		auths := parseAuthorizations(own.ACR)
		return evaluateWAC(directAuthorizations(auths, own.SlotURI), rc)
	}
	for _, a := range ancestors {
		if !a.Bound {
			continue
		}
		auths := parseAuthorizations(a.ACR)
		return evaluateWAC(defaultAuthorizations(auths, a.SlotURI), rc)
	}
	return ModeSet{}
}
