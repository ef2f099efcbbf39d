package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solidstack/podspace/pkg/rdf"
	"github.com/solidstack/podspace/pkg/semslot"
	"github.com/solidstack/podspace/pkg/space"
)

// mapFetcher is an ACRFetcher backed by a plain map, keyed by subject URI,
// letting tests wire up an ancestor chain without a real repo.
type mapFetcher map[string]rdf.Graph

func (f mapFetcher) FetchACR(ctx context.Context, subjectURI string) (rdf.Graph, bool, error) {
	g, ok := f[subjectURI]
	if !ok {
		return nil, false, nil
	}
	return g, true, nil
}

func newACPSpace(t *testing.T) (*space.Space, *semslot.Codec) {
	t.Helper()
	sp, err := space.New("http://ex.org/", "http://alice.example/#i", space.DefaultAuxPolicy())
	require.NoError(t, err)
	return sp, semslot.New(sp)
}

// acpPolicyGraph builds a minimal ACR graph with one policy attached
// through predApplyPred (acp:apply for the ACR's own subject, or
// acp:applyMembers for its members) granting modes to PublicAgent.
func acpPolicyGraph(predApplyPred string, allow ...Mode) rdf.Graph {
	self := rdf.NewIRI("")
	policy := rdf.NewBlank("p")
	matcher := rdf.NewBlank("m")
	g := rdf.Graph{
		{Subject: self, Predicate: rdf.NewIRI(predApplyPred), Object: policy},
		{Subject: policy, Predicate: rdf.NewIRI(predAnyOf), Object: matcher},
		{Subject: matcher, Predicate: rdf.NewIRI(predAgent), Object: rdf.NewIRI(PublicAgent)},
	}
	for _, m := range allow {
		g = append(g, rdf.Triple{Subject: policy, Predicate: rdf.NewIRI(predAllow), Object: rdf.NewIRI(string(m))})
	}
	return g
}

func TestACPResolve_OwnACRGrantsDirectPolicy(t *testing.T) {
	sp, codec := newACPSpace(t)
	fetcher := mapFetcher{
		"http://ex.org/a/b": acpPolicyGraph(predApply, ModeRead, ModeWrite),
	}
	prp := NewPRP(sp, codec, fetcher, 0)
	pdp := NewACPPDP(sp, codec, prp)

	granted, err := pdp.Resolve(context.Background(), "http://ex.org/a/b", Context{})
	require.NoError(t, err)
	require.True(t, granted.Has(ModeRead))
	require.True(t, granted.Has(ModeWrite))
	require.False(t, granted.Has(ModeControl))
}

func TestACPResolve_InheritsMemberPolicyFromAncestor(t *testing.T) {
	sp, codec := newACPSpace(t)
	fetcher := mapFetcher{
		"http://ex.org/a/": acpPolicyGraph(predApplyMember, ModeRead),
	}
	prp := NewPRP(sp, codec, fetcher, 0)
	pdp := NewACPPDP(sp, codec, prp)

	granted, err := pdp.Resolve(context.Background(), "http://ex.org/a/b", Context{})
	require.NoError(t, err)
	require.True(t, granted.Has(ModeRead))
}

func TestACPResolve_DenyOverridesAllow(t *testing.T) {
	sp, codec := newACPSpace(t)
	self := rdf.NewIRI("")
	policy := rdf.NewBlank("p")
	matcher := rdf.NewBlank("m")
	g := rdf.Graph{
		{Subject: self, Predicate: rdf.NewIRI(predApply), Object: policy},
		{Subject: policy, Predicate: rdf.NewIRI(predAnyOf), Object: matcher},
		{Subject: matcher, Predicate: rdf.NewIRI(predAgent), Object: rdf.NewIRI(PublicAgent)},
		{Subject: policy, Predicate: rdf.NewIRI(predAllow), Object: rdf.NewIRI(string(ModeRead))},
		{Subject: policy, Predicate: rdf.NewIRI(predDeny), Object: rdf.NewIRI(string(ModeRead))},
	}
	fetcher := mapFetcher{"http://ex.org/a": g}
	prp := NewPRP(sp, codec, fetcher, 0)
	pdp := NewACPPDP(sp, codec, prp)

	granted, err := pdp.Resolve(context.Background(), "http://ex.org/a", Context{})
	require.NoError(t, err)
	require.False(t, granted.Has(ModeRead))
}

// TestACPResolve_MonotonicityWideningNeverReducesGrants exercises the §8
// "Monotonicity" property: adding a permitting policy to an ACR must never
// remove any grant the original ACR already produced.
func TestACPResolve_MonotonicityWideningNeverReducesGrants(t *testing.T) {
	sp, codec := newACPSpace(t)
	narrow := acpPolicyGraph(predApply, ModeRead)
	fetcherNarrow := mapFetcher{"http://ex.org/a": narrow}
	prpNarrow := NewPRP(sp, codec, fetcherNarrow, 0)
	before, err := NewACPPDP(sp, codec, prpNarrow).Resolve(context.Background(), "http://ex.org/a", Context{})
	require.NoError(t, err)

	wide := acpPolicyGraph(predApply, ModeRead, ModeWrite, ModeAppend)
	fetcherWide := mapFetcher{"http://ex.org/a": wide}
	prpWide := NewPRP(sp, codec, fetcherWide, 0)
	after, err := NewACPPDP(sp, codec, prpWide).Resolve(context.Background(), "http://ex.org/a", Context{})
	require.NoError(t, err)

	require.True(t, before.IsSubsetOf(after))
}

func TestWACResolve_OwnAccessToMatches(t *testing.T) {
	sp, codec := newACPSpace(t)
	subj := rdf.NewIRI("auth1")
	g := rdf.Graph{
		{Subject: subj, Predicate: rdf.NewIRI(rdfType), Object: rdf.NewIRI(wacAuthorization)},
		{Subject: subj, Predicate: rdf.NewIRI(predAccessTo), Object: rdf.NewIRI("http://ex.org/a")},
		{Subject: subj, Predicate: rdf.NewIRI(predAgentClass), Object: rdf.NewIRI(foafAgent)},
		{Subject: subj, Predicate: rdf.NewIRI(predMode), Object: rdf.NewIRI(string(ModeRead))},
	}
	fetcher := mapFetcher{"http://ex.org/a": g}
	prp := NewPRP(sp, codec, fetcher, 0)
	pdp := NewWACPDP(sp, codec, prp)

	granted, err := pdp.Resolve(context.Background(), "http://ex.org/a", Context{})
	require.NoError(t, err)
	require.True(t, granted.Has(ModeRead))
}

func TestWACResolve_FallsBackToNearestAncestorDefault(t *testing.T) {
	sp, codec := newACPSpace(t)
	subj := rdf.NewIRI("auth1")
	g := rdf.Graph{
		{Subject: subj, Predicate: rdf.NewIRI(rdfType), Object: rdf.NewIRI(wacAuthorization)},
		{Subject: subj, Predicate: rdf.NewIRI(predDefault), Object: rdf.NewIRI("http://ex.org/a/")},
		{Subject: subj, Predicate: rdf.NewIRI(predAgentClass), Object: rdf.NewIRI(foafAgent)},
		{Subject: subj, Predicate: rdf.NewIRI(predMode), Object: rdf.NewIRI(string(ModeRead))},
	}
	fetcher := mapFetcher{"http://ex.org/a/": g}
	prp := NewPRP(sp, codec, fetcher, 0)
	pdp := NewWACPDP(sp, codec, prp)

	granted, err := pdp.Resolve(context.Background(), "http://ex.org/a/b", Context{})
	require.NoError(t, err)
	require.True(t, granted.Has(ModeRead))
}

func TestWACResolve_NoMatchGrantsNothing(t *testing.T) {
	sp, codec := newACPSpace(t)
	prp := NewPRP(sp, codec, mapFetcher{}, 0)
	pdp := NewWACPDP(sp, codec, prp)

	granted, err := pdp.Resolve(context.Background(), "http://ex.org/a", Context{})
	require.NoError(t, err)
	require.Empty(t, granted)
}

// TestAuxSubjectResource_MirrorsSubjectGrants exercises the §8 "Aux
// SubjectResource equality" property: an aux resource with role
// SubjectResource (here, the "meta"/describedBy kind) must resolve to
// exactly the subject's own grants.
func TestAuxSubjectResource_MirrorsSubjectGrants(t *testing.T) {
	sp, codec := newACPSpace(t)
	fetcher := mapFetcher{
		"http://ex.org/a/": acpPolicyGraph(predApply, ModeRead, ModeWrite),
	}
	prp := NewPRP(sp, codec, fetcher, 0)
	pdp := NewACPPDP(sp, codec, prp)

	subjectGrants, err := pdp.Resolve(context.Background(), "http://ex.org/a/", Context{})
	require.NoError(t, err)

	auxURI := "http://ex.org/a/" + semslot.AuxDelim + "/" + space.AuxDescribedBy
	auxGrants, err := pdp.Resolve(context.Background(), auxURI, Context{})
	require.NoError(t, err)

	require.Equal(t, subjectGrants, auxGrants)
}

// TestAuxSubjectResourceControl_ProjectsFullOrNone exercises the §8 "Aux
// SubjectResourceControl projection" property: grants on the acr aux
// resource are either the full supported mode set (subject has Control) or
// empty (subject lacks Control) — never a leak of any other subject grant.
func TestAuxSubjectResourceControl_ProjectsFullOrNone(t *testing.T) {
	sp, codec := newACPSpace(t)

	withControl := mapFetcher{
		"http://ex.org/a/": acpPolicyGraph(predApply, ModeRead, ModeControl),
	}
	prp := NewPRP(sp, codec, withControl, 0)
	pdp := NewACPPDP(sp, codec, prp)
	auxURI := "http://ex.org/a/" + semslot.AuxDelim + "/" + space.AuxACR
	granted, err := pdp.Resolve(context.Background(), auxURI, Context{})
	require.NoError(t, err)
	require.Equal(t, AllModes(), granted)

	withoutControl := mapFetcher{
		"http://ex.org/a/": acpPolicyGraph(predApply, ModeRead, ModeWrite),
	}
	prp2 := NewPRP(sp, codec, withoutControl, 0)
	pdp2 := NewACPPDP(sp, codec, prp2)
	granted2, err := pdp2.Resolve(context.Background(), auxURI, Context{})
	require.NoError(t, err)
	require.Empty(t, granted2)
}

// TestAuxIndependent_IgnoresAncestors exercises the Independent role: an
// aux kind marked Independent resolves only against its own ACR, ignoring
// any ancestor policy that would otherwise grant modes by inheritance.
func TestAuxIndependent_IgnoresAncestors(t *testing.T) {
	sp, codec := newACPSpace(t)
	auxURI := "http://ex.org/a/" + semslot.AuxDelim + "/" + space.AuxContainerIndex
	fetcher := mapFetcher{
		"http://ex.org/":   acpPolicyGraph(predApplyMember, ModeRead, ModeWrite),
		"http://ex.org/a/": acpPolicyGraph(predApplyMember, ModeRead, ModeWrite),
	}
	prp := NewPRP(sp, codec, fetcher, 0)
	pdp := NewACPPDP(sp, codec, prp)

	granted, err := pdp.Resolve(context.Background(), auxURI, Context{})
	require.NoError(t, err)
	require.Empty(t, granted)
}
