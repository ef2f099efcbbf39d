package access

import (
	"github.com/solidstack/podspace/pkg/rdf"
)

// ACP vocabulary IRIs. A full ACP vocabulary (acp:resourceAccessControl /
// acp:memberAccessControl indirection through separate AccessControl
// resources, acp:client/acp:vc matchers, ...) is out of scope for the
// simplified N3 grammar this repository implements (spec.md explicitly
// sanctions "any parser that yields the same abstract patch structure");
// this is a direct, flattened rendering of the same resource/policy/
// matcher/mode shape described in spec §4.6.2, using acp:apply for
// policies applying directly to the ACR's subject and acp:applyMembers
// for policies that apply to its members by inheritance.
const (
	acpNS           = "http://www.w3.org/ns/solid/acp#"
	acpPolicy       = acpNS + "Policy"
	acpMatcher      = acpNS + "Matcher"
	predApply       = acpNS + "apply"
	predApplyMember = acpNS + "applyMembers"
	predAllow       = acpNS + "allow"
	predDeny        = acpNS + "deny"
	predAllOf       = acpNS + "allOf"
	predAnyOf       = acpNS + "anyOf"
	predNoneOf      = acpNS + "noneOf"
	predAgent       = acpNS + "agent"
	predOrigin      = acpNS + "origin"

	// PublicAgent matches every request, authenticated or not.
	PublicAgent = acpNS + "PublicAgent"
	// AuthenticatedAgent matches any request bearing valid credentials.
	AuthenticatedAgent = acpNS + "AuthenticatedAgent"

	rdfType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
)

// Matcher is one ACP matcher: a set of known attributes, each with a set
// of candidate values. A matcher is satisfied iff it defines at least one
// known attribute and every defined attribute has at least one value
// matching the context (spec §4.6.2).
type Matcher struct {
	Agents  []string
	Origins []string
}

func (m Matcher) hasAnyAttribute() bool {
	return len(m.Agents) > 0 || len(m.Origins) > 0
}

// Satisfied evaluates the matcher against a request context.
func (m Matcher) Satisfied(ctx Context) bool {
	if !m.hasAnyAttribute() {
		return false
	}
	if len(m.Agents) > 0 {
		matched := false
		for _, a := range m.Agents {
			switch a {
			case PublicAgent:
				matched = true
			case AuthenticatedAgent:
				matched = matched || ctx.Authenticated
			default:
				matched = matched || (ctx.Authenticated && a == ctx.WebID)
			}
		}
		if !matched {
			return false
		}
	}
	if len(m.Origins) > 0 {
		matched := false
		for _, o := range m.Origins {
			if o == ctx.Origin {
				matched = true
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Policy is one ACP policy: satisfied iff it references at least one
// matcher via allOf/anyOf, every allOf matcher is satisfied, at least one
// anyOf matcher is satisfied (vacuously true if none exist), and no noneOf
// matcher is satisfied.
type Policy struct {
	Allow  ModeSet
	Deny   ModeSet
	AllOf  []Matcher
	AnyOf  []Matcher
	NoneOf []Matcher
}

// Satisfied evaluates the policy's matcher groups against ctx.
func (p Policy) Satisfied(ctx Context) bool {
	if len(p.AllOf) == 0 && len(p.AnyOf) == 0 {
		return false
	}
	for _, m := range p.AllOf {
		if !m.Satisfied(ctx) {
			return false
		}
	}
	if len(p.AnyOf) > 0 {
		any := false
		for _, m := range p.AnyOf {
			if m.Satisfied(ctx) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	for _, m := range p.NoneOf {
		if m.Satisfied(ctx) {
			return false
		}
	}
	return true
}

// Context is the access context the PDP evaluates matchers against.
type Context struct {
	WebID         string
	Authenticated bool
	Origin        string
}

func subjectsOfType(g rdf.Graph, typeIRI string) []rdf.Term {
	var out []rdf.Term
	for _, t := range g {
		if t.Predicate.Kind == rdf.IRI && t.Predicate.Value == rdfType &&
			t.Object.Kind == rdf.IRI && t.Object.Value == typeIRI {
			out = append(out, t.Subject)
		}
	}
	return out
}

func objectsOf(g rdf.Graph, subj rdf.Term, pred string) []rdf.Term {
	var out []rdf.Term
	for _, t := range g {
		if t.Subject.Equal(subj) && t.Predicate.Kind == rdf.IRI && t.Predicate.Value == pred {
			out = append(out, t.Object)
		}
	}
	return out
}

func selfSubject() rdf.Term { return rdf.NewIRI("") }

func parseMatcher(g rdf.Graph, subj rdf.Term) Matcher {
	var m Matcher
	for _, o := range objectsOf(g, subj, predAgent) {
		m.Agents = append(m.Agents, o.Value)
	}
	for _, o := range objectsOf(g, subj, predOrigin) {
		m.Origins = append(m.Origins, o.Value)
	}
	return m
}

func parsePolicy(g rdf.Graph, subj rdf.Term) Policy {
	p := Policy{Allow: ModeSet{}, Deny: ModeSet{}}
	for _, o := range objectsOf(g, subj, predAllow) {
		p.Allow[Mode(o.Value)] = true
	}
	for _, o := range objectsOf(g, subj, predDeny) {
		p.Deny[Mode(o.Value)] = true
	}
	for _, o := range objectsOf(g, subj, predAllOf) {
		p.AllOf = append(p.AllOf, parseMatcher(g, o))
	}
	for _, o := range objectsOf(g, subj, predAnyOf) {
		p.AnyOf = append(p.AnyOf, parseMatcher(g, o))
	}
	for _, o := range objectsOf(g, subj, predNoneOf) {
		p.NoneOf = append(p.NoneOf, parseMatcher(g, o))
	}
	return p
}

// gatherOwnACPPolicies extracts the policies an ACR applies directly to
// its own subject resource.
func gatherOwnACPPolicies(g rdf.Graph) []Policy {
	if g == nil {
		return nil
	}
	var out []Policy
	for _, o := range objectsOf(g, selfSubject(), predApply) {
		out = append(out, parsePolicy(g, o))
	}
	return out
}

// gatherMemberACPPolicies extracts the policies an ACR applies to its
// subject's members (the ones inherited by contained resources).
func gatherMemberACPPolicies(g rdf.Graph) []Policy {
	if g == nil {
		return nil
	}
	var out []Policy
	for _, o := range objectsOf(g, selfSubject(), predApplyMember) {
		out = append(out, parsePolicy(g, o))
	}
	return out
}

// evaluateACP grants mode M iff at least one satisfied policy (among own
// and inherited) allows M and none denies M.
func evaluateACP(own, inherited []Policy, ctx Context) ModeSet {
	granted := ModeSet{}
	denied := ModeSet{}
	all := append(append([]Policy{}, own...), inherited...)
	for _, p := range all {
		if !p.Satisfied(ctx) {
			continue
		}
		for m := range p.Allow {
			granted[m] = true
		}
		for m := range p.Deny {
			denied[m] = true
		}
	}
	out := ModeSet{}
	for m := range granted {
		if !denied[m] {
			out[m] = true
		}
	}
	return out
}
