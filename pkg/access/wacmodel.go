package access

import "github.com/solidstack/podspace/pkg/rdf"

// Standard WAC vocabulary IRIs (no simplification here: unlike the ACP
// rendering above, WAC's real vocabulary is flat enough to parse directly
// per spec §4.6.2's listed acl:Authorization/acl:accessTo/acl:default/
// acl:agent/acl:agentClass/acl:origin/acl:mode predicates).
const (
	wacAuthorization = aclNS + "Authorization"
	predAccessTo     = aclNS + "accessTo"
	predDefault      = aclNS + "default"
	predWACAgent     = aclNS + "agent"
	predAgentClass   = aclNS + "agentClass"
	predWACOrigin    = aclNS + "origin"
	predMode         = aclNS + "mode"

	foafAgent = "http://xmlns.com/foaf/0.1/Agent"
	// AuthenticatedAgentClass is acl:AuthenticatedAgent, the agentClass
	// value matching any authenticated request.
	AuthenticatedAgentClass = aclNS + "AuthenticatedAgent"
)

// Authorization is one parsed acl:Authorization entry.
type Authorization struct {
	AccessTo    []string
	Default     []string
	Agents      []string
	AgentClass  []string
	Origins     []string
	Modes       ModeSet
}

// Satisfied reports whether auth's agent/agentClass/origin restrictions
// match ctx. An authorization with no agent/agentClass restriction at all
// matches nobody (WAC requires at least one of acl:agent, acl:agentClass,
// acl:agentGroup to be present; agentGroup is not modelled here as no
// retrieved example introduces a group-membership store to ground it on).
func (a Authorization) Satisfied(ctx Context) bool {
	if len(a.Agents) == 0 && len(a.AgentClass) == 0 {
		return false
	}
	matched := false
	for _, agent := range a.Agents {
		if ctx.Authenticated && agent == ctx.WebID {
			matched = true
		}
	}
	for _, class := range a.AgentClass {
		switch class {
		case foafAgent:
			matched = true
		case AuthenticatedAgentClass:
			if ctx.Authenticated {
				matched = true
			}
		}
	}
	if !matched {
		return false
	}
	if len(a.Origins) > 0 {
		originOK := false
		for _, o := range a.Origins {
			if o == ctx.Origin {
				originOK = true
			}
		}
		if !originOK {
			return false
		}
	}
	return true
}

// parseAuthorizations extracts every acl:Authorization subject in g.
func parseAuthorizations(g rdf.Graph) []Authorization {
	if g == nil {
		return nil
	}
	var out []Authorization
	for _, subj := range subjectsOfType(g, wacAuthorization) {
		a := Authorization{Modes: ModeSet{}}
		for _, o := range objectsOf(g, subj, predAccessTo) {
			a.AccessTo = append(a.AccessTo, o.Value)
		}
		for _, o := range objectsOf(g, subj, predDefault) {
			a.Default = append(a.Default, o.Value)
		}
		for _, o := range objectsOf(g, subj, predWACAgent) {
			a.Agents = append(a.Agents, o.Value)
		}
		for _, o := range objectsOf(g, subj, predAgentClass) {
			a.AgentClass = append(a.AgentClass, o.Value)
		}
		for _, o := range objectsOf(g, subj, predWACOrigin) {
			a.Origins = append(a.Origins, o.Value)
		}
		for _, o := range objectsOf(g, subj, predMode) {
			a.Modes[Mode(o.Value)] = true
		}
		out = append(out, a)
	}
	return out
}

// directAuthorizations returns the subset of auths that apply directly
// (acl:accessTo) to targetURI.
func directAuthorizations(auths []Authorization, targetURI string) []Authorization {
	var out []Authorization
	for _, a := range auths {
		for _, u := range a.AccessTo {
			if u == targetURI {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// defaultAuthorizations returns the subset of auths marked acl:default on
// the given container URI, inherited by its members.
func defaultAuthorizations(auths []Authorization, containerURI string) []Authorization {
	var out []Authorization
	for _, a := range auths {
		for _, u := range a.Default {
			if u == containerURI {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// evaluateWAC grants mode M iff at least one satisfied authorization lists
// M. WAC has no explicit deny: absence of a grant is the only form of
// denial (spec §4.6.2).
func evaluateWAC(auths []Authorization, ctx Context) ModeSet {
	out := ModeSet{}
	for _, a := range auths {
		if !a.Satisfied(ctx) {
			continue
		}
		for m := range a.Modes {
			out[m] = true
		}
	}
	return out
}
