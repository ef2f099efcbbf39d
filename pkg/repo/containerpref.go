package repo

import "context"

// ContainerPreference selects how much of a container's representation
// the reader synthesizes (§4.5, Reader input).
type ContainerPreference int

const (
	// Minimal synthesizes only the container's own LDP type triples.
	Minimal ContainerPreference = iota
	// Containment additionally synthesizes ldp:contains triples naming
	// each direct member.
	Containment
	// All additionally synthesizes one rdf:type triple per member
	// (ldp:Container or ldp:Resource) alongside the containment triples;
	// member content types are not included.
	All
)

type containerPrefContextKey struct{}

// WithContainerPreference returns a derived context carrying pref, for the
// Reader to pick up via containerPreferenceFromContext.
func WithContainerPreference(ctx context.Context, pref ContainerPreference) context.Context {
	return context.WithValue(ctx, containerPrefContextKey{}, pref)
}

// containerPreferenceFromContext recovers the preference set by
// WithContainerPreference, defaulting to Minimal (HEAD's preference, and
// the safe default for callers that never set one).
func containerPreferenceFromContext(ctx context.Context) ContainerPreference {
	if p, ok := ctx.Value(containerPrefContextKey{}).(ContainerPreference); ok {
		return p
	}
	return Minimal
}
