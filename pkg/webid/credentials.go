// Package webid is the narrow credential-resolution seam the
// access-control triad consumes. Solid-OIDC/WebID/DPoP verification
// itself is an external collaborator out of this repository's scope
// (spec.md §1); this package defines the resolved-credential shape, the
// request-context plumbing that carries it from the HTTP edge to
// pkg/access, and (oidc.go) a bearer-token verifier for one issuer,
// following the "resolved-context-value-on-request-context"
// idiom of the teacher's pkg/middleware/auth.go (AuthMiddleware.Handler
// storing an *auth.AuthContext via context.WithValue), generalised from
// its opaque-API-token/org-scoped model to a bare WebID + origin + DPoP
// presence, which is all the ACP/WAC matchers in §4.6 actually consult.
package webid

import "context"

// Credentials is a resolved requester identity as the access-control
// triad needs it: the agent's WebID (empty for an unauthenticated
// request), the request's Origin header value (for ACP/WAC origin
// matchers), and whether the bearer token is DPoP-bound (BearerVerifier.
// Verify sets it when the token's cnf.jkt matches the thumbprint it is
// given; it does not validate the DPoP proof itself).
type Credentials struct {
	WebID         string
	Authenticated bool
	Origin        string
	DPoPBound     bool
}

// Public is the well-known credentials value for an unauthenticated
// request: grants resolve against foaf:Agent-class matchers only.
var Public = Credentials{}

type contextKey struct{}

// WithCredentials returns a derived context carrying c, for handlers
// downstream of the (out-of-scope) credential-resolution middleware.
func WithCredentials(ctx context.Context, c Credentials) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext recovers the Credentials stored by WithCredentials,
// defaulting to Public if none were set (an unauthenticated request).
func FromContext(ctx context.Context) Credentials {
	if c, ok := ctx.Value(contextKey{}).(Credentials); ok {
		return c
	}
	return Public
}
