// Package repolayers implements the Derived-Content & Patch Layers
// (§4.7): composable repo.Repo wrappers that transform representations on
// the way out — RDF content negotiation and constant-content override —
// without touching persistent state. Grounded on the teacher's
// decorator-wraps-an-inner-store idiom (pkg/storage/postgres/cache.go:
// the Redis cache wraps an inner storage.Storage and transforms/delegates
// calls), applied here to response transformation instead of caching.
package repolayers

import "context"

// NegotiationParams carries the per-request inputs the layers in this
// package need but that repo.Reader's signature has no room for. The HTTP
// method service stores these on the request context before calling
// repo.Repo.Read; pkg/access's LayeredRepo and pkg/repo's BasicRepo both
// ignore context values they don't recognise, so this composes cleanly
// above or below the access-control layer.
type NegotiationParams struct {
	// Accept is the request's raw Accept header value.
	Accept string
}

type negotiationContextKey struct{}

// WithNegotiation returns a derived context carrying p.
func WithNegotiation(ctx context.Context, p NegotiationParams) context.Context {
	return context.WithValue(ctx, negotiationContextKey{}, p)
}

// negotiationFromContext recovers the NegotiationParams stored by
// WithNegotiation, defaulting to the zero value (no Accept preference,
// so every layer in this package passes representations through
// unchanged).
func negotiationFromContext(ctx context.Context) NegotiationParams {
	if p, ok := ctx.Value(negotiationContextKey{}).(NegotiationParams); ok {
		return p
	}
	return NegotiationParams{}
}
