package repo

import (
	"context"

	"github.com/solidstack/podspace/pkg/object"
	"github.com/solidstack/podspace/pkg/semslot"
	"github.com/solidstack/podspace/pkg/space"
)

// BasicRepo is the default Repo Core implementation: a storage space backed
// by one Object Store, with its Association and TokenResolver wired
// together. Higher layers (pkg/repolayers, pkg/access) wrap a Repo value
// rather than a *BasicRepo concretely, so this type need not be exported
// beyond its constructor.
type BasicRepo struct {
	sp        *space.Space
	codec     *semslot.Codec
	assoc     *object.Association
	store     object.Store
	resolver  *TokenResolver
	uriPolicy *URIPolicy
}

// New builds a BasicRepo over the given storage space and backend store.
func New(sp *space.Space, store object.Store) *BasicRepo {
	codec := semslot.New(sp)
	assoc := object.NewAssociation(sp, codec)
	return &BasicRepo{
		sp:        sp,
		codec:     codec,
		assoc:     assoc,
		store:     store,
		resolver:  NewTokenResolver(sp, codec, assoc, store),
		uriPolicy: NewURIPolicy(sp, codec),
	}
}

// Space returns the storage space this repo serves.
func (r *BasicRepo) Space() *space.Space { return r.sp }

// Resolve derives the current StatusToken for uri.
func (r *BasicRepo) Resolve(ctx context.Context, uri string) (StatusToken, error) {
	return r.resolver.Resolve(ctx, uri)
}

var _ Repo = (*BasicRepo)(nil)
