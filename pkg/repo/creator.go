package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// maxSlugRetries bounds the number of slug candidates Create tries: the
// hint itself, then fresh disambiguating suffixes after each slug
// collision, mirroring the teacher's
// bounded-retry idiom in pkg/storage/postgres connection acquisition.
const maxSlugRetries = 5

// Create implements Creator: it resolves a non-conflicting child URI under
// containerTok, writes the request body at that URI's base path (and its
// aux namespace, for containers), and returns the freshly resolved token.
func (r *BasicRepo) Create(ctx context.Context, containerTok StatusToken, req CreateRequest) (StatusToken, error) {
	if !containerTok.Status.Exists() {
		return StatusToken{}, ErrNotFound
	}

	slugHint := req.SlugHint
	if slugHint == "" {
		slugHint = uuid.NewString()
	}

	var childURI string
	for attempt := 0; attempt < maxSlugRetries; attempt++ {
		hint := slugHint
		if attempt > 0 {
			hint = fmt.Sprintf("%s-%s", slugHint, uuid.NewString()[:8])
		}
		candidate, err := r.uriPolicy.SuggestURI(containerTok.Slug, hint, req.IsContainer)
		if err != nil {
			return StatusToken{}, err
		}
		tok, err := r.resolver.Resolve(ctx, candidate)
		if err != nil {
			return StatusToken{}, err
		}
		if !tok.Status.Exists() && tok.Status != NonExistingMutexExisting {
			childURI = candidate
			break
		}
	}
	if childURI == "" {
		return StatusToken{}, fmt.Errorf("repo: could not find a free slug under %q after %d attempts", containerTok.Slug, maxSlugRetries)
	}

	if err := r.purgeRemnants(ctx, childURI); err != nil {
		return StatusToken{}, fmt.Errorf("repo: create %q: purge remnants: %w", childURI, err)
	}

	path, err := r.assoc.BasePath(childURI)
	if err != nil {
		return StatusToken{}, err
	}
	if err := r.store.Write(ctx, path, req.Data, req.ContentType); err != nil {
		_ = r.purgeRemnants(ctx, childURI)
		return StatusToken{}, fmt.Errorf("repo: create %q: %w", childURI, err)
	}
	if err := r.writeContentTypeSidecar(ctx, childURI, req.ContentType); err != nil {
		_ = r.purgeRemnants(ctx, childURI)
		return StatusToken{}, fmt.Errorf("repo: create %q: content type sidecar: %w", childURI, err)
	}
	if req.IsContainer {
		nsPath, err := r.assoc.AuxNamespacePath(childURI)
		if err != nil {
			return StatusToken{}, err
		}
		if err := r.store.CreateNS(ctx, nsPath); err != nil {
			_ = r.purgeRemnants(ctx, childURI)
			return StatusToken{}, err
		}
	}

	return r.resolver.Resolve(ctx, childURI)
}
