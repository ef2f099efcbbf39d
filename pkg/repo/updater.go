package repo

import (
	"context"
	"fmt"
)

// Update implements Updater: it replaces the representation object at an
// existing (or newly-admissible) slug with req's body, mirroring the
// teacher's decorator-over-an-inner-store write path (pkg/storage/postgres
// /cache.go) but writing through to the backing object store directly
// since BasicRepo is the innermost layer.
func (r *BasicRepo) Update(ctx context.Context, tok StatusToken, req UpdateRequest) (StatusToken, error) {
	path, err := r.assoc.BasePath(tok.Slug)
	if err != nil {
		return StatusToken{}, err
	}
	if err := r.store.Write(ctx, path, req.Data, req.ContentType); err != nil {
		return StatusToken{}, fmt.Errorf("repo: update %q: %w", tok.Slug, err)
	}
	if err := r.writeContentTypeSidecar(ctx, tok.Slug, req.ContentType); err != nil {
		return StatusToken{}, fmt.Errorf("repo: update %q: content type sidecar: %w", tok.Slug, err)
	}
	if req.IsContainer {
		nsPath, err := r.assoc.AuxNamespacePath(tok.Slug)
		if err != nil {
			return StatusToken{}, err
		}
		if err := r.store.CreateNS(ctx, nsPath); err != nil {
			return StatusToken{}, err
		}
	}
	return r.resolver.Resolve(ctx, tok.Slug)
}
