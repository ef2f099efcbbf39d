package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/solidstack/podspace/pkg/object"
	"github.com/solidstack/podspace/pkg/space"
)

// Delete implements Deleter per spec §4.5: the storage root and its root
// ACR may never be removed (ErrMethodNotAllowed), a non-empty container is
// rejected (ErrContainerNotEmpty), and every aux resource bound to the
// target is cascade-removed alongside the base object.
func (r *BasicRepo) Delete(ctx context.Context, tok StatusToken) error {
	if !tok.Status.Exists() {
		return ErrNotFound
	}
	if tok.Slug == r.sp.RootURI() {
		return ErrMethodNotAllowed
	}
	if rootACR := r.sp.RootURI() + "._aux/" + space.AuxACR; tok.Slug == rootACR {
		return ErrMethodNotAllowed
	}

	if tok.Kind == space.Container {
		basePath, err := r.assoc.BasePath(tok.Slug)
		if err != nil {
			return err
		}
		entries, err := r.store.List(ctx, basePath)
		if err != nil && err != object.ErrNotFound {
			return fmt.Errorf("repo: delete %q: list: %w", tok.Slug, err)
		}
		for _, e := range entries {
			if strings.Contains(e.Path, object.AuxNSDelim) || strings.Contains(e.Path, object.SidecarDelim) {
				continue
			}
			return ErrContainerNotEmpty
		}
	}

	auxNSPath, err := r.assoc.AuxNamespacePath(tok.Slug)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, auxNSPath); err != nil && err != object.ErrNotFound {
		return fmt.Errorf("repo: delete %q: cascade aux: %w", tok.Slug, err)
	}

	for _, kind := range []object.Kind{object.AltContent, object.AltFatMeta} {
		sidecarPath, err := r.assoc.SidecarPath(tok.Slug, kind)
		if err != nil {
			return err
		}
		if err := r.store.Delete(ctx, sidecarPath); err != nil && err != object.ErrNotFound {
			return fmt.Errorf("repo: delete %q: sidecar: %w", tok.Slug, err)
		}
	}

	basePath, err := r.assoc.BasePath(tok.Slug)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, basePath); err != nil && err != object.ErrNotFound {
		return fmt.Errorf("repo: delete %q: %w", tok.Slug, err)
	}
	return nil
}
