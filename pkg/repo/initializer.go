package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/solidstack/podspace/pkg/space"
)

// Initialize implements Initializer: idempotently provisions the storage
// root container and its mandatory non-access-control aux resources
// (description, container index) per spec §4.1/§4.5. Root ACR/ACL
// synthesis is deliberately left to the access-control layer
// (pkg/access's LayeredRepo), which wraps this call and injects a factory
// for the policy scheme it enforces — mirroring how the ACR is described
// in §4.6.4 rather than §4.5.
func (r *BasicRepo) Initialize(ctx context.Context) (bool, error) {
	changed := false

	rootURI := r.sp.RootURI()
	rootTok, err := r.resolver.Resolve(ctx, rootURI)
	if err != nil {
		return false, err
	}
	if !rootTok.Status.Exists() {
		basePath, err := r.assoc.BasePath(rootURI)
		if err != nil {
			return false, err
		}
		if err := r.store.CreateNS(ctx, basePath); err != nil {
			return false, fmt.Errorf("repo: initialize root: %w", err)
		}
		changed = true
	}

	descURI := rootURI + "._aux/" + space.AuxDescribedBy
	descTok, err := r.resolver.Resolve(ctx, descURI)
	if err != nil {
		return false, err
	}
	if !descTok.Status.Exists() {
		path, err := r.assoc.BasePath(descURI)
		if err != nil {
			return false, err
		}
		if err := r.store.Write(ctx, path, strings.NewReader(""), "text/turtle"); err != nil {
			return false, fmt.Errorf("repo: initialize description: %w", err)
		}
		changed = true
	}

	idxURI := rootURI + "._aux/" + space.AuxContainerIndex + "/"
	idxTok, err := r.resolver.Resolve(ctx, idxURI)
	if err != nil {
		return false, err
	}
	if !idxTok.Status.Exists() {
		nsPath, err := r.assoc.AuxNamespacePath(idxURI)
		if err != nil {
			return false, err
		}
		if err := r.store.CreateNS(ctx, nsPath); err != nil {
			return false, fmt.Errorf("repo: initialize container index: %w", err)
		}
		basePath, err := r.assoc.BasePath(idxURI)
		if err != nil {
			return false, err
		}
		if err := r.store.CreateNS(ctx, basePath); err != nil {
			return false, fmt.Errorf("repo: initialize container index: %w", err)
		}
		changed = true
	}

	return changed, nil
}
