package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/solidstack/podspace/pkg/object"
)

// writeContentTypeSidecar persists contentType in the alt-fat-metadata
// sidecar (§4.3, §6 "Persisted state layout") whenever the backing store
// has no native content-type metadata support, so a later Read can
// recover a content type the store itself would otherwise have silently
// dropped.
func (r *BasicRepo) writeContentTypeSidecar(ctx context.Context, uri, contentType string) error {
	if r.store.Capabilities().SupportsNativeContentTypeMetadata || contentType == "" {
		return nil
	}
	path, err := r.assoc.SidecarPath(uri, object.AltFatMeta)
	if err != nil {
		return err
	}
	var fm object.FatMetadata
	fm.Live.ContentType = contentType
	body, err := json.Marshal(fm)
	if err != nil {
		return err
	}
	return r.store.Write(ctx, path, bytes.NewReader(body), "application/json")
}

// contentTypeOverride reads back the content type recorded by
// writeContentTypeSidecar for a resource whose backend lacks native
// content-type metadata. The second return reports whether an override
// was found at all.
func (r *BasicRepo) contentTypeOverride(ctx context.Context, uri string) (string, bool) {
	if r.store.Capabilities().SupportsNativeContentTypeMetadata {
		return "", false
	}
	path, err := r.assoc.SidecarPath(uri, object.AltFatMeta)
	if err != nil {
		return "", false
	}
	_, body, err := r.store.Read(ctx, path, nil)
	if err != nil {
		return "", false
	}
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", false
	}
	var fm object.FatMetadata
	if err := json.Unmarshal(raw, &fm); err != nil || fm.Live.ContentType == "" {
		return "", false
	}
	return fm.Live.ContentType, true
}

// purgeRemnants removes every backend object a resource at uri might have
// left behind — its aux namespace, both sidecars, and its base object —
// ignoring "not found" on each. The Creator calls this before writing a
// fresh representation so a prior tombstoned resource at the same slot
// never leaks stale sidecar state into the new one (§4.5, §5 "creators
// MUST invoke purge_remnants on error before propagating").
func (r *BasicRepo) purgeRemnants(ctx context.Context, uri string) error {
	auxNSPath, err := r.assoc.AuxNamespacePath(uri)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, auxNSPath); err != nil && err != object.ErrNotFound {
		return err
	}
	for _, kind := range []object.Kind{object.AltContent, object.AltFatMeta} {
		sidecarPath, err := r.assoc.SidecarPath(uri, kind)
		if err != nil {
			return err
		}
		if err := r.store.Delete(ctx, sidecarPath); err != nil && err != object.ErrNotFound {
			return err
		}
	}
	basePath, err := r.assoc.BasePath(uri)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, basePath); err != nil && err != object.ErrNotFound {
		return err
	}
	return nil
}
