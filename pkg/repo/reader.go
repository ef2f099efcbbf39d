package repo

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/solidstack/podspace/pkg/object"
	"github.com/solidstack/podspace/pkg/rdf"
	"github.com/solidstack/podspace/pkg/space"
)

// Read implements Reader by stat-then-read against the backing store at
// the token's base path. Containers without their own representation
// object (ExistingNonRepresented) read back as text/turtle carrying only
// the synthesized triples described below, rather than erroring on a
// legitimate zero-body resource (compare the teacher's
// pkg/storage/filesystem.go directory listing fallback). Container representations also carry the LDP type and (per
// the context's ContainerPreference) containment triples synthesized by
// synthesizeContainerGraph — these are never persisted, only generated on
// the way out.
func (r *BasicRepo) Read(ctx context.Context, tok StatusToken) (Representation, error) {
	if !tok.Status.Exists() {
		return Representation{}, ErrNotFound
	}

	if tok.Kind == space.Container {
		return r.readContainer(ctx, tok)
	}

	path, err := r.assoc.BasePath(tok.Slug)
	if err != nil {
		return Representation{}, err
	}
	meta, body, err := r.store.Read(ctx, path, nil)
	if err != nil {
		if err == object.ErrNotFound {
			return Representation{}, ErrNotFound
		}
		return Representation{}, fmt.Errorf("repo: read %q: %w", tok.Slug, err)
	}
	contentType := meta.ContentType
	if contentType == "" {
		if override, ok := r.contentTypeOverride(ctx, tok.Slug); ok {
			contentType = override
		}
	}
	return Representation{
		ContentType:  contentType,
		Data:         body,
		ContentLen:   meta.ContentLength,
		ETag:         meta.ETag,
		LastModified: meta.LastModified,
		Kind:         tok.Kind,
	}, nil
}

// readContainer assembles a container's representation: its own stored
// body (if ExistingRepresented, e.g. the root container's description has
// one) union the synthesized LDP/containment graph, or the synthesized
// graph alone for ExistingNonRepresented containers.
func (r *BasicRepo) readContainer(ctx context.Context, tok StatusToken) (Representation, error) {
	var stored rdf.Graph
	var meta object.Metadata
	if tok.Status == ExistingRepresented {
		path, err := r.assoc.BasePath(tok.Slug)
		if err != nil {
			return Representation{}, err
		}
		var body io.ReadCloser
		meta, body, err = r.store.Read(ctx, path, nil)
		if err != nil {
			if err == object.ErrNotFound {
				return Representation{}, ErrNotFound
			}
			return Representation{}, fmt.Errorf("repo: read %q: %w", tok.Slug, err)
		}
		raw, err := io.ReadAll(body)
		body.Close()
		if err != nil {
			return Representation{}, fmt.Errorf("repo: read %q: %w", tok.Slug, err)
		}
		if len(raw) > 0 {
			stored, err = rdf.ParseTurtle(raw)
			if err != nil {
				return Representation{}, fmt.Errorf("repo: parse stored container body %q: %w", tok.Slug, err)
			}
		}
	}

	pref := containerPreferenceFromContext(ctx)
	synth, err := r.synthesizeContainerGraph(ctx, tok.Slug, pref)
	if err != nil {
		return Representation{}, fmt.Errorf("repo: synthesize container graph %q: %w", tok.Slug, err)
	}
	out := stored.Union(synth).Normalize()
	body := rdf.SerializeTurtle(out)

	etag := meta.ETag
	if etag != "" {
		etag = fmt.Sprintf("%s·containment(%d)", etag, pref)
	}
	return Representation{
		ContentType:  "text/turtle",
		Data:         io.NopCloser(bytes.NewReader(body)),
		ContentLen:   int64(len(body)),
		ETag:         etag,
		LastModified: meta.LastModified,
		Kind:         tok.Kind,
	}, nil
}
