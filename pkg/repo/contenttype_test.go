package repo

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCreateRecoverContentTypeAcrossReads exercises the fat-metadata
// sidecar round trip on the filesystem backend, which has no native
// content-type metadata: the content type given to Create must survive a
// later Read even though the backend itself never stores it.
func TestCreateRecoverContentTypeAcrossReads(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	_, err := r.Initialize(ctx)
	require.NoError(t, err)

	rootTok, err := r.Resolve(ctx, r.Space().RootURI())
	require.NoError(t, err)

	created, err := r.Create(ctx, rootTok, CreateRequest{
		SlugHint:    "note",
		ContentType: "application/json",
		Data:        bytes.NewReader([]byte(`{"ok":true}`)),
	})
	require.NoError(t, err)

	rep, err := r.Read(ctx, created)
	require.NoError(t, err)
	defer rep.Data.Close()
	require.Equal(t, "application/json", rep.ContentType)
}

// TestUpdateRecoversRevisedContentType confirms Update's sidecar write
// replaces the one Create wrote, rather than leaving a stale content
// type behind after a body's type changes.
func TestUpdateRecoversRevisedContentType(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	_, err := r.Initialize(ctx)
	require.NoError(t, err)

	rootTok, err := r.Resolve(ctx, r.Space().RootURI())
	require.NoError(t, err)

	created, err := r.Create(ctx, rootTok, CreateRequest{
		SlugHint:    "note",
		ContentType: "text/plain",
		Data:        bytes.NewReader([]byte("hello")),
	})
	require.NoError(t, err)

	updated, err := r.Update(ctx, created, UpdateRequest{
		ContentType: "application/json",
		Data:        bytes.NewReader([]byte(`{"ok":true}`)),
	})
	require.NoError(t, err)

	rep, err := r.Read(ctx, updated)
	require.NoError(t, err)
	defer rep.Data.Close()
	require.Equal(t, "application/json", rep.ContentType)
}

// TestCreateOverSameSlugPurgesPriorSidecar ensures a resource deleted and
// then recreated at the same slug with a different content type never
// observes the prior resource's leftover sidecar state.
func TestCreateOverSameSlugPurgesPriorSidecar(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	_, err := r.Initialize(ctx)
	require.NoError(t, err)

	rootTok, err := r.Resolve(ctx, r.Space().RootURI())
	require.NoError(t, err)

	first, err := r.Create(ctx, rootTok, CreateRequest{
		SlugHint:    "reused",
		ContentType: "application/json",
		Data:        bytes.NewReader([]byte(`{"ok":true}`)),
	})
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, first))

	gone, err := r.Resolve(ctx, first.Slug)
	require.NoError(t, err)
	require.False(t, gone.Status.Exists())

	second, err := r.Create(ctx, rootTok, CreateRequest{
		SlugHint:    "reused",
		ContentType: "text/plain",
		Data:        bytes.NewReader([]byte("hello")),
	})
	require.NoError(t, err)
	require.Equal(t, first.Slug, second.Slug)

	rep, err := r.Read(ctx, second)
	require.NoError(t, err)
	defer rep.Data.Close()
	require.Equal(t, "text/plain", rep.ContentType)
}
