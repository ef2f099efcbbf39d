package repolayers

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solidstack/podspace/pkg/object"
	"github.com/solidstack/podspace/pkg/repo"
	"github.com/solidstack/podspace/pkg/space"
)

func newTestInnerRepo(t *testing.T) (repo.Repo, repo.StatusToken) {
	t.Helper()
	store, err := object.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	sp, err := space.New("http://ex.org/", "http://alice.example/#i", space.DefaultAuxPolicy())
	require.NoError(t, err)
	inner := repo.New(sp, store)

	ctx := context.Background()
	_, err = inner.Initialize(ctx)
	require.NoError(t, err)
	rootTok, err := inner.Resolve(ctx, sp.RootURI())
	require.NoError(t, err)
	created, err := inner.Create(ctx, rootTok, repo.CreateRequest{
		SlugHint:    "a",
		ContentType: MimeTurtle,
		Data:        bytes.NewReader([]byte("<#x> a <#Y> .\n")),
	})
	require.NoError(t, err)
	return inner, created
}

func readBody(t *testing.T, rep repo.Representation) string {
	t.Helper()
	if rep.Data == nil {
		return ""
	}
	defer rep.Data.Close()
	b, err := io.ReadAll(rep.Data)
	require.NoError(t, err)
	return string(b)
}

func TestConnegRepo_PassthroughWhenAcceptMatchesStoredType(t *testing.T) {
	inner, tok := newTestInnerRepo(t)
	conneg := NewConnegRepo(inner)

	ctx := WithNegotiation(context.Background(), NegotiationParams{Accept: MimeTurtle})
	rep, err := conneg.Read(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, MimeTurtle, rep.ContentType)
	require.Contains(t, readBody(t, rep), "<#x>")
}

func TestConnegRepo_DerivesJSONLD(t *testing.T) {
	inner, tok := newTestInnerRepo(t)
	conneg := NewConnegRepo(inner)

	ctx := WithNegotiation(context.Background(), NegotiationParams{Accept: MimeJSONLD})
	rep, err := conneg.Read(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, MimeJSONLD, rep.ContentType)
	body := readBody(t, rep)
	require.Contains(t, body, "@id")
}

// TestComposeETag_TagsANonEmptyBase exercises the §3 derived-ETag
// composition rule directly: a populated base ETag must carry the
// transformation tag, while an empty base (no validator available from
// the backend) passes through unchanged rather than fabricating one.
func TestComposeETag_TagsANonEmptyBase(t *testing.T) {
	require.Equal(t, `"abc·rdf_serializing(application/ld+json)"`, composeETag(`"abc"`, "rdf_serializing", MimeJSONLD))
	require.Equal(t, "", composeETag("", "rdf_serializing", MimeJSONLD))
}

func TestConnegRepo_TurtleWinsTies(t *testing.T) {
	inner, tok := newTestInnerRepo(t)
	conneg := NewConnegRepo(inner)

	ctx := WithNegotiation(context.Background(), NegotiationParams{Accept: "application/ld+json;q=0.8, text/turtle;q=0.8"})
	rep, err := conneg.Read(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, MimeTurtle, rep.ContentType)
}

func TestConstantOverrideRepo_SubstitutesWhenEligible(t *testing.T) {
	inner, tok := newTestInnerRepo(t)
	overridden := NewConstantOverrideRepo(inner, ConstantOverride{
		Bytes:              []byte(`{"ok":true}`),
		ContentType:        "application/json",
		EnabledSourceTypes: []string{MimeTurtle},
		MinQuality:         0.5,
	})

	ctx := WithNegotiation(context.Background(), NegotiationParams{Accept: "application/json"})
	rep, err := overridden.Read(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, "application/json", rep.ContentType)
	require.Equal(t, `{"ok":true}`, readBody(t, rep))
}

func TestConstantOverrideRepo_PassthroughWhenSourceTypeDisabled(t *testing.T) {
	inner, tok := newTestInnerRepo(t)
	overridden := NewConstantOverrideRepo(inner, ConstantOverride{
		Bytes:               []byte(`{"ok":true}`),
		ContentType:         "application/json",
		EnabledSourceTypes:  []string{MimeTurtle},
		DisabledSourceTypes: []string{MimeTurtle},
		MinQuality:          0.5,
	})

	ctx := WithNegotiation(context.Background(), NegotiationParams{Accept: "application/json"})
	rep, err := overridden.Read(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, MimeTurtle, rep.ContentType)
}

func TestConstantOverrideRepo_PassthroughBelowMinQuality(t *testing.T) {
	inner, tok := newTestInnerRepo(t)
	overridden := NewConstantOverrideRepo(inner, ConstantOverride{
		Bytes:              []byte(`{"ok":true}`),
		ContentType:        "application/json",
		EnabledSourceTypes: []string{MimeTurtle},
		MinQuality:         0.9,
	})

	ctx := WithNegotiation(context.Background(), NegotiationParams{Accept: "application/json;q=0.5"})
	rep, err := overridden.Read(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, MimeTurtle, rep.ContentType)
}
