package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solidstack/podspace/pkg/object"
	"github.com/solidstack/podspace/pkg/observability"
	"github.com/solidstack/podspace/pkg/repolayers"
	"github.com/solidstack/podspace/pkg/space"

	"github.com/solidstack/podspace/pkg/repo"
)

const testRoot = "http://ex.org/"

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := object.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	sp, err := space.New(testRoot, "http://alice.example/#i", space.DefaultAuxPolicy())
	require.NoError(t, err)
	basicRepo := repo.New(sp, store)
	_, err = basicRepo.Initialize(context.Background())
	require.NoError(t, err)
	stack := repolayers.NewConnegRepo(basicRepo)
	logger := observability.NewLogger(observability.InfoLevel, os.Stderr)
	return NewService(stack, NewLockManager(), logger)
}

func doRequest(svc *Service, method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	svc.ServeHTTP(rr, req)
	return rr
}

func TestHandlePut_CreatesNewResource(t *testing.T) {
	svc := newTestService(t)

	rr := doRequest(svc, http.MethodPut, testRoot+"a", "<#x> a <#Y> .\n", map[string]string{
		"Content-Type": "text/turtle",
	})

	require.Equal(t, http.StatusCreated, rr.Code)

	tok, err := svc.Repo.Resolve(context.Background(), testRoot+"a")
	require.NoError(t, err)
	require.True(t, tok.Status.Exists())
}

func TestHandlePut_UpdatesExistingResource(t *testing.T) {
	svc := newTestService(t)

	rr := doRequest(svc, http.MethodPut, testRoot+"a", "<#x> a <#Y> .\n", map[string]string{
		"Content-Type": "text/turtle",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(svc, http.MethodPut, testRoot+"a", "<#x> a <#Z> .\n", map[string]string{
		"Content-Type": "text/turtle",
	})
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestHandlePut_CreatesMissingContainerChain(t *testing.T) {
	svc := newTestService(t)

	rr := doRequest(svc, http.MethodPut, testRoot+"a/b/c", "<#x> a <#Y> .\n", map[string]string{
		"Content-Type": "text/turtle",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	ctx := context.Background()
	for _, ancestor := range []string{testRoot + "a/", testRoot + "a/b/"} {
		tok, err := svc.Repo.Resolve(ctx, ancestor)
		require.NoError(t, err)
		require.Truef(t, tok.Status.Exists(), "expected ancestor %s to exist", ancestor)
		require.Equal(t, space.Container, tok.Kind)
	}
}

func TestHandlePut_MutexConflict(t *testing.T) {
	svc := newTestService(t)

	rr := doRequest(svc, http.MethodPut, testRoot+"a/", "", map[string]string{
		"Content-Type": "text/turtle",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(svc, http.MethodPut, testRoot+"a", "<#x> a <#Y> .\n", map[string]string{
		"Content-Type": "text/turtle",
	})
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandleGet_ContainerListing(t *testing.T) {
	svc := newTestService(t)

	rr := doRequest(svc, http.MethodPut, testRoot+"a", "<#x> a <#Y> .\n", map[string]string{
		"Content-Type": "text/turtle",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(svc, http.MethodGet, testRoot, "", map[string]string{
		"Accept": "text/turtle",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), testRoot+"a")
}

func TestHandlePatch_AppliesInsertDelete(t *testing.T) {
	svc := newTestService(t)

	rr := doRequest(svc, http.MethodPut, testRoot+"a", "<http://example.org/alice> <http://xmlns.com/foaf/0.1/age> \"30\" .\n", map[string]string{
		"Content-Type": "text/turtle",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	patchDoc := `
@prefix solid: <http://www.w3.org/ns/solid/terms#> .
@prefix foaf: <http://xmlns.com/foaf/0.1/> .
_:p a solid:InsertDeletePatch ;
	solid:where { <http://example.org/alice> foaf:age ?age } ;
	solid:inserts { <http://example.org/alice> foaf:age "31" } ;
	solid:deletes { <http://example.org/alice> foaf:age ?age } .
`
	rr = doRequest(svc, http.MethodPatch, testRoot+"a", patchDoc, map[string]string{
		"Content-Type": "text/n3",
	})
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = doRequest(svc, http.MethodGet, testRoot+"a", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"31"`)
	require.NotContains(t, rr.Body.String(), `"30"`)
}

func TestHandlePatch_MissingResource(t *testing.T) {
	svc := newTestService(t)

	rr := doRequest(svc, http.MethodPatch, testRoot+"nope", "", map[string]string{
		"Content-Type": "text/n3",
	})
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleDelete_RejectsNonEmptyContainer(t *testing.T) {
	svc := newTestService(t)

	rr := doRequest(svc, http.MethodPut, testRoot+"dir/child", "<#x> a <#Y> .\n", map[string]string{
		"Content-Type": "text/turtle",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(svc, http.MethodDelete, testRoot+"dir/", "", nil)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandleDelete_RemovesResource(t *testing.T) {
	svc := newTestService(t)

	rr := doRequest(svc, http.MethodPut, testRoot+"a", "<#x> a <#Y> .\n", map[string]string{
		"Content-Type": "text/turtle",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(svc, http.MethodDelete, testRoot+"a", "", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	tok, err := svc.Repo.Resolve(context.Background(), testRoot+"a")
	require.NoError(t, err)
	require.False(t, tok.Status.Exists())
}

func TestHandlePost_CreatesChildUnderContainer(t *testing.T) {
	svc := newTestService(t)

	rr := doRequest(svc, http.MethodPost, testRoot, "<#x> a <#Y> .\n", map[string]string{
		"Content-Type": "text/turtle",
		"Slug":         "widget",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, testRoot+"widget", rr.Header().Get("Location"))
}

func TestHandleOptions_ReportsAllow(t *testing.T) {
	svc := newTestService(t)

	rr := doRequest(svc, http.MethodOptions, testRoot, "", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotEmpty(t, rr.Header().Get("Allow"))
}

func TestAncestorContainers(t *testing.T) {
	got := ancestorContainers(testRoot+"a/b/c", testRoot)
	require.Equal(t, []string{testRoot + "a/", testRoot + "a/b/"}, got)
}

func TestAncestorContainers_ImmediateChild(t *testing.T) {
	got := ancestorContainers(testRoot+"a", testRoot)
	require.Empty(t, got)
}
