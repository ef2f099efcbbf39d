package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/solidstack/podspace/pkg/access"
	"github.com/solidstack/podspace/pkg/observability"
	"github.com/solidstack/podspace/pkg/rdf"
	"github.com/solidstack/podspace/pkg/repo"
	"github.com/solidstack/podspace/pkg/repolayers"
	"github.com/solidstack/podspace/pkg/space"
)

// Service is the per-method HTTP base service (§4.8): it sits above the
// full repo.Repo stack (access control, derived-content layers, repo
// core), adds locking, conditional-request evaluation, and container
// representation-preference selection, and hands off to marshal.go for
// response rendering.
//
// Grounded on the teacher's pkg/api.Server (one method per route,
// httputil response helpers) generalised from a fixed route table to a
// single catch-all that dispatches by HTTP method instead of path.
type Service struct {
	Repo  repo.Repo
	Locks *LockManager
	Log   *observability.Logger

	// DevMode attaches the resolved-access-control record to ACCESS_DENIED
	// error bodies (§6's dev_mode option). Off by default: grants/denials
	// are sensitive and only useful for local debugging.
	DevMode bool
	// RedirectIfMutexExists makes a 404 against a URI whose mutex
	// counterpart is bound respond with a 301 to that counterpart instead
	// (§6's redirect_if_mutex_resource_exists option). Off by default.
	RedirectIfMutexExists bool
}

// NewService builds a Service over a fully-assembled repo stack.
func NewService(r repo.Repo, locks *LockManager, log *observability.Logger) *Service {
	if locks == nil {
		locks = NewLockManager()
	}
	return &Service{Repo: r, Locks: locks, Log: log}
}

func lockKey(uri string) string { return strings.TrimSuffix(uri, "/") }

// ServeHTTP dispatches by method, writing CORS headers on every response
// (success and failure) before delegating.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeCORS(w, r)
	if r.Method == http.MethodOptions {
		s.handleOptions(w, r)
		return
	}

	targetURI := requestURI(r)
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleGet(w, r, targetURI)
	case http.MethodPost:
		s.handlePost(w, r, targetURI)
	case http.MethodPut:
		s.handlePut(w, r, targetURI)
	case http.MethodPatch:
		s.handlePatch(w, r, targetURI)
	case http.MethodDelete:
		s.handleDelete(w, r, targetURI)
	default:
		writeProblem(w, r, newProblem(http.StatusMethodNotAllowed, "method-not-allowed", "method not allowed", r.Method+" is not supported on this resource"))
	}
}

// requestURI reconstructs the resource URI the request names, the scheme
// and host taken from the request line (or X-Forwarded-* via a reverse
// proxy, out of this layer's scope) and the path taken verbatim. The
// query string is never included, whatever the dispatcher's
// QueryParamMode.
func requestURI(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.Path
}

func (s *Service) handleOptions(w http.ResponseWriter, r *http.Request) {
	targetURI := requestURI(r)
	tok, err := s.Repo.Resolve(r.Context(), targetURI)
	if err != nil {
		writeProblem(w, r, newProblem(http.StatusInternalServerError, "resolve-failed", "could not resolve resource", err.Error()))
		return
	}
	allow, acceptPost, acceptPut, acceptPatch := methodPolicy(s.Repo.Space(), targetURI, tok.Kind, tok.Status.Exists())
	w.Header().Set("Allow", allow)
	if acceptPost != "" {
		w.Header().Set("Accept-Post", acceptPost)
	}
	w.Header().Set("Accept-Put", acceptPut)
	if acceptPatch != "" {
		w.Header().Set("Accept-Patch", acceptPatch)
	}
	writeLinkHeader(w, resourceLinks(s.Repo.Space(), targetURI, tok.Kind))
	w.WriteHeader(http.StatusNoContent)
}

// handleGet serves GET and HEAD: a shared lock on the target (readers
// serialise with creators/deleters of the same resource but not with each
// other), container representation preference All for GET / Minimal for
// HEAD (§4.8), Range/If-Range honoured only for non-container bodies.
func (s *Service) handleGet(w http.ResponseWriter, r *http.Request, targetURI string) {
	key := lockKey(targetURI)
	s.Locks.Acquire(key, r.RemoteAddr, Shared)
	defer s.Locks.Release(key, r.RemoteAddr)

	ctx := r.Context()
	tok, err := s.Repo.Resolve(ctx, targetURI)
	if err != nil {
		writeProblem(w, r, newProblem(http.StatusInternalServerError, "resolve-failed", "could not resolve resource", err.Error()))
		return
	}

	if !tok.Status.Exists() {
		s.writeMissing(w, r, tok)
		return
	}

	pref := repo.Minimal
	if r.Method == http.MethodGet && tok.Kind == space.Container {
		pref = repo.All
	}
	ctx = repo.WithContainerPreference(ctx, pref)
	ctx = repolayers.WithNegotiation(ctx, repolayers.NegotiationParams{Accept: r.Header.Get("Accept")})

	rep, err := s.Repo.Read(ctx, tok)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	defer rep.Data.Close()

	pre := EvaluatePreconditions(r, rep.ETag, rep.LastModified, true)
	writeLinkHeader(w, resourceLinks(s.Repo.Space(), targetURI, tok.Kind))
	allow, acceptPost, acceptPut, acceptPatch := methodPolicy(s.Repo.Space(), targetURI, tok.Kind, true)
	w.Header().Set("Allow", allow)
	if acceptPost != "" {
		w.Header().Set("Accept-Post", acceptPost)
	}
	w.Header().Set("Accept-Put", acceptPut)
	if acceptPatch != "" {
		w.Header().Set("Accept-Patch", acceptPatch)
	}
	if rac, ok := access.ResolvedFromContext(ctx); ok {
		writeWacAllow(w, rac, ok)
	}
	writeRepresentationHeaders(w, rep)

	if !pre.Passed() {
		w.WriteHeader(pre.StatusCode)
		return
	}

	if rng := r.Header.Get("Range"); rng != "" && tok.Kind == space.NonContainer && IfRangeSatisfied(r, rep.ETag, rep.LastModified) {
		s.writeRange(w, r, rep, rng)
		return
	}

	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	io.Copy(w, rep.Data)
}

// writeMissing renders the 301/404/410 family for a status token whose
// resource does not Exists(): a mutex counterpart existing is a permanent
// redirect to the correct form (container vs non-container), its absence
// a plain 404.
func (s *Service) writeMissing(w http.ResponseWriter, r *http.Request, tok repo.StatusToken) {
	if tok.Status == repo.NonExistingMutexExisting {
		if s.RedirectIfMutexExists {
			w.Header().Set("Location", tok.MutexSlug)
			writeProblem(w, r, newProblem(http.StatusMovedPermanently, "mutex-redirect", "resource exists under its mutex form", "retry at the Location header's URI"))
			return
		}
		writeProblem(w, r, newProblemViolated(http.StatusNotFound, "not-found", "resource not found", "",
			"URI trailing slash distinct"))
		return
	}
	writeProblem(w, r, newProblem(http.StatusNotFound, "not-found", "resource not found", ""))
}

// evaluateWritePreconditions reads tok's current representation, purely
// for its validators, and evaluates the request's conditional headers
// against them (§4.8: "evaluate preconditions against target validators"
// for PUT/PATCH on an Existing resource). Writes a 412/304 problem and
// reports false if any applicable precondition failed; the caller must
// not proceed to Update/Patch in that case.
func (s *Service) evaluateWritePreconditions(ctx context.Context, w http.ResponseWriter, r *http.Request, tok repo.StatusToken) bool {
	if r.Header.Get("If-Match") == "" && r.Header.Get("If-Unmodified-Since") == "" &&
		r.Header.Get("If-None-Match") == "" {
		return true
	}
	rep, err := s.Repo.Read(ctx, tok)
	if err != nil {
		s.writeRepoError(w, r, err)
		return false
	}
	rep.Data.Close()

	pre := EvaluatePreconditions(r, rep.ETag, rep.LastModified, false)
	if !pre.Passed() {
		writeProblem(w, r, newProblem(pre.StatusCode, "precondition-failed", "precondition failed", ""))
		return false
	}
	return true
}

// writeRepoError maps a Repo-stack error to its HTTP status per §6/§7.
// Every case matches with errors.Is/errors.As rather than identity
// comparison, since LayeredRepo.Patch and repo.BasicRepo.Patch both wrap
// the sentinels below with fmt.Errorf("%w", ...) on their way up.
func (s *Service) writeRepoError(w http.ResponseWriter, r *http.Request, err error) {
	var denied *access.AccessDeniedError
	switch {
	case errors.As(err, &denied):
		p := newProblem(http.StatusForbidden, "access-denied", "access denied", err.Error())
		if s.DevMode {
			p.ViolationDetail = devModeAccessDetail(denied.Decision)
		}
		writeProblem(w, r, p)
	case errors.Is(err, repo.ErrNotFound):
		writeProblem(w, r, newProblem(http.StatusNotFound, "not-found", "resource not found", ""))
	case errors.Is(err, repo.ErrConflict):
		writeProblem(w, r, newProblemViolated(http.StatusConflict, "mutex-conflict", "resource conflicts with its mutex counterpart", "",
			"URI trailing slash distinct"))
	case errors.Is(err, repo.ErrContainerNotEmpty):
		writeProblem(w, r, newProblemViolated(http.StatusConflict, "container-not-empty", "container is not empty", "",
			"delete protect non-empty container"))
	case errors.Is(err, repo.ErrMethodNotAllowed):
		writeProblem(w, r, newProblem(http.StatusMethodNotAllowed, "method-not-allowed", "operation not allowed on this resource", ""))
	case errors.Is(err, rdf.ErrAmbiguousBinding), errors.Is(err, rdf.ErrDeletionsNotSubset):
		writeProblem(w, r, newProblem(http.StatusConflict, "patch-semantics-error", "patch could not be applied", err.Error()))
	case errors.Is(err, repo.ErrPatchTooLarge):
		writeProblem(w, r, newProblem(http.StatusRequestEntityTooLarge, "payload-too-large", "patch document too large", err.Error()))
	case errors.Is(err, repo.ErrUnknownPatchDocContentType), errors.Is(err, repo.ErrIncompatiblePatchSourceContentType):
		writeProblem(w, r, newProblem(http.StatusUnsupportedMediaType, "unsupported-media-type", "unsupported patch media type", err.Error()))
	case errors.Is(err, repo.ErrInvalidEncodedPatch),
		errors.Is(err, rdf.ErrPatchResourceCardinality),
		errors.Is(err, rdf.ErrPatchFormulaCardinality),
		errors.Is(err, rdf.ErrPatchBlankNode),
		errors.Is(err, rdf.ErrPatchUnknownVariable):
		writeProblem(w, r, newProblem(http.StatusUnprocessableEntity, "invalid-patch", "invalid patch document", err.Error()))
	case errors.Is(err, repo.ErrInvalidEncodedSourceRep):
		writeProblem(w, r, newProblem(http.StatusInternalServerError, "invalid-encoded-source", "stored representation could not be parsed", err.Error()))
	default:
		writeProblem(w, r, newProblem(http.StatusInternalServerError, "internal-error", "internal error", err.Error()))
	}
}

// devModeAccessDetail renders the resolved-access-control record that a
// denied operation stamped onto its Decision, for the dev_mode error-body
// surface named in §4.6.3/§6.
func devModeAccessDetail(d access.Decision) string {
	granted := make([]string, 0, len(d.Resolved.Granted))
	for _, m := range d.Resolved.Granted.Slice() {
		granted = append(granted, string(m))
	}
	denied := make([]string, 0, len(d.DeniedOps))
	for _, op := range d.DeniedOps {
		denied = append(denied, op.String())
	}
	return fmt.Sprintf("target=%s webid=%s authenticated=%t granted=%v denied=%v",
		d.Resolved.TargetURI, d.Resolved.Credentials.WebID, d.Resolved.Credentials.Authenticated, granted, denied)
}

// writeRange serves a single-range response per RFC 7233 (multipart
// ranges are out of scope; an unsatisfiable or multi-range request falls
// back to the full body rather than erroring, the conservative choice for
// a server that only needs to support simple resumable downloads).
func (s *Service) writeRange(w http.ResponseWriter, r *http.Request, rep repo.Representation, rangeHeader string) {
	start, end, ok := parseSingleByteRange(rangeHeader, rep.ContentLen)
	if !ok {
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			io.Copy(w, rep.Data)
		}
		return
	}
	if seeker, ok := rep.Data.(io.Seeker); ok {
		seeker.Seek(start, io.SeekStart)
	} else {
		io.CopyN(io.Discard, rep.Data, start)
	}
	w.Header().Set("Content-Range", "bytes "+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+strconv.FormatInt(rep.ContentLen, 10))
	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return
	}
	io.CopyN(w, rep.Data, end-start+1)
}

func parseSingleByteRange(header string, total int64) (start, end int64, ok bool) {
	header = strings.TrimPrefix(header, "bytes=")
	if strings.Contains(header, ",") {
		return 0, 0, false
	}
	parts := strings.SplitN(header, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	if parts[0] == "" {
		suffix, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || suffix <= 0 {
			return 0, 0, false
		}
		if suffix > total {
			suffix = total
		}
		return total - suffix, total - 1, true
	}
	s, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || s < 0 || s >= total {
		return 0, 0, false
	}
	e := total - 1
	if parts[1] != "" {
		if v, err := strconv.ParseInt(parts[1], 10, 64); err == nil && v < e {
			e = v
		}
	}
	return s, e, true
}

// handlePost creates a new child resource under targetURI, which must be
// an existing container. The repo layer's Create is not itself
// lock-aware, so the HTTP layer holds the container exclusive for the
// whole operation to serialise concurrent slug suggestions
// deterministically; the new child's URI is not locked separately.
func (s *Service) handlePost(w http.ResponseWriter, r *http.Request, targetURI string) {
	key := lockKey(targetURI)
	s.Locks.Acquire(key, r.RemoteAddr, Exclusive)
	defer s.Locks.Release(key, r.RemoteAddr)

	ctx := r.Context()
	tok, err := s.Repo.Resolve(ctx, targetURI)
	if err != nil {
		writeProblem(w, r, newProblem(http.StatusInternalServerError, "resolve-failed", "could not resolve resource", err.Error()))
		return
	}
	if !tok.Status.Exists() || tok.Kind != space.Container {
		writeProblem(w, r, newProblem(http.StatusNotFound, "not-found", "container not found", ""))
		return
	}

	isContainer := linkRelIsContainer(r.Header.Values("Link"))
	slug := r.Header.Get("Slug")
	if slug == "" {
		slug = randomSlug()
	}

	childTok, err := s.Repo.Create(ctx, tok, repo.CreateRequest{
		SlugHint:    slug,
		ContentType: r.Header.Get("Content-Type"),
		Data:        r.Body,
		IsContainer: isContainer,
	})
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}

	w.Header().Set("Location", childTok.Slug)
	writeLinkHeader(w, resourceLinks(s.Repo.Space(), childTok.Slug, childTok.Kind))
	w.WriteHeader(http.StatusCreated)
}

func linkRelIsContainer(linkHeaders []string) bool {
	for _, h := range linkHeaders {
		for _, part := range strings.Split(h, ",") {
			part = strings.TrimSpace(part)
			if strings.Contains(part, `rel="type"`) && strings.Contains(part, "ldp#Container") {
				return true
			}
			if strings.Contains(part, `rel="type"`) && strings.Contains(part, "ldp#BasicContainer") {
				return true
			}
		}
	}
	return false
}

const slugAlphabet = "abcdefghijklmnopqrstuvwxyz234567"

// randomSlug generates a 16-character unfulfilled-Slug fallback, base32
// over a fixed alphabet so it is always a legal slot-path segment without
// sanitisation.
func randomSlug() string {
	var buf [10]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "res"
	}
	return strings.ToLower(strings.TrimRight(base32.StdEncoding.EncodeToString(buf[:]), "="))
}

// handlePut replaces (or creates) targetURI's body in full. A
// NonExistingMutexExisting status conflicts outright (§4.8): the
// container/non-container mutex slot is already occupied. A
// NonExistingMutexNonExisting status creates the resource and, per §4.8's
// "immediate container-chain creation", first provisions any missing
// ancestor containers between the storage root and targetURI's immediate
// parent (each as an empty turtle container, skipped if already present).
func (s *Service) handlePut(w http.ResponseWriter, r *http.Request, targetURI string) {
	key := lockKey(targetURI)
	s.Locks.Acquire(key, r.RemoteAddr, Exclusive)
	defer s.Locks.Release(key, r.RemoteAddr)

	ctx := r.Context()
	tok, err := s.Repo.Resolve(ctx, targetURI)
	if err != nil {
		writeProblem(w, r, newProblem(http.StatusInternalServerError, "resolve-failed", "could not resolve resource", err.Error()))
		return
	}

	if tok.Status == repo.NonExistingMutexExisting {
		writeProblem(w, r, newProblemViolated(http.StatusConflict, "mutex-conflict", "resource conflicts with its mutex counterpart",
			"a "+oppositeKind(tok.Kind)+" already exists at this path", "URI trailing slash distinct"))
		return
	}

	if tok.Status.Exists() {
		if !s.evaluateWritePreconditions(ctx, w, r, tok) {
			return
		}
	} else if err := s.ensureContainerChain(ctx, r.RemoteAddr, targetURI); err != nil {
		s.writeRepoError(w, r, err)
		return
	}

	newTok, err := s.Repo.Update(ctx, tok, repo.UpdateRequest{
		ContentType: r.Header.Get("Content-Type"),
		Data:        r.Body,
		IsContainer: tok.Kind == space.Container,
	})
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}

	writeLinkHeader(w, resourceLinks(s.Repo.Space(), newTok.Slug, newTok.Kind))
	if !tok.Status.Exists() {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ensureContainerChain creates every missing ancestor container strictly
// between the storage root and targetURI's immediate parent, root-most
// first so each container's own parent already exists by the time it is
// created. Containers that already exist are left untouched.
func (s *Service) ensureContainerChain(ctx context.Context, remoteAddr, targetURI string) error {
	root := s.Repo.Space().RootURI()
	for _, containerURI := range ancestorContainers(targetURI, root) {
		key := lockKey(containerURI)
		s.Locks.Acquire(key, remoteAddr, Exclusive)
		tok, err := s.Repo.Resolve(ctx, containerURI)
		if err != nil {
			s.Locks.Release(key, remoteAddr)
			return err
		}
		if tok.Status.Exists() {
			s.Locks.Release(key, remoteAddr)
			continue
		}
		_, err = s.Repo.Update(ctx, tok, repo.UpdateRequest{
			ContentType: "text/turtle",
			Data:        strings.NewReader(""),
			IsContainer: true,
		})
		s.Locks.Release(key, remoteAddr)
		if err != nil {
			return err
		}
	}
	return nil
}

// ancestorContainers returns targetURI's missing ancestor container URIs
// between root (exclusive) and targetURI's immediate parent (inclusive),
// ordered root-most first.
func ancestorContainers(targetURI, root string) []string {
	var chain []string
	for parent := parentContainerURI(targetURI); parent != "" && parent != root; parent = parentContainerURI(parent) {
		chain = append(chain, parent)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// parentContainerURI returns uri's immediate container, or "" if uri names
// no path segment to strip (already root-like).
func parentContainerURI(uri string) string {
	trimmed := strings.TrimSuffix(uri, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return ""
	}
	return trimmed[:idx+1]
}

func oppositeKind(k space.ResourceKind) string {
	if k == space.Container {
		return "non-container resource"
	}
	return "container"
}

// handlePatch applies an N3 insert-delete patch document to an existing
// resource via the Patcher, per §4.7.
func (s *Service) handlePatch(w http.ResponseWriter, r *http.Request, targetURI string) {
	key := lockKey(targetURI)
	s.Locks.Acquire(key, r.RemoteAddr, Exclusive)
	defer s.Locks.Release(key, r.RemoteAddr)

	ctx := r.Context()
	tok, err := s.Repo.Resolve(ctx, targetURI)
	if err != nil {
		writeProblem(w, r, newProblem(http.StatusInternalServerError, "resolve-failed", "could not resolve resource", err.Error()))
		return
	}
	if !tok.Status.Exists() {
		s.writeMissing(w, r, tok)
		return
	}
	if !s.evaluateWritePreconditions(ctx, w, r, tok) {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeProblem(w, r, newProblem(http.StatusBadRequest, "bad-request", "could not read patch body", err.Error()))
		return
	}

	newTok, err := s.Repo.Patch(ctx, tok, body, r.Header.Get("Content-Type"))
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}

	writeLinkHeader(w, resourceLinks(s.Repo.Space(), newTok.Slug, newTok.Kind))
	w.WriteHeader(http.StatusNoContent)
}

// handleDelete removes targetURI, rejecting the storage root / root ACR
// and non-empty containers via the errors the repo layer already reports.
func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request, targetURI string) {
	key := lockKey(targetURI)
	s.Locks.Acquire(key, r.RemoteAddr, Exclusive)
	defer s.Locks.Release(key, r.RemoteAddr)

	ctx := r.Context()
	tok, err := s.Repo.Resolve(ctx, targetURI)
	if err != nil {
		writeProblem(w, r, newProblem(http.StatusInternalServerError, "resolve-failed", "could not resolve resource", err.Error()))
		return
	}
	if !tok.Status.Exists() {
		s.writeMissing(w, r, tok)
		return
	}

	if err := s.Repo.Delete(ctx, tok); err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
