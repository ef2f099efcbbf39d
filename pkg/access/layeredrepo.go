package access

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/solidstack/podspace/pkg/rdf"
	"github.com/solidstack/podspace/pkg/repo"
	"github.com/solidstack/podspace/pkg/space"
	"github.com/solidstack/podspace/pkg/webid"
)

type resolvedContextKey struct{}

// WithResolved returns a derived context carrying rac, for the HTTP
// marshaller (pkg/httpapi) to pick up after a LayeredRepo operation.
func WithResolved(ctx context.Context, rac ResolvedAccessControl) context.Context {
	return context.WithValue(ctx, resolvedContextKey{}, rac)
}

// ResolvedFromContext recovers the ResolvedAccessControl stamped by the
// most recent LayeredRepo operation on ctx, if any.
func ResolvedFromContext(ctx context.Context) (ResolvedAccessControl, bool) {
	rac, ok := ctx.Value(resolvedContextKey{}).(ResolvedAccessControl)
	return rac, ok
}

// ErrAccessDenied is the sentinel wrapped by AccessDeniedError.
var ErrAccessDenied = errors.New("access: denied")

// AccessDeniedError is returned by a LayeredRepo operation whose PEP
// decision denied one or more required operations.
type AccessDeniedError struct {
	Decision Decision
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access: denied on %q: %v", e.Decision.Resolved.TargetURI, e.Decision.DeniedOps)
}

func (e *AccessDeniedError) Unwrap() error { return ErrAccessDenied }

// RootACRFactory synthesizes the default turtle body for a storage's root
// access-control resource, granting ownerWebID the given modes.
type RootACRFactory func(ownerWebID string, modes ModeSet) []byte

// DefaultRootACRFactory renders a minimal ACP access-control resource
// applying a single policy to the subject (the root) and its members,
// granting every mode in modes to ownerWebID. Grounded on the teacher's
// "synthesize default state on first use" idiom
// (pkg/storage/filesystem.go's root-directory bootstrap), adapted here to
// an RDF body instead of a directory entry.
func DefaultRootACRFactory(ownerWebID string, modes ModeSet) []byte {
	var buf bytes.Buffer
	buf.WriteString("@prefix acp: <http://www.w3.org/ns/solid/acp#> .\n")
	buf.WriteString("@prefix acl: <http://www.w3.org/ns/auth/acl#> .\n\n")
	buf.WriteString("<> acp:apply <#ownerPolicy> ; acp:applyMembers <#ownerPolicy> .\n\n")
	buf.WriteString("<#ownerPolicy> a acp:Policy ;\n")
	for _, m := range modes.Slice() {
		fmt.Fprintf(&buf, "  acp:allow <%s> ;\n", string(m))
	}
	buf.WriteString("  acp:anyOf <#ownerMatcher> .\n\n")
	fmt.Fprintf(&buf, "<#ownerMatcher> a acp:Matcher ;\n  acp:agent <%s> .\n", ownerWebID)
	return buf.Bytes()
}

// LayeredRepo wraps any repo.Repo with a PEP, per §4.6.4: each operation
// is authorized against the caller's credentials (read from ctx via
// pkg/webid), the ACR-chain PRP cache is invalidated on every successful
// write under the operation's own lock, and the resolved grants are
// stamped onto the context for the HTTP marshaller to read back. Denied
// operations short-circuit with an *AccessDeniedError before reaching the
// inner repo at all.
type LayeredRepo struct {
	inner    repo.Repo
	pep      *PEP
	prp      *PRP
	acrRel   string
	factory  RootACRFactory
}

// NewLayeredRepo wraps inner with pep, invalidating prp's ACR-chain cache
// on writes and synthesizing the root ACR via factory on Initialize if
// the inner repo's own Initialize did not already provision one.
func NewLayeredRepo(inner repo.Repo, pep *PEP, prp *PRP, factory RootACRFactory) *LayeredRepo {
	if factory == nil {
		factory = DefaultRootACRFactory
	}
	return &LayeredRepo{
		inner:   inner,
		pep:     pep,
		prp:     prp,
		acrRel:  inner.Space().AccessControlRelType(),
		factory: factory,
	}
}

func credsFromContext(ctx context.Context) Context {
	c := webid.FromContext(ctx)
	return Context{WebID: c.WebID, Authenticated: c.Authenticated, Origin: c.Origin}
}

// authorize resolves grants for targetURI against ops, stamping ctx with
// the resolved record regardless of outcome.
func (r *LayeredRepo) authorize(ctx context.Context, targetURI string, ops ...Operation) (context.Context, error) {
	decision, err := r.pep.Enforce(ctx, ActionOpList{TargetURI: targetURI, Ops: ops}, credsFromContext(ctx))
	if err != nil {
		return ctx, err
	}
	ctx = WithResolved(ctx, decision.Resolved)
	if !decision.Allowed {
		return ctx, &AccessDeniedError{Decision: decision}
	}
	return ctx, nil
}

// Read authorizes OpRead on the resolved resource, then delegates.
func (r *LayeredRepo) Read(ctx context.Context, tok repo.StatusToken) (repo.Representation, error) {
	ctx, err := r.authorize(ctx, tok.Slug, OpRead)
	if err != nil {
		return repo.Representation{}, err
	}
	return r.inner.Read(ctx, tok)
}

// Create authorizes OpCreate on the host container, then delegates,
// invalidating the new child's cached ACR chain on success (it cannot
// have been cached yet, but its host's own chain entry may now be stale
// for any sibling that inherits from it).
func (r *LayeredRepo) Create(ctx context.Context, containerTok repo.StatusToken, req repo.CreateRequest) (repo.StatusToken, error) {
	ctx, err := r.authorize(ctx, containerTok.Slug, OpCreate)
	if err != nil {
		return repo.StatusToken{}, err
	}
	tok, err := r.inner.Create(ctx, containerTok, req)
	if err == nil {
		r.prp.Invalidate(containerTok.Slug)
		r.prp.Invalidate(tok.Slug)
	}
	return tok, err
}

// Update authorizes OpWrite on tok, then delegates, invalidating tok's
// cached ACR chain on success.
func (r *LayeredRepo) Update(ctx context.Context, tok repo.StatusToken, req repo.UpdateRequest) (repo.StatusToken, error) {
	ctx, err := r.authorize(ctx, tok.Slug, OpWrite)
	if err != nil {
		return repo.StatusToken{}, err
	}
	newTok, err := r.inner.Update(ctx, tok, req)
	if err == nil {
		r.prp.Invalidate(tok.Slug)
	}
	return newTok, err
}

// Delete authorizes OpDelete on tok, then delegates, invalidating tok's
// cached ACR chain on success.
func (r *LayeredRepo) Delete(ctx context.Context, tok repo.StatusToken) error {
	ctx, err := r.authorize(ctx, tok.Slug, OpDelete)
	if err != nil {
		return err
	}
	err = r.inner.Delete(ctx, tok)
	if err == nil {
		r.prp.Invalidate(tok.Slug)
	}
	return err
}

// Patch decomposes the patch document's effective operations (spec
// §4.7's Read/Append/Write decomposition) and authorizes all of them
// against tok before delegating.
func (r *LayeredRepo) Patch(ctx context.Context, tok repo.StatusToken, patchDoc []byte, contentType string) (repo.StatusToken, error) {
	if len(patchDoc) > repo.MaxPatchDocBytes {
		return repo.StatusToken{}, fmt.Errorf("%w: %d bytes", repo.ErrPatchTooLarge, len(patchDoc))
	}
	patch, err := rdf.ParsePatch(patchDoc)
	if err != nil {
		return repo.StatusToken{}, fmt.Errorf("%w", err)
	}
	var ops []Operation
	for _, o := range patch.EffectiveOps() {
		switch o {
		case rdf.OpRead:
			ops = append(ops, OpRead)
		case rdf.OpAppend:
			ops = append(ops, OpAppend)
		case rdf.OpWrite:
			ops = append(ops, OpWrite)
		}
	}
	ctx, err = r.authorize(ctx, tok.Slug, ops...)
	if err != nil {
		return repo.StatusToken{}, err
	}
	newTok, err := r.inner.Patch(ctx, tok, patchDoc, contentType)
	if err == nil {
		r.prp.Invalidate(tok.Slug)
	}
	return newTok, err
}

// Initialize delegates to the inner repo, then synthesizes the storage's
// root ACR via the injected factory if the root does not already have one
// bound (spec §4.6.4: "On storage initialization, if the root ACR is
// missing, synthesizes it via an injected factory").
func (r *LayeredRepo) Initialize(ctx context.Context) (bool, error) {
	changed, err := r.inner.Initialize(ctx)
	if err != nil {
		return changed, err
	}

	rootACRURI := r.inner.Space().RootURI() + "._aux/" + r.acrRel
	tok, err := r.inner.Resolve(ctx, rootACRURI)
	if err != nil {
		return changed, err
	}
	if tok.Status.Exists() {
		return changed, nil
	}

	// Aux resources are addressed directly by their decoded URI rather
	// than suggested through the slug-sanitizing URIPolicy (which treats
	// the aux delimiter as an illegal slug character); Update writes
	// through to that exact path regardless of the token's current
	// existence state, the same way pkg/repo.Initialize materializes the
	// storage's other mandatory aux resources.
	body := r.factory(r.inner.Space().OwnerID(), AllModes())
	if _, err := r.inner.Update(ctx, tok, repo.UpdateRequest{
		ContentType: "text/turtle",
		Data:        bytes.NewReader(body),
	}); err != nil {
		return changed, err
	}
	return true, nil
}

// Resolve delegates without authorization; the caller authorizes the
// operation it ultimately performs against the resolved token.
func (r *LayeredRepo) Resolve(ctx context.Context, uri string) (repo.StatusToken, error) {
	return r.inner.Resolve(ctx, uri)
}

// Space delegates to the inner repo.
func (r *LayeredRepo) Space() *space.Space { return r.inner.Space() }

var _ repo.Repo = (*LayeredRepo)(nil)
