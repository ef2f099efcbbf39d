// Package repo implements the Repo Core: resource status tokens, the
// per-operation services (read/create/update/delete/patch), and the
// resource-URI policy that derives mutex and suggested URIs from a storage
// space's semantic slot scheme.
//
// Grounded on the teacher's pkg/storage.Storage interface-segregation idiom
// (ModuleReader/ModuleWriter/... combined into one Storage interface) and on
// manas_space's ResourceStatusToken/ResourceStatus model from the original
// source for the four-state status model.
package repo

import (
	"context"
	"fmt"

	"github.com/solidstack/podspace/pkg/object"
	"github.com/solidstack/podspace/pkg/semslot"
	"github.com/solidstack/podspace/pkg/space"
)

// ResStatus classifies one slot's existence state.
type ResStatus int

const (
	// ExistingRepresented means the resource exists and has a directly
	// readable representation object.
	ExistingRepresented ResStatus = iota
	// ExistingNonRepresented means the resource exists (e.g. a container
	// whose namespace directory is present on a backend with independent
	// directory objects) but has no representation object of its own.
	ExistingNonRepresented
	// NonExistingMutexNonExisting means neither the resource nor its
	// container/non-container mutex counterpart exists.
	NonExistingMutexNonExisting
	// NonExistingMutexExisting means the resource does not exist, but its
	// mutex counterpart (the other of container/non-container at the same
	// path) does — a PUT/POST here would conflict with that slot.
	NonExistingMutexExisting
)

// Exists reports whether the token's resource can be read.
func (s ResStatus) Exists() bool {
	return s == ExistingRepresented || s == ExistingNonRepresented
}

func (s ResStatus) String() string {
	switch s {
	case ExistingRepresented:
		return "existing-represented"
	case ExistingNonRepresented:
		return "existing-non-represented"
	case NonExistingMutexNonExisting:
		return "non-existing-mutex-non-existing"
	case NonExistingMutexExisting:
		return "non-existing-mutex-existing"
	default:
		return "unknown"
	}
}

// StatusToken names a resolved resource slot and its current existence
// state. Every repo operation takes or returns a StatusToken rather than a
// bare URI, so that stale-status races are caught by construction: each
// layer must re-resolve after any write it itself performs.
type StatusToken struct {
	Slug      string
	Kind      space.ResourceKind
	Status    ResStatus
	MutexSlug string // populated only when Status is one of the NonExisting states
}

// ErrOutsideNamespace is returned when a resolved URI falls outside the
// storage space's namespace.
var ErrOutsideNamespace = semslot.ErrOutsideNamespace

// TokenResolver derives a StatusToken for a URI by consulting the semantic
// slot codec and the backing object store.
type TokenResolver struct {
	sp    *space.Space
	codec *semslot.Codec
	assoc *object.Association
	store object.Store
}

// NewTokenResolver builds a resolver over the given space, codec,
// association, and backing store.
func NewTokenResolver(sp *space.Space, codec *semslot.Codec, assoc *object.Association, store object.Store) *TokenResolver {
	return &TokenResolver{sp: sp, codec: codec, assoc: assoc, store: store}
}

// Resolve decodes uri and determines its current ResStatus against the
// backing store.
func (r *TokenResolver) Resolve(ctx context.Context, uri string) (StatusToken, error) {
	proc, err := r.codec.Decode(uri)
	if err != nil {
		return StatusToken{}, fmt.Errorf("repo: resolve %q: %w", uri, err)
	}
	kind := space.NonContainer
	if len(proc) == 0 {
		kind = space.Container
	} else if proc[len(proc)-1].Kind == space.Container {
		kind = space.Container
	}

	basePath, err := r.assoc.BasePath(uri)
	if err != nil {
		return StatusToken{}, err
	}

	if _, err := r.store.Stat(ctx, basePath); err == nil {
		return StatusToken{Slug: uri, Kind: kind, Status: ExistingRepresented}, nil
	} else if err != object.ErrNotFound {
		return StatusToken{}, err
	}

	if kind == space.Container && r.store.Capabilities().HasIndependentDirObjects {
		nsPath, err := r.assoc.AuxNamespacePath(uri)
		if err != nil {
			return StatusToken{}, err
		}
		if _, err := r.store.Stat(ctx, nsPath); err == nil {
			return StatusToken{Slug: uri, Kind: kind, Status: ExistingNonRepresented}, nil
		} else if err != object.ErrNotFound {
			return StatusToken{}, err
		}
	}

	mutexURI, _, hasMutex := r.codec.DecodeMutex(uri)
	if !hasMutex {
		return StatusToken{Slug: uri, Kind: kind, Status: NonExistingMutexNonExisting}, nil
	}
	mutexBasePath, err := r.assoc.BasePath(mutexURI)
	if err != nil {
		return StatusToken{}, err
	}
	if _, err := r.store.Stat(ctx, mutexBasePath); err == nil {
		return StatusToken{Slug: uri, Kind: kind, Status: NonExistingMutexExisting, MutexSlug: mutexURI}, nil
	} else if err != object.ErrNotFound {
		return StatusToken{}, err
	}
	return StatusToken{Slug: uri, Kind: kind, Status: NonExistingMutexNonExisting, MutexSlug: mutexURI}, nil
}
