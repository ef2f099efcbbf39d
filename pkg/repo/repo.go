package repo

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/solidstack/podspace/pkg/space"
)

// ErrNotFound is returned by Reader/Deleter/Patcher operations against a
// StatusToken whose Status does not Exists(), and by Create when the host
// container's token does not exist. Update writes whatever the token's
// status and does not return it.
var ErrNotFound = errors.New("repo: resource does not exist")

// ErrConflict reports a write that would collide with an existing mutex
// counterpart (container vs non-container) at the same path. No operation
// in this package returns it: Create moves on to another slug and Update
// does not consult the mutex; pkg/httpapi maps it to 409 Conflict.
var ErrConflict = errors.New("repo: resource conflicts with its mutex counterpart")

// ErrContainerNotEmpty is returned when deleting a container that still
// has children.
var ErrContainerNotEmpty = errors.New("repo: container is not empty")

// ErrMethodNotAllowed is returned when deleting the storage root or its
// root access-control resource.
var ErrMethodNotAllowed = errors.New("repo: operation not allowed on this resource")

// Representation is one resource's readable body plus its negotiable
// metadata.
type Representation struct {
	ContentType  string
	Data         io.ReadCloser
	ContentLen   int64
	ETag         string
	LastModified time.Time
	Kind         space.ResourceKind
}

// CreateRequest describes a POST-style child creation.
type CreateRequest struct {
	SlugHint    string
	ContentType string
	Data        io.Reader
	IsContainer bool
}

// UpdateRequest describes a PUT-style full-body replacement.
type UpdateRequest struct {
	ContentType string
	Data        io.Reader
	IsContainer bool
}

// Reader reads a resolved resource's representation.
type Reader interface {
	Read(ctx context.Context, tok StatusToken) (Representation, error)
}

// Creator creates a new child resource under an existing container.
type Creator interface {
	Create(ctx context.Context, containerTok StatusToken, req CreateRequest) (StatusToken, error)
}

// Updater replaces an existing (or creates a not-yet-existing) resource's
// body in place at a known slug.
type Updater interface {
	Update(ctx context.Context, tok StatusToken, req UpdateRequest) (StatusToken, error)
}

// Deleter removes a resource (and its aux siblings) from the space.
type Deleter interface {
	Delete(ctx context.Context, tok StatusToken) error
}

// Patcher applies a semantic patch document to an existing RDF resource.
type Patcher interface {
	Patch(ctx context.Context, tok StatusToken, patchDoc []byte, contentType string) (StatusToken, error)
}

// Initializer provisions the storage space's root container and its
// mandatory aux resources on first use. It is idempotent and reports
// whether any change was actually made.
type Initializer interface {
	Initialize(ctx context.Context) (bool, error)
}

// Repo is the complete Repo Core surface a storage space exposes to the
// HTTP method services.
type Repo interface {
	Reader
	Creator
	Updater
	Deleter
	Patcher
	Initializer
	Space() *space.Space
	Resolve(ctx context.Context, uri string) (StatusToken, error)
}
