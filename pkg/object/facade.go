package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Stat/Read when no object exists at path;
// Delete of a missing path succeeds.
var ErrNotFound = errors.New("object: not found")

// ErrUnsupported is returned when a capability-gated operation is invoked
// against a backend that does not advertise it.
var ErrUnsupported = errors.New("object: unsupported capability")

// Metadata describes one backend object.
type Metadata struct {
	Path          string
	ContentLength int64
	ContentType   string // optional; empty if the backend has no native content-type
	ETag          string // optional; derived from a strong hash when available
	LastModified  time.Time
}

// ByteRange is an inclusive byte range request (offset, length); Length<0
// means "to end of object".
type ByteRange struct {
	Offset int64
	Length int64
}

// Capabilities is the set of optional operations a backend advertises.
type Capabilities struct {
	Stat                              bool
	Read                              bool
	ReadWithRange                     bool
	List                              bool
	ListWithDelimiterSlash            bool
	Write                             bool
	Delete                            bool
	HasIndependentDirObjects          bool
	SupportsNativeContentTypeMetadata bool
}

// Entry is one item yielded by List.
type Entry struct {
	Path        string
	Meta        Metadata
	IsContainer bool
}

// Store is the Object Store Facade: a uniform interface over pluggable
// backends (filesystem, S3, ...). Grounded on pkg/storage/interfaces.go's
// Config/backend-selection shape, generalised from the teacher's
// module/version registry operations to a flat path-addressed object API.
type Store interface {
	Capabilities() Capabilities
	Stat(ctx context.Context, path string) (Metadata, error)
	Read(ctx context.Context, path string, rng *ByteRange) (Metadata, io.ReadCloser, error)
	Write(ctx context.Context, path string, r io.Reader, contentType string) error
	List(ctx context.Context, nsPath string) ([]Entry, error)
	Delete(ctx context.Context, path string) error
	CreateNS(ctx context.Context, path string) error
}
