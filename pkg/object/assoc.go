// Package object implements the Object Association layer and the Object
// Store Facade: mapping a semantic slot to backend object paths, and a
// uniform stat/read/write/list/delete interface over pluggable backends.
//
// Grounded on pkg/storage/filesystem.go (filesystem backend shape) and
// pkg/storage/postgres/s3.go (S3 backend shape) from the teacher repo.
package object

import (
	"strings"

	"github.com/solidstack/podspace/pkg/semslot"
	"github.com/solidstack/podspace/pkg/space"
)

// Backend-path delimiter tokens (distinct from the URI-form tokens used by
// pkg/semslot). The reference implementation uses "$aux" for the aux
// namespace marker at the backend-path level; this repo follows suit and
// adds its own sidecar tokens.
const (
	AuxNSDelim       = "$aux"
	SidecarDelim     = "$sc"
	AltContentToken  = "content"
	AltFatMetaToken  = "fm"
)

// Kind enumerates the four backend object roles one resource may own.
type Kind int

const (
	// Base is the primary representation object (or, for containers, a
	// namespace indicator).
	Base Kind = iota
	// AuxNamespace is the directory object hosting a resource's own aux
	// children.
	AuxNamespace
	// AltContent is the sidecar used when the backend cannot store a body
	// directly at the base path (e.g. container representations on a
	// backend with independent directory objects), or when the live
	// content-type diverges from the URI-decoded default.
	AltContent
	// AltFatMeta is the JSON sidecar recording content-type overrides when
	// the backend lacks native content-type metadata.
	AltFatMeta
)

// Association is the backend-path encoding for one semantic slot.
type Association struct {
	sp    *space.Space
	codec *semslot.Codec
}

// NewAssociation builds an Association over the given storage space.
func NewAssociation(sp *space.Space, codec *semslot.Codec) *Association {
	return &Association{sp: sp, codec: codec}
}

// PathEncode maps a semantic-slot URI to its backend base path. The
// encoding is order-preserving (segment-wise string ordering is preserved)
// and round-trips any clean URI path segment, since it is simply the
// resource URI's path relative to the storage root with the semslot
// "._aux" token rewritten to the backend "$aux" token.
func (a *Association) PathEncode(uri string) (string, error) {
	rel := strings.TrimPrefix(uri, a.sp.RootURI())
	if rel == uri {
		return "", semslot.ErrOutsideNamespace
	}
	return strings.ReplaceAll(rel, semslot.AuxDelim, AuxNSDelim), nil
}

// BasePath returns the backend path for the resource's primary object.
func (a *Association) BasePath(uri string) (string, error) {
	return a.PathEncode(uri)
}

// AuxNamespacePath returns the backend path for the directory object that
// hosts this resource's own aux children.
func (a *Association) AuxNamespacePath(uri string) (string, error) {
	base, err := a.PathEncode(uri)
	if err != nil {
		return "", err
	}
	base = strings.TrimSuffix(base, "/")
	return base + AuxNSDelim + "/", nil
}

// SidecarPath returns the backend path for one of the resource's sidecar
// objects (alt-content or alt-fat-metadata).
func (a *Association) SidecarPath(uri string, kind Kind) (string, error) {
	base, err := a.PathEncode(uri)
	if err != nil {
		return "", err
	}
	base = strings.TrimSuffix(base, "/")
	switch kind {
	case AltContent:
		return base + SidecarDelim + AltContentToken, nil
	case AltFatMeta:
		return base + SidecarDelim + AltFatMetaToken, nil
	default:
		return base, nil
	}
}

// FatMetadata is the JSON body of the alt-fat-metadata sidecar (§6,
// "Persisted state layout").
type FatMetadata struct {
	Live struct {
		ContentType string `json:"content_type,omitempty"`
	} `json:"live"`
	PrevBackup *FatMetadata `json:"prev_backup,omitempty"`
}
