// Package semslot implements the hierarchical semantic slot encoding
// scheme: it round-trips a slot path (storage root -> containers ->
// resource, with optional auxiliary links) through a single hierarchical
// URI path, and derives the mutex URI for any given URI.
//
// Algorithmically grounded on manas_semslot's hierarchical scheme
// (_examples/original_source/crates/manas_semslot/src/scheme/impl_/hierarchical),
// reimplemented in Go rather than translated: the codec here uses a
// two-segment aux delimiter ("._aux", relToken) joined with "/", matching
// the contract described informally in that reference rather than its
// exact internal path-building helper.
package semslot

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/solidstack/podspace/pkg/space"
)

// AuxDelim is the reserved URI-form token marking an auxiliary link step.
// The reference implementation's backend-path form uses "$aux" instead;
// see pkg/object for that encoding.
const AuxDelim = "._aux"

var (
	// ErrInvalidStorageRootURI is returned when the configured root URI is malformed.
	ErrInvalidStorageRootURI = errors.New("semslot: invalid storage root uri")
	// ErrQueryNotAllowed is returned when a URI carries a query string.
	ErrQueryNotAllowed = errors.New("semslot: uri must not contain a query")
	// ErrOutsideNamespace is returned when a URI is not below the storage root.
	ErrOutsideNamespace = errors.New("semslot: uri outside storage namespace")
	// ErrEmptySegment is returned for a decoded path with an empty segment.
	ErrEmptySegment = errors.New("semslot: empty path segment")
	// ErrUnknownAuxRelType is returned for an aux token not in the aux policy.
	ErrUnknownAuxRelType = errors.New("semslot: unknown aux rel type")
	// ErrAuxSubjectKind is returned when an aux step's subject kind is disallowed.
	ErrAuxSubjectKind = errors.New("semslot: aux rel type not allowed on subject kind")
	// ErrAuxChainTooLong is returned when the aux-chain length cap is exceeded.
	ErrAuxChainTooLong = errors.New("semslot: aux chain exceeds configured cap")
	// ErrInvalidAuxRelToken is returned for a missing/empty rel token after the delimiter.
	ErrInvalidAuxRelToken = errors.New("semslot: missing or empty aux rel token")
	// ErrSlugContainsDelimiter is returned when a slug collides with a reserved token.
	ErrSlugContainsDelimiter = errors.New("semslot: slug contains reserved delimiter")
	// ErrEmptyProcess is returned by Encode when asked to encode an invalid (empty, non-root) process.
	ErrEmptyProcess = errors.New("semslot: empty encode process")
)

// StepKind distinguishes the two kinds of slot-path steps.
type StepKind int

const (
	// Mero is a "meronomic" containment step (the resource is reachable
	// via Contains from its host).
	Mero StepKind = iota
	// Aux is an auxiliary-link step.
	Aux
)

// Step is one element of an encode/decode process.
type Step struct {
	StepKind StepKind
	// Slug is set for Mero steps.
	Slug string
	// RelType is set for Aux steps.
	RelType string
	// Kind is this step's resulting resource kind (Container/NonContainer).
	// For non-final steps it is always Container (only containers may be
	// descended into further).
	Kind space.ResourceKind
}

// Process is an ordered list of encode steps starting from the storage root.
// An empty process denotes the storage root itself.
type Process []Step

// Codec implements the hierarchical semantic slot encoding scheme for one
// storage space.
type Codec struct {
	sp *space.Space
}

// New builds a Codec bound to the given storage space.
func New(sp *space.Space) *Codec {
	return &Codec{sp: sp}
}

// Encode renders a process into an absolute resource URI under the
// codec's storage root.
func (c *Codec) Encode(p Process) (string, error) {
	if len(p) == 0 {
		return c.sp.RootURI(), nil
	}
	segments := make([]string, 0, len(p)*2)
	for _, step := range p {
		switch step.StepKind {
		case Mero:
			if step.Slug == "" || strings.Contains(step.Slug, "/") {
				return "", fmt.Errorf("semslot: invalid slug %q", step.Slug)
			}
			if step.Slug == AuxDelim {
				return "", fmt.Errorf("%w: %q", ErrSlugContainsDelimiter, step.Slug)
			}
			segments = append(segments, step.Slug)
		case Aux:
			if step.RelType == "" {
				return "", fmt.Errorf("%w", ErrInvalidAuxRelToken)
			}
			segments = append(segments, AuxDelim, step.RelType)
		default:
			return "", fmt.Errorf("semslot: unknown step kind %d", step.StepKind)
		}
	}
	path := strings.Join(segments, "/")
	last := p[len(p)-1]
	if last.Kind == space.Container {
		path += "/"
	}
	return c.sp.RootURI() + path, nil
}

// Decode recovers the encode process for a URI within this codec's
// storage namespace.
func (c *Codec) Decode(uri string) (Process, error) {
	root := c.sp.RootURI()
	if !strings.HasSuffix(root, "/") {
		return nil, ErrInvalidStorageRootURI
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("semslot: %w", err)
	}
	if parsed.RawQuery != "" {
		return nil, ErrQueryNotAllowed
	}
	if !strings.HasPrefix(uri, root) {
		return nil, ErrOutsideNamespace
	}
	rel := strings.TrimPrefix(uri, root)
	if rel == "" {
		return Process{}, nil
	}

	finalKind := space.NonContainer
	trimmed := rel
	if strings.HasSuffix(rel, "/") {
		finalKind = space.Container
		trimmed = strings.TrimSuffix(rel, "/")
	}
	if trimmed == "" {
		return nil, ErrEmptySegment
	}

	rawSegments := strings.Split(trimmed, "/")
	for _, s := range rawSegments {
		if s == "" {
			return nil, ErrEmptySegment
		}
	}

	policy := c.sp.AuxPolicy()
	var proc Process
	subjectKind := space.Container // storage root is a container
	auxCount := 0

	i := 0
	for i < len(rawSegments) {
		seg := rawSegments[i]
		isLast := i == len(rawSegments)-1 // last raw segment index for a Mero step
		if seg == AuxDelim {
			if i+1 >= len(rawSegments) || rawSegments[i+1] == "" {
				return nil, ErrInvalidAuxRelToken
			}
			relType := rawSegments[i+1]
			kind, ok := policy.Lookup(relType)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownAuxRelType, relType)
			}
			if !validSubject(kind, subjectKind) {
				return nil, fmt.Errorf("%w: %q on %s", ErrAuxSubjectKind, relType, subjectKind)
			}
			auxCount++
			if policy.MaxAuxChain > 0 && auxCount > policy.MaxAuxChain {
				return nil, ErrAuxChainTooLong
			}
			stepIsLast := i+1 == len(rawSegments)-1
			stepKind := space.Container
			if stepIsLast {
				stepKind = finalKind
			}
			proc = append(proc, Step{StepKind: Aux, RelType: relType, Kind: stepKind})
			subjectKind = stepKind
			i += 2
			continue
		}

		// A slug may not carry the aux delimiter, nor pkg/object's
		// backend aux-namespace ("$aux") or sidecar ("$sc") token, since
		// its backend path would then alias another resource's objects.
		if strings.Contains(seg, AuxDelim) || strings.Contains(seg, "$aux") || strings.Contains(seg, "$sc") {
			return nil, fmt.Errorf("%w: %q", ErrSlugContainsDelimiter, seg)
		}
		stepKind := space.Container
		if isLast {
			stepKind = finalKind
		}
		proc = append(proc, Step{StepKind: Mero, Slug: seg, Kind: stepKind})
		subjectKind = stepKind
		i++
	}

	return proc, nil
}

// DecodeMutex toggles the trailing slash of uri and attempts to decode the
// result. It returns the mutex URI, its decoded process, and true if the
// mutex URI is itself a semantically valid slot. The storage root has no
// mutex.
func (c *Codec) DecodeMutex(uri string) (string, Process, bool) {
	root := c.sp.RootURI()
	if uri == root {
		return "", nil, false
	}
	var toggled string
	if strings.HasSuffix(uri, "/") {
		toggled = strings.TrimSuffix(uri, "/")
	} else {
		toggled = uri + "/"
	}
	proc, err := c.Decode(toggled)
	if err != nil {
		return "", nil, false
	}
	return toggled, proc, true
}

// validSubject reports whether the aux kind may be attached to a subject
// of the given resource kind. It duplicates space.AuxKind's own helper,
// which is unexported.
func validSubject(k space.AuxKind, subjectKind space.ResourceKind) bool {
	for _, sk := range k.SubjectKinds {
		if sk == subjectKind {
			return true
		}
	}
	return false
}
