package repo

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/solidstack/podspace/pkg/semslot"
	"github.com/solidstack/podspace/pkg/space"
)

var slugSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// URIPolicy derives mutex URIs, suggested child URIs, and slot-path
// admissibility decisions from a storage space's semantic slot scheme.
// Grounded on manas_space's resource-uri-policy trait from the original
// source, expressed here as ordinary Go methods over the existing
// semslot.Codec rather than a separate trait hierarchy.
type URIPolicy struct {
	sp    *space.Space
	codec *semslot.Codec
}

// NewURIPolicy builds a policy over the given space and codec.
func NewURIPolicy(sp *space.Space, codec *semslot.Codec) *URIPolicy {
	return &URIPolicy{sp: sp, codec: codec}
}

// MutexURI returns the URI of uri's container/non-container counterpart
// (the other of the two resources that share the same path modulo a
// trailing slash), if the space's aux policy allows that path to host a
// mutex pair at all.
func (p *URIPolicy) MutexURI(uri string) (string, bool) {
	mutexURI, _, ok := p.codec.DecodeMutex(uri)
	return mutexURI, ok
}

// MutexNormalURIHash returns a stable hex digest shared by a mutex pair's
// two URI forms, suitable as a lock-bucket key so that a container and its
// non-container counterpart always serialize against the same lock.
func (p *URIPolicy) MutexNormalURIHash(uri string) string {
	normal := strings.TrimSuffix(uri, "/")
	sum := sha256.Sum256([]byte(normal))
	return hex.EncodeToString(sum[:])
}

// SuggestURI builds a candidate child URI under containerURI from a slug
// hint (e.g. the HTTP Slug request header), sanitizing it into a valid
// relative slot-path segment. It performs no existence check; callers
// retry with a fresh suggestion on conflict.
func (p *URIPolicy) SuggestURI(containerURI, slugHint string, isContainer bool) (string, error) {
	if !strings.HasSuffix(containerURI, "/") {
		return "", fmt.Errorf("repo: container uri %q must end in '/'", containerURI)
	}
	slug := slugSanitizer.ReplaceAllString(strings.TrimSpace(slugHint), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" || slug == semslot.AuxDelim {
		slug = "res"
	}
	candidate := containerURI + slug
	if isContainer {
		candidate += "/"
	}
	if err := p.IsAllowedRelativeSlotPath(containerURI, strings.TrimPrefix(candidate, containerURI)); err != nil {
		return "", err
	}
	return candidate, nil
}

// IsAllowedRelativeSlotPath reports whether relPath is a legal single-slug
// child of containerURI: must decode to a valid Mero step under the space
// (no reserved aux delimiter, no empty segment, no query).
func (p *URIPolicy) IsAllowedRelativeSlotPath(containerURI, relPath string) error {
	if relPath == "" {
		return fmt.Errorf("repo: empty relative slot path")
	}
	if strings.Contains(relPath, semslot.AuxDelim) {
		return semslot.ErrSlugContainsDelimiter
	}
	candidate := containerURI + strings.TrimPrefix(relPath, "/")
	_, err := p.codec.Decode(candidate)
	return err
}
