package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/solidstack/podspace/pkg/rdf"
	"github.com/solidstack/podspace/pkg/space"
)

// ErrUnknownPatchDocContentType is returned when the patch document's
// content type is not text/n3 or application/n3.
var ErrUnknownPatchDocContentType = errors.New("repo: unknown patch document content type")

// ErrInvalidEncodedPatch is returned when the patch document fails to
// parse or fails one of its parse-time invariants.
var ErrInvalidEncodedPatch = errors.New("repo: invalid encoded patch document")

// ErrIncompatiblePatchSourceContentType is returned when the patch
// target's stored representation is not in a turtle-family syntax this
// patcher can parse (spec §4.7, "Binary RDF-doc patcher").
var ErrIncompatiblePatchSourceContentType = errors.New("repo: patch target content type is not patchable")

// ErrInvalidEncodedSourceRep is returned when the patch target's stored
// body fails to parse as RDF.
var ErrInvalidEncodedSourceRep = errors.New("repo: invalid encoded source representation")

// ErrPatchTooLarge is returned when a patch document body exceeds
// MaxPatchDocBytes, the PAYLOAD_TOO_LARGE case of the patcher resolver
// (spec §4.5).
var ErrPatchTooLarge = errors.New("repo: patch document exceeds maximum size")

// MaxPatchDocBytes bounds the patch document the N3 parser will attempt
// to read, so an oversized body fails fast with PAYLOAD_TOO_LARGE rather
// than spending a full parse pass on it.
const MaxPatchDocBytes = 1 << 20

// patchableSyntaxes are the content types this patcher can both parse and
// re-serialize; a full RDF toolchain able to round-trip every negotiable
// syntax is out of this repository's scope (spec.md §1).
var patchableSyntaxes = map[string]bool{"text/turtle": true, "text/n3": true, "": true}

// Patch implements Patcher: it parses patchDoc as a Solid Insert-Delete
// Patch, reads the target's current representation in its own stored
// syntax, applies the patch, and writes the result back in that same
// syntax. Grounded algorithmically on pkg/rdf.Patch.Apply (itself grounded
// on fcrates/rdf_utils/src/patch/solid_insert_delete in the original
// source); this method is the seam that turns that pure graph operation
// into a Repo Core write.
func (r *BasicRepo) Patch(ctx context.Context, tok StatusToken, patchDoc []byte, contentType string) (StatusToken, error) {
	if !tok.Status.Exists() {
		return StatusToken{}, ErrNotFound
	}
	if contentType != "text/n3" && contentType != "application/n3" {
		return StatusToken{}, fmt.Errorf("%w: %q", ErrUnknownPatchDocContentType, contentType)
	}
	if len(patchDoc) > MaxPatchDocBytes {
		return StatusToken{}, fmt.Errorf("%w: %d bytes", ErrPatchTooLarge, len(patchDoc))
	}

	patch, err := rdf.ParsePatch(patchDoc)
	if err != nil {
		return StatusToken{}, fmt.Errorf("%w: %v", ErrInvalidEncodedPatch, err)
	}

	rep, err := r.Read(ctx, tok)
	if err != nil {
		return StatusToken{}, err
	}
	if !patchableSyntaxes[rep.ContentType] {
		if rep.Data != nil {
			rep.Data.Close()
		}
		return StatusToken{}, fmt.Errorf("%w: %q", ErrIncompatiblePatchSourceContentType, rep.ContentType)
	}
	sourceType := rep.ContentType
	if sourceType == "" {
		sourceType = "text/turtle"
	}

	var current rdf.Graph
	if rep.Data != nil {
		body, readErr := io.ReadAll(rep.Data)
		rep.Data.Close()
		if readErr != nil {
			return StatusToken{}, fmt.Errorf("repo: patch %q: read current body: %w", tok.Slug, readErr)
		}
		if len(body) > 0 {
			current, err = rdf.ParseTurtle(body)
			if err != nil {
				return StatusToken{}, fmt.Errorf("%w: %v", ErrInvalidEncodedSourceRep, err)
			}
		}
	}

	updated, err := patch.Apply(current)
	if err != nil {
		return StatusToken{}, err
	}

	return r.Update(ctx, tok, UpdateRequest{
		ContentType: sourceType,
		Data:        bytes.NewReader(rdf.SerializeTurtle(updated)),
		IsContainer: tok.Kind == space.Container,
	})
}
