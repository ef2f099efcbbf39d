package repolayers

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/solidstack/podspace/pkg/rdf"
	"github.com/solidstack/podspace/pkg/repo"
)

// RDF content types this layer can parse and/or serialize. Turtle is
// parseable and serializable; JSON-LD is serialize-only (no JSON-LD
// parser exists anywhere in the retrieved example pack to ground one on,
// and no resource in this repository is ever stored as JSON-LD at rest).
const (
	MimeTurtle = "text/turtle"
	MimeN3     = "text/n3"
	MimeJSONLD = "application/ld+json"
)

// derivableSyntaxes lists the content types the negotiator will consider
// as a derived target, in LDP's tie-break precedence order (turtle wins
// ties per §4.7).
var derivableSyntaxes = []string{MimeTurtle, MimeJSONLD}

func isNegotiableRDF(ct string) bool {
	return ct == MimeTurtle || ct == MimeN3
}

// negotiateDerivedType computes the preferred derived content type for a
// stored representation of content type baseType against an Accept
// header, per §4.7's precedence: turtle wins ties, then the inner base
// type, then any other derivable syntax in the Accept header's own
// precedence order. Passthrough (baseType itself) when baseType is not
// RDF, or when nothing in accept names a derivable syntax.
func negotiateDerivedType(baseType, accept string) string {
	if !isNegotiableRDF(baseType) {
		return baseType
	}
	entries := parseAccept(accept)
	if len(entries) == 0 {
		return baseType
	}

	bestQ := -1.0
	for _, e := range entries {
		if e.q <= 0 {
			continue
		}
		for _, s := range derivableSyntaxes {
			if e.matches(s) && e.q > bestQ {
				bestQ = e.q
			}
		}
	}
	if bestQ < 0 {
		return baseType
	}

	turtleOK, baseOK, other := false, false, ""
	for _, e := range entries {
		if e.q != bestQ {
			continue
		}
		if e.matches(MimeTurtle) {
			turtleOK = true
		}
		if e.matches(baseType) {
			baseOK = true
		}
		for _, s := range derivableSyntaxes {
			if e.matches(s) && other == "" {
				other = s
			}
		}
	}
	switch {
	case turtleOK:
		return MimeTurtle
	case baseOK:
		return baseType
	default:
		return other
	}
}

func parseStoredRDF(body []byte, ct string) (rdf.Graph, error) {
	switch ct {
	case MimeTurtle, MimeN3:
		return rdf.ParseTurtle(body)
	default:
		return nil, fmt.Errorf("repolayers: cannot parse %q as rdf", ct)
	}
}

func serializeRDF(g rdf.Graph, ct string) []byte {
	if ct == MimeJSONLD {
		return rdf.SerializeJSONLD(g)
	}
	return rdf.SerializeTurtle(g)
}

// ConnegRepo wraps a repo.Repo, deriving an alternate RDF serialization on
// Read when the request's negotiated Accept header (carried on ctx via
// WithNegotiation) prefers a syntax other than the one stored at rest.
// Every other operation passes straight through to the inner repo.
type ConnegRepo struct {
	repo.Repo
}

// NewConnegRepo wraps inner with RDF content negotiation on Read.
func NewConnegRepo(inner repo.Repo) *ConnegRepo {
	return &ConnegRepo{Repo: inner}
}

// Read delegates to the inner repo, then negotiates and, if needed,
// re-serializes the representation into the Accept-preferred RDF syntax,
// tagging its ETag with the "rdf_serializing" transformation per §3.
func (c *ConnegRepo) Read(ctx context.Context, tok repo.StatusToken) (repo.Representation, error) {
	rep, err := c.Repo.Read(ctx, tok)
	if err != nil {
		return rep, err
	}
	accept := negotiationFromContext(ctx).Accept
	if accept == "" || !isNegotiableRDF(rep.ContentType) {
		return rep, nil
	}
	derived := negotiateDerivedType(rep.ContentType, accept)
	if derived == rep.ContentType {
		return rep, nil
	}

	var body []byte
	if rep.Data != nil {
		body, err = io.ReadAll(rep.Data)
		rep.Data.Close()
		if err != nil {
			return repo.Representation{}, fmt.Errorf("repolayers: read body for negotiation: %w", err)
		}
	}
	var g rdf.Graph
	if len(body) > 0 {
		g, err = parseStoredRDF(body, rep.ContentType)
		if err != nil {
			return repo.Representation{}, fmt.Errorf("repolayers: parse stored body: %w", err)
		}
	}
	out := serializeRDF(g, derived)

	rep.Data = io.NopCloser(bytes.NewReader(out))
	rep.ContentLen = int64(len(out))
	rep.ETag = composeETag(rep.ETag, "rdf_serializing", derived)
	rep.ContentType = derived
	return rep, nil
}

var _ repo.Repo = (*ConnegRepo)(nil)
