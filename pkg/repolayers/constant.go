package repolayers

import (
	"bytes"
	"context"
	"io"

	"github.com/solidstack/podspace/pkg/repo"
)

// ConstantOverride configures one constant-content substitution per §4.7:
// when the request's highest-precedence Accept value exactly matches
// ContentType, meets MinQuality, and the underlying representation's
// content type is in EnabledSourceTypes and not in DisabledSourceTypes,
// the response body is replaced by Bytes.
type ConstantOverride struct {
	Bytes               []byte
	ContentType         string
	EnabledSourceTypes  []string
	DisabledSourceTypes []string
	MinQuality          float64
}

// ConstantOverrideRepo wraps a repo.Repo, substituting a configured
// constant representation on Read when ConstantOverride's conditions are
// met. Every other operation passes straight through.
type ConstantOverrideRepo struct {
	repo.Repo
	cfg ConstantOverride
}

// NewConstantOverrideRepo wraps inner with cfg's constant-override rule.
func NewConstantOverrideRepo(inner repo.Repo, cfg ConstantOverride) *ConstantOverrideRepo {
	return &ConstantOverrideRepo{Repo: inner, cfg: cfg}
}

// Read delegates to the inner repo, then substitutes the configured
// constant body if the request's top Accept entry matches cfg.ContentType
// at or above cfg.MinQuality and the source content type is eligible.
func (c *ConstantOverrideRepo) Read(ctx context.Context, tok repo.StatusToken) (repo.Representation, error) {
	rep, err := c.Repo.Read(ctx, tok)
	if err != nil {
		return rep, err
	}
	accept := negotiationFromContext(ctx).Accept
	entries := parseAccept(accept)
	if len(entries) == 0 {
		return rep, nil
	}
	top := entries[0]
	if top.mediaType != c.cfg.ContentType || top.q < c.cfg.MinQuality {
		return rep, nil
	}
	if !mediaRangeMatches(c.cfg.EnabledSourceTypes, rep.ContentType) {
		return rep, nil
	}
	if mediaRangeMatches(c.cfg.DisabledSourceTypes, rep.ContentType) {
		return rep, nil
	}

	if rep.Data != nil {
		rep.Data.Close()
	}
	rep.ETag = composeETag(rep.ETag, "constant_overriding", c.cfg.ContentType)
	rep.Data = io.NopCloser(bytes.NewReader(c.cfg.Bytes))
	rep.ContentLen = int64(len(c.cfg.Bytes))
	rep.ContentType = c.cfg.ContentType
	return rep, nil
}

var _ repo.Repo = (*ConstantOverrideRepo)(nil)
