package access

import (
	"context"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/solidstack/podspace/pkg/observability"
	"github.com/solidstack/podspace/pkg/rdf"
	"github.com/solidstack/podspace/pkg/repo"
	"github.com/solidstack/podspace/pkg/semslot"
	"github.com/solidstack/podspace/pkg/space"
)

// cacheTypeACR labels this package's Prometheus cache metrics, distinguishing
// the ACR chain cache from any other named cache a future PRP-adjacent
// component might register against the same Metrics instance.
const cacheTypeACR = "acr"

// ACRFetcher retrieves the access-control resource bound to a subject
// resource, if any. It is the narrow seam the PRP uses to reach into the
// Repo Core without depending on the access-control layer that wraps it.
type ACRFetcher interface {
	FetchACR(ctx context.Context, subjectURI string) (g rdf.Graph, bound bool, err error)
}

// repoACRFetcher reads a subject's access-control aux resource (named by
// the space's AccessControlRelType) through an inner repo's Reader,
// parsing its body as Turtle. A fetch error distinct from "no ACR bound"
// (spec §4.6.1: "items whose ACR cannot be fetched yield errors rather
// than silent None") propagates as err.
type repoACRFetcher struct {
	inner   repo.Repo
	codec   *semslot.Codec
	relType string
}

// NewRepoACRFetcher builds an ACRFetcher over inner's Reader, fetching the
// aux resource named by the storage space's configured access-control rel
// type (see space.Space.AccessControlRelType).
func NewRepoACRFetcher(inner repo.Repo) ACRFetcher {
	return &repoACRFetcher{
		inner:   inner,
		codec:   semslot.New(inner.Space()),
		relType: inner.Space().AccessControlRelType(),
	}
}

// acrURIFor derives the ACR aux URI bound to subjectURI by decoding it back
// into a process and appending an Aux step, rather than string-concatenating
// the delimiter directly: a bare subjectURI+AuxDelim concatenation drops the
// "/" separator the codec's own Encode always inserts between segments
// whenever subjectURI is a NonContainer (no trailing slash of its own).
func (f *repoACRFetcher) acrURIFor(subjectURI string) (string, error) {
	proc, err := f.codec.Decode(subjectURI)
	if err != nil {
		return "", err
	}
	return f.codec.Encode(append(proc, semslot.Step{
		StepKind: semslot.Aux,
		RelType:  f.relType,
		Kind:     space.NonContainer,
	}))
}

func (f *repoACRFetcher) FetchACR(ctx context.Context, subjectURI string) (rdf.Graph, bool, error) {
	acrURI, err := f.acrURIFor(subjectURI)
	if err != nil {
		return nil, false, fmt.Errorf("access: prp: derive acr uri for %q: %w", subjectURI, err)
	}
	tok, err := f.inner.Resolve(ctx, acrURI)
	if err != nil {
		return nil, false, fmt.Errorf("access: prp: resolve acr for %q: %w", subjectURI, err)
	}
	if !tok.Status.Exists() {
		return nil, false, nil
	}
	rep, err := f.inner.Read(ctx, tok)
	if err != nil {
		return nil, false, fmt.Errorf("access: prp: read acr for %q: %w", subjectURI, err)
	}
	defer rep.Data.Close()
	body, err := io.ReadAll(rep.Data)
	if err != nil {
		return nil, false, fmt.Errorf("access: prp: invalid prp response for %q: %w", subjectURI, err)
	}
	if len(body) == 0 {
		return rdf.Graph{}, true, nil
	}
	g, err := rdf.ParseTurtle(body)
	if err != nil {
		return nil, false, fmt.Errorf("access: prp: invalid prp response for %q: %w", subjectURI, err)
	}
	return g, true, nil
}

// ChainItem is one slot of an ACR chain: the resource at SlotURI and its
// own access-control resource (Bound reports whether one is actually
// attached, as opposed to Graph being empty).
type ChainItem struct {
	SlotURI string
	ACR     rdf.Graph
	Bound   bool
}

// PRP is the Policy Retrieval Point (§4.6.1): given a target URI, it
// returns the ACR chain — the target itself followed by its Contains
// ancestors up to the storage root, short-circuited at any Independent
// auxiliary edge crossed along the way. Results are cached per target URI
// in a bounded LRU; the cache is invalidated by the layered repo on every
// successful write under the same resource lock (spec §5).
type PRP struct {
	sp      *space.Space
	codec   *semslot.Codec
	fetcher ACRFetcher
	cache   *lru.Cache[string, []ChainItem]
	metrics *observability.Metrics
}

// NewPRP builds a PRP over the given storage space, codec, and fetcher.
// cacheSize <= 0 disables the ACR-chain cache.
func NewPRP(sp *space.Space, codec *semslot.Codec, fetcher ACRFetcher, cacheSize int) *PRP {
	p := &PRP{sp: sp, codec: codec, fetcher: fetcher}
	if cacheSize > 0 {
		c, err := lru.New[string, []ChainItem](cacheSize)
		if err == nil {
			p.cache = c
		}
	}
	return p
}

// WithMetrics attaches a Metrics recorder to p's ACR chain cache, reporting
// hits, misses and evictions under cache_type="acr". It returns p so callers
// can chain it onto NewPRP. Passing nil is a no-op.
func (p *PRP) WithMetrics(metrics *observability.Metrics) *PRP {
	p.metrics = metrics
	if p.metrics != nil && p.cache != nil {
		p.metrics.CacheSizeBytes.WithLabelValues(cacheTypeACR).Set(float64(p.cache.Len()))
	}
	return p
}

// Invalidate drops every cached chain, if caching is enabled: a chain
// embeds its ancestors' ACRs, so a write under uri can also make chains
// cached under other targets stale. The layered repo calls this after
// every successful write so a stale chain is never served past the
// write's own lock hold.
func (p *PRP) Invalidate(uri string) {
	if p.cache != nil {
		evicted := p.cache.Len()
		p.cache.Purge()
		if evicted > 0 && p.metrics != nil {
			p.metrics.CacheEvictionsTotal.WithLabelValues(cacheTypeACR).Add(float64(evicted))
			p.metrics.CacheSizeBytes.WithLabelValues(cacheTypeACR).Set(float64(p.cache.Len()))
		}
	}
}

// Chain walks the ACR chain for targetURI, per §4.6.1/§4.6.2: the first
// item is the target's own ACR; subsequent items are its Contains
// ancestors' ACRs (which the PDP treats as "member" access controls),
// ending at the storage root. The walk stops early — after including the
// crossed-into ancestor — the first time it climbs through an auxiliary
// edge whose rel type has AccessResolutionRole Independent, since that
// ancestor is its own policy root.
func (p *PRP) Chain(ctx context.Context, targetURI string) ([]ChainItem, error) {
	if p.cache != nil {
		if cached, ok := p.cache.Get(targetURI); ok {
			if p.metrics != nil {
				p.metrics.CacheHitsTotal.WithLabelValues(cacheTypeACR).Inc()
			}
			return cached, nil
		}
		if p.metrics != nil {
			p.metrics.CacheMissesTotal.WithLabelValues(cacheTypeACR).Inc()
		}
	}

	own, bound, err := p.fetcher.FetchACR(ctx, targetURI)
	if err != nil {
		return nil, err
	}
	items := []ChainItem{{SlotURI: targetURI, ACR: own, Bound: bound}}

	proc, err := p.codec.Decode(targetURI)
	if err != nil {
		return nil, err
	}

	for len(proc) > 0 {
		last := proc[len(proc)-1]
		hostProc := proc[:len(proc)-1]
		hostURI, err := p.codec.Encode(hostProc)
		if err != nil {
			return nil, err
		}
		g, hostBound, err := p.fetcher.FetchACR(ctx, hostURI)
		if err != nil {
			return nil, err
		}
		items = append(items, ChainItem{SlotURI: hostURI, ACR: g, Bound: hostBound})

		if last.StepKind == semslot.Aux {
			// Any auxiliary edge terminates the ancestor walk once its
			// host has been included: Independent per spec definition,
			// and SubjectResource/SubjectResourceControl ancestors are
			// never produced by a well-formed slot path above the
			// target (those roles only gate the target's own entry
			// edge, handled by the PDP before Chain is ever called).
			break
		}
		proc = hostProc
	}

	if p.cache != nil {
		p.cache.Add(targetURI, items)
		if p.metrics != nil {
			p.metrics.CacheSizeBytes.WithLabelValues(cacheTypeACR).Set(float64(p.cache.Len()))
		}
	}
	return items, nil
}
