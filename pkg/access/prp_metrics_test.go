package access

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/solidstack/podspace/pkg/observability"
	"github.com/solidstack/podspace/pkg/rdf"
	"github.com/solidstack/podspace/pkg/semslot"
	"github.com/solidstack/podspace/pkg/space"
)

type fakeACRFetcher struct{}

func (fakeACRFetcher) FetchACR(ctx context.Context, subjectURI string) (rdf.Graph, bool, error) {
	return rdf.Graph{}, false, nil
}

func newTestPRP(t *testing.T, metrics *observability.Metrics) *PRP {
	t.Helper()
	sp, err := space.New("http://ex.org/", "http://alice.example/#i", space.DefaultAuxPolicy())
	require.NoError(t, err)
	codec := semslot.New(sp)
	prp := NewPRP(sp, codec, fakeACRFetcher{}, 16)
	if metrics != nil {
		prp = prp.WithMetrics(metrics)
	}
	return prp
}

func TestPRP_ChainRecordsCacheMissThenHit(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	prp := newTestPRP(t, metrics)

	ctx := context.Background()
	_, err := prp.Chain(ctx, "http://ex.org/a")
	require.NoError(t, err)

	expectedMiss := `
# HELP solid_cache_misses_total Total number of cache misses
# TYPE solid_cache_misses_total counter
solid_cache_misses_total{cache_type="acr"} 1
`
	require.NoError(t, testutil.CollectAndCompare(metrics.CacheMissesTotal, strings.NewReader(expectedMiss)))

	_, err = prp.Chain(ctx, "http://ex.org/a")
	require.NoError(t, err)

	expectedHit := `
# HELP solid_cache_hits_total Total number of cache hits
# TYPE solid_cache_hits_total counter
solid_cache_hits_total{cache_type="acr"} 1
`
	require.NoError(t, testutil.CollectAndCompare(metrics.CacheHitsTotal, strings.NewReader(expectedHit)))
}

func TestPRP_InvalidateRecordsEviction(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	prp := newTestPRP(t, metrics)

	ctx := context.Background()
	_, err := prp.Chain(ctx, "http://ex.org/a")
	require.NoError(t, err)

	prp.Invalidate("http://ex.org/a")

	expected := `
# HELP solid_cache_evictions_total Total number of cache evictions
# TYPE solid_cache_evictions_total counter
solid_cache_evictions_total{cache_type="acr"} 1
`
	require.NoError(t, testutil.CollectAndCompare(metrics.CacheEvictionsTotal, strings.NewReader(expected)))
}

func TestPRP_NoMetricsIsTransparent(t *testing.T) {
	prp := newTestPRP(t, nil)
	ctx := context.Background()
	items, err := prp.Chain(ctx, "http://ex.org/a")
	require.NoError(t, err)
	require.NotEmpty(t, items)
	prp.Invalidate("http://ex.org/a")
}
