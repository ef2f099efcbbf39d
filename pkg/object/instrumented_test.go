package object

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/solidstack/podspace/pkg/observability"
)

func newTestInstrumentedStore(t *testing.T) (*InstrumentedStore, *observability.Metrics) {
	t.Helper()
	inner, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	return NewInstrumentedStore(inner, metrics, "filesystem"), metrics
}

func TestInstrumentedStore_RecordsSuccessfulWrite(t *testing.T) {
	store, metrics := newTestInstrumentedStore(t)
	ctx := context.Background()

	err := store.Write(ctx, "a", strings.NewReader("hello"), "text/plain")
	require.NoError(t, err)

	expected := `
# HELP solid_storage_operations_total Total number of object store operations
# TYPE solid_storage_operations_total counter
solid_storage_operations_total{backend="filesystem",operation="write",status="success"} 1
`
	require.NoError(t, testutil.CollectAndCompare(metrics.StorageOperationsTotal, strings.NewReader(expected)))
	require.Equal(t, 1, testutil.CollectAndCount(metrics.StorageOperationDuration))
}

func TestInstrumentedStore_RecordsNotFoundWithoutError(t *testing.T) {
	store, metrics := newTestInstrumentedStore(t)
	ctx := context.Background()

	_, err := store.Stat(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	expected := `
# HELP solid_storage_operations_total Total number of object store operations
# TYPE solid_storage_operations_total counter
solid_storage_operations_total{backend="filesystem",operation="stat",status="error"} 1
`
	require.NoError(t, testutil.CollectAndCompare(metrics.StorageOperationsTotal, strings.NewReader(expected)))
	require.Equal(t, 0, testutil.CollectAndCount(metrics.StorageErrorsTotal))
}

func TestInstrumentedStore_PassesThroughCapabilities(t *testing.T) {
	store, _ := newTestInstrumentedStore(t)
	caps := store.Capabilities()
	require.True(t, caps.Write)
}

func TestInstrumentedStore_NilMetricsIsTransparent(t *testing.T) {
	inner, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	store := NewInstrumentedStore(inner, nil, "filesystem")

	ctx := context.Background()
	require.NoError(t, store.Write(ctx, "a", strings.NewReader("hi"), "text/plain"))
	meta, err := store.Stat(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, int64(2), meta.ContentLength)
}
