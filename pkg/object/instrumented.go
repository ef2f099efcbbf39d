package object

import (
	"context"
	"io"
	"time"

	"github.com/solidstack/podspace/pkg/observability"
)

// InstrumentedStore wraps a Store with Prometheus counters and histograms,
// following the teacher's decorator-over-an-interface pattern (the same
// shape RemnantSweeper uses over Store, generalised from sweep bookkeeping
// to per-call metrics). Capabilities() passes through unwrapped since it is
// metadata, not an operation worth timing.
type InstrumentedStore struct {
	inner   Store
	metrics *observability.Metrics
	backend string
}

// NewInstrumentedStore wraps inner, recording every operation against
// metrics under the given backend label (e.g. "filesystem", "s3"). Passing
// a nil metrics disables instrumentation and InstrumentedStore becomes a
// transparent pass-through.
func NewInstrumentedStore(inner Store, metrics *observability.Metrics, backend string) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, metrics: metrics, backend: backend}
}

func (s *InstrumentedStore) Capabilities() Capabilities {
	return s.inner.Capabilities()
}

func (s *InstrumentedStore) record(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.StorageOperationsTotal.WithLabelValues(op, s.backend, status).Inc()
	s.metrics.StorageOperationDuration.WithLabelValues(op, s.backend).Observe(time.Since(start).Seconds())
	if err != nil && !errorsIsNotFound(err) {
		s.metrics.StorageErrorsTotal.WithLabelValues(op, s.backend, errorType(err)).Inc()
	}
}

func errorsIsNotFound(err error) bool {
	return err == ErrNotFound
}

// errorType gives the error a coarse label without embedding its full
// message (which may contain paths) into a metric label's cardinality.
func errorType(err error) string {
	switch {
	case err == ErrUnsupported:
		return "unsupported"
	case err == context.Canceled:
		return "canceled"
	case err == context.DeadlineExceeded:
		return "timeout"
	default:
		return "other"
	}
}

func (s *InstrumentedStore) Stat(ctx context.Context, path string) (Metadata, error) {
	start := time.Now()
	meta, err := s.inner.Stat(ctx, path)
	s.record("stat", start, err)
	return meta, err
}

func (s *InstrumentedStore) Read(ctx context.Context, path string, rng *ByteRange) (Metadata, io.ReadCloser, error) {
	start := time.Now()
	meta, rc, err := s.inner.Read(ctx, path, rng)
	s.record("read", start, err)
	return meta, rc, err
}

func (s *InstrumentedStore) Write(ctx context.Context, path string, r io.Reader, contentType string) error {
	start := time.Now()
	err := s.inner.Write(ctx, path, r, contentType)
	s.record("write", start, err)
	return err
}

func (s *InstrumentedStore) List(ctx context.Context, nsPath string) ([]Entry, error) {
	start := time.Now()
	entries, err := s.inner.List(ctx, nsPath)
	s.record("list", start, err)
	return entries, err
}

func (s *InstrumentedStore) Delete(ctx context.Context, path string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, path)
	s.record("delete", start, err)
	return err
}

func (s *InstrumentedStore) CreateNS(ctx context.Context, path string) error {
	start := time.Now()
	err := s.inner.CreateNS(ctx, path)
	s.record("create_ns", start, err)
	return err
}
