package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okProbe(ctx context.Context, path string) error { return nil }

func failProbe(ctx context.Context, path string) error { return errors.New("connection refused") }

func TestNewHealthChecker(t *testing.T) {
	t.Run("with nil probe", func(t *testing.T) {
		checker := NewHealthChecker(nil, "/")
		require.NotNil(t, checker)
		assert.Nil(t, checker.probe)
	})

	t.Run("with probe", func(t *testing.T) {
		checker := NewHealthChecker(okProbe, "/")
		assert.NotNil(t, checker.probe)
	})
}

func TestHealthChecker_Liveness(t *testing.T) {
	checker := NewHealthChecker(nil, "/")

	req := httptest.NewRequest("GET", "/health/live", nil)
	rr := httptest.NewRecorder()

	checker.Liveness(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.Equal(t, StatusHealthy, response["status"])
	assert.Contains(t, response, "timestamp")
}

func TestHealthChecker_Readiness(t *testing.T) {
	t.Run("healthy readiness with no probe", func(t *testing.T) {
		checker := NewHealthChecker(nil, "/")

		req := httptest.NewRequest("GET", "/health/ready", nil)
		rr := httptest.NewRecorder()

		checker.Readiness(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	})

	t.Run("healthy readiness with reachable store", func(t *testing.T) {
		checker := NewHealthChecker(okProbe, "/")

		req := httptest.NewRequest("GET", "/health/ready", nil)
		rr := httptest.NewRecorder()

		checker.Readiness(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var response HealthStatus
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
		assert.Equal(t, StatusHealthy, response.Status)
	})

	t.Run("unhealthy readiness with unreachable store", func(t *testing.T) {
		checker := NewHealthChecker(failProbe, "/")

		req := httptest.NewRequest("GET", "/health/ready", nil)
		rr := httptest.NewRecorder()

		checker.Readiness(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

		var response HealthStatus
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
		assert.Equal(t, StatusUnhealthy, response.Status)
	})
}

func TestHealthChecker_Check(t *testing.T) {
	t.Run("no probe configured", func(t *testing.T) {
		checker := NewHealthChecker(nil, "/")
		status := checker.Check(context.Background())

		assert.Equal(t, StatusHealthy, status.Status)
		assert.Empty(t, status.Dependencies)
		assert.False(t, status.Timestamp.IsZero())
	})

	t.Run("healthy store", func(t *testing.T) {
		checker := NewHealthChecker(okProbe, "/")
		status := checker.Check(context.Background())

		require.Len(t, status.Dependencies, 1)
		storeStatus, ok := status.Dependencies["object_store"]
		require.True(t, ok)
		assert.Equal(t, StatusHealthy, storeStatus.Status)
	})

	t.Run("unhealthy store", func(t *testing.T) {
		checker := NewHealthChecker(failProbe, "/")
		status := checker.Check(context.Background())

		assert.Equal(t, StatusUnhealthy, status.Status)
		storeStatus := status.Dependencies["object_store"]
		assert.Equal(t, StatusUnhealthy, storeStatus.Status)
		assert.Equal(t, "connection refused", storeStatus.Message)
	})
}

func TestHealthChecker_checkStore(t *testing.T) {
	t.Run("successful probe", func(t *testing.T) {
		checker := NewHealthChecker(okProbe, "/")
		status := checker.checkStore(context.Background())

		assert.Equal(t, StatusHealthy, status.Status)
		assert.Empty(t, status.Message)
	})

	t.Run("failing probe", func(t *testing.T) {
		checker := NewHealthChecker(failProbe, "/")
		status := checker.checkStore(context.Background())

		assert.Equal(t, StatusUnhealthy, status.Status)
		assert.Equal(t, "connection refused", status.Message)
	})
}

func TestRegisterHealthRoutes(t *testing.T) {
	t.Run("registers all routes", func(t *testing.T) {
		mux := http.NewServeMux()
		checker := NewHealthChecker(nil, "/")

		RegisterHealthRoutes(mux, checker)

		for _, path := range []string{"/health", "/health/live", "/health/ready"} {
			req := httptest.NewRequest("GET", path, nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)
			assert.Equalf(t, http.StatusOK, rr.Code, "%s returned wrong status code", path)
		}
	})

	t.Run("routes surface store dependency", func(t *testing.T) {
		mux := http.NewServeMux()
		checker := NewHealthChecker(okProbe, "/")
		RegisterHealthRoutes(mux, checker)

		req := httptest.NewRequest("GET", "/health", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var response HealthStatus
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
		assert.Contains(t, response.Dependencies, "object_store")
	})
}

func TestHealthStatus_Values(t *testing.T) {
	assert.Equal(t, "healthy", StatusHealthy)
	assert.Equal(t, "degraded", StatusDegraded)
	assert.Equal(t, "unhealthy", StatusUnhealthy)
}

func TestDependencyStatus_Latency(t *testing.T) {
	status := DependencyStatus{
		Status:    StatusHealthy,
		Latency:   50 * time.Millisecond,
		Timestamp: time.Now(),
	}
	assert.Equal(t, 50*time.Millisecond, status.Latency)
}

func TestHealthStatus_JSON(t *testing.T) {
	original := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now().Round(time.Second),
		Version:   "1.0.0",
		Dependencies: map[string]DependencyStatus{
			"object_store": {
				Status:    StatusHealthy,
				Message:   "OK",
				Latency:   10 * time.Millisecond,
				Timestamp: time.Now().Round(time.Second),
			},
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded HealthStatus
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original.Status, decoded.Status)
	assert.Equal(t, original.Version, decoded.Version)
}

func TestDependencyStatus_JSON(t *testing.T) {
	original := DependencyStatus{
		Status:    StatusDegraded,
		Message:   "high latency",
		Latency:   500 * time.Millisecond,
		Timestamp: time.Now().Round(time.Second),
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded DependencyStatus
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original.Status, decoded.Status)
	assert.Equal(t, original.Message, decoded.Message)
}
