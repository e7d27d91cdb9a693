package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domainErrors "netif-recorder/internal/domain/errors"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func newService() (*HealthService, *fixedClock) {
	clock := &fixedClock{now: time.Date(2025, 1, 8, 12, 0, 0, 0, time.UTC)}
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return NewHealthService(clock, "file", logger), clock
}

func serve(t *testing.T, h *HealthService, method string) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, httptest.NewRequest(method, "/healthz", nil))

	var response HealthResponse
	if recorder.Code != http.StatusMethodNotAllowed {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	}
	return recorder, response
}

func TestHealthService_Status(t *testing.T) {
	t.Run("저장소 확인 전에는 unhealthy", func(t *testing.T) {
		h, _ := newService()

		recorder, response := serve(t, h, http.MethodGet)
		assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
		assert.Equal(t, StatusUnhealthy, response.Status)
	})

	t.Run("성공한 연산 후 healthy", func(t *testing.T) {
		h, clock := newService()
		h.ObserveOperation(nil)
		clock.now = clock.now.Add(26*time.Hour + 5*time.Minute)

		recorder, response := serve(t, h, http.MethodGet)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, StatusHealthy, response.Status)
		assert.Equal(t, "1d2h5m", response.Statistics["uptime"])
	})

	t.Run("인덱스 오류가 절반 이상이면 degraded", func(t *testing.T) {
		h, _ := newService()
		h.ObserveOperation(nil)
		h.ObserveOperation(domainErrors.NewIndexError("invalid interface index: 9 (records: 2)"))

		_, response := serve(t, h, http.MethodGet)
		assert.Equal(t, StatusDegraded, response.Status)
	})

	t.Run("저장 매체 오류는 unhealthy", func(t *testing.T) {
		h, _ := newService()
		h.ObserveOperation(nil)
		h.ObserveOperation(domainErrors.NewPersistenceError("failed to write", fmt.Errorf("read-only file system")))

		recorder, response := serve(t, h, http.MethodGet)
		assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
		store := response.Components["store"].(map[string]interface{})
		assert.Equal(t, false, store["healthy"])
		assert.Contains(t, store["error"], "read-only file system")
	})
}

func TestHealthService_SnapshotAndExternalCounters(t *testing.T) {
	h, _ := newService()
	h.UpdateStoreHealth(true, nil)
	h.RecordSnapshot()
	h.RecordDegradedQuery("route", fmt.Errorf("netlink: permission denied"))
	h.RecordDegradedQuery("route", fmt.Errorf("netlink: permission denied"))
	h.RecordExternalChange()

	_, response := serve(t, h, http.MethodGet)
	snapshot := response.Components["snapshot"].(map[string]interface{})
	assert.Equal(t, "2025-01-08T12:00:00Z", snapshot["last_build"])
	assert.Equal(t, float64(2), snapshot["degraded_queries"].(map[string]interface{})["route"])
	assert.Equal(t, float64(1), response.Statistics["external_changes"])
}

func TestHealthService_MethodNotAllowed(t *testing.T) {
	h, _ := newService()

	recorder, _ := serve(t, h, http.MethodPost)
	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}
