package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"netif-recorder/internal/domain/errors"
	"netif-recorder/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// HealthService provides health check functionality
type HealthService struct {
	mu               sync.RWMutex
	clock            interfaces.Clock
	logger           *logrus.Logger
	startTime        time.Time
	backend          string
	storeHealthy     bool
	storeError       error
	operations       int64
	failedOperations int64
	externalChanges  int64
	degradedQueries  map[string]int64
	lastSnapshot     time.Time
}

// HealthStatus represents health check status
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the health check response struct
type HealthResponse struct {
	Status     HealthStatus           `json:"status"`
	Timestamp  string                 `json:"timestamp"`
	Components map[string]interface{} `json:"components"`
	Statistics map[string]interface{} `json:"statistics"`
}

// NewHealthService creates a new HealthService
func NewHealthService(clock interfaces.Clock, backend string, logger *logrus.Logger) *HealthService {
	return &HealthService{
		clock:           clock,
		logger:          logger,
		startTime:       clock.Now(),
		backend:         backend,
		degradedQueries: make(map[string]int64),
	}
}

// UpdateStoreHealth updates the record store health status
func (h *HealthService) UpdateStoreHealth(healthy bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.storeHealthy = healthy
	h.storeError = err
}

// ObserveOperation counts a store operation. Persistence failures mark the
// store unhealthy; any success marks it healthy again.
func (h *HealthService) ObserveOperation(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.operations++
	switch {
	case err == nil:
		h.storeHealthy = true
		h.storeError = nil
	case errors.IsPersistenceError(err):
		h.failedOperations++
		h.storeHealthy = false
		h.storeError = err
	default:
		h.failedOperations++
	}
}

// RecordSnapshot notes a completed snapshot build
func (h *HealthService) RecordSnapshot() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastSnapshot = h.clock.Now()
}

// RecordDegradedQuery counts a host query that fell back to the unset marker
func (h *HealthService) RecordDegradedQuery(query string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.degradedQueries[query]++
}

// RecordExternalChange counts a write to the record file made outside this process
func (h *HealthService) RecordExternalChange() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.externalChanges++
}

// ServeHTTP handles the HTTP health check endpoint
func (h *HealthService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := h.buildHealthResponse()

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("failed to encode health check response")
	}
}

// buildHealthResponse constructs the health check response
func (h *HealthService) buildHealthResponse() HealthResponse {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.clock.Now()

	queries := make([]string, 0, len(h.degradedQueries))
	for query := range h.degradedQueries {
		queries = append(queries, query)
	}
	sort.Strings(queries)
	degraded := make(map[string]interface{}, len(queries))
	for _, query := range queries {
		degraded[query] = h.degradedQueries[query]
	}

	lastSnapshot := ""
	if !h.lastSnapshot.IsZero() {
		lastSnapshot = h.lastSnapshot.Format(time.RFC3339)
	}

	components := map[string]interface{}{
		"store": map[string]interface{}{
			"backend": h.backend,
			"healthy": h.storeHealthy,
			"error":   h.formatError(h.storeError),
		},
		"snapshot": map[string]interface{}{
			"last_build":       lastSnapshot,
			"degraded_queries": degraded,
		},
	}

	statistics := map[string]interface{}{
		"operations":        h.operations,
		"failed_operations": h.failedOperations,
		"external_changes":  h.externalChanges,
		"uptime":            h.formatUptime(now.Sub(h.startTime)),
	}

	return HealthResponse{
		Status:     h.determineOverallStatus(),
		Timestamp:  now.Format(time.RFC3339),
		Components: components,
		Statistics: statistics,
	}
}

// determineOverallStatus determines the overall health status
func (h *HealthService) determineOverallStatus() HealthStatus {
	if !h.storeHealthy {
		return StatusUnhealthy
	}

	// 실패 비율이 50% 이상이면 degraded
	if h.operations > 0 && h.failedOperations > 0 {
		failureRate := float64(h.failedOperations) / float64(h.operations)
		if failureRate >= 0.5 {
			return StatusDegraded
		}
	}

	return StatusHealthy
}

// formatError formats an error to string
func (h *HealthService) formatError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// formatUptime formats uptime duration to human-readable format
func (h *HealthService) formatUptime(duration time.Duration) string {
	days := int(duration.Hours()) / 24
	hours := int(duration.Hours()) % 24
	minutes := int(duration.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd%dh%dm", days, hours, minutes)
	} else if hours > 0 {
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
