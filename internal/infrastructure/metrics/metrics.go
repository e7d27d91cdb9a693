package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 기록 저장소 연산 관련 메트릭
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netif_store_operations_total",
			Help: "Total number of record store operations",
		},
		[]string{"operation", "status"}, // status: success, failed
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netif_store_operation_duration_seconds",
			Help:    "Time spent in each load-mutate-save cycle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// 현재 저장된 인터페이스 레코드 수
	RecordCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netif_records",
			Help: "Number of interface records in the persisted record set",
		},
	)

	// 스냅샷 관련 메트릭
	SnapshotBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netif_snapshot_builds_total",
			Help: "Total number of interface snapshot builds",
		},
		[]string{"status"},
	)

	ExternalQueryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netif_external_query_failures_total",
			Help: "Route or resolver queries that degraded to the unset marker",
		},
		[]string{"query"}, // route, resolver
	)

	// 폴링 관련 메트릭
	PollingCycleCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netif_reconcile_cycles_total",
			Help: "Total number of scheduled reconcile cycles executed",
		},
	)

	PollingCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netif_reconcile_cycle_duration_seconds",
			Help:    "Time spent in each scheduled reconcile cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	PollingBackoffLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netif_reconcile_backoff_level",
			Help: "Current backoff level (0 = no backoff)",
		},
	)

	// 저장 매체 상태
	StoreStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netif_store_status",
			Help: "Record store status (1 = last operation reached the medium, 0 = failed)",
		},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netif_db_query_duration_seconds",
			Help:    "Time spent executing database queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type"}, // load, save, insert, update, delete
	)

	// 에러 메트릭
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netif_errors_total",
			Help: "Total number of errors encountered",
		},
		[]string{"error_type"}, // index, persistence, validation, ...
	)

	// 외부에서 기록 파일이 변경된 횟수
	ExternalChanges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netif_record_file_external_changes_total",
			Help: "Writes to the record file observed by the watcher",
		},
	)

	// 시스템 정보
	RecorderInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "netif_recorder_info",
			Help: "Recorder information",
		},
		[]string{"version", "backend", "node_name", "os"},
	)
)

// RecordStoreOperation은 저장소 연산 결과와 소요 시간을 기록합니다
func RecordStoreOperation(operation string, success bool, duration float64) {
	status := "success"
	if !success {
		status = "failed"
	}
	StoreOperations.WithLabelValues(operation, status).Inc()
	StoreOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordSnapshotBuild는 스냅샷 생성 결과를 기록합니다
func RecordSnapshotBuild(success bool) {
	if success {
		SnapshotBuilds.WithLabelValues("success").Inc()
		return
	}
	SnapshotBuilds.WithLabelValues("failed").Inc()
}

// RecordExternalQueryFailure는 표식 값으로 대체된 외부 조회를 기록합니다
func RecordExternalQueryFailure(query string) {
	ExternalQueryFailures.WithLabelValues(query).Inc()
}

// RecordPollingCycle은 폴링 사이클 메트릭을 기록합니다
func RecordPollingCycle(duration float64) {
	PollingCycleCount.Inc()
	PollingCycleDuration.Observe(duration)
}

// RecordDBQuery는 데이터베이스 쿼리 시간을 기록합니다
func RecordDBQuery(queryType string, duration float64) {
	DBQueryDuration.WithLabelValues(queryType).Observe(duration)
}

// RecordError는 에러 발생을 기록합니다
func RecordError(errorType string) {
	ErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordExternalChange는 외부 파일 변경을 기록합니다
func RecordExternalChange() {
	ExternalChanges.Inc()
}

// SetRecordCount는 저장된 레코드 수를 설정합니다
func SetRecordCount(count int) {
	RecordCount.Set(float64(count))
}

// SetBackoffLevel은 현재 백오프 레벨을 설정합니다
func SetBackoffLevel(level float64) {
	PollingBackoffLevel.Set(level)
}

// SetStoreStatus는 저장 매체 상태를 설정합니다
func SetStoreStatus(healthy bool) {
	if healthy {
		StoreStatus.Set(1)
	} else {
		StoreStatus.Set(0)
	}
}

// SetRecorderInfo는 레코더 정보를 설정합니다
func SetRecorderInfo(version, backend, nodeName, osID string) {
	RecorderInfo.WithLabelValues(version, backend, nodeName, osID).Set(1)
}
