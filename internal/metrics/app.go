package metrics

import (
	"time"

	"github.com/picolens/picolens/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Rate limiter metrics
	RateLimitDecisionsTotal = "ratelimit_decisions_total"
	RateLimitEvictionsTotal = "ratelimit_evictions_total"
	RateLimitStoreErrors    = "ratelimit_store_errors_total"
	RateLimitStoreEntries   = "ratelimit_store_entries"

	// Completion provider metrics
	UpstreamRequestsTotal    = "upstream_requests_total"
	UpstreamRequestDuration  = "upstream_request_duration_ms"
	AnalysisInputTruncations = "analysis_input_truncations_total"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordRateLimitDecision counts an admit or reject.
func RecordRateLimitDecision(admitted bool) {
	decision := "admit"
	if !admitted {
		decision = "reject"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitDecisionsTotal,
			1,
			map[string]string{"decision": decision},
		)
	}
}

// RecordRateLimitEviction counts an LRU eviction from the limiter store.
func RecordRateLimitEviction() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(RateLimitEvictionsTotal, 1, nil)
	}
}

// RecordRateLimitStoreError counts a store failure that was admitted open.
func RecordRateLimitStoreError(backend string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitStoreErrors,
			1,
			map[string]string{"backend": backend},
		)
	}
}

// SetRateLimitStoreEntries reports the number of tracked clients.
func SetRateLimitStoreEntries(count int) {
	if observability.TelemetrySystem != nil && count >= 0 {
		_ = observability.TelemetrySystem.Gauge(RateLimitStoreEntries, float64(count), nil)
	}
}

// RecordUpstreamRequest records one completion call and its latency.
// outcome is "success" or a failure code.
func RecordUpstreamRequest(provider string, outcome string, duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			UpstreamRequestsTotal,
			1,
			map[string]string{
				"provider": provider,
				"outcome":  outcome,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			UpstreamRequestDuration,
			duration,
			map[string]string{
				"provider": provider,
			},
		)
	}
}

// RecordTruncation counts inputs shortened to the configured maximum.
func RecordTruncation() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(AnalysisInputTruncations, 1, nil)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerUptime,
			float64(seconds),
			nil,
		)
	}
}
