package models

import "time"

// SystemMetrics is the instrumentation snapshot exposed on the health endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	StateWrites              uint64    `json:"state_writes"`
	StateConflicts           uint64    `json:"state_conflicts"`
	EventsPublished          uint64    `json:"events_published"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// HealthStatus reports readiness of the process dependencies.
type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Metrics    *SystemMetrics    `json:"metrics,omitempty"`
}
