package analytics

import "time"

// EventType discriminates the kind of query event being recorded.
type EventType string

const (
	EventFindAddress EventType = "find_address"
	EventCacheHit    EventType = "cache_hit"
	EventCacheMiss   EventType = "cache_miss"
	EventZeroResult  EventType = "zero_result"
)

// QueryEvent records the outcome of a single findAddress request.
type QueryEvent struct {
	Type            EventType `json:"type"`
	Query           string    `json:"query"`
	Terms           []string  `json:"terms"`
	ResultCount     int       `json:"result_count"`
	SuccessfulNodes int       `json:"successful_nodes"`
	FailedNodes     int       `json:"failed_nodes"`
	CacheHit        bool      `json:"cache_hit"`
	LatencyMs       int64     `json:"latency_ms"`
	Timestamp       time.Time `json:"timestamp"`
	RequestID       string    `json:"request_id"`
}
