// Package httpapi implements the Gateway's public HTTP surface: the
// findAddress query endpoint, a health check, and a root landing page,
// ported from original_source/src/gateway/gateway_server.cpp's
// setupRoutes/findAddress handler.
package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/delacruz-dev/geoshard/internal/gateway/aggregator"
	"github.com/delacruz-dev/geoshard/internal/gateway/analytics"
	"github.com/delacruz-dev/geoshard/internal/gateway/cache"
	"github.com/delacruz-dev/geoshard/internal/gateway/fanout"
	"github.com/delacruz-dev/geoshard/internal/rpcpb"
	pkgerrors "github.com/delacruz-dev/geoshard/pkg/errors"
	"github.com/delacruz-dev/geoshard/pkg/logger"
	"github.com/delacruz-dev/geoshard/pkg/metrics"
	"github.com/delacruz-dev/geoshard/pkg/middleware"
)

// frontendPath is where a static web frontend may be mounted, matching the
// original service's container layout.
const frontendPath = "/app/web/index.html"

// Handler serves the Gateway's HTTP API.
type Handler struct {
	fanout     *fanout.Fanout
	cache      *cache.ResponseCache
	collector  *analytics.Collector
	metrics    *metrics.Metrics
	shardCount int
	maxResults int
}

// Config configures a Handler.
type Config struct {
	Fanout     *fanout.Fanout
	Cache      *cache.ResponseCache // nil disables caching
	Collector  *analytics.Collector // nil disables analytics
	Metrics    *metrics.Metrics
	ShardCount int
	MaxResults int
}

// New creates a Handler from Config.
func New(cfg Config) *Handler {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = aggregator.DefaultMaxResults
	}
	return &Handler{
		fanout:     cfg.Fanout,
		cache:      cfg.Cache,
		collector:  cfg.Collector,
		metrics:    cfg.Metrics,
		shardCount: cfg.ShardCount,
		maxResults: maxResults,
	}
}

// Routes registers the Gateway's routes on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /", h.Root)
	mux.HandleFunc("POST /api/findAddress", h.FindAddress)
}

// findAddressRequest is the JSON body of a findAddress request. Address is
// a pointer so a missing field (nil) can be told apart from an explicit
// empty string, which get different error messages.
type findAddressRequest struct {
	Address *string `json:"address"`
}

// scoredRecordJSON is the wire shape of one ranked result, matching
// gateway_server.cpp's json_record fields exactly. Hash is echoed straight
// through from the RPC wire, where it is already a hex string.
type scoredRecordJSON struct {
	Hash           rpcpb.Hash `json:"hash"`
	Longitude      float64    `json:"longitude"`
	Latitude       float64    `json:"latitude"`
	Number         string     `json:"number"`
	Street         string     `json:"street"`
	Unit           string     `json:"unit"`
	City           string     `json:"city"`
	Postcode       string     `json:"postcode"`
	ShardID        int        `json:"shard_id"`
	RelevanceScore float64    `json:"relevance_score"`
}

// FindAddress handles POST /api/findAddress: parses the address keyword,
// fans the query out to every Data Node, aggregates and ranks the results,
// and reports 200 (full success), 207 (partial failure with results), or
// 503 (every shard failed).
func (h *Handler) FindAddress(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	requestID := middleware.GetRequestID(ctx)

	var body findAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	if body.Address == nil {
		writeError(w, http.StatusBadRequest, "Missing 'address' field in request body")
		return
	}
	address := *body.Address
	if address == "" {
		writeError(w, http.StatusBadRequest, "Address keyword cannot be empty")
		return
	}

	queryTerms := splitQueryTerms(address)
	if len(queryTerms) == 0 {
		writeError(w, http.StatusBadRequest, "Address keyword must contain at least one term")
		return
	}

	log.Info("received findAddress request", "address", address, "terms", queryTerms)

	successfulNodes, failedNodes := h.shardCount, 0

	compute := func() ([]aggregator.ScoredRecord, error) {
		results := h.fanout.QueryAll(ctx, queryTerms)
		successfulNodes, failedNodes = 0, 0
		for _, r := range results {
			if r.Success {
				successfulNodes++
			} else {
				failedNodes++
			}
		}
		return aggregator.Aggregate(results, queryTerms, h.maxResults, h.metrics), nil
	}

	var ranked []aggregator.ScoredRecord
	var cacheHit bool
	var err error
	if h.cache != nil {
		ranked, cacheHit, err = h.cache.GetOrCompute(ctx, queryTerms, h.maxResults, compute)
	} else {
		ranked, err = compute()
	}
	if err != nil {
		log.Error("findAddress failed", "error", err)
		writeError(w, pkgerrors.HTTPStatusCode(err), "Internal server error")
		return
	}

	resultsJSON := make([]scoredRecordJSON, 0, len(ranked))
	for _, scored := range ranked {
		resultsJSON = append(resultsJSON, scoredRecordJSON{
			Hash:           rpcpb.Hash(scored.Record.ID),
			Longitude:      scored.Record.Longitude,
			Latitude:       scored.Record.Latitude,
			Number:         scored.Record.Number,
			Street:         scored.Record.Street,
			Unit:           scored.Record.Unit,
			City:           scored.Record.City,
			Postcode:       scored.Record.Postcode,
			ShardID:        scored.ShardID,
			RelevanceScore: scored.RelevanceScore,
		})
	}

	resp := map[string]any{
		"query":            address,
		"query_terms":      queryTerms,
		"results":          resultsJSON,
		"result_count":     len(resultsJSON),
		"successful_nodes": successfulNodes,
		"failed_nodes":     failedNodes,
	}

	latency := time.Since(start)
	if h.metrics != nil {
		h.metrics.FindAddressResultSize.Observe(float64(len(resultsJSON)))
	}

	status := http.StatusOK
	outcome := "ok"
	switch {
	case failedNodes > 0 && successfulNodes == 0:
		status = http.StatusServiceUnavailable
		outcome = "all_shards_failed"
		resp["error"] = "All data nodes failed to respond"
	case failedNodes > 0:
		status = http.StatusMultiStatus
		outcome = "partial"
	}
	if h.metrics != nil {
		h.metrics.FindAddressTotal.WithLabelValues(outcome).Inc()
	}

	log.Info("returning findAddress response",
		"result_count", len(resultsJSON),
		"successful_nodes", successfulNodes,
		"failed_nodes", failedNodes,
		"latency_ms", latency.Milliseconds(),
	)

	if h.collector != nil {
		eventType := analytics.EventFindAddress
		if len(resultsJSON) == 0 {
			eventType = analytics.EventZeroResult
		} else if cacheHit {
			eventType = analytics.EventCacheHit
		}
		h.collector.Track(analytics.QueryEvent{
			Type:            eventType,
			Query:           address,
			Terms:           queryTerms,
			ResultCount:     len(resultsJSON),
			SuccessfulNodes: successfulNodes,
			FailedNodes:     failedNodes,
			CacheHit:        cacheHit,
			LatencyMs:       latency.Milliseconds(),
			RequestID:       requestID,
		})
	}

	writeJSON(w, status, resp)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"data_nodes": h.shardCount,
	})
}

// Root serves a static web frontend if mounted, falling back to a small
// JSON service descriptor.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	if data, err := os.ReadFile(frontendPath); err == nil {
		w.Header().Set("Content-Type", "text/html")
		w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "Geoshard Gateway",
		"version":   "1.0.0",
		"endpoints": []string{"/health", "/api/findAddress"},
	})
}

// splitQueryTerms mirrors the original parser: a comma anywhere in the
// keyword means a single structured term is preserved as-is; otherwise the
// keyword is split on whitespace into independent terms.
func splitQueryTerms(address string) []string {
	if strings.Contains(address, ",") {
		return []string{address}
	}
	return strings.Fields(address)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
