// Package aggregator merges the per-shard search results a Fanout collects
// into a single ranked, deduplicated list, ported from
// original_source/src/gateway/gateway_server.cpp's calculateRelevanceScore,
// isDuplicate, and aggregateAndRankResults.
package aggregator

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/delacruz-dev/geoshard/internal/address"
	"github.com/delacruz-dev/geoshard/internal/datanode/normalize"
	"github.com/delacruz-dev/geoshard/internal/gateway/fanout"
	"github.com/delacruz-dev/geoshard/pkg/metrics"
)

// DefaultMaxResults matches the original gateway's hard-coded top-5 cutoff.
const DefaultMaxResults = 5

// ScoredRecord pairs an address.Record with the shard it came from and its
// computed relevance score.
type ScoredRecord struct {
	Record         address.Record
	ShardID        int
	RelevanceScore float64
}

var logger = slog.Default().With("component", "aggregator")

// Aggregate merges every successful shard's records, scores them against
// query terms, deduplicates, and returns the top maxResults by descending
// score. m may be nil to disable metrics collection.
func Aggregate(results []fanout.Result, queryTerms []string, maxResults int, m *metrics.Metrics) []ScoredRecord {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	var scored []ScoredRecord
	var duplicates int

	for _, result := range results {
		if !result.Success {
			continue
		}
		for _, record := range result.Records {
			score := CalculateRelevanceScore(record, queryTerms)

			if idx := findDuplicate(scored, record); idx >= 0 {
				duplicates++
				if score > scored[idx].RelevanceScore {
					logger.Info("duplicate found, keeping higher score",
						"new_score", score, "old_score", scored[idx].RelevanceScore)
					scored[idx] = ScoredRecord{Record: record, ShardID: result.ShardID, RelevanceScore: score}
				}
				continue
			}

			scored = append(scored, ScoredRecord{Record: record, ShardID: result.ShardID, RelevanceScore: score})
		}
	}

	if m != nil && duplicates > 0 {
		m.AggregationDuplicatesTotal.Add(float64(duplicates))
	}
	logger.Info("deduplicated results", "unique_count", len(scored))

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})

	if len(scored) > maxResults {
		logger.Info("truncating results", "max_results", maxResults)
		scored = scored[:maxResults]
	}

	return scored
}

func findDuplicate(scored []ScoredRecord, record address.Record) int {
	for i, existing := range scored {
		if isDuplicate(existing.Record, record) {
			return i
		}
	}
	return -1
}

// isDuplicate reports whether a and b refer to the same address. Unit is
// ignored since its formatting varies.
func isDuplicate(a, b address.Record) bool {
	return a.Number == b.Number &&
		a.Street == b.Street &&
		a.City == b.City &&
		a.Postcode == b.Postcode
}

// CalculateRelevanceScore scores record against queryTerms: base score is
// the fraction of terms that match any field, with bonuses for matches at
// the start of street/city, postcode and number matches, and address
// completeness. Both terms and fields are normalized before comparison so
// casing never affects whether a bonus fires.
func CalculateRelevanceScore(record address.Record, queryTerms []string) float64 {
	var score float64

	street := normalize.Normalize(record.Street)
	city := normalize.Normalize(record.City)
	postcode := normalize.Normalize(record.Postcode)
	number := normalize.Normalize(record.Number)
	fields := []string{street, city, postcode, number}

	terms := make([]string, len(queryTerms))
	for i, term := range queryTerms {
		terms[i] = normalize.Normalize(term)
	}

	matchingTerms := 0
	for _, term := range terms {
		found := false
		for _, field := range fields {
			if strings.Contains(field, term) {
				found = true
				break
			}
		}
		if found {
			matchingTerms++
		}
	}

	if len(terms) > 0 {
		score += (float64(matchingTerms) / float64(len(terms))) * 100.0
	}

	for _, term := range terms {
		if idx := strings.Index(street, term); idx >= 0 {
			if idx == 0 {
				score += 15.0
			} else {
				score += 10.0
			}
		}
		if idx := strings.Index(city, term); idx >= 0 {
			if idx == 0 {
				score += 8.0
			} else {
				score += 5.0
			}
		}
		if strings.Contains(postcode, term) {
			score += 3.0
		}
		if strings.Contains(number, term) {
			score += 5.0
		}
	}

	completeness := 0
	if record.Number != "" {
		completeness++
	}
	if record.Street != "" {
		completeness++
	}
	if record.Unit != "" {
		completeness++
	}
	if record.City != "" {
		completeness++
	}
	if record.Postcode != "" {
		completeness++
	}
	score += float64(completeness) * 2.0

	return score
}
