package aggregator

import (
	"testing"

	"github.com/delacruz-dev/geoshard/internal/address"
	"github.com/delacruz-dev/geoshard/internal/gateway/fanout"
)

func TestCalculateRelevanceScoreBaseAndBonuses(t *testing.T) {
	record := address.Record{Number: "100", Street: "MAIN ST", City: "SEATTLE", Postcode: "98101"}
	score := CalculateRelevanceScore(record, []string{"MAIN"})

	// base: 1/1 * 100 = 100, street match at position 0: +15, completeness 4 fields * 2 = 8
	want := 100.0 + 15.0 + 8.0
	if score != want {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestCalculateRelevanceScoreIsCaseInsensitive(t *testing.T) {
	record := address.Record{Number: "100", Street: "Main St", City: "Seattle", Postcode: "98101"}
	score := CalculateRelevanceScore(record, []string{"main"})

	want := 100.0 + 15.0 + 8.0
	if score != want {
		t.Errorf("score = %v, want %v (mixed-case record/term should score the same as uppercase)", score, want)
	}
}

func TestCalculateRelevanceScoreNoMatch(t *testing.T) {
	record := address.Record{Street: "OAK ST", City: "PORTLAND"}
	score := CalculateRelevanceScore(record, []string{"MAIN"})
	if score != 4.0 {
		t.Errorf("score = %v, want 4 (completeness only)", score)
	}
}

func TestAggregateDeduplicatesKeepingHigherScore(t *testing.T) {
	low := address.Record{Number: "100", Street: "MAIN ST", City: "SEATTLE", Postcode: "98101", Unit: ""}
	high := address.Record{Number: "100", Street: "MAIN ST", City: "SEATTLE", Postcode: "98101", Unit: "APT 2"}

	results := []fanout.Result{
		{ShardID: 0, Success: true, Records: []address.Record{low}},
		{ShardID: 1, Success: true, Records: []address.Record{high}},
	}

	scored := Aggregate(results, []string{"MAIN"}, 5, nil)
	if len(scored) != 1 {
		t.Fatalf("expected 1 deduplicated record, got %d", len(scored))
	}
	if scored[0].Record.Unit != "APT 2" {
		t.Errorf("expected higher-scoring (more complete) record to win, got unit %q", scored[0].Record.Unit)
	}
}

func TestAggregateSkipsFailedShards(t *testing.T) {
	results := []fanout.Result{
		{ShardID: 0, Success: false},
		{ShardID: 1, Success: true, Records: []address.Record{{Street: "MAIN ST"}}},
	}
	scored := Aggregate(results, []string{"MAIN"}, 5, nil)
	if len(scored) != 1 {
		t.Fatalf("expected 1 record from successful shard, got %d", len(scored))
	}
}

func TestAggregateTruncatesToMaxResults(t *testing.T) {
	var results []fanout.Result
	var records []address.Record
	for i := 0; i < 10; i++ {
		records = append(records, address.Record{Number: string(rune('A' + i)), Street: "MAIN ST"})
	}
	results = append(results, fanout.Result{ShardID: 0, Success: true, Records: records})

	scored := Aggregate(results, []string{"MAIN"}, 3, nil)
	if len(scored) != 3 {
		t.Fatalf("expected 3 results, got %d", len(scored))
	}
}

func TestAggregateSortsDescendingByScore(t *testing.T) {
	results := []fanout.Result{
		{ShardID: 0, Success: true, Records: []address.Record{
			{Street: "OAK ST", City: "PORTLAND"},
			{Number: "100", Street: "MAIN ST", City: "SEATTLE", Postcode: "98101"},
		}},
	}
	scored := Aggregate(results, []string{"MAIN"}, 5, nil)
	if len(scored) != 2 {
		t.Fatalf("expected 2 results, got %d", len(scored))
	}
	if scored[0].RelevanceScore < scored[1].RelevanceScore {
		t.Errorf("expected descending order, got %v then %v", scored[0].RelevanceScore, scored[1].RelevanceScore)
	}
}
