// Package rpcpb defines the wire message types exchanged between a Gateway
// and the Data Nodes it fans out to, carried over pkg/rpc's JSON-over-TCP
// framing.
//
// These mirror the RPC payloads of the original service boundary
// (DataNodeService.Search / DataNodeService.GetStatistics) and are
// hand-written for use with the platform's lightweight RPC layer rather than
// generated from .proto files.
package rpcpb

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Hash is a record's unique 64-bit identifier. Internally it is a plain
// u64 for indexing, but it crosses the wire and the HTTP response as a
// lowercase hex string — a JSON number would lose precision once the value
// exceeds 2^53, which real hash values routinely do — so it carries its own
// JSON codec rather than marshaling as a number.
type Hash uint64

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(h), 16))
}

func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return fmt.Errorf("parsing hash %q: %w", s, err)
	}
	*h = Hash(v)
	return nil
}

// AddressRecord is the wire form of an address.Record.
type AddressRecord struct {
	Hash      Hash    `json:"hash"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Number    string  `json:"number"`
	Street    string  `json:"street"`
	Unit      string  `json:"unit"`
	City      string  `json:"city"`
	Postcode  string  `json:"postcode"`
}

// SearchRequest is the input to DataNodeService.Search.
type SearchRequest struct {
	Terms []string `json:"terms"`
}

// SearchResponse is the output of DataNodeService.Search.
type SearchResponse struct {
	ShardID int             `json:"shard_id"`
	Results []AddressRecord `json:"results"`
}

// StatisticsRequest is the input to DataNodeService.GetStatistics. It has no
// fields; Data Nodes report their own shard's statistics unconditionally.
type StatisticsRequest struct{}

// StatisticsResponse is the output of DataNodeService.GetStatistics.
type StatisticsResponse struct {
	ShardID          int   `json:"shard_id"`
	TotalRecords     int   `json:"total_records"`
	RadixTreeMemory  uint64 `json:"radix_tree_memory"`
	ForwardIndexSize uint64 `json:"forward_index_size"`
	LoadTimeMs       int64 `json:"load_time_ms"`
}

// HealthCheckResponse mirrors the platform's RPC health check convention.
type HealthCheckResponse struct {
	Status string `json:"status"` // SERVING, NOT_SERVING
}
