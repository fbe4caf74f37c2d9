// Package datanode implements the Data Node: the shard-owning service that
// loads one CSV file into a radix trie + forward store and answers search
// queries against it, ported from original_source/src/data_node/data_node.cpp.
package datanode

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/delacruz-dev/geoshard/internal/address"
	"github.com/delacruz-dev/geoshard/internal/datanode/forward"
	"github.com/delacruz-dev/geoshard/internal/datanode/loader"
	"github.com/delacruz-dev/geoshard/internal/datanode/normalize"
	"github.com/delacruz-dev/geoshard/internal/datanode/radix"
	pkgerrors "github.com/delacruz-dev/geoshard/pkg/errors"
)

// State is the lifecycle phase of a Node.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Statistics reports the outcome of the most recent Initialize call.
type Statistics struct {
	TotalRecords     int
	RadixTreeMemory  uint64
	ForwardIndexSize uint64
	LoadTime         time.Duration
}

// Node owns one shard's worth of address data: a radix trie for prefix
// search and a forward store for ID-to-record lookup.
type Node struct {
	shardID      int
	dataFilePath string

	mu     sync.RWMutex
	state  State
	radix  *radix.Tree
	fwd    *forward.Store
	stats  Statistics
	logger *slog.Logger
}

// New creates a Node for the given shard, not yet initialized.
func New(shardID int, dataFilePath string) *Node {
	return &Node{
		shardID:      shardID,
		dataFilePath: dataFilePath,
		state:        StateUninitialized,
		logger:       slog.Default().With("component", "data-node", "shard_id", shardID),
	}
}

// Initialize loads the CSV data file and builds the radix trie and forward
// store. It may only be called once; calling it again after Ready or
// Terminated returns an error.
func (n *Node) Initialize() error {
	n.mu.Lock()
	if n.state != StateUninitialized {
		state := n.state
		n.mu.Unlock()
		return fmt.Errorf("initialize: node is %s, not uninitialized", state)
	}
	n.state = StateLoading
	n.mu.Unlock()

	start := time.Now()
	n.logger.Info("starting data load", "path", n.dataFilePath)

	records, loadStats, err := loader.Load(n.dataFilePath)
	if err != nil {
		n.mu.Lock()
		n.state = StateUninitialized
		n.mu.Unlock()
		return fmt.Errorf("loading data file: %w", err)
	}
	if len(records) == 0 {
		n.mu.Lock()
		n.state = StateUninitialized
		n.mu.Unlock()
		return fmt.Errorf("no valid records loaded from %s", n.dataFilePath)
	}
	n.logger.Info("parsed records", "count", len(records), "errors", loadStats.ErrorCount)

	radixIndex := radix.New()
	fwd := forward.New()
	buildIndexes(radixIndex, fwd, records)

	stats := Statistics{
		TotalRecords:     len(records),
		RadixTreeMemory:  radixIndex.MemoryUsage(),
		ForwardIndexSize: fwd.StorageSize(),
		LoadTime:         time.Since(start),
	}

	n.mu.Lock()
	n.radix = radixIndex
	n.fwd = fwd
	n.stats = stats
	n.state = StateReady
	n.mu.Unlock()

	n.logger.Info("index build complete",
		"total_records", stats.TotalRecords,
		"radix_tree_memory_bytes", stats.RadixTreeMemory,
		"forward_index_size_bytes", stats.ForwardIndexSize,
		"load_time_ms", stats.LoadTime.Milliseconds(),
	)
	return nil
}

func buildIndexes(tree *radix.Tree, fwd *forward.Store, records []loader.Record) {
	for _, r := range records {
		rec := address.Record{
			ID:             r.ID,
			Longitude:      r.Longitude,
			Latitude:       r.Latitude,
			Number:         r.Number,
			Street:         r.Street,
			Unit:           r.Unit,
			City:           r.City,
			Postcode:       r.Postcode,
			OriginalStreet: r.Street,
			OriginalUnit:   r.Unit,
			OriginalCity:   r.City,
		}
		fwd.Insert(rec.ID, rec)

		if rec.Street != "" {
			tree.Insert(normalize.Normalize(rec.Street), rec.ID)
		}
		if rec.City != "" {
			tree.Insert(normalize.Normalize(rec.City), rec.ID)
		}
		if rec.Postcode != "" {
			tree.Insert(normalize.Normalize(rec.Postcode), rec.ID)
		}
		if rec.Number != "" {
			tree.Insert(normalize.Normalize(rec.Number), rec.ID)
		}
	}
}

// Search finds every record matching all of queryTerms. Terms are
// normalized before lookup; a record matches only if every term's
// normalized form is a prefix of the normalized text of at least one of its
// fields (number/street/city/postcode) — i.e. intersection across terms.
func (n *Node) Search(queryTerms []string) ([]address.Record, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.state != StateReady {
		return nil, fmt.Errorf("search: node is %s, not ready: %w", n.state, pkgerrors.ErrShardUnavailable)
	}
	if len(queryTerms) == 0 {
		return nil, nil
	}

	matchingIDs := n.findMatchingIDs(queryTerms)
	n.logger.Info("search complete", "terms", len(queryTerms), "matches", len(matchingIDs))

	results := make([]address.Record, 0, len(matchingIDs))
	for _, id := range matchingIDs {
		record, ok := n.fwd.Get(id)
		if !ok {
			n.logger.Warn("index inconsistency: id in radix tree but not forward store", "id", id)
			continue
		}
		results = append(results, record)
	}
	return results, nil
}

func (n *Node) findMatchingIDs(queryTerms []string) []uint64 {
	normalized := make([]string, len(queryTerms))
	for i, term := range queryTerms {
		normalized[i] = normalize.Normalize(term)
	}

	firstIDs := n.radix.Search(normalized[0])
	if len(firstIDs) == 0 || len(normalized) == 1 {
		return firstIDs
	}

	result := toSet(firstIDs)
	for _, term := range normalized[1:] {
		termIDs := toSet(n.radix.Search(term))
		result = intersect(result, termIDs)
		if len(result) == 0 {
			break
		}
	}
	return fromSet(result)
}

func toSet(ids []uint64) map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func intersect(a, b map[uint64]struct{}) map[uint64]struct{} {
	result := make(map[uint64]struct{})
	for id := range a {
		if _, ok := b[id]; ok {
			result[id] = struct{}{}
		}
	}
	return result
}

func fromSet(set map[uint64]struct{}) []uint64 {
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GetStatistics returns the statistics recorded by the last Initialize call.
func (n *Node) GetStatistics() Statistics {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stats
}

// State returns the Node's current lifecycle state.
func (n *Node) State() State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// Terminate transitions the Node to StateTerminated. A terminated Node
// rejects further Search calls.
func (n *Node) Terminate() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = StateTerminated
	n.logger.Info("node terminated")
}
