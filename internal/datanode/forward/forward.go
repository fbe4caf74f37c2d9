// Package forward implements the forward store a Data Node uses to look up
// a complete address.Record by its ID, ported from
// original_source/src/data_node/forward_index.cpp.
package forward

import "github.com/delacruz-dev/geoshard/internal/address"

// Store is a map from address ID to the full record. Not safe for
// concurrent use; the Data Node guards it with its own lock.
type Store struct {
	records map[uint64]address.Record
}

// New creates an empty Store.
func New() *Store {
	return &Store{records: make(map[uint64]address.Record)}
}

// Insert adds or overwrites the record for id.
func (s *Store) Insert(id uint64, record address.Record) {
	s.records[id] = record
}

// Get returns the record for id and whether it was found.
func (s *Store) Get(id uint64) (address.Record, bool) {
	record, ok := s.records[id]
	return record, ok
}

// Contains reports whether id is present in the store.
func (s *Store) Contains(id uint64) bool {
	_, ok := s.records[id]
	return ok
}

// RecordCount returns the number of records held.
func (s *Store) RecordCount() int {
	return len(s.records)
}

// StorageSize estimates the store's resident size in bytes, counting map
// overhead plus the variable-length string fields of every record.
func (s *Store) StorageSize() uint64 {
	const mapOverhead = 48
	const recordOverhead = 96 // fixed-size fields: id, lon, lat, string headers

	total := uint64(mapOverhead)
	for _, record := range s.records {
		total += recordOverhead
		total += uint64(len(record.Number))
		total += uint64(len(record.Street))
		total += uint64(len(record.Unit))
		total += uint64(len(record.City))
		total += uint64(len(record.Postcode))
		total += uint64(len(record.OriginalStreet))
		total += uint64(len(record.OriginalUnit))
		total += uint64(len(record.OriginalCity))
	}
	return total
}
