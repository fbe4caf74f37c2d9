// Package loader parses the CSV data file a Data Node loads at startup into
// address.Record values, the way original_source/src/data_node/csv_parser.cpp
// does: a hand-rolled quote-toggle line splitter, tolerant of malformed rows.
package loader

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// expectedFields is the CSV column count:
// LON,LAT,NUMBER,STREET,UNIT,CITY,DISTRICT,REGION,POSTCODE,ID,HASH
const expectedFields = 11

// Stats reports how many rows parsed successfully versus were skipped.
type Stats struct {
	SuccessCount int
	ErrorCount   int
}

// Record is a raw, unnormalized row parsed from the CSV. The Data Node
// normalizes fields separately when it builds its indexes; Record preserves
// exactly what was read so the original text survives into search results.
type Record struct {
	ID        uint64
	Longitude float64
	Latitude  float64
	Number    string
	Street    string
	Unit      string
	City      string
	Postcode  string
}

// Load reads path and parses every data row, skipping the header line, blank
// lines, and malformed rows (fewer than 11 fields, unparseable numbers, or
// out-of-range coordinates). It never returns an error for a malformed row —
// those are only reflected in the returned Stats — but does return an error
// if the file itself cannot be opened.
func Load(path string) ([]Record, Stats, error) {
	logger := slog.Default().With("component", "loader")

	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("opening data file %s: %w", path, err)
	}
	defer f.Close()

	var records []Record
	var stats Stats

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	isHeader := true
	for scanner.Scan() {
		line := scanner.Text()
		if isHeader {
			isHeader = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		record, ok := parseRecord(line)
		if !ok {
			stats.ErrorCount++
			continue
		}
		records = append(records, record)
		stats.SuccessCount++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("reading data file %s: %w", path, err)
	}

	logger.Info("csv parse complete", "path", path, "success", stats.SuccessCount, "errors", stats.ErrorCount)
	return records, stats, nil
}

func parseRecord(line string) (Record, bool) {
	fields := splitCSVLine(line)
	if len(fields) < expectedFields {
		return Record{}, false
	}

	longitude, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return Record{}, false
	}
	latitude, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return Record{}, false
	}
	if !validCoordinates(longitude, latitude) {
		return Record{}, false
	}

	var hash uint64
	hashStr := strings.TrimSpace(fields[10])
	if hashStr != "" {
		hash, err = strconv.ParseUint(hashStr, 16, 64)
		if err != nil {
			return Record{}, false
		}
	}

	return Record{
		ID:        hash,
		Longitude: longitude,
		Latitude:  latitude,
		Number:    fields[2],
		Street:    fields[3],
		Unit:      fields[4],
		City:      fields[5],
		// fields[6] district, fields[7] region, fields[9] id: not retained.
		Postcode: fields[8],
	}, true
}

func validCoordinates(lon, lat float64) bool {
	return lon >= -180.0 && lon <= 180.0 && lat >= -90.0 && lat <= 90.0
}

// splitCSVLine splits a line on commas, toggling quote state so commas
// inside quoted fields don't split the field. Quote characters themselves
// are dropped from the output, matching the original parser's behaviour.
func splitCSVLine(line string) []string {
	fields := make([]string, 0, expectedFields)
	var field strings.Builder
	inQuotes := false

	for _, c := range line {
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(c)
		}
	}
	fields = append(fields, field.String())
	return fields
}
