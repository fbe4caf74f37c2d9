package datanode

import (
	"os"
	"path/filepath"
	"testing"
)

const testCSV = `LON,LAT,NUMBER,STREET,UNIT,CITY,DISTRICT,REGION,POSTCODE,ID,HASH
-122.33,47.61,100,MAIN ST,,SEATTLE,,WA,98101,1,1
-122.34,47.62,200,MAIN AVE,,SEATTLE,,WA,98102,2,2
-122.68,45.52,300,OAK ST,,PORTLAND,,OR,97201,3,3
`

func writeTestCSV(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "shard.csv")
	if err := os.WriteFile(path, []byte(testCSV), 0o644); err != nil {
		t.Fatalf("writing test csv: %v", err)
	}
	return path
}

func TestInitializeBuildsIndexesAndTransitionsToReady(t *testing.T) {
	n := New(0, writeTestCSV(t))
	if err := n.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if n.State() != StateReady {
		t.Fatalf("State() = %v, want Ready", n.State())
	}

	stats := n.GetStatistics()
	if stats.TotalRecords != 3 {
		t.Errorf("TotalRecords = %d, want 3", stats.TotalRecords)
	}
	if stats.RadixTreeMemory == 0 {
		t.Error("expected nonzero RadixTreeMemory")
	}
	if stats.ForwardIndexSize == 0 {
		t.Error("expected nonzero ForwardIndexSize")
	}
}

func TestInitializeTwiceFails(t *testing.T) {
	n := New(0, writeTestCSV(t))
	if err := n.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if err := n.Initialize(); err == nil {
		t.Fatal("expected second Initialize() to fail")
	}
}

func TestSearchBeforeInitializeFails(t *testing.T) {
	n := New(0, writeTestCSV(t))
	if _, err := n.Search([]string{"MAIN"}); err == nil {
		t.Fatal("expected Search() before Initialize() to fail")
	}
}

func TestSearchSingleTermMatchesAllFieldsSharingPrefix(t *testing.T) {
	n := New(0, writeTestCSV(t))
	if err := n.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	results, err := n.Search([]string{"SEATTLE"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search(SEATTLE) returned %d results, want 2", len(results))
	}
}

func TestSearchMultiTermIntersects(t *testing.T) {
	n := New(0, writeTestCSV(t))
	if err := n.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	results, err := n.Search([]string{"MAIN", "SEATTLE"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search(MAIN, SEATTLE) returned %d results, want 2", len(results))
	}

	results, err = n.Search([]string{"OAK", "SEATTLE"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Search(OAK, SEATTLE) returned %d results, want 0 (no record matches both)", len(results))
	}
}

func TestSearchNoResultsForUnknownTerm(t *testing.T) {
	n := New(0, writeTestCSV(t))
	if err := n.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	results, err := n.Search([]string{"NOWHERE"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestInitializeFailsOnMissingFile(t *testing.T) {
	n := New(0, filepath.Join(t.TempDir(), "missing.csv"))
	if err := n.Initialize(); err == nil {
		t.Fatal("expected Initialize() to fail for missing file")
	}
	if n.State() != StateUninitialized {
		t.Errorf("State() = %v, want Uninitialized after failed load", n.State())
	}
}

func TestTerminateRejectsFurtherSearch(t *testing.T) {
	n := New(0, writeTestCSV(t))
	if err := n.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	n.Terminate()

	if _, err := n.Search([]string{"MAIN"}); err == nil {
		t.Fatal("expected Search() after Terminate() to fail")
	}
}
