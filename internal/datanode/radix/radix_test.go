package radix

import (
	"reflect"
	"sort"
	"testing"
)

func TestInsertAndSearchExactMatch(t *testing.T) {
	tr := New()
	tr.Insert("SEATTLE", 1)
	tr.Insert("SEATAC", 2)

	got := tr.Search("SEATTLE")
	if !reflect.DeepEqual(got, []uint64{1}) {
		t.Errorf("Search(SEATTLE) = %v, want [1]", got)
	}
}

func TestSearchPrefixCollectsSubtree(t *testing.T) {
	tr := New()
	tr.Insert("SEATTLE", 1)
	tr.Insert("SEATAC", 2)
	tr.Insert("SEA", 3)

	got := tr.Search("SEA")
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := []uint64{1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Search(SEA) = %v, want %v", got, want)
	}
}

func TestSearchNoMatch(t *testing.T) {
	tr := New()
	tr.Insert("SEATTLE", 1)
	if got := tr.Search("PORTLAND"); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestSearchEmptyPrefix(t *testing.T) {
	tr := New()
	tr.Insert("SEATTLE", 1)
	if got := tr.Search(""); len(got) != 0 {
		t.Errorf("expected no matches for empty prefix, got %v", got)
	}
}

func TestInsertDeduplicatesSameIDForSameTerm(t *testing.T) {
	tr := New()
	tr.Insert("MAIN", 1)
	tr.Insert("MAIN", 1)
	got := tr.Search("MAIN")
	if len(got) != 1 {
		t.Errorf("expected deduplicated single id, got %v", got)
	}
}

func TestSearchDeduplicatesAcrossTermsSharingID(t *testing.T) {
	tr := New()
	tr.Insert("MAIN STREET", 1)
	tr.Insert("MAIN AVENUE", 1)
	got := tr.Search("MAIN")
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected single deduplicated id, got %v", got)
	}
}

func TestEdgeSplitOnDivergingInsert(t *testing.T) {
	tr := New()
	tr.Insert("TEST", 1)
	tr.Insert("TEAM", 2)
	tr.Insert("TEA", 3)

	if got := tr.Search("TEST"); !reflect.DeepEqual(got, []uint64{1}) {
		t.Errorf("Search(TEST) = %v, want [1]", got)
	}
	if got := tr.Search("TEAM"); !reflect.DeepEqual(got, []uint64{2}) {
		t.Errorf("Search(TEAM) = %v, want [2]", got)
	}
	got := tr.Search("TE")
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := []uint64{1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Search(TE) = %v, want %v", got, want)
	}
}

func TestEmptyTermIgnored(t *testing.T) {
	tr := New()
	tr.Insert("", 1)
	if tr.TermCount() != 0 {
		t.Fatalf("TermCount() = %d, want 0 (empty term is a no-op)", tr.TermCount())
	}
	if got := tr.Search("A"); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestTermCount(t *testing.T) {
	tr := New()
	tr.Insert("A", 1)
	tr.Insert("B", 2)
	tr.Insert("C", 3)
	if tr.TermCount() != 3 {
		t.Errorf("TermCount() = %d, want 3", tr.TermCount())
	}
}

func TestMemoryUsageGrowsWithInserts(t *testing.T) {
	tr := New()
	before := tr.MemoryUsage()
	tr.Insert("SEATTLE WASHINGTON", 1)
	after := tr.MemoryUsage()
	if after <= before {
		t.Errorf("expected memory usage to grow, before=%d after=%d", before, after)
	}
}
