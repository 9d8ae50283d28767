package catalog_test

import (
	"testing"

	"marquee/internal/catalog"
)

func TestResolveIdentity(t *testing.T) {
	tests := []struct {
		name   string
		item   catalog.OutputItem
		wantID int64
		wantOK bool
	}{
		{name: "numeric field", item: catalog.OutputItem{ID: "tt0111161", TMDBID: 278}, wantID: 278, wantOK: true},
		{name: "numeric field wins over prefix", item: catalog.OutputItem{ID: "tmdb:1", TMDBID: 2}, wantID: 2, wantOK: true},
		{name: "prefixed key", item: catalog.OutputItem{ID: "tmdb:550"}, wantID: 550, wantOK: true},
		{name: "prefixed key with whitespace", item: catalog.OutputItem{ID: "  tmdb:550 "}, wantID: 550, wantOK: true},
		{name: "imdb only", item: catalog.OutputItem{ID: "tt0137523"}},
		{name: "empty", item: catalog.OutputItem{}},
		{name: "prefix without number", item: catalog.OutputItem{ID: "tmdb:"}},
		{name: "prefix with garbage", item: catalog.OutputItem{ID: "tmdb:abc"}},
		{name: "prefix with negative", item: catalog.OutputItem{ID: "tmdb:-4"}},
		{name: "negative numeric falls through to key", item: catalog.OutputItem{ID: "tmdb:9", TMDBID: -1}, wantID: 9, wantOK: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := catalog.ResolveIdentity(tc.item)
			if ok != tc.wantOK || id != tc.wantID {
				t.Fatalf("ResolveIdentity(%+v) = (%d, %v), want (%d, %v)", tc.item, id, ok, tc.wantID, tc.wantOK)
			}
		})
	}
}

func TestTMDBKeyRoundTripsThroughIdentity(t *testing.T) {
	id, ok := catalog.ResolveIdentity(catalog.OutputItem{ID: catalog.TMDBKey(603)})
	if !ok || id != 603 {
		t.Fatalf("expected 603, got %d (%v)", id, ok)
	}
}

func TestSnapshotValidate(t *testing.T) {
	var nilSnap *catalog.Snapshot
	if err := nilSnap.Validate(); err == nil {
		t.Fatal("expected error for nil snapshot")
	}
	if err := (&catalog.Snapshot{}).Validate(); err == nil {
		t.Fatal("expected error for missing categories")
	}
	partial := &catalog.Snapshot{Categories: map[string][]catalog.OutputItem{"ACTION": {{ID: "tt1"}, {Name: "no id"}}}}
	if err := partial.Validate(); err != nil {
		t.Fatalf("an item without id must not reject the snapshot: %v", err)
	}
	good := &catalog.Snapshot{Categories: map[string][]catalog.OutputItem{"ACTION": {{ID: "tt1"}}}}
	if err := good.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCandidateAge(t *testing.T) {
	item := catalog.CandidateItem{ReleaseDate: "2019-05-01"}
	if age := item.AgeAt(2026); age != 7 {
		t.Fatalf("age = %d, want 7", age)
	}
	if age := (catalog.CandidateItem{}).AgeAt(2026); age != 0 {
		t.Fatalf("missing date age = %d, want 0", age)
	}
	if age := (catalog.CandidateItem{ReleaseDate: "TBA"}).AgeAt(2026); age != 0 {
		t.Fatalf("malformed date age = %d, want 0", age)
	}
}
