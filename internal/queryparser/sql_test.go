package queryparser

import (
	"testing"

	"musicsearch/searchcore/internal/domain"
)

func TestIsSQLQuery(t *testing.T) {
	if !IsSQLQuery("select album where artist=\"Daft Punk\"") {
		t.Fatalf("expected case-insensitive SELECT detection")
	}
	if IsSQLQuery("Daft Punk Discovery") {
		t.Fatalf("plain text should not be detected as SQL")
	}
}

func TestParseSQLBasic(t *testing.T) {
	got, err := ParseSQL(`SELECT album WHERE artist="Daft Punk" AND format="FLAC"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SearchType != domain.SearchTypeAlbum {
		t.Fatalf("expected album type, got %v", got.SearchType)
	}
	if got.Clauses["artist"] != "Daft Punk" || got.Clauses["format"] != "FLAC" {
		t.Fatalf("unexpected clauses: %+v", got.Clauses)
	}
	if got.OrderBy != "quality" || !got.Descending {
		t.Fatalf("expected default ORDER BY quality DESC, got %q desc=%v", got.OrderBy, got.Descending)
	}
	if got.Limit != 50 {
		t.Fatalf("expected default limit 50, got %d", got.Limit)
	}
}

func TestParseSQLOrderByAndLimit(t *testing.T) {
	got, err := ParseSQL(`SELECT song WHERE year=2020 ORDER BY seeders ASC LIMIT 10 OFFSET 5`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.OrderBy != "seeders" || got.Descending {
		t.Fatalf("expected seeders ASC, got %q desc=%v", got.OrderBy, got.Descending)
	}
	if got.Limit != 10 || got.Offset != 5 {
		t.Fatalf("expected limit=10 offset=5, got limit=%d offset=%d", got.Limit, got.Offset)
	}
}

func TestParseSQLSeedersGTE(t *testing.T) {
	got, err := ParseSQL(`SELECT album WHERE seeders>=10`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Clauses["seeders"] != ">=10" {
		t.Fatalf("unexpected seeders clause: %q", got.Clauses["seeders"])
	}
}

func TestParseSQLSizeBetween(t *testing.T) {
	got, err := ParseSQL(`SELECT album WHERE size BETWEEN 100 AND 500`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Clauses["size"] != "100..500" {
		t.Fatalf("unexpected size clause: %q", got.Clauses["size"])
	}
}

func TestParseSQLUnknownKeyIgnored(t *testing.T) {
	got, err := ParseSQL(`SELECT album WHERE bogus_key="value" AND artist="X"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, present := got.Clauses["bogus_key"]; present {
		t.Fatalf("unknown key should be ignored")
	}
	if got.Clauses["artist"] != "X" {
		t.Fatalf("expected artist clause to survive, got %+v", got.Clauses)
	}
}

func TestParseSQLKeyAliases(t *testing.T) {
	got, err := ParseSQL(`SELECT album WHERE name="X" AND release="Y" AND title="Z"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Clauses["artist"] != "X" || got.Clauses["album"] != "Y" || got.Clauses["track"] != "Z" {
		t.Fatalf("unexpected aliased clauses: %+v", got.Clauses)
	}
}

func TestParseSQLInvalidShape(t *testing.T) {
	_, err := ParseSQL("this is not sql at all")
	if err != domain.ErrInvalidSQLQuery {
		t.Fatalf("expected ErrInvalidSQLQuery, got %v", err)
	}
}
