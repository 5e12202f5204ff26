package streamcatalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"musicsearch/searchcore/internal/domain"
)

func TestSearchMapsTracksAndAppliesDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer testkey" {
			t.Fatalf("expected bearer auth header, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(searchResponse{Tracks: []trackEntry{
			{ID: "t1", Title: "Song One", Artist: "Band", DurationSeconds: 200, WatchURL: "https://cat.test/watch/t1"},
			{ID: "t2", Title: "Song Two", Artist: "Band", Codec: "FLAC", BitrateKbps: 900},
			{ID: "", Title: "Dropped - no id"},
		}})
	}))
	defer server.Close()

	p := NewProvider("streamcat", Config{DefaultCodec: "AAC", DefaultBitrate: 256})
	config := domain.AdapterConfig{Name: "streamcat", BaseURL: server.URL, APIKey: "testkey", Timeout: 5 * time.Second}

	results, err := p.Search(context.Background(), "Band Song", config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results (missing-id entry dropped), got %d", len(results))
	}
	if results[0].Codec != "AAC" || results[0].BitrateKbps != 256 {
		t.Fatalf("expected default codec/bitrate applied, got %+v", results[0])
	}
	if results[1].Codec != "FLAC" || results[1].BitrateKbps != 900 {
		t.Fatalf("expected track-specific codec/bitrate preserved, got %+v", results[1])
	}
	if results[0].Seeders != nil {
		t.Fatalf("stream results must never set seeders, got %v", results[0].Seeders)
	}
}

func TestSearchEmptyBaseURLErrors(t *testing.T) {
	p := NewProvider("streamcat", Config{})
	_, err := p.Search(context.Background(), "q", domain.AdapterConfig{Name: "x"})
	if err == nil {
		t.Fatal("expected error for missing base_url")
	}
}

func TestResolveReturnsStreamURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "track-123" {
			t.Fatalf("expected id query param, got %q", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]string{"stream_url": "https://cdn.test/stream/track-123.m4a"})
	}))
	defer server.Close()

	p := NewProvider("streamcat", Config{})
	config := domain.AdapterConfig{Name: "streamcat", BaseURL: server.URL, Timeout: 5 * time.Second}

	url, err := p.Resolve(context.Background(), "track-123", config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://cdn.test/stream/track-123.m4a" {
		t.Fatalf("unexpected resolved url: %q", url)
	}
}

func TestResolveEmptyIDErrors(t *testing.T) {
	p := NewProvider("streamcat", Config{})
	_, err := p.Resolve(context.Background(), "  ", domain.AdapterConfig{BaseURL: "http://example.test"})
	if err == nil {
		t.Fatal("expected error for empty track id")
	}
}

func TestResolveMissingStreamURLErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	p := NewProvider("streamcat", Config{})
	_, err := p.Resolve(context.Background(), "track-1", domain.AdapterConfig{BaseURL: server.URL})
	if err == nil {
		t.Fatal("expected error when catalog returns no stream_url")
	}
}
