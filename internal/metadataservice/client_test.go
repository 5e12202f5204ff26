package metadataservice

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"context"
)

func TestSearchRecordingsOverFetchesAndSortsDeterministically(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := r.URL.Query().Get("limit")
		if limit != "100" {
			t.Errorf("expected over-fetch to min 100 for limit=20 request, got %q", limit)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"recordings":[
			{"id":"b","title":"Song B","score":90,"artist-credit":[{"name":"Artist"}],"releases":[{"title":"Album","date":"2010"}]},
			{"id":"a","title":"Song A","score":90,"artist-credit":[{"name":"Artist"}],"releases":[{"title":"Album","date":"2010"}]},
			{"id":"c","title":"Song C","score":95,"artist-credit":[{"name":"Artist"}],"releases":[{"title":"Album","date":"2010"}]}
		]}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	releases, err := client.SearchRecordings(context.Background(), "Song", "Artist", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(releases) != 3 {
		t.Fatalf("expected 3 releases, got %d", len(releases))
	}
	// highest score first; ties broken by ascending mbid
	if releases[0].MBID != "c" || releases[1].MBID != "a" || releases[2].MBID != "b" {
		t.Fatalf("unexpected order: %+v", releases)
	}
}

func TestSearchRecordingsTruncatesToLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"recordings":[
			{"id":"a","title":"1","score":50},
			{"id":"b","title":"2","score":40},
			{"id":"c","title":"3","score":30}
		]}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	releases, err := client.SearchRecordings(context.Background(), "x", "", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(releases) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(releases))
	}
}

func TestGetByIDNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	release, err := client.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if release != nil {
		t.Fatalf("expected nil release for 404, got %+v", release)
	}
}

func TestGetByIDFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc","title":"Track","score":100}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	release, err := client.GetByID(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if release == nil || release.MBID != "abc" {
		t.Fatalf("unexpected release: %+v", release)
	}
}

func TestUserAgentIsSet(t *testing.T) {
	var capturedUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"recordings":[]}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.SearchRecordings(context.Background(), "x", "", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedUA == "" {
		t.Fatalf("expected a non-empty User-Agent header")
	}
}
