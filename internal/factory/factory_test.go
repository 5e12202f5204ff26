package factory

import (
	"os"
	"path/filepath"
	"testing"

	"musicsearch/searchcore/internal/domain"
)

func TestLoadProfileMissingFileFallsBackToBuiltin(t *testing.T) {
	f, err := Load("/nonexistent/path/profiles.yaml")
	if err == nil {
		t.Fatalf("expected error reading missing file")
	}
	profile := f.LoadProfile("anything", nil)
	if len(profile.Adapters) != 1 || profile.Adapters[0].Name != "jackett" {
		t.Fatalf("expected built-in fallback profile, got %+v", profile)
	}
}

func TestLoadProfileUnknownNameFallsBackToBuiltin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	content := `
default_profile: default
profiles:
  default:
    description: test profile
    indexers:
      - name: jackett
        type: torznab
        enabled: true
        base_url: http://localhost:9117
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	profile := f.LoadProfile("does-not-exist", nil)
	if profile.Description != "built-in minimal profile" {
		t.Fatalf("expected builtin fallback, got %+v", profile)
	}
}

func TestLoadProfileSubstitutesVariables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	content := `
default_profile: main
profiles:
  main:
    description: main profile
    indexers:
      - name: jackett
        type: torznab
        enabled: true
        base_url: http://localhost:9117
        api_key: ${JACKETT_API_KEY}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	profile := f.LoadProfile("", map[string]string{"JACKETT_API_KEY": "secret123"})
	if len(profile.Adapters) != 1 || profile.Adapters[0].APIKey != "secret123" {
		t.Fatalf("expected substituted api key, got %+v", profile.Adapters)
	}
}

func TestLoadProfileLeavesUnknownVariableLiteral(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	content := `
default_profile: main
profiles:
  main:
    description: main profile
    indexers:
      - name: jackett
        type: torznab
        enabled: true
        base_url: http://localhost:9117
        api_key: ${UNKNOWN_VAR}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	profile := f.LoadProfile("main", nil)
	if profile.Adapters[0].APIKey != "${UNKNOWN_VAR}" {
		t.Fatalf("expected unknown var left literal, got %q", profile.Adapters[0].APIKey)
	}
}

func TestLoadProfileFiltersDisabledAdapters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	content := `
default_profile: main
profiles:
  main:
    description: main profile
    indexers:
      - name: enabled-one
        type: torznab
        enabled: true
      - name: disabled-one
        type: torznab
        enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	profile := f.LoadProfile("main", nil)
	if len(profile.Adapters) != 1 || profile.Adapters[0].Name != "enabled-one" {
		t.Fatalf("expected only enabled adapter, got %+v", profile.Adapters)
	}
}

func TestLoadProfileDefaultTimeoutByType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	content := `
default_profile: main
profiles:
  main:
    description: main profile
    indexers:
      - name: scraper
        type: html
        enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	profile := f.LoadProfile("main", nil)
	if profile.Adapters[0].Timeout.Seconds() != 10 {
		t.Fatalf("expected 10s default timeout for html adapters, got %v", profile.Adapters[0].Timeout)
	}
}

func TestApplyOverrideSetsContext(t *testing.T) {
	context := map[string]string{}
	ApplyOverride(context, "JACKETT", RuntimeOverride{BaseURL: "http://override:9117", APIKey: "newkey"})
	if context["JACKETT_URL"] != "http://override:9117" || context["JACKETT_API_KEY"] != "newkey" {
		t.Fatalf("unexpected context: %+v", context)
	}
}

func TestNilFactoryReturnsBuiltin(t *testing.T) {
	var f *Factory
	profile := f.LoadProfile("anything", nil)
	if profile.Adapters[0].Type != domain.AdapterVariantTorznab {
		t.Fatalf("expected builtin torznab adapter, got %+v", profile)
	}
}
