// Package factory implements the Adapter Factory (C10): loading a YAML
// profile document, substituting ${VAR} tokens from a runtime context, and
// instantiating the enabled adapter list for a named profile.
package factory

import (
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"musicsearch/searchcore/internal/domain"
)

// document mirrors the profile document schema (spec §6).
type document struct {
	DefaultProfile string                   `yaml:"default_profile"`
	Profiles       map[string]profileConfig `yaml:"profiles"`
}

type profileConfig struct {
	Description string           `yaml:"description"`
	Indexers    []indexerConfig  `yaml:"indexers"`
}

type indexerConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	IndexerID  string `yaml:"indexer_id"`
	Categories []int  `yaml:"categories"`
	Timeout    int    `yaml:"timeout"`
}

// Factory is the Adapter Factory (C10).
type Factory struct {
	doc *document
}

// Load reads and parses a profile document from path. A missing or
// unparseable file returns the error together with an empty, usable
// Factory, whose LoadProfile falls back to the built-in minimal profile.
func Load(path string) (*Factory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Factory{}, err
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &Factory{}, err
	}
	return &Factory{doc: &doc}, nil
}

var varRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substitute replaces ${VAR} tokens using context, leaving unknown
// variables literal.
func substitute(value string, context map[string]string) string {
	return varRe.ReplaceAllStringFunc(value, func(match string) string {
		name := varRe.FindStringSubmatch(match)[1]
		if resolved, ok := context[name]; ok {
			return resolved
		}
		return match
	})
}

// builtinProfile is returned when no document is loaded, the requested
// profile name is unknown, or the document failed to parse.
func builtinProfile() domain.SourceProfile {
	return domain.SourceProfile{
		Description: "built-in minimal profile",
		Adapters: []domain.AdapterConfig{
			{
				Name:    "jackett",
				Type:    domain.AdapterVariantTorznab,
				Enabled: true,
				BaseURL: "http://localhost:9117",
				Timeout: 15 * time.Second,
			},
		},
	}
}

// LoadProfile resolves a named profile (or the document's default when name
// is "") into a SourceProfile with ${VAR} tokens substituted from context.
// Falls back to builtinProfile on any lookup failure.
func (f *Factory) LoadProfile(name string, context map[string]string) domain.SourceProfile {
	if f == nil || f.doc == nil {
		return builtinProfile()
	}
	if name == "" {
		name = f.doc.DefaultProfile
	}
	profile, ok := f.doc.Profiles[name]
	if !ok {
		return builtinProfile()
	}

	adapters := make([]domain.AdapterConfig, 0, len(profile.Indexers))
	for _, idx := range profile.Indexers {
		timeout := time.Duration(idx.Timeout) * time.Second
		if timeout <= 0 {
			timeout = defaultTimeoutFor(idx.Type)
		}
		adapters = append(adapters, domain.AdapterConfig{
			Name:       idx.Name,
			Type:       domain.AdapterVariant(idx.Type),
			Enabled:    idx.Enabled,
			BaseURL:    substitute(idx.BaseURL, context),
			APIKey:     substitute(idx.APIKey, context),
			IndexerID:  substitute(idx.IndexerID, context),
			Categories: idx.Categories,
			Timeout:    timeout,
		})
	}

	return domain.SourceProfile{Description: profile.Description, Adapters: enabledOnly(adapters)}
}

func enabledOnly(adapters []domain.AdapterConfig) []domain.AdapterConfig {
	out := make([]domain.AdapterConfig, 0, len(adapters))
	for _, a := range adapters {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out
}

func defaultTimeoutFor(adapterType string) time.Duration {
	switch domain.AdapterVariant(adapterType) {
	case domain.AdapterVariantHTML:
		return 10 * time.Second
	case domain.AdapterVariantTorznab:
		return 15 * time.Second
	default:
		return 15 * time.Second
	}
}

// BuildContext assembles a ${VAR} substitution context from the process
// environment, restricted to a known allow-list of keys plus any extra
// entries the caller supplies (e.g. from app.Config).
func BuildContext(extra map[string]string) map[string]string {
	context := make(map[string]string, len(extra))
	for _, key := range []string{
		"JACKETT_API_KEY", "PROWLARR_API_KEY", "JACKETT_URL", "PROWLARR_URL",
		"STREAM_CATALOG_API_KEY", "STREAM_CATALOG_URL",
	} {
		if value := os.Getenv(key); value != "" {
			context[key] = value
		}
	}
	for k, v := range extra {
		context[k] = v
	}
	return context
}
