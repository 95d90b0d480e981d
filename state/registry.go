package state

import (
	"fmt"
	"sort"
)

// Registry maps a game slug to its plugin. It is built once and never
// mutated, so it needs no locking.
type Registry struct {
	plugins map[string]Plugin
}

// NewRegistry fails on an empty or duplicate slug.
func NewRegistry(plugins ...Plugin) (*Registry, error) {
	r := &Registry{plugins: make(map[string]Plugin, len(plugins))}
	for _, p := range plugins {
		slug := p.Info().Slug
		if slug == "" {
			return nil, fmt.Errorf("plugin %T has an empty slug", p)
		}
		if _, exists := r.plugins[slug]; exists {
			return nil, fmt.Errorf("duplicate plugin slug %q", slug)
		}
		r.plugins[slug] = p
	}
	return r, nil
}

func (r *Registry) Get(slug string) (Plugin, bool) {
	p, ok := r.plugins[slug]
	return p, ok
}

// Slugs returns the registered slugs in sorted order.
func (r *Registry) Slugs() []string {
	slugs := make([]string, 0, len(r.plugins))
	for slug := range r.plugins {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// All returns every plugin ordered by slug.
func (r *Registry) All() []Plugin {
	out := make([]Plugin, 0, len(r.plugins))
	for _, slug := range r.Slugs() {
		out = append(out, r.plugins[slug])
	}
	return out
}
