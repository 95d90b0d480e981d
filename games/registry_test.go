package games

import (
	"testing"

	"github.com/wfunc/partygame/games/numberguesser"
	"github.com/wfunc/partygame/games/threecrumbs"
)

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	slugs := reg.Slugs()
	if len(slugs) != 2 || slugs[0] != numberguesser.Slug || slugs[1] != threecrumbs.Slug {
		t.Fatalf("unexpected slugs %v", slugs)
	}

	for _, slug := range slugs {
		p, ok := reg.Get(slug)
		if !ok {
			t.Fatalf("Get(%q) should find the plugin", slug)
		}
		if p.Info().Slug != slug {
			t.Errorf("plugin registered as %q reports slug %q", slug, p.Info().Slug)
		}
		if _, err := p.NormalizeConfig(p.DefaultConfig()); err != nil {
			t.Errorf("%s default config does not normalize: %v", slug, err)
		}
	}

	if _, ok := reg.Get("chess"); ok {
		t.Error("unknown slug should not resolve")
	}
}
