// Package catalog holds the fixed, ordered list of downloadable scenes.
package catalog

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/scenedl/internal/domain"
)

// defaultScenes returns the built-in scene list, in display order.
func defaultScenes() []domain.Scene {
	return []domain.Scene{
		{Name: "cbox", URL: "https://www.mitsuba-renderer.org/scenes/cbox.zip"},
		{Name: "cbox_gloss", URL: "https://www.dropbox.com/s/g60176ihutoa44k/cbox_gloss.tar.gz?dl=1"},
		{Name: "rt4", URL: "https://www.dropbox.com/s/s41pt3togx4zuk5/rt4.tar.gz?dl=1"},
		{Name: "rt5", URL: "https://www.dropbox.com/s/21zaqm0080xj3gv/rt5.tar.gz?dl=1"},
	}
}

// Catalog is an immutable ordered list of scenes.
type Catalog struct {
	scenes []domain.Scene
	names  []string
}

// New builds a Catalog from scenes. Names must be non-empty and unique.
func New(scenes []domain.Scene) (*Catalog, error) {
	seen := make(map[string]bool, len(scenes))
	copied := make([]domain.Scene, 0, len(scenes))
	names := make([]string, 0, len(scenes))

	for i, s := range scenes {
		name := strings.TrimSpace(s.Name)
		url := strings.TrimSpace(s.URL)
		if name == "" {
			return nil, fmt.Errorf("scene %d: name is empty", i+1)
		}
		if url == "" {
			return nil, fmt.Errorf("scene %q: url is empty", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateScene, name)
		}
		seen[name] = true
		copied = append(copied, domain.Scene{Name: name, URL: url})
		names = append(names, name)
	}

	return &Catalog{scenes: copied, names: names}, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultScenes())
	if err != nil {
		panic(err)
	}
	return c
}

// List returns the scenes in display order. The slice is a copy.
func (c *Catalog) List() []domain.Scene {
	out := make([]domain.Scene, len(c.scenes))
	copy(out, c.scenes)
	return out
}

// Len returns the number of scenes.
func (c *Catalog) Len() int { return len(c.scenes) }

// At returns the scene at a 1-based display index.
func (c *Catalog) At(n int) (domain.Scene, error) {
	if n < 1 || n > len(c.scenes) {
		return domain.Scene{}, fmt.Errorf("%w: %d (want 1-%d)", domain.ErrInvalidSelection, n, len(c.scenes))
	}
	return c.scenes[n-1], nil
}

// Find resolves a scene by name. An exact (case-insensitive) match wins;
// otherwise the query is fuzzy-matched and must select exactly one scene.
func (c *Catalog) Find(query string) (domain.Scene, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Scene{}, fmt.Errorf("%w: empty name", domain.ErrSceneNotFound)
	}

	for _, s := range c.scenes {
		if strings.EqualFold(s.Name, query) {
			return s, nil
		}
	}

	ranks := fuzzy.RankFindNormalizedFold(query, c.names)
	switch len(ranks) {
	case 0:
		return domain.Scene{}, fmt.Errorf("%w: %s", domain.ErrSceneNotFound, query)
	case 1:
		return c.scenes[ranks[0].OriginalIndex], nil
	default:
		matches := make([]string, 0, len(ranks))
		for _, r := range ranks {
			matches = append(matches, r.Target)
		}
		return domain.Scene{}, fmt.Errorf("%w: %s matches %s", domain.ErrAmbiguousScene, query, strings.Join(matches, ", "))
	}
}
