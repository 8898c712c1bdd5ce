// Package content loads the story scripts compiled into the binary.
package content

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/lac-hong-legacy/ecotale_api/model"
	"gopkg.in/yaml.v3"
)

//go:embed stories/*.yaml
var storyFiles embed.FS

// Catalog is an immutable, validated set of stories.
type Catalog struct {
	stories map[string]*model.Story
	order   []string
}

// Load parses and validates the embedded stories.
func Load() (*Catalog, error) {
	return LoadFS(storyFiles, "stories")
}

func LoadFS(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read story directory: %w", err)
	}

	var stories []*model.Story
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}

		var story model.Story
		if err := yaml.Unmarshal(data, &story); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		stories = append(stories, &story)
	}

	return NewCatalog(stories...)
}

func NewCatalog(stories ...*model.Story) (*Catalog, error) {
	c := &Catalog{stories: make(map[string]*model.Story, len(stories))}
	for _, s := range stories {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.stories[s.ID]; dup {
			return nil, fmt.Errorf("duplicate story id %q", s.ID)
		}
		if s.TotalPoints == 0 {
			s.TotalPoints = s.MaxScore()
		}
		c.stories[s.ID] = s
		c.order = append(c.order, s.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

func (c *Catalog) Get(id string) (*model.Story, bool) {
	s, ok := c.stories[id]
	return s, ok
}

// List returns stories ordered by id.
func (c *Catalog) List() []*model.Story {
	out := make([]*model.Story, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.stories[id])
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.order)
}
