package model

import (
	"errors"
	"fmt"
)

type SceneKind string

const (
	SceneNarrative SceneKind = "narrative"
	SceneChoice    SceneKind = "choice"
	SceneEnding    SceneKind = "ending"
)

// Story is immutable content compiled into the binary.
type Story struct {
	ID          string  `yaml:"id" json:"id"`
	Title       string  `yaml:"title" json:"title"`
	Synopsis    string  `yaml:"synopsis" json:"synopsis"`
	Category    string  `yaml:"category" json:"category"`
	Difficulty  string  `yaml:"difficulty" json:"difficulty"`
	Cover       string  `yaml:"cover" json:"cover,omitempty"`
	TotalPoints int     `yaml:"total_points" json:"totalPoints"`
	Scenes      []Scene `yaml:"scenes" json:"-"`
}

type Scene struct {
	Kind     SceneKind `yaml:"kind" json:"kind"`
	Lines    []Line    `yaml:"lines,omitempty" json:"lines,omitempty"`
	Question string    `yaml:"question,omitempty" json:"question,omitempty"`
	Options  []Option  `yaml:"options,omitempty" json:"options,omitempty"`
}

type Line struct {
	Speaker string `yaml:"speaker,omitempty" json:"speaker,omitempty"`
	Text    string `yaml:"text" json:"text"`
}

type Option struct {
	Text     string `yaml:"text" json:"text"`
	Good     bool   `yaml:"good" json:"good"`
	Points   int    `yaml:"points" json:"points"`
	Feedback string `yaml:"feedback" json:"feedback"`
}

// MaxScore is the best achievable score: the sum of the highest option of every choice scene.
func (s *Story) MaxScore() int {
	total := 0
	for _, scene := range s.Scenes {
		if scene.Kind != SceneChoice || len(scene.Options) == 0 {
			continue
		}
		best := scene.Options[0].Points
		for _, o := range scene.Options[1:] {
			if o.Points > best {
				best = o.Points
			}
		}
		total += best
	}
	return total
}

func (s *Story) Validate() error {
	if s.ID == "" {
		return errors.New("story id is required")
	}
	if s.Title == "" {
		return fmt.Errorf("story %s: title is required", s.ID)
	}
	if len(s.Scenes) == 0 {
		return fmt.Errorf("story %s: no scenes", s.ID)
	}

	for i, scene := range s.Scenes {
		switch scene.Kind {
		case SceneNarrative:
			if len(scene.Lines) == 0 {
				return fmt.Errorf("story %s: scene %d has no lines", s.ID, i)
			}
		case SceneEnding:
			if len(scene.Lines) == 0 {
				return fmt.Errorf("story %s: ending scene %d has no lines", s.ID, i)
			}
			if i != len(s.Scenes)-1 {
				return fmt.Errorf("story %s: ending scene %d must be last", s.ID, i)
			}
		case SceneChoice:
			if scene.Question == "" {
				return fmt.Errorf("story %s: scene %d has no question", s.ID, i)
			}
			if len(scene.Options) < 2 {
				return fmt.Errorf("story %s: scene %d needs at least 2 options", s.ID, i)
			}
		default:
			return fmt.Errorf("story %s: scene %d has unknown kind %q", s.ID, i, scene.Kind)
		}
	}
	return nil
}
