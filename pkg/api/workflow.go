package api

import (
	"errors"
	"fmt"
)

// WorkflowDefinition is an ordered list of steps loaded from a workflow
// document. It is not modified once loaded
type WorkflowDefinition struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	Steps       Steps  `yaml:"steps" json:"steps"`
}

var (
	ErrStepNil = errors.New("step is empty")
)

// Validate checks that every step, including nested ones, is present
func (w *WorkflowDefinition) Validate() error {
	return w.Steps.validate("steps")
}

// DisplayName returns the workflow's name, or a placeholder when it has none
func (w *WorkflowDefinition) DisplayName() string {
	if w.Name == "" {
		return "Unnamed"
	}
	return w.Name
}

func (s Steps) validate(path string) error {
	for i, step := range s {
		where := fmt.Sprintf("%s[%d]", path, i)
		if step == nil {
			return fmt.Errorf("%w: %s", ErrStepNil, where)
		}
		if err := step.validate(where); err != nil {
			return err
		}
	}
	return nil
}

func (s *Step) validate(path string) error {
	switch {
	case s.Condition != nil:
		if err := s.Condition.Then.validate(path + ".then"); err != nil {
			return err
		}
		return s.Condition.Else.validate(path + ".else")
	case s.Loop != nil:
		return s.Loop.Steps.validate(path + ".steps")
	default:
		return nil
	}
}
