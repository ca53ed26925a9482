package api

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	// StepType is the tag that selects which kind of step a Step is
	StepType string

	// Steps is an ordered sequence of steps
	Steps []*Step

	// Step is a single unit of workflow behavior. Type selects the kind, and
	// exactly one of the kind payloads is set for every known type. Steps
	// with an unrecognized Type carry no payload and fail when executed
	Step struct {
		Task            *TaskStep        `json:"task,omitempty"`
		Condition       *ConditionStep   `json:"condition,omitempty"`
		SetVariable     *SetVariableStep `json:"set_variable,omitempty"`
		Loop            *LoopStep        `json:"loop,omitempty"`
		Name            string           `json:"name,omitempty"`
		Type            StepType         `json:"type"`
		Delay           time.Duration    `json:"delay,omitempty"`
		ContinueOnError bool             `json:"continue_on_error,omitempty"`
	}

	// TaskStep dispatches an interpolated task string to the task router
	TaskStep struct {
		Task    string `json:"task"`
		StoreAs string `json:"store_as,omitempty"`
	}

	// ConditionStep evaluates a boolean expression and runs one of two
	// branches
	ConditionStep struct {
		Condition string `json:"condition"`
		Then      Steps  `json:"then,omitempty"`
		Else      Steps  `json:"else,omitempty"`
	}

	// SetVariableStep assigns a value into the run context
	SetVariableStep struct {
		Value    any    `json:"value"`
		Variable string `json:"variable"`
	}

	// LoopStep runs its steps once per item, binding each item to
	// ItemVariable
	LoopStep struct {
		Items        []any  `json:"items"`
		ItemVariable string `json:"item_variable"`
		Steps        Steps  `json:"steps"`
	}

	stepDoc struct {
		Delay           any    `yaml:"delay"`
		Value           any    `yaml:"value"`
		Type            string `yaml:"type"`
		Name            string `yaml:"name"`
		Task            string `yaml:"task"`
		StoreAs         string `yaml:"store_as"`
		Condition       string `yaml:"condition"`
		Variable        string `yaml:"variable"`
		ItemVariable    string `yaml:"item_variable"`
		Then            Steps  `yaml:"then"`
		Else            Steps  `yaml:"else"`
		Steps           Steps  `yaml:"steps"`
		Items           []any  `yaml:"items"`
		ContinueOnError bool   `yaml:"continue_on_error"`
	}
)

const (
	StepTypeTask        StepType = "task"
	StepTypeCondition   StepType = "condition"
	StepTypeSetVariable StepType = "set_variable"
	StepTypeLoop        StepType = "loop"

	// DefaultItemVariable is bound when a loop does not name its variable
	DefaultItemVariable = "item"
)

var (
	ErrNegativeDelay  = errors.New("delay cannot be negative")
	ErrInvalidDelay   = errors.New("invalid delay")
	ErrVariableEmpty  = errors.New("set_variable step requires a variable")
	ErrStepNotMapping = errors.New("step must be a mapping")
)

// UnmarshalYAML decodes the flat step mapping of a workflow document into
// the tagged Step form. A missing type defaults to task
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%w (line %d)", ErrStepNotMapping, value.Line)
	}

	var doc stepDoc
	if err := value.Decode(&doc); err != nil {
		return err
	}

	delay, err := parseDelay(doc.Delay)
	if err != nil {
		return fmt.Errorf("%w (line %d)", err, value.Line)
	}

	res := Step{
		Name:            doc.Name,
		Type:            StepType(doc.Type),
		Delay:           delay,
		ContinueOnError: doc.ContinueOnError,
	}
	if res.Type == "" {
		res.Type = StepTypeTask
	}

	switch res.Type {
	case StepTypeTask:
		res.Task = &TaskStep{
			Task:    doc.Task,
			StoreAs: doc.StoreAs,
		}
	case StepTypeCondition:
		res.Condition = &ConditionStep{
			Condition: doc.Condition,
			Then:      doc.Then,
			Else:      doc.Else,
		}
	case StepTypeSetVariable:
		if doc.Variable == "" {
			return fmt.Errorf("%w (line %d)", ErrVariableEmpty, value.Line)
		}
		res.SetVariable = &SetVariableStep{
			Variable: doc.Variable,
			Value:    NormalizeValue(doc.Value),
		}
	case StepTypeLoop:
		itemVar := doc.ItemVariable
		if itemVar == "" {
			itemVar = DefaultItemVariable
		}
		items, _ := NormalizeValue(doc.Items).([]any)
		res.Loop = &LoopStep{
			Items:        items,
			ItemVariable: itemVar,
			Steps:        doc.Steps,
		}
	}

	*s = res
	return nil
}

// DisplayName returns the step's name, or a placeholder when it has none
func (s *Step) DisplayName() string {
	if s.Name == "" {
		return "Unnamed Step"
	}
	return s.Name
}

// parseDelay accepts a number of seconds (integer or fractional) or a Go
// duration string
func parseDelay(raw any) (time.Duration, error) {
	var res time.Duration
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int:
		res = time.Duration(v) * time.Second
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidDelay, v)
		}
		res = time.Duration(v * float64(time.Second))
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDelay, v)
		}
		res = d
	default:
		return 0, fmt.Errorf("%w: %v", ErrInvalidDelay, v)
	}
	if res < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNegativeDelay, res)
	}
	return res, nil
}
