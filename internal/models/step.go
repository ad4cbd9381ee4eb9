package models

import "time"

// Step is one declarative interaction or assertion in a scenario script.
// Selector targets an element; Script holds a JS function expression for
// evaluate/expect_truthy/wait steps; Value carries the option value, text,
// class name, expected text or file path depending on Kind.
type Step struct {
	Name        string        `yaml:"name" json:"name"`
	Kind        StepKind      `yaml:"kind" json:"kind" validate:"required,step_kind"`
	Selector    string        `yaml:"selector,omitempty" json:"selector,omitempty" validate:"required_if=Kind select,required_if=Kind fill,required_if=Kind click,required_if=Kind wait_hidden,required_if=Kind upload,required_if=Kind expect_visible,required_if=Kind expect_hidden,required_if=Kind expect_text,required_if=Kind expect_class,required_if=Kind expect_no_class,required_if=Kind expect_canvas_content"`
	Script      string        `yaml:"script,omitempty" json:"script,omitempty" validate:"required_if=Kind evaluate,required_if=Kind expect_truthy"`
	Value       string        `yaml:"value,omitempty" json:"value,omitempty" validate:"required_if=Kind select,required_if=Kind upload,required_if=Kind expect_class,required_if=Kind expect_no_class"`
	Timeout     *time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" validate:"omitempty,gte=0"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
}

// ScenarioDefinition is a declarative scenario loaded from YAML
type ScenarioDefinition struct {
	Name        string `yaml:"name" json:"name" validate:"required,hostname_rfc1123"`
	Description string `yaml:"description" json:"description"`
	Path        string `yaml:"path,omitempty" json:"path,omitempty"` // Page path relative to the server root URL
	Steps       []Step `yaml:"steps" json:"steps" validate:"required,min=1,dive"`
}
