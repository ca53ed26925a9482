package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/sequin/internal/engine"
	"github.com/kode4food/sequin/pkg/api"
)

func TestInterpolateString(t *testing.T) {
	vars := engine.Context{
		"device": "X1",
		"count":  3,
		"ratio":  0.25,
		"ready":  true,
		"none":   nil,
		"tags":   []any{"a", "b"},
		"scan": &api.TaskResult{
			Success:      true,
			ActionsTaken: 1,
		},
	}

	tests := []struct {
		name     string
		tmpl     string
		expected string
	}{
		{"no placeholders", "check device", "check device"},
		{"string", "check {{device}}", "check X1"},
		{"repeated", "{{device}}/{{device}}", "X1/X1"},
		{"int", "count={{count}}", "count=3"},
		{"float", "ratio={{ratio}}", "ratio=0.25"},
		{"bool", "ready={{ready}}", "ready=true"},
		{"nil", "none={{none}}", "none=null"},
		{"list", "tags={{tags}}", `tags=["a","b"]`},
		{"struct", "{{scan}}", `{"actions_taken":1,"success":true}`},
		{"missing", "check {{unknown}}", "check {{unknown}}"},
		{"mixed", "{{device}} {{unknown}}", "X1 {{unknown}}"},
		{"not an identifier", "{{ device }}", "{{ device }}"},
		{"dotted", "{{scan.success}}", "{{scan.success}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := engine.InterpolateString(tt.tmpl, vars)
			assert.Equal(t, tt.expected, res)
		})
	}
}

func TestInterpolateNonString(t *testing.T) {
	vars := engine.Context{"device": "X1"}

	assert.Equal(t, 42, engine.Interpolate(42, vars))
	assert.Equal(t, true, engine.Interpolate(true, vars))
	assert.Nil(t, engine.Interpolate(nil, vars))

	list := []any{"{{device}}"}
	assert.Equal(t, list, engine.Interpolate(list, vars))

	assert.Equal(t, "X1", engine.Interpolate("{{device}}", vars))
}
