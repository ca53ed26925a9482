package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/sequin/internal/assert/helpers"
	"github.com/kode4food/sequin/internal/engine"
	"github.com/kode4food/sequin/pkg/api"
)

func newVars(seed api.Args) engine.Context {
	return engine.NewContext(seed, time.Unix(0, 0))
}

func TestExecuteUnknownType(t *testing.T) {
	x := engine.NewExecutor(helpers.NewMockRouter())

	res := x.Execute(context.Background(), &api.Step{
		Name: "Beam",
		Type: "teleport",
	}, newVars(nil))

	assert.False(t, res.Success)
	assert.Equal(t, "unknown step type: teleport", res.Error)
	assert.Equal(t, api.StepType("teleport"), res.Type)
	assert.Equal(t, "Beam", res.Name)
}

func TestExecuteMissingConfig(t *testing.T) {
	x := engine.NewExecutor(helpers.NewMockRouter())

	for _, typ := range []api.StepType{
		api.StepTypeTask, api.StepTypeCondition,
		api.StepTypeSetVariable, api.StepTypeLoop,
	} {
		t.Run(string(typ), func(t *testing.T) {
			res := x.Execute(
				context.Background(), &api.Step{Type: typ}, newVars(nil),
			)
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, engine.ErrMissingConfig.Error())
		})
	}
}

func TestExecuteNilStep(t *testing.T) {
	x := engine.NewExecutor(helpers.NewMockRouter())
	res := x.Execute(context.Background(), nil, newVars(nil))
	assert.False(t, res.Success)
	assert.Equal(t, api.ErrStepNil.Error(), res.Error)
}

func TestTaskStep(t *testing.T) {
	ctx := context.Background()

	t.Run("interpolates and stores", func(t *testing.T) {
		router := helpers.NewMockRouter()
		x := engine.NewExecutor(router)
		vars := newVars(api.Args{"device": "X1"})

		step := helpers.NewStoreStep("Scan", "scan {{device}}", "scan")
		res := x.Execute(ctx, step, vars)

		require.True(t, res.Success)
		assert.Equal(t, []string{"scan X1"}, router.Tasks())
		require.NotNil(t, res.Task)
		assert.Equal(t, "scan X1", res.Task.Outputs["task"])
		assert.Same(t, res.Task, vars["scan"])
	})

	t.Run("failure is not stored", func(t *testing.T) {
		router := helpers.NewMockRouter()
		router.SetFailure("scan", "device offline")
		x := engine.NewExecutor(router)
		vars := newVars(nil)

		res := x.Execute(ctx, helpers.NewStoreStep("", "scan", "scan"), vars)

		assert.False(t, res.Success)
		assert.Equal(t, "device offline", res.Error)
		assert.Equal(t, "device offline", res.Task.Error)
		_, ok := vars["scan"]
		assert.False(t, ok)
	})

	t.Run("router error", func(t *testing.T) {
		router := helpers.NewMockRouter()
		router.SetError("scan", errors.New("connection refused"))
		x := engine.NewExecutor(router)
		vars := newVars(nil)

		res := x.Execute(ctx, helpers.NewStoreStep("", "scan", "scan"), vars)

		assert.False(t, res.Success)
		assert.Equal(t, "connection refused", res.Error)
		assert.Nil(t, res.Task)
		_, ok := vars["scan"]
		assert.False(t, ok)
	})

	t.Run("no result", func(t *testing.T) {
		x := engine.NewExecutor(engine.TaskRouterFunc(
			func(context.Context, string) (*api.TaskResult, error) {
				return nil, nil
			},
		))
		res := x.Execute(ctx, helpers.NewTaskStep("", "scan"), newVars(nil))
		assert.False(t, res.Success)
		assert.Equal(t, engine.ErrNoTaskResult.Error(), res.Error)
	})

	t.Run("no router", func(t *testing.T) {
		x := engine.NewExecutor(nil)
		res := x.Execute(ctx, helpers.NewTaskStep("", "scan"), newVars(nil))
		assert.False(t, res.Success)
		assert.Equal(t, engine.ErrNoRouter.Error(), res.Error)
	})
}

func TestSetVariableStep(t *testing.T) {
	ctx := context.Background()
	x := engine.NewExecutor(helpers.NewMockRouter())

	tests := []struct {
		name     string
		value    any
		expected any
	}{
		{"template", "device-{{id}}", "device-7"},
		{"missing key", "{{unknown}}", "{{unknown}}"},
		{"int", 5, 5},
		{"bool", false, false},
		{"list", []any{"{{id}}"}, []any{"{{id}}"}},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := newVars(api.Args{"id": 7})
			res := x.Execute(ctx, helpers.NewSetStep("", "out", tt.value), vars)

			require.True(t, res.Success)
			assert.Equal(t, "out", res.Variable)
			assert.Equal(t, tt.expected, res.Value)
			assert.Equal(t, tt.expected, vars["out"])
		})
	}

	t.Run("empty variable", func(t *testing.T) {
		res := x.Execute(ctx, helpers.NewSetStep("", "", 1), newVars(nil))
		assert.False(t, res.Success)
		assert.Equal(t, api.ErrVariableEmpty.Error(), res.Error)
	})
}

func TestConditionStep(t *testing.T) {
	ctx := context.Background()

	branches := func(cond string) *api.Step {
		return helpers.NewConditionStep("Check", cond,
			api.Steps{helpers.NewTaskStep("", "then")},
			api.Steps{helpers.NewTaskStep("", "else")},
		)
	}

	t.Run("true runs then", func(t *testing.T) {
		router := helpers.NewMockRouter()
		x := engine.NewExecutor(router)

		res := x.Execute(ctx, branches("context.ready"),
			newVars(api.Args{"ready": true}),
		)

		require.True(t, res.Success)
		require.NotNil(t, res.ConditionResult)
		assert.True(t, *res.ConditionResult)
		assert.Equal(t, []string{"then"}, router.Tasks())
		assert.Len(t, res.Results, 1)
	})

	t.Run("false runs else", func(t *testing.T) {
		router := helpers.NewMockRouter()
		x := engine.NewExecutor(router)

		res := x.Execute(ctx, branches("context.ready"),
			newVars(api.Args{"ready": false}),
		)

		require.True(t, res.Success)
		assert.False(t, *res.ConditionResult)
		assert.Equal(t, []string{"else"}, router.Tasks())
	})

	t.Run("interpolated condition", func(t *testing.T) {
		router := helpers.NewMockRouter()
		x := engine.NewExecutor(router)

		res := x.Execute(ctx, branches("'{{device}}' == 'X1'"),
			newVars(api.Args{"device": "X1"}),
		)

		require.True(t, res.Success)
		assert.True(t, *res.ConditionResult)
	})

	t.Run("stored task result", func(t *testing.T) {
		router := helpers.NewMockRouter()
		router.SetResult("scan", &api.TaskResult{
			Success:      true,
			ActionsTaken: 2,
			Outputs:      api.Args{"ports": []any{22, 80}},
		})
		x := engine.NewExecutor(router)
		vars := newVars(nil)

		x.Execute(ctx, helpers.NewStoreStep("", "scan", "scan"), vars)
		res := x.Execute(ctx, branches(
			"context.scan.success == True and 80 in context.scan.outputs.ports",
		), vars)

		require.True(t, res.Success)
		assert.True(t, *res.ConditionResult)
	})

	t.Run("undefined name fails", func(t *testing.T) {
		router := helpers.NewMockRouter()
		x := engine.NewExecutor(router)

		res := x.Execute(ctx, branches("context.missing == 1"), newVars(nil))

		assert.False(t, res.Success)
		assert.Nil(t, res.ConditionResult)
		assert.Contains(t, res.Error, "condition evaluation failed: ")
		assert.Contains(t, res.Error, "undefined path")
		assert.Zero(t, router.CallCount())
	})

	t.Run("syntax error fails", func(t *testing.T) {
		x := engine.NewExecutor(helpers.NewMockRouter())
		res := x.Execute(ctx, branches("context.ready and"), newVars(nil))
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "condition evaluation failed: ")
	})

	t.Run("branch runs past nested failure", func(t *testing.T) {
		router := helpers.NewMockRouter()
		router.SetFailure("first", "boom")
		x := engine.NewExecutor(router)

		step := helpers.NewConditionStep("Check", "true", api.Steps{
			helpers.NewTaskStep("", "first"),
			helpers.NewTaskStep("", "second"),
		}, nil)
		res := x.Execute(ctx, step, newVars(nil))

		assert.True(t, res.Success)
		require.Len(t, res.Results, 2)
		assert.False(t, res.Results[0].Success)
		assert.True(t, res.Results[1].Success)
		assert.Equal(t, []string{"first", "second"}, router.Tasks())
	})

	t.Run("branch continues on error", func(t *testing.T) {
		router := helpers.NewMockRouter()
		router.SetFailure("first", "boom")
		x := engine.NewExecutor(router)

		step := helpers.NewConditionStep("Check", "true", api.Steps{
			helpers.ContinueOnError(helpers.NewTaskStep("", "first")),
			helpers.NewTaskStep("", "second"),
		}, nil)
		res := x.Execute(ctx, step, newVars(nil))

		assert.True(t, res.Success)
		assert.Len(t, res.Results, 2)
		assert.Equal(t, []string{"first", "second"}, router.Tasks())
	})
}

func TestLoopStep(t *testing.T) {
	ctx := context.Background()

	t.Run("binds each item in order", func(t *testing.T) {
		router := helpers.NewMockRouter()
		x := engine.NewExecutor(router)
		vars := newVars(nil)

		step := helpers.NewLoopStep("Visit", "n", []any{1, 2, 3},
			helpers.NewTaskStep("", "visit {{n}}"),
		)
		res := x.Execute(ctx, step, vars)

		require.True(t, res.Success)
		assert.Equal(t, 3, res.Iterations)
		assert.Len(t, res.Results, 3)
		assert.Equal(t,
			[]string{"visit 1", "visit 2", "visit 3"}, router.Tasks(),
		)
		assert.Equal(t, 3, vars["n"])
	})

	t.Run("default item variable", func(t *testing.T) {
		router := helpers.NewMockRouter()
		x := engine.NewExecutor(router)

		step := helpers.NewLoopStep("", "", []any{"a"},
			helpers.NewTaskStep("", "visit {{item}}"),
		)
		res := x.Execute(ctx, step, newVars(nil))

		require.True(t, res.Success)
		assert.Equal(t, []string{"visit a"}, router.Tasks())
	})

	t.Run("empty items", func(t *testing.T) {
		router := helpers.NewMockRouter()
		x := engine.NewExecutor(router)

		step := helpers.NewLoopStep("", "n", nil,
			helpers.NewTaskStep("", "visit {{n}}"),
		)
		res := x.Execute(ctx, step, newVars(nil))

		require.True(t, res.Success)
		assert.Zero(t, res.Iterations)
		assert.Empty(t, res.Results)
		assert.Zero(t, router.CallCount())
	})

	t.Run("failure aborts with partial results", func(t *testing.T) {
		router := helpers.NewMockRouter()
		router.SetFailure("visit 2", "unreachable")
		x := engine.NewExecutor(router)

		step := helpers.NewLoopStep("Visit", "n", []any{1, 2, 3},
			helpers.NewTaskStep("", "visit {{n}}"),
			helpers.NewTaskStep("", "log {{n}}"),
		)
		res := x.Execute(ctx, step, newVars(nil))

		assert.False(t, res.Success)
		assert.Equal(t, "loop step failed", res.Error)
		assert.Len(t, res.Results, 3)
		assert.Equal(t,
			[]string{"visit 1", "log 1", "visit 2"}, router.Tasks(),
		)
	})

	t.Run("failure continues on error", func(t *testing.T) {
		router := helpers.NewMockRouter()
		router.SetFailure("visit 2", "unreachable")
		x := engine.NewExecutor(router)

		step := helpers.NewLoopStep("Visit", "n", []any{1, 2, 3},
			helpers.ContinueOnError(helpers.NewTaskStep("", "visit {{n}}")),
		)
		res := x.Execute(ctx, step, newVars(nil))

		assert.True(t, res.Success)
		assert.Equal(t, 3, res.Iterations)
		assert.Len(t, res.Results, 3)
		assert.False(t, res.Results[1].Success)
	})

	t.Run("nested writes are visible afterwards", func(t *testing.T) {
		x := engine.NewExecutor(helpers.NewMockRouter())
		vars := newVars(nil)

		step := helpers.NewLoopStep("", "n", []any{"a", "b"},
			helpers.NewSetStep("", "last", "seen {{n}}"),
		)
		res := x.Execute(ctx, step, vars)

		require.True(t, res.Success)
		assert.Equal(t, "seen b", vars["last"])
		assert.Equal(t, "b", vars["n"])
	})

	t.Run("nested loops", func(t *testing.T) {
		router := helpers.NewMockRouter()
		x := engine.NewExecutor(router)

		inner := helpers.NewLoopStep("", "y", []any{"a", "b"},
			helpers.NewTaskStep("", "{{x}}{{y}}"),
		)
		step := helpers.NewLoopStep("", "x", []any{1, 2}, inner)
		res := x.Execute(ctx, step, newVars(nil))

		require.True(t, res.Success)
		assert.Equal(t, []string{"1a", "1b", "2a", "2b"}, router.Tasks())
		require.Len(t, res.Results, 2)
		assert.Len(t, res.Results[0].Results, 2)
	})
}

func TestExecuteEvents(t *testing.T) {
	rec := helpers.NewEventRecorder()
	x := engine.NewExecutor(helpers.NewMockRouter(), engine.WithEvents(rec))

	step := helpers.NewConditionStep("Check", "true",
		api.Steps{helpers.NewTaskStep("Inner", "go")}, nil,
	)
	x.Execute(context.Background(), step, newVars(nil))

	evs := rec.Events()
	require.Len(t, evs, 4)
	assert.Equal(t, []api.EventType{
		api.EventTypeStepStarted,
		api.EventTypeStepStarted,
		api.EventTypeStepCompleted,
		api.EventTypeStepCompleted,
	}, rec.Types())
	assert.Equal(t, "Check", evs[0].Step)
	assert.Equal(t, 0, evs[0].Depth)
	assert.Equal(t, "Inner", evs[1].Step)
	assert.Equal(t, 1, evs[1].Depth)
	assert.Equal(t, api.StepTypeTask, evs[2].StepType)
}

func TestExecuteFailedEvent(t *testing.T) {
	rec := helpers.NewEventRecorder()
	router := helpers.NewMockRouter()
	router.SetFailure("go", "nope")
	x := engine.NewExecutor(router, engine.WithEvents(rec))

	x.Execute(context.Background(), helpers.NewTaskStep("", "go"), newVars(nil))

	evs := rec.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, api.EventTypeStepFailed, evs[1].Type)
	assert.Equal(t, "nope", evs[1].Error)
	assert.Equal(t, "Unnamed Step", evs[1].Step)
}
