package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetUnknownPhaseErrors(t *testing.T) {
	r := NewRegistry()
	_, _, err := r.Get("missing")
	require.Error(t, err)
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	sleep := 5.0
	task := &PipelineTask{Name: "working"}
	r.Register("working", task, &sleep)

	got, gotSleep, err := r.Get("working")
	require.NoError(t, err)
	assert.Same(t, task, got)
	require.NotNil(t, gotSleep)
	assert.Equal(t, 5.0, *gotSleep)
}

func TestWorkingHoursSelector_PassesPhaseThrough(t *testing.T) {
	s := WorkingHoursSelector{}
	sel := s.Select("working", nil)
	assert.Equal(t, "working", sel.PipelineName)
}

func TestPipelineTask_ShortCircuitsOnNotOK(t *testing.T) {
	calledSecond := false
	p := &PipelineTask{Tasks: []Task{
		taskFunc(func(*Context) (Result, error) {
			return Result{OK: false, Payload: map[string]any{"a": 1}}, nil
		}),
		taskFunc(func(*Context) (Result, error) {
			calledSecond = true
			return Result{OK: true}, nil
		}),
	}}

	result, err := p.Run(nil)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.False(t, calledSecond)
	assert.Equal(t, 1, result.Payload["a"])
}

type taskFunc func(*Context) (Result, error)

func (f taskFunc) Run(ctx *Context) (Result, error) { return f(ctx) }
