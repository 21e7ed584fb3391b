package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRegistry_WiresPhasesToPipelines(t *testing.T) {
	RegisterTaskFactory("init-test:Noop", func(Dependencies) (*PipelineTask, error) {
		return &PipelineTask{Name: "noop"}, nil
	})

	sched := &Schedule{
		Pipelines: []PipelineSpec{{Name: "working", ClassPath: "init-test:Noop"}},
		Phases:    []PhasePolicy{{Phase: "working", PipelineName: "working"}},
	}

	registry, err := BuildRegistry(sched, Dependencies{})
	require.NoError(t, err)

	task, defaultSleep, err := registry.Get("working")
	require.NoError(t, err)
	require.Equal(t, "noop", task.Name)
	require.Nil(t, defaultSleep)
}

func TestBuildRegistry_FailsOnUnbuildableClassPath(t *testing.T) {
	sched := &Schedule{
		Pipelines: []PipelineSpec{{Name: "working", ClassPath: "init-test:DoesNotExist"}},
		Phases:    []PhasePolicy{{Phase: "working", PipelineName: "working"}},
	}

	_, err := BuildRegistry(sched, Dependencies{})
	require.Error(t, err)
}
