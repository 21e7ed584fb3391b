package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchedule(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadSchedule_HappyPath(t *testing.T) {
	RegisterTaskFactory("demo:Noop", func(Dependencies) (*PipelineTask, error) {
		return &PipelineTask{Name: "working"}, nil
	})

	path := writeSchedule(t, `{
		"pipelines": {"working": {"class": "demo:Noop"}},
		"phases": {"working": {"pipeline": "working", "interval_seconds": 1}}
	}`)

	sched, err := LoadSchedule(path, nil)
	require.NoError(t, err)
	require.Len(t, sched.Pipelines, 1)
	require.Len(t, sched.Phases, 1)
	assert.Equal(t, "working", sched.Phases[0].PipelineName)
}

func TestLoadSchedule_EmptyPhasesFails(t *testing.T) {
	path := writeSchedule(t, `{"pipelines": {}, "phases": {}}`)
	_, err := LoadSchedule(path, nil)
	require.Error(t, err)
}

func TestLoadSchedule_UnknownPipelineReferenceFails(t *testing.T) {
	path := writeSchedule(t, `{
		"pipelines": {"working": {"class": "demo:Noop"}},
		"phases": {"working": {"pipeline": "does-not-exist"}}
	}`)
	_, err := LoadSchedule(path, nil)
	require.Error(t, err)
}

func TestLoadSchedule_UnresolvedClassPathFails(t *testing.T) {
	path := writeSchedule(t, `{
		"pipelines": {"working": {"class": "nope:Nope"}},
		"phases": {"working": {"pipeline": "working"}}
	}`)
	_, err := LoadSchedule(path, nil)
	require.Error(t, err)
}

func TestLoadSchedule_MalformedSchemaFails(t *testing.T) {
	path := writeSchedule(t, `{"pipelines": "not-an-object", "phases": {}}`)
	_, err := LoadSchedule(path, nil)
	require.Error(t, err)
}
