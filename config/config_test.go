package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoad_RequiresPipelineSchedulePath(t *testing.T) {
	clearEnv(t, "PIPELINE_SCHEDULE_PATH")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "PIPELINE_SCHEDULE_PATH")
}

func TestLoad_AppliesDefaults(t *testing.T) {
	clearEnv(t, "PIPELINE_SCHEDULE_PATH", "EDGE_EVENT_BACKEND", "LOOP_INTERVAL_SECONDS")
	os.Setenv("PIPELINE_SCHEDULE_PATH", "/tmp/schedule.json")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http", cfg.EdgeEventBackend)
	require.Equal(t, "http", cfg.PhasePublishBackend)
	require.Equal(t, 5.0, cfg.LoopIntervalSeconds)
	require.Equal(t, 180.0, cfg.PhaseStableSeconds)
}

func TestLoad_PhasePublishBackendDefaultsToEdgeEventBackend(t *testing.T) {
	clearEnv(t, "PIPELINE_SCHEDULE_PATH", "EDGE_EVENT_BACKEND", "PHASE_PUBLISH_BACKEND")
	os.Setenv("PIPELINE_SCHEDULE_PATH", "/tmp/schedule.json")
	os.Setenv("EDGE_EVENT_BACKEND", "mqtt")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "mqtt", cfg.PhasePublishBackend)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	clearEnv(t, "PIPELINE_SCHEDULE_PATH", "EDGE_EVENT_BACKEND")
	os.Setenv("PIPELINE_SCHEDULE_PATH", "/tmp/schedule.json")
	os.Setenv("EDGE_EVENT_BACKEND", "carrier-pigeon")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsUnknownStaleMode(t *testing.T) {
	clearEnv(t, "PIPELINE_SCHEDULE_PATH", "EDGE_EVENT_STALE_MODE")
	os.Setenv("PIPELINE_SCHEDULE_PATH", "/tmp/schedule.json")
	os.Setenv("EDGE_EVENT_STALE_MODE", "nonsense")

	_, err := Load()
	require.Error(t, err)
}

func TestSafeConfig_UpdateRejectsInvalid(t *testing.T) {
	cfg := &AppConfig{PipelineSchedulePath: "/tmp/schedule.json", EdgeEventBackend: "http", PhasePublishBackend: "http"}
	safe := NewSafeConfig(cfg)

	require.Equal(t, "/tmp/schedule.json", safe.Get().PipelineSchedulePath)

	err := safe.Update(&AppConfig{})
	require.Error(t, err)
	require.Equal(t, "/tmp/schedule.json", safe.Get().PipelineSchedulePath)
}
