// Package config resolves the daemon's environment-variable surface into a
// typed AppConfig, and wraps the parts of it that change after startup
// (currently none) in a mutex-guarded SafeConfig in the style this codebase
// uses for runtime-mutable configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"
)

// StaleMode mirrors phase.StaleMode's string encoding at the config
// boundary, kept separate so package phase never depends on package config.
type StaleMode string

const (
	StaleModeOff     StaleMode = ""
	StaleModeFreeze  StaleMode = "freeze"
	StaleModeUnknown StaleMode = "unknown"
)

// AppConfig is the fully resolved, validated configuration for one run.
// Every field traces to an environment variable named in its comment.
type AppConfig struct {
	LoopIntervalSeconds  float64   // LOOP_INTERVAL_SECONDS
	PhaseStableSeconds   float64   // PHASE_STABLE_SECONDS
	EdgeEventMaxAge      float64   // EDGE_EVENT_MAX_AGE
	EdgeEventStaleAfter  float64   // EDGE_EVENT_STALE_SECONDS, 0 = off
	EdgeEventStaleMode   StaleMode // EDGE_EVENT_STALE_MODE
	EdgeEventUnknownName string    // EDGE_EVENT_UNKNOWN_PHASE
	ClockSkewSeconds     float64   // EDGE_EVENT_CLOCK_SKEW_SECONDS

	EdgeEventBackend    string // EDGE_EVENT_BACKEND: http | mqtt | websocket
	PhasePublishBackend string // PHASE_PUBLISH_BACKEND, defaults to EdgeEventBackend

	PipelineSchedulePath string // PIPELINE_SCHEDULE_PATH, required
	ConfigRoot           string // CONFIG_ROOT

	HTTPAddr            string // HTTP_ADDR
	WebSocketAddr       string // WEBSOCKET_ADDR
	WebSocketEventsPath string // WEBSOCKET_EDGE_EVENT_PATH

	MQTTHost             string // MQTT_HOST
	MQTTPort             int    // MQTT_PORT
	MQTTQoS              byte   // MQTT_QOS
	MQTTRetain           bool   // MQTT_RETAIN
	MQTTHeartbeatSeconds int    // MQTT_HEARTBEAT_SECONDS
	MQTTClientID         string // MQTT_CLIENT_ID
	PhaseMQTTTopic       string // PHASE_MQTT_TOPIC
	EdgeEventsMQTTTopic  string // EDGE_EVENTS_MQTT_TOPIC

	RetryBackoffSeconds float64 // RETRY_BACKOFF_SECONDS

	NATSURL                   string // NATS_URL
	NATSDispatchSubjectPrefix string // NATS_DISPATCH_SUBJECT_PREFIX

	MetricsAddr string // METRICS_ADDR

	ServiceName string // SERVICE_NAME, used in phase-publish payloads and logs

	MCMOTEnabled  bool // TRACKING_ENGINE_CLASS presence
	FormatEnabled bool // FORMAT_TASK_ENABLED, default true

	PhaseEngineClass     string // PHASE_ENGINE_CLASS
	SchedulerEngineClass string // SCHEDULER_ENGINE_CLASS
	SelectorClass        string // PIPELINE_SELECTOR_CLASS
	RuleEngineClass      string // RULES_ENGINE_CLASS
	DispatchEngineClass  string // EVENT_DISPATCH_ENGINE_CLASS
}

// Load resolves AppConfig from the process environment, applying the
// defaults documented alongside each field and failing fast on the one
// field with no sane default: PIPELINE_SCHEDULE_PATH.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		LoopIntervalSeconds:  getFloat("LOOP_INTERVAL_SECONDS", 5),
		PhaseStableSeconds:   getFloat("PHASE_STABLE_SECONDS", 180),
		EdgeEventMaxAge:      getFloat("EDGE_EVENT_MAX_AGE", 30),
		EdgeEventStaleAfter:  getFloat("EDGE_EVENT_STALE_SECONDS", 0),
		EdgeEventStaleMode:   StaleMode(getString("EDGE_EVENT_STALE_MODE", "")),
		EdgeEventUnknownName: getString("EDGE_EVENT_UNKNOWN_PHASE", "unknown"),
		ClockSkewSeconds:     getFloat("EDGE_EVENT_CLOCK_SKEW_SECONDS", 2),

		EdgeEventBackend: getString("EDGE_EVENT_BACKEND", "http"),

		PipelineSchedulePath: getString("PIPELINE_SCHEDULE_PATH", ""),
		ConfigRoot:           getString("CONFIG_ROOT", "."),

		HTTPAddr:            getString("HTTP_ADDR", ":8080"),
		WebSocketAddr:       getString("WEBSOCKET_ADDR", ":8081"),
		WebSocketEventsPath: getString("WEBSOCKET_EDGE_EVENT_PATH", "/edge/events/ws"),

		MQTTHost:             getString("MQTT_HOST", "localhost"),
		MQTTPort:             getInt("MQTT_PORT", 1883),
		MQTTQoS:              byte(getInt("MQTT_QOS", 1)),
		MQTTRetain:           getBool("MQTT_RETAIN", true),
		MQTTHeartbeatSeconds: getInt("MQTT_HEARTBEAT_SECONDS", 30),
		MQTTClientID:         getString("MQTT_CLIENT_ID", "integrationd"),
		PhaseMQTTTopic:       getString("PHASE_MQTT_TOPIC", "integration/phase"),
		EdgeEventsMQTTTopic:  getString("EDGE_EVENTS_MQTT_TOPIC", "edge/events"),

		RetryBackoffSeconds: getFloat("RETRY_BACKOFF_SECONDS", 2),

		NATSURL:                   getString("NATS_URL", "nats://localhost:4222"),
		NATSDispatchSubjectPrefix: getString("NATS_DISPATCH_SUBJECT_PREFIX", "events."),

		MetricsAddr: getString("METRICS_ADDR", ":9464"),

		ServiceName: getString("SERVICE_NAME", "integrationd"),

		PhaseEngineClass:     getString("PHASE_ENGINE_CLASS", ""),
		SchedulerEngineClass: getString("SCHEDULER_ENGINE_CLASS", ""),
		SelectorClass:        getString("PIPELINE_SELECTOR_CLASS", ""),
		RuleEngineClass:      getString("RULES_ENGINE_CLASS", ""),
		DispatchEngineClass:  getString("EVENT_DISPATCH_ENGINE_CLASS", ""),

		MCMOTEnabled:  getString("TRACKING_ENGINE_CLASS", "") != "",
		FormatEnabled: getBool("FORMAT_TASK_ENABLED", true),
	}

	if cfg.PhasePublishBackend = getString("PHASE_PUBLISH_BACKEND", ""); cfg.PhasePublishBackend == "" {
		cfg.PhasePublishBackend = cfg.EdgeEventBackend
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the one required field and the enumerations named in
// the external interfaces surface. Called by Load and re-checked by
// SafeConfig.Update for any future runtime reload path.
func (c *AppConfig) Validate() error {
	if c.PipelineSchedulePath == "" {
		return fmt.Errorf("config: PIPELINE_SCHEDULE_PATH is required")
	}

	switch c.EdgeEventBackend {
	case "http", "mqtt", "websocket":
	default:
		return fmt.Errorf("config: EDGE_EVENT_BACKEND %q must be one of http, mqtt, websocket", c.EdgeEventBackend)
	}

	switch c.PhasePublishBackend {
	case "http", "mqtt", "websocket":
	default:
		return fmt.Errorf("config: PHASE_PUBLISH_BACKEND %q must be one of http, mqtt, websocket", c.PhasePublishBackend)
	}

	switch c.EdgeEventStaleMode {
	case StaleModeOff, StaleModeFreeze, StaleModeUnknown:
	default:
		return fmt.Errorf("config: EDGE_EVENT_STALE_MODE %q must be one of \"\", freeze, unknown", c.EdgeEventStaleMode)
	}

	return nil
}

// LoopInterval and PhaseStable as time.Duration convenience accessors; the
// rest of the codebase deals in durations, env parsing deals in float
// seconds to match the source's numeric config surface.
func (c *AppConfig) LoopInterval() time.Duration { return durationSeconds(c.LoopIntervalSeconds) }
func (c *AppConfig) PhaseStable() time.Duration  { return durationSeconds(c.PhaseStableSeconds) }
func (c *AppConfig) MaxAge() time.Duration       { return durationSeconds(c.EdgeEventMaxAge) }
func (c *AppConfig) StaleAfter() time.Duration   { return durationSeconds(c.EdgeEventStaleAfter) }
func (c *AppConfig) ClockSkew() time.Duration    { return durationSeconds(c.ClockSkewSeconds) }
func (c *AppConfig) RetryBackoff() time.Duration { return durationSeconds(c.RetryBackoffSeconds) }

func durationSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// SafeConfig guards the live AppConfig behind a mutex so a future reload
// path (none exists yet) never races a reader mid-tick.
type SafeConfig struct {
	mu  sync.RWMutex
	cfg *AppConfig
}

func NewSafeConfig(cfg *AppConfig) *SafeConfig {
	return &SafeConfig{cfg: cfg}
}

func (s *SafeConfig) Get() *AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := *s.cfg
	return &copied
}

func (s *SafeConfig) Update(cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Default().Warn("config: invalid int env value, using default", "key", key, "value", v, "default", def)
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		slog.Default().Warn("config: invalid float env value, using default", "key", key, "value", v, "default", def)
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		slog.Default().Warn("config: invalid bool env value, using default", "key", key, "value", v, "default", def)
	}
	return def
}
