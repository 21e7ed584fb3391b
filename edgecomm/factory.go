package edgecomm

import (
	"fmt"
	"log/slog"
)

// BackendConfig carries the fields Build needs to construct any adapter
// variant; unused fields for a given backend are ignored.
type BackendConfig struct {
	Backend     string // "http", "mqtt", or "websocket"
	ServiceName string

	HTTPAddr string

	WebSocketAddr string
	WebSocketPath string

	MQTT MQTTConfig
}

// Build constructs the ingestion adapter named by cfg.Backend.
func Build(cfg BackendConfig, logger *slog.Logger) (Adapter, error) {
	switch cfg.Backend {
	case "", "http":
		return NewHTTPAdapter(cfg.HTTPAddr, cfg.ServiceName, logger), nil
	case "mqtt":
		return NewMQTTAdapter(cfg.MQTT, logger), nil
	case "websocket":
		return NewWebSocketAdapter(cfg.WebSocketAddr, cfg.WebSocketPath, cfg.ServiceName, logger), nil
	default:
		return nil, fmt.Errorf("edgecomm.Build: unknown backend %q", cfg.Backend)
	}
}

// BuildPair constructs the ingestion adapter and, when phasePublishBackend
// differs from cfg.Backend, a second adapter used only for phase publish.
// When they match, the same instance serves both roles, matching the
// single-lifecycle-owner guarantee.
func BuildPair(cfg BackendConfig, phasePublishBackend string, logger *slog.Logger) (ingestion Adapter, publish Adapter, err error) {
	ingestion, err = Build(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	if phasePublishBackend == "" || phasePublishBackend == cfg.Backend {
		return ingestion, ingestion, nil
	}

	publishCfg := cfg
	publishCfg.Backend = phasePublishBackend
	publish, err = Build(publishCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return ingestion, publish, nil
}
