package edgecomm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	integrationerrors "github.com/allenshie/integration-core/errors"
)

// MQTTConfig configures the MQTT-backed adapter.
type MQTTConfig struct {
	Host             string
	Port             int
	ClientID         string
	EventsTopic      string
	PhaseTopic       string
	QoS              byte
	Retain           bool
	HeartbeatSeconds int
	ServiceName      string
}

// MQTTAdapter subscribes to an edge-events topic for ingestion and publishes
// the current phase, retained, to a phase topic.
type MQTTAdapter struct {
	cfg    MQTTConfig
	logger *slog.Logger
	client mqtt.Client

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewMQTTAdapter builds an adapter around a paho client for cfg.
func NewMQTTAdapter(cfg MQTTConfig, logger *slog.Logger) *MQTTAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTAdapter{cfg: cfg, logger: logger}
}

func (a *MQTTAdapter) StartEventIngestion(onEvent OnEvent) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return integrationerrors.WrapFatal(integrationerrors.ErrAlreadyStarted, "MQTTAdapter", "StartEventIngestion", "check started state")
	}
	a.started = true
	a.mu.Unlock()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", a.cfg.Host, a.cfg.Port))
	opts.SetClientID(a.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		a.logger.Info("MQTT adapter connected", "host", a.cfg.Host, "port", a.cfg.Port)
		token := c.Subscribe(a.cfg.EventsTopic, a.cfg.QoS, a.handleMessage(onEvent))
		token.Wait()
		if err := token.Error(); err != nil {
			a.logger.Error("MQTT subscribe failed", "topic", a.cfg.EventsTopic, "error", err)
		}
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		a.logger.Warn("MQTT connection lost, will auto-reconnect", "error", err)
	})

	a.client = mqtt.NewClient(opts)
	token := a.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return integrationerrors.WrapFatal(integrationerrors.ErrConnectTimeout, "MQTTAdapter", "StartEventIngestion", "connect")
	}
	if err := token.Error(); err != nil {
		return integrationerrors.WrapFatal(err, "MQTTAdapter", "StartEventIngestion", "connect")
	}
	return nil
}

func (a *MQTTAdapter) handleMessage(onEvent OnEvent) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		event, err := decodeWirePayload(msg.Payload())
		if err != nil {
			a.logger.Warn("malformed edge event payload on MQTT", "error", err)
			return
		}

		func() {
			defer func() {
				if rec := recover(); rec != nil {
					a.logger.Error("ingestion callback panicked, event dropped", "recover", rec)
				}
			}()
			onEvent(event)
		}()
	}
}

func (a *MQTTAdapter) PublishPhase(phaseName string, timestamp float64) bool {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client == nil || !client.IsConnected() {
		return false
	}

	payload, err := json.Marshal(phasePayload{Phase: phaseName, Timestamp: timestamp, Service: a.cfg.ServiceName})
	if err != nil {
		a.logger.Error("failed to marshal phase payload", "error", err)
		return false
	}

	token := client.Publish(a.cfg.PhaseTopic, a.cfg.QoS, a.cfg.Retain, payload)
	if !token.WaitTimeout(2 * time.Second) {
		a.logger.Warn("MQTT phase publish timed out", "topic", a.cfg.PhaseTopic)
		return false
	}
	if err := token.Error(); err != nil {
		a.logger.Warn("MQTT phase publish failed", "topic", a.cfg.PhaseTopic, "error", err)
		return false
	}
	return true
}

func (a *MQTTAdapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped || a.client == nil {
		a.stopped = true
		return nil
	}
	a.stopped = true
	a.client.Disconnect(250)
	return nil
}
