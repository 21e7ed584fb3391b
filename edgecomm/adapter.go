// Package edgecomm decouples ingestion transport and phase-publish transport
// from the rest of the daemon. One Adapter instance serves both roles when
// ingestion and phase publish use the same backend; otherwise BuildPair
// builds one instance per role. HTTP, MQTT, and WebSocket variants are
// provided.
package edgecomm

import (
	"encoding/json"
	"time"

	"github.com/allenshie/integration-core/edgeevent"
)

// OnEvent is invoked exactly once per successfully decoded inbound message
// and returns whether the store accepted it. Decode errors never reach this
// callback; they are logged and dropped by the adapter itself.
type OnEvent func(edgeevent.Event) bool

// Adapter decouples transport from ingestion and phase publish.
type Adapter interface {
	// StartEventIngestion starts the transport and begins invoking onEvent.
	// Callable only once; a second call returns errors.ErrAlreadyStarted.
	StartEventIngestion(onEvent OnEvent) error

	// PublishPhase publishes the current phase. Returns true on accepted
	// send, false on transient failure. Never panics.
	PublishPhase(phaseName string, timestamp float64) bool

	// Stop idempotently releases transport resources.
	Stop() error
}

// wirePayload is the wire shape shared by HTTP, MQTT, and WebSocket ingestion.
type wirePayload struct {
	CameraID   string                `json:"camera_id"`
	Timestamp  float64               `json:"timestamp"`
	Detections []edgeevent.Detection `json:"detections"`
}

func decodeWirePayload(body []byte) (edgeevent.Event, error) {
	var p wirePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return edgeevent.Event{}, err
	}
	return edgeevent.Event{
		CameraID:   p.CameraID,
		Timestamp:  p.Timestamp,
		ReceivedAt: time.Now(),
		Detections: p.Detections,
	}, nil
}

// phasePayload is the wire shape for phase publish across every backend.
type phasePayload struct {
	Phase     string  `json:"phase"`
	Timestamp float64 `json:"timestamp"`
	Service   string  `json:"service"`
}
