// Package mcmot describes the contract the multi-camera tracking engine
// exposes to the pipeline. Its internals (cross-camera ID assignment,
// coordinate mapping) are an external collaborator's responsibility; only
// the input/output shape is specified here.
package mcmot

import "github.com/allenshie/integration-core/edgeevent"

// BoundingBox is a detector's box in image coordinates.
type BoundingBox struct {
	X, Y, W, H float64
}

// LocalObject is one per-camera tracked detection for the current tick.
type LocalObject struct {
	CameraID   string
	LocalID    string
	ClassName  string
	Confidence float64
	Box        BoundingBox
}

// GlobalObject is one cross-camera identity after MC-MOT association, with
// its most recent ground-plane position.
type GlobalObject struct {
	GlobalID  string
	ClassName string
	X, Y      float64
	Cameras   []string
}

// Engine is the external MC-MOT collaborator's contract: consume this
// tick's latest-per-camera events, produce local and global tracked
// objects.
type Engine interface {
	ProcessEvents(events []edgeevent.Event) (local []LocalObject, global []GlobalObject, err error)
}

// NoopEngine produces no tracked objects and leaves events untouched.
type NoopEngine struct{}

func (NoopEngine) ProcessEvents([]edgeevent.Event) ([]LocalObject, []GlobalObject, error) {
	return nil, nil, nil
}
