package handsfree

import "context"

// Gesture adapter statuses
const (
	UninitializedStatus = "uninitialized"
	StartingStatus      = "starting"
	RunningStatus       = "running"
	StoppingStatus      = "stopping"
)

// Speech adapter statuses
const (
	IdleStatus      = "idle"
	ListeningStatus = "listening"
)

// Runnable is an input source that owns a hardware handle for the duration of an enable cycle.
// Start and Stop must be idempotent with respect to an already matching state.
type Runnable interface {
	Start(ctx context.Context) error
	Status() string
	Stop() error
	Supported() bool
}
