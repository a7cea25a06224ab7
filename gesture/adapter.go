package gesture

import (
	"context"
	"fmt"
	"sync"

	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree"
)

// Camera grants access to the video capture device
type Camera interface {
	// Open must return an error whose cause is handsfree.ErrUnsupported when the
	// environment has no camera capability at all
	Open(ctx context.Context) (Capture, error)
}

// Capture is an open video capture
type Capture interface {
	// Detach detaches the capture from the video surface it is rendered into
	Detach() error
	Tracks() []Track
}

// Track is a live media track of a capture
type Track interface {
	Stop() error
}

// DetectorHandlers are the callbacks a detector delivers to
type DetectorHandlers struct {
	// OnError is executed when the detector fails after having started
	OnError func(err error)
	// OnFrame is executed once per processed video frame. f is nil when no hand is detected.
	OnFrame func(f *Frame)
}

// Detector extracts hand landmarks from a capture
type Detector interface {
	Start(ctx context.Context, c Capture, h DetectorHandlers) error
	Stop() error
}

// FrameFunc is executed on every frame delivered while running
type FrameFunc func(f *Frame)

// Adapter owns the camera and the detector for the duration of an enable cycle.
// Its status moves uninitialized -> starting -> running -> stopping -> uninitialized.
type Adapter struct {
	c           Camera
	cancel      context.CancelFunc
	capture     Capture
	d           Detector
	fn          FrameFunc
	generation  uint64
	m           sync.Mutex // Locks cancel, capture, generation, status and unsupported
	s           *handsfree.State
	status      string
	unsupported bool
}

// NewAdapter creates a new adapter
func NewAdapter(c Camera, d Detector, s *handsfree.State, fn FrameFunc) *Adapter {
	return &Adapter{
		c:      c,
		d:      d,
		fn:     fn,
		s:      s,
		status: handsfree.UninitializedStatus,
	}
}

// Status implements the handsfree.Runnable interface
func (a *Adapter) Status() string {
	a.m.Lock()
	defer a.m.Unlock()
	return a.status
}

// Supported implements the handsfree.Runnable interface
func (a *Adapter) Supported() bool {
	a.m.Lock()
	defer a.m.Unlock()
	return !a.unsupported
}

func (a *Adapter) setStatus(generation uint64, status string) (ok bool) {
	// Lock
	a.m.Lock()
	if ok = a.generation == generation; ok {
		a.status = status
	}
	a.m.Unlock()

	// Update state
	if ok {
		a.s.SetGestureStatus(status)
	}
	return
}

// Start implements the handsfree.Runnable interface. Starting an adapter that is not
// uninitialized is a no-op.
func (a *Adapter) Start(ctx context.Context) (err error) {
	// Lock
	a.m.Lock()

	// Unsupported
	if a.unsupported {
		a.m.Unlock()
		err = handsfree.ErrUnsupported
		return
	}

	// Already started
	if a.status != handsfree.UninitializedStatus {
		a.m.Unlock()
		return
	}

	// Update status
	a.generation++
	g := a.generation
	a.status = handsfree.StartingStatus
	ctx, a.cancel = context.WithCancel(ctx)
	a.m.Unlock()
	a.s.SetGestureStatus(handsfree.StartingStatus)

	// Open camera
	astilog.Debug("gesture: opening camera")
	var c Capture
	if c, err = a.c.Open(ctx); err != nil {
		a.fail(g, err)
		if handsfree.IsUnsupported(err) {
			err = handsfree.ErrUnsupported
		} else {
			err = errors.Wrap(err, "gesture: opening camera failed")
		}
		return
	}

	// Stop has been called in the meantime
	a.m.Lock()
	if a.generation != g {
		a.m.Unlock()
		a.teardown(c, false)
		err = errors.Wrap(context.Canceled, "gesture: start has been cancelled")
		return
	}
	a.capture = c
	a.m.Unlock()

	// Start detector
	astilog.Debug("gesture: starting detector")
	if err = a.d.Start(ctx, c, DetectorHandlers{
		OnError: a.handleError(g),
		OnFrame: a.handleFrame(g),
	}); err != nil {
		a.teardown(c, false)
		a.fail(g, err)
		err = errors.Wrap(err, "gesture: starting detector failed")
		return
	}

	// Update status
	if !a.setStatus(g, handsfree.RunningStatus) {
		a.teardown(c, true)
		err = errors.Wrap(context.Canceled, "gesture: start has been cancelled")
		return
	}
	a.s.ClearLastError()
	astilog.Debug("gesture: adapter is running")
	return
}

// Stop implements the handsfree.Runnable interface. Stopping releases the detector, every
// track and the video surface, in that order, attempting every step even if a previous one
// failed. Stopping an adapter that is not running is a no-op.
func (a *Adapter) Stop() (err error) {
	// Lock
	a.m.Lock()

	// Check status
	switch a.status {
	case handsfree.StartingStatus:
		// Start releases what it has acquired once it notices the generation has changed
		a.generation++
		a.cancel()
		a.capture = nil
		a.status = handsfree.UninitializedStatus
		a.m.Unlock()
		a.s.SetGestureStatus(handsfree.UninitializedStatus)
		return
	case handsfree.RunningStatus:
	default:
		a.m.Unlock()
		return
	}
	a.m.Unlock()

	// Stop
	_, err = a.stop(func(generation uint64) bool { return true })
	return
}

// stop tears everything down if cond holds for the current generation
func (a *Adapter) stop(cond func(generation uint64) bool) (stopped bool, err error) {
	// Lock
	a.m.Lock()
	if a.status != handsfree.RunningStatus || !cond(a.generation) {
		a.m.Unlock()
		return
	}
	stopped = true

	// Update status
	a.generation++
	g := a.generation
	c := a.capture
	cancel := a.cancel
	a.capture = nil
	a.status = handsfree.StoppingStatus
	a.m.Unlock()
	a.s.SetGestureStatus(handsfree.StoppingStatus)

	// Teardown
	astilog.Debug("gesture: stopping adapter")
	err = a.teardown(c, true)
	cancel()

	// Update status
	a.setStatus(g, handsfree.UninitializedStatus)
	return
}

// teardown releases the detector, the tracks and the video surface on a best-effort basis.
// The first error is returned once every step has been attempted.
func (a *Adapter) teardown(c Capture, detector bool) (err error) {
	step := func(name string, fn func() error) {
		if errStep := safely(fn); errStep != nil {
			errStep = errors.Wrapf(errStep, "gesture: %s failed", name)
			astilog.Error(errStep)
			if err == nil {
				err = errStep
			}
		}
	}

	// Stop detector
	if detector {
		step("stopping detector", a.d.Stop)
	}

	// Nothing else to release
	if c == nil {
		return
	}

	// Stop tracks
	for idx, t := range c.Tracks() {
		step(fmt.Sprintf("stopping track #%d", idx), t.Stop)
	}

	// Detach
	step("detaching capture", c.Detach)
	return
}

// safely converts panics of collaborators into errors
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (a *Adapter) fail(generation uint64, err error) {
	// Lock
	a.m.Lock()
	if a.generation != generation {
		a.m.Unlock()
		return
	}

	// Update
	a.capture = nil
	a.status = handsfree.UninitializedStatus
	if a.cancel != nil {
		a.cancel()
	}
	unsupported := handsfree.IsUnsupported(err)
	if unsupported {
		a.unsupported = true
	}
	a.m.Unlock()

	// Update state
	astilog.Error(errors.Wrap(err, "gesture: adapter failed"))
	a.s.SetGestureStatus(handsfree.UninitializedStatus)
	if unsupported {
		a.s.SetGestureSupported(false)
	}
	a.s.SetLastError(err.Error())
}

func (a *Adapter) running(generation uint64) bool {
	a.m.Lock()
	defer a.m.Unlock()
	return a.generation == generation && (a.status == handsfree.StartingStatus || a.status == handsfree.RunningStatus)
}

func (a *Adapter) handleFrame(generation uint64) func(f *Frame) {
	return func(f *Frame) {
		// Frames delivered after a stop are dropped
		if !a.running(generation) {
			return
		}

		// Forward
		if a.fn != nil {
			a.fn(f)
		}
	}
}

func (a *Adapter) handleError(generation uint64) func(err error) {
	return func(err error) {
		// Errors delivered after a stop are dropped
		if !a.running(generation) {
			return
		}

		// Teardown runs outside of the detector's callback
		astilog.Error(errors.Wrap(err, "gesture: detector failed"))
		go func() {
			if stopped, _ := a.stop(func(g uint64) bool { return g == generation }); stopped {
				a.s.SetLastError(err.Error())
			}
		}()
	}
}
