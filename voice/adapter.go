package voice

import (
	"context"
	"sync"

	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree"
)

// RecognitionHandlers are the callbacks a recognizer delivers to
type RecognitionHandlers struct {
	// OnEnd is executed when the recognizer ends on its own
	OnEnd func()
	// OnError is executed with the engine-reported error code when recognition fails
	OnError func(code string)
	// OnResult is executed every time results change
	OnResult func(e Event)
}

// Recognizer is a continuous speech recognition engine
type Recognizer interface {
	// Start must return an error whose cause is handsfree.ErrUnsupported when the
	// environment has no speech recognition capability at all
	Start(ctx context.Context, h RecognitionHandlers) error
	Stop() error
}

// Update is published after every transcript increment
type Update struct {
	// Final indicates whether the last result is final
	Final bool
	// Results is the number of results the text has been built from
	Results int
	Text    string
}

// UpdateFunc is executed on every transcript update
type UpdateFunc func(u Update)

// Adapter owns the recognizer for the duration of a listening session.
// Its status moves idle -> starting -> listening -> idle.
type Adapter struct {
	fn          UpdateFunc
	generation  uint64
	m           sync.Mutex // Locks generation, status, t and unsupported
	ms          sync.Mutex // Serializes starts
	r           Recognizer
	s           *handsfree.State
	status      string
	t           *Transcript
	unsupported bool
}

// NewAdapter creates a new adapter
func NewAdapter(r Recognizer, s *handsfree.State, fn UpdateFunc) *Adapter {
	return &Adapter{
		fn:     fn,
		r:      r,
		s:      s,
		status: handsfree.IdleStatus,
		t:      &Transcript{},
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

// Start implements the handsfree.Runnable interface. Starting a listening adapter is a no-op.
// The lock is not held while the recognizer starts so that Stop returns right away.
func (a *Adapter) Start(ctx context.Context) (err error) {
	// Serialize starts
	a.ms.Lock()
	defer a.ms.Unlock()

	// Lock
	a.m.Lock()

	// Unsupported
	if a.unsupported {
		a.m.Unlock()
		err = handsfree.ErrUnsupported
		return
	}

	// Already starting or listening
	if a.status != handsfree.IdleStatus {
		a.m.Unlock()
		return
	}

	// Update status
	a.generation++
	g := a.generation
	a.status = handsfree.StartingStatus
	a.t.Reset()
	a.m.Unlock()

	// Start recognizer
	astilog.Debug("voice: starting recognizer")
	if err = a.r.Start(ctx, RecognitionHandlers{
		OnEnd:    a.handleEnd(g),
		OnError:  a.handleError(g),
		OnResult: a.handleResult(g),
	}); err != nil {
		astilog.Error(errors.Wrap(err, "voice: starting recognizer failed"))
		a.fail(g, err)
		if handsfree.IsUnsupported(err) {
			err = handsfree.ErrUnsupported
		} else {
			err = errors.Wrap(err, "voice: starting recognizer failed")
		}
		return
	}

	// Lock
	a.m.Lock()
	defer a.m.Unlock()

	// Stop has been called in the meantime
	if a.generation != g {
		if errStop := a.r.Stop(); errStop != nil {
			astilog.Error(errors.Wrap(errStop, "voice: stopping recognizer failed"))
		}
		err = errors.Wrap(context.Canceled, "voice: start has been cancelled")
		return
	}

	// Update
	a.status = handsfree.ListeningStatus
	a.s.ClearLastError()
	a.s.SetListening(true)
	return
}

// fail moves a starting adapter back to idle after the recognizer failed to start
func (a *Adapter) fail(generation uint64, err error) {
	// Lock
	a.m.Lock()
	defer a.m.Unlock()

	// Update state
	a.s.SetLastError(err.Error())
	if handsfree.IsUnsupported(err) {
		a.unsupported = true
		a.s.SetVoiceSupported(false)
	}

	// Update status
	if a.generation == generation {
		a.generation++
		a.status = handsfree.IdleStatus
	}
}

// Stop implements the handsfree.Runnable interface. Stopping an idle adapter is a no-op.
// Stopping a starting adapter cancels the start.
func (a *Adapter) Stop() (err error) {
	// Lock
	a.m.Lock()
	defer a.m.Unlock()

	// Not started
	if a.status == handsfree.IdleStatus {
		return
	}

	// Update
	listening := a.status == handsfree.ListeningStatus
	a.generation++
	a.status = handsfree.IdleStatus
	a.s.SetListening(false)

	// The starting goroutine stops the recognizer once it has started
	if !listening {
		return
	}

	// Stop recognizer
	astilog.Debug("voice: stopping recognizer")
	if err = a.r.Stop(); err != nil {
		err = errors.Wrap(err, "voice: stopping recognizer failed")
		return
	}
	return
}

// Consume hides the first n results from the next transcript updates
func (a *Adapter) Consume(n int) {
	a.m.Lock()
	defer a.m.Unlock()
	a.t.Consume(n)
}

// idle moves the adapter to idle if generation is still current
func (a *Adapter) idle(generation uint64) (ok bool) {
	// Lock
	a.m.Lock()
	defer a.m.Unlock()

	// Check generation
	if ok = a.generation == generation && a.status != handsfree.IdleStatus; !ok {
		return
	}

	// Update
	a.generation++
	a.status = handsfree.IdleStatus
	a.s.SetListening(false)
	return
}

func (a *Adapter) handleEnd(generation uint64) func() {
	return func() {
		if a.idle(generation) {
			astilog.Debug("voice: recognizer has ended")
		}
	}
}

func (a *Adapter) handleError(generation uint64) func(code string) {
	return func(code string) {
		// Errors delivered after a stop are dropped
		if !a.idle(generation) {
			return
		}

		// Update state
		astilog.Errorf("voice: recognizer failed with code %s", code)
		a.s.SetLastError(code)

		// Release the recognizer outside of its callback
		go func() {
			if err := a.r.Stop(); err != nil {
				astilog.Error(errors.Wrap(err, "voice: stopping recognizer failed"))
			}
		}()
	}
}

func (a *Adapter) handleResult(generation uint64) func(e Event) {
	return func(e Event) {
		// Lock
		a.m.Lock()

		// Results delivered after a stop are dropped
		if a.generation != generation || a.status == handsfree.IdleStatus {
			a.m.Unlock()
			return
		}

		// Apply
		a.t.Apply(e)
		u := Update{
			Final:   a.t.Final(),
			Results: a.t.Len(),
			Text:    a.t.String(),
		}
		a.m.Unlock()

		// Publish
		if a.fn != nil {
			a.fn(u)
		}
	}
}
