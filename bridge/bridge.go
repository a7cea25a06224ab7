package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/asticode/go-astilog"
	astilimiter "github.com/asticode/go-astitools/limiter"
	"github.com/asticode/go-astiws"
	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree"
	"github.com/smiledesk/go-handsfree/gesture"
	"github.com/smiledesk/go-handsfree/voice"
)

// Toggle names
const (
	GestureToggle = "gesture"
	VoiceToggle   = "voice"
)

// Defaults
const (
	defaultFrameRate    = 30
	defaultStartTimeout = 10 * time.Second
)

// Options represents bridge options
type Options struct {
	// Maximum number of landmark frames processed per second
	FrameRate      int           `toml:"frame_rate"`
	MaxMessageSize int           `toml:"max_message_size"`
	Server         ServerOptions `toml:"server"`
	// Time to wait for the host to acknowledge a capture start, in seconds
	StartTimeout int `toml:"start_timeout"`
}

// Toggle is a pipeline that can be enabled and disabled by the host
type Toggle interface {
	Disable() error
	Enable(ctx context.Context) error
	IsEnabled() bool
}

// Bridge connects the interpreter to the host application running in a browser tab.
// Only the most recently connected host is driven.
type Bridge struct {
	b          *astilimiter.Bucket
	c          *astiws.Client
	cs         Capabilities
	ctx        context.Context
	dh         *gesture.DetectorHandlers
	es         []Element
	m          sync.Mutex // Locks c, cs, dh, es, rh, route, ts and waiters
	o          Options
	onSnapshot func()
	rh         *voice.RecognitionHandlers
	role       *voice.SessionRole
	route      string
	s          *handsfree.State
	ts         map[string]Toggle
	waiters    []*waiter
	write      func(c *astiws.Client, eventName string, payload interface{}) error
	ws         *astiws.Manager
}

// New creates a new bridge
func New(s *handsfree.State, role *voice.SessionRole, o Options) (b *Bridge) {
	// Default options
	if o.FrameRate <= 0 {
		o.FrameRate = defaultFrameRate
	}

	// Create bridge
	b = &Bridge{
		ctx:   context.Background(),
		o:     o,
		role:  role,
		s:     s,
		ts:    make(map[string]Toggle),
		write: func(c *astiws.Client, eventName string, payload interface{}) error { return c.Write(eventName, payload) },
		ws:    astiws.NewManager(astiws.ManagerConfiguration{MaxMessageSize: o.MaxMessageSize}),
	}
	b.b = astilimiter.New().Add("landmarks", o.FrameRate, time.Second)
	return
}

// Close implements the io.Closer interface
func (b *Bridge) Close() (err error) {
	// Close ws
	astilog.Debug("bridge: closing ws")
	if err = b.ws.Close(); err != nil {
		astilog.Error(errors.Wrap(err, "bridge: closing ws failed"))
	}

	// Close bucket
	b.b.Close()
	return
}

// SetContext sets the context toggles are enabled with
func (b *Bridge) SetContext(ctx context.Context) {
	b.ctx = ctx
}

// AddToggle allows the host to enable and disable a pipeline
func (b *Bridge) AddToggle(name string, t Toggle) {
	b.m.Lock()
	defer b.m.Unlock()
	b.ts[name] = t
}

// OnSnapshot sets the callback executed every time the host reports a new surface
func (b *Bridge) OnSnapshot(fn func()) {
	b.m.Lock()
	defer b.m.Unlock()
	b.onSnapshot = fn
}

// HandleStateChange forwards state changes to the host
func (b *Bridge) HandleStateChange(s handsfree.Snapshot) {
	if err := b.send(EventNameStateUpdated, s); err != nil {
		astilog.Debugf("bridge: sending state failed: %s", err)
	}
}

// Connected checks whether a host is connected
func (b *Bridge) Connected() bool {
	b.m.Lock()
	defer b.m.Unlock()
	return b.c != nil
}

// send sends an event to the host
func (b *Bridge) send(eventName string, payload interface{}) (err error) {
	// Get client
	b.m.Lock()
	c := b.c
	b.m.Unlock()

	// No host
	if c == nil {
		err = errors.Wrap(handsfree.ErrNotRunning, "bridge: no host is connected")
		return
	}

	// Write
	astilog.Debugf("bridge: sending %s event", eventName)
	if err = b.write(c, eventName, payload); err != nil {
		err = errors.Wrapf(err, "bridge: writing %s event failed", eventName)
		return
	}
	return
}

// event is an event received from the host
type event struct {
	name    string
	payload json.RawMessage
}

// waiter waits for the first of several events
type waiter struct {
	c     chan event
	names map[string]bool
}

// expect registers a waiter. It must be registered before the request is sent.
func (b *Bridge) expect(names ...string) (w *waiter) {
	w = &waiter{
		c:     make(chan event, 1),
		names: make(map[string]bool),
	}
	for _, n := range names {
		w.names[n] = true
	}
	b.m.Lock()
	b.waiters = append(b.waiters, w)
	b.m.Unlock()
	return
}

// cancel unregisters a waiter
func (b *Bridge) cancel(w *waiter) {
	b.m.Lock()
	defer b.m.Unlock()
	for idx, v := range b.waiters {
		if v == w {
			b.waiters = append(b.waiters[:idx], b.waiters[idx+1:]...)
			return
		}
	}
}

// resolve delivers an event to the oldest waiter waiting for it
func (b *Bridge) resolve(name string, payload json.RawMessage) bool {
	b.m.Lock()
	defer b.m.Unlock()
	for idx, w := range b.waiters {
		if w.names[name] {
			w.c <- event{name: name, payload: payload}
			b.waiters = append(b.waiters[:idx], b.waiters[idx+1:]...)
			return true
		}
	}
	return false
}

// wait waits for the waiter to be resolved
func (b *Bridge) wait(ctx context.Context, w *waiter) (e event, err error) {
	// Timeout
	timeout := defaultStartTimeout
	if b.o.StartTimeout > 0 {
		timeout = time.Duration(b.o.StartTimeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Wait
	select {
	case e = <-w.c:
	case <-ctx.Done():
		b.cancel(w)
		err = errors.Wrap(ctx.Err(), "bridge: waiting for host failed")
	}
	return
}
