package handsfree

import (
	"context"

	astisync "github.com/asticode/go-astitools/sync"
)

// Scheduler runs reductions
type Scheduler interface {
	Do(fn func())
}

// SchedulerFunc allows using a func as a Scheduler
type SchedulerFunc func(fn func())

// Do implements the Scheduler interface
func (f SchedulerFunc) Do(fn func()) { f(fn) }

// Immediate executes reductions in the caller's goroutine
var Immediate = SchedulerFunc(func(fn func()) { fn() })

// Loop executes every reduction on a single goroutine, in FIFO order, without blocking
// the event sources that feed it. Events coming from the gesture and the voice pipelines
// may therefore interleave but are never reduced concurrently.
type Loop struct {
	c *astisync.Chan
}

// NewLoop creates a new loop
func NewLoop() *Loop {
	return &Loop{c: astisync.NewChan(astisync.ChanOptions{})}
}

// Do implements the Scheduler interface
func (l *Loop) Do(fn func()) {
	l.c.Add(fn)
}

// Start processes reductions until the context is done or Stop is called
func (l *Loop) Start(ctx context.Context) {
	l.c.Start(ctx)
}

// Stop stops the loop
func (l *Loop) Stop() {
	l.c.Stop()
}
