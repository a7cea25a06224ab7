package gesture

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree"
	"github.com/stretchr/testify/assert"
)

type mockedTrack struct {
	m       *sync.Mutex
	stopped bool
}

func (t *mockedTrack) Stop() error {
	t.m.Lock()
	defer t.m.Unlock()
	t.stopped = true
	return nil
}

type mockedCapture struct {
	detached bool
	m        *sync.Mutex
	ts       []*mockedTrack
}

func newMockedCapture(tracks int) *mockedCapture {
	c := &mockedCapture{m: &sync.Mutex{}}
	for i := 0; i < tracks; i++ {
		c.ts = append(c.ts, &mockedTrack{m: c.m})
	}
	return c
}

func (c *mockedCapture) Detach() error {
	c.m.Lock()
	defer c.m.Unlock()
	c.detached = true
	return nil
}

func (c *mockedCapture) Tracks() (ts []Track) {
	for _, t := range c.ts {
		ts = append(ts, t)
	}
	return
}

func (c *mockedCapture) live() (n int) {
	c.m.Lock()
	defer c.m.Unlock()
	for _, t := range c.ts {
		if !t.stopped {
			n++
		}
	}
	return
}

type mockedCamera struct {
	c     *mockedCapture
	err   error
	opens int
}

func (c *mockedCamera) Open(ctx context.Context) (Capture, error) {
	c.opens++
	if c.err != nil {
		return nil, c.err
	}
	return c.c, nil
}

type mockedDetector struct {
	h        DetectorHandlers
	panics   bool
	startErr error
	stopErr  error
	stops    int
}

func (d *mockedDetector) Start(ctx context.Context, c Capture, h DetectorHandlers) error {
	if d.startErr != nil {
		return d.startErr
	}
	d.h = h
	return nil
}

func (d *mockedDetector) Stop() error {
	d.stops++
	if d.panics {
		panic("boom")
	}
	return d.stopErr
}

func TestAdapterLifecycle(t *testing.T) {
	c := &mockedCamera{c: newMockedCapture(2)}
	d := &mockedDetector{}
	s := handsfree.NewState()
	var fs []*Frame
	a := NewAdapter(c, d, s, func(f *Frame) { fs = append(fs, f) })
	assert.Equal(t, handsfree.UninitializedStatus, a.Status())

	// Start
	assert.NoError(t, a.Start(context.Background()))
	assert.Equal(t, handsfree.RunningStatus, a.Status())
	assert.Equal(t, handsfree.RunningStatus, s.Snapshot().GestureStatus)

	// Starting while running is a no-op
	assert.NoError(t, a.Start(context.Background()))
	assert.Equal(t, 1, c.opens)

	// Frames
	d.h.OnFrame(&Frame{})
	d.h.OnFrame(nil)
	assert.Len(t, fs, 2)

	// Stop
	assert.NoError(t, a.Stop())
	assert.Equal(t, handsfree.UninitializedStatus, a.Status())
	assert.Equal(t, handsfree.UninitializedStatus, s.Snapshot().GestureStatus)
	assert.Equal(t, 0, c.c.live())
	assert.True(t, c.c.detached)
	assert.Equal(t, 1, d.stops)

	// Stopping while stopped is a no-op
	assert.NoError(t, a.Stop())
	assert.Equal(t, 1, d.stops)

	// Frames delivered after stop are dropped
	d.h.OnFrame(&Frame{})
	assert.Len(t, fs, 2)
}

func TestAdapterStopIsBestEffort(t *testing.T) {
	for _, d := range []*mockedDetector{
		{stopErr: errors.New("detector is gone")},
		{panics: true},
	} {
		c := &mockedCamera{c: newMockedCapture(3)}
		a := NewAdapter(c, d, handsfree.NewState(), nil)
		assert.NoError(t, a.Start(context.Background()))
		assert.Error(t, a.Stop())
		assert.Equal(t, handsfree.UninitializedStatus, a.Status())
		assert.Equal(t, 0, c.c.live())
		assert.True(t, c.c.detached)
	}
}

func TestAdapterAcquisitionFailure(t *testing.T) {
	c := &mockedCamera{err: errors.Wrap(handsfree.ErrAcquisition, "permission denied")}
	s := handsfree.NewState()
	a := NewAdapter(c, &mockedDetector{}, s, nil)
	assert.Error(t, a.Start(context.Background()))
	assert.Equal(t, handsfree.UninitializedStatus, a.Status())
	assert.True(t, a.Supported())
	o := s.Snapshot()
	assert.NotNil(t, o.LastError)
	assert.True(t, o.GestureSupported)

	// Retrying is allowed
	c.err = nil
	c.c = newMockedCapture(1)
	assert.NoError(t, a.Start(context.Background()))
	assert.Nil(t, s.Snapshot().LastError)
}

func TestAdapterDetectorStartFailure(t *testing.T) {
	c := &mockedCamera{c: newMockedCapture(1)}
	s := handsfree.NewState()
	a := NewAdapter(c, &mockedDetector{startErr: errors.New("model not loaded")}, s, nil)
	assert.Error(t, a.Start(context.Background()))
	assert.Equal(t, handsfree.UninitializedStatus, a.Status())
	assert.Equal(t, 0, c.c.live())
	assert.Equal(t, "model not loaded", *s.Snapshot().LastError)
}

func TestAdapterUnsupported(t *testing.T) {
	c := &mockedCamera{err: handsfree.ErrUnsupported}
	s := handsfree.NewState()
	a := NewAdapter(c, &mockedDetector{}, s, nil)
	err := a.Start(context.Background())
	assert.True(t, handsfree.IsUnsupported(err))
	assert.False(t, a.Supported())
	assert.False(t, s.Snapshot().GestureSupported)

	// The capability is latched
	err = a.Start(context.Background())
	assert.True(t, handsfree.IsUnsupported(err))
	assert.Equal(t, 1, c.opens)
}

func TestAdapterRuntimeError(t *testing.T) {
	c := &mockedCamera{c: newMockedCapture(2)}
	d := &mockedDetector{}
	s := handsfree.NewState()
	a := NewAdapter(c, d, s, nil)
	assert.NoError(t, a.Start(context.Background()))
	d.h.OnError(errors.New("gpu lost"))
	assert.Eventually(t, func() bool {
		o := s.Snapshot()
		return a.Status() == handsfree.UninitializedStatus && o.LastError != nil && *o.LastError == "gpu lost"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, c.c.live())
	assert.Equal(t, 1, d.stops)
}
