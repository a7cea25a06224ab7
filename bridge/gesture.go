package bridge

import (
	"context"
	"encoding/json"

	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree"
	"github.com/smiledesk/go-handsfree/gesture"
)

// Camera returns the host's camera
func (b *Bridge) Camera() gesture.Camera { return &camera{b: b} }

// Detector returns the host's hand landmarks detector
func (b *Bridge) Detector() gesture.Detector { return &detector{b: b} }

type camera struct {
	b *Bridge
}

// Open implements the gesture.Camera interface
func (c *camera) Open(ctx context.Context) (o gesture.Capture, err error) {
	// Check capabilities
	c.b.m.Lock()
	connected, cs := c.b.c != nil, c.b.cs
	c.b.m.Unlock()
	if !connected {
		err = errors.Wrap(handsfree.ErrAcquisition, "bridge: no host is connected")
		return
	} else if !cs.Camera {
		err = handsfree.ErrUnsupported
		return
	}

	// Send
	w := c.b.expect(EventNameCaptureStarted, EventNameCaptureFailed)
	if err = c.b.send(EventNameCaptureStart, nil); err != nil {
		c.b.cancel(w)
		err = errors.Wrap(handsfree.ErrAcquisition, err.Error())
		return
	}

	// Wait
	var e event
	if e, err = c.b.wait(ctx, w); err != nil {
		err = errors.Wrap(err, "bridge: waiting for capture failed")
		return
	}

	// Process event
	switch e.name {
	case EventNameCaptureFailed:
		var p CaptureFailed
		if err = json.Unmarshal(e.payload, &p); err != nil {
			err = errors.Wrapf(err, "bridge: unmarshaling %s payload failed", e.name)
			return
		}
		if p.Unsupported {
			err = handsfree.ErrUnsupported
		} else {
			err = errors.Wrap(handsfree.ErrAcquisition, p.Error)
		}
	default:
		var p CaptureStarted
		if err = json.Unmarshal(e.payload, &p); err != nil {
			err = errors.Wrapf(err, "bridge: unmarshaling %s payload failed", e.name)
			return
		}
		astilog.Debugf("bridge: capture has started with %d track(s)", len(p.Tracks))
		o = &capture{
			b:  c.b,
			ts: p.Tracks,
		}
	}
	return
}

type capture struct {
	b  *Bridge
	ts []string
}

// Detach implements the gesture.Capture interface
func (c *capture) Detach() error {
	return c.b.send(EventNameCaptureDetach, nil)
}

// Tracks implements the gesture.Capture interface
func (c *capture) Tracks() (ts []gesture.Track) {
	for _, id := range c.ts {
		ts = append(ts, &track{
			b:  c.b,
			id: id,
		})
	}
	return
}

type track struct {
	b  *Bridge
	id string
}

// Stop implements the gesture.Track interface
func (t *track) Stop() error {
	return t.b.send(EventNameCaptureTrackStop, CaptureTrackStop{ID: t.id})
}

type detector struct {
	b *Bridge
}

// Start implements the gesture.Detector interface
func (d *detector) Start(ctx context.Context, c gesture.Capture, h gesture.DetectorHandlers) (err error) {
	// Set handlers
	d.b.m.Lock()
	d.b.dh = &h
	d.b.m.Unlock()

	// Send
	if err = d.b.send(EventNameDetectorStart, nil); err != nil {
		d.b.m.Lock()
		d.b.dh = nil
		d.b.m.Unlock()
		return
	}
	return
}

// Stop implements the gesture.Detector interface
func (d *detector) Stop() error {
	// Reset handlers
	d.b.m.Lock()
	d.b.dh = nil
	d.b.m.Unlock()

	// Send
	return d.b.send(EventNameDetectorStop, nil)
}
