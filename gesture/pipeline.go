package gesture

import (
	"context"

	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree"
)

// Pipeline binds the landmark source to the selection navigator:
// frames -> classifier -> edge trigger -> navigator
type Pipeline struct {
	a *Adapter
	n *Navigator
	s handsfree.Scheduler
	t *EdgeTrigger
}

// NewPipeline creates a new pipeline. Every reduction is executed through the scheduler.
func NewPipeline(c Camera, d Detector, n *Navigator, st *handsfree.State, s handsfree.Scheduler) (p *Pipeline) {
	p = &Pipeline{
		n: n,
		s: s,
		t: NewEdgeTrigger(),
	}
	p.a = NewAdapter(c, d, st, p.handleFrame)
	return
}

// Adapter returns the landmark source adapter
func (p *Pipeline) Adapter() *Adapter { return p.a }

// Navigator returns the selection navigator
func (p *Pipeline) Navigator() *Navigator { return p.n }

// Enable starts the landmark source. Enabling an enabled pipeline is a no-op.
func (p *Pipeline) Enable(ctx context.Context) (err error) {
	if p.IsEnabled() {
		return
	}

	// Reset
	p.s.Do(func() {
		p.t.Reset()
		if err := p.n.Rebuild(); err != nil {
			astilog.Error(errors.Wrap(err, "gesture: rebuilding navigator failed"))
		}
	})

	// Start
	if err = p.a.Start(ctx); err != nil {
		err = errors.Wrap(err, "gesture: starting adapter failed")
		return
	}
	return
}

// Disable stops the landmark source. Disabling a disabled pipeline is a no-op.
func (p *Pipeline) Disable() (err error) {
	if err = p.a.Stop(); err != nil {
		err = errors.Wrap(err, "gesture: stopping adapter failed")
		return
	}
	return
}

// IsEnabled checks whether the landmark source is starting or running
func (p *Pipeline) IsEnabled() bool {
	s := p.a.Status()
	return s == handsfree.StartingStatus || s == handsfree.RunningStatus
}

// Rebuild refreshes the navigator after the route of the host application has changed
func (p *Pipeline) Rebuild() {
	p.s.Do(func() {
		if err := p.n.Rebuild(); err != nil {
			astilog.Error(errors.Wrap(err, "gesture: rebuilding navigator failed"))
		}
	})
}

func (p *Pipeline) handleFrame(f *Frame) {
	p.s.Do(func() {
		// Classify
		g := None
		if f != nil {
			g = Classify(*f)
		}

		// Trigger
		var ok bool
		if g, ok = p.t.Next(g); !ok {
			return
		}

		// Apply
		astilog.Debugf("gesture: applying %s", g)
		if err := p.n.Apply(g); err != nil {
			astilog.Error(errors.Wrapf(err, "gesture: applying %s failed", g))
		}
	})
}
