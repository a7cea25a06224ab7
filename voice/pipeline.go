package voice

import (
	"context"

	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree"
	"github.com/smiledesk/go-handsfree/surface"
)

// Pipeline binds the speech source to the executor:
// transcript -> parser -> role router -> executor
type Pipeline struct {
	a         *Adapter
	e         *surface.Executor
	last      string
	lastFinal bool
	n         surface.Notifier
	navigated string
	rs        RoleSource
	rt        RouteTable
	s         handsfree.Scheduler
	st        *handsfree.State
}

// PipelineOptions represents pipeline options
type PipelineOptions struct {
	Executor   *surface.Executor
	Notifier   surface.Notifier
	Recognizer Recognizer
	RoleSource RoleSource
	Routes     RouteTable
	Scheduler  handsfree.Scheduler
	State      *handsfree.State
}

// NewPipeline creates a new pipeline. Every reduction is executed through the scheduler.
func NewPipeline(o PipelineOptions) (p *Pipeline) {
	p = &Pipeline{
		e:  o.Executor,
		n:  o.Notifier,
		rs: o.RoleSource,
		rt: o.Routes,
		s:  o.Scheduler,
		st: o.State,
	}
	p.a = NewAdapter(o.Recognizer, o.State, p.handleUpdate)
	return
}

// Adapter returns the speech source adapter
func (p *Pipeline) Adapter() *Adapter { return p.a }

// Enable starts listening. Enabling an enabled pipeline is a no-op.
func (p *Pipeline) Enable(ctx context.Context) (err error) {
	if p.IsEnabled() {
		return
	}

	// Reset
	p.s.Do(p.reset)

	// Start
	if err = p.a.Start(ctx); err != nil {
		err = errors.Wrap(err, "voice: starting adapter failed")
		return
	}
	return
}

// Disable stops listening. Disabling a disabled pipeline is a no-op.
func (p *Pipeline) Disable() (err error) {
	if err = p.a.Stop(); err != nil {
		err = errors.Wrap(err, "voice: stopping adapter failed")
		return
	}
	return
}

// IsEnabled checks whether the speech source is listening
func (p *Pipeline) IsEnabled() bool {
	return p.a.Status() == handsfree.ListeningStatus
}

func (p *Pipeline) handleUpdate(u Update) {
	p.s.Do(func() { p.interpret(u) })
}

// reset forgets the transcript being interpreted
func (p *Pipeline) reset() {
	p.last = ""
	p.lastFinal = false
	p.navigated = ""
}

// interpret dispatches the intents of a transcript. Interim transcripts only dispatch
// resolved navigations: activations and failures wait for the transcript to be final.
// Results are consumed once nothing is left to dispatch.
func (p *Pipeline) interpret(u Update) {
	// Transcript has already been interpreted
	if u.Text == "" || (u.Text == p.last && (p.lastFinal || !u.Final)) {
		return
	}
	p.last, p.lastFinal = u.Text, u.Final
	p.st.SetLastCommand(u.Text)

	// Loop through intents
	var dispatched, pending bool
	for _, i := range Parse(u.Text) {
		switch i.Kind {
		case NavigateIntent:
			// Resolve
			r := p.rs.Role()
			path, ok := p.rt.Resolve(r, i.Target)
			if !ok {
				if u.Final {
					astilog.Debugf("voice: no route for %s and role %s", i.Target, r)
					p.n.Notify(surface.Notification{Kind: surface.FailureNotification, Message: "Could not find page: " + i.Target})
				}
				continue
			}

			// Path has already been navigated to by an interim transcript
			if path == p.navigated {
				dispatched = true
				continue
			}

			// Navigate
			if p.e.NavigateTo(path) {
				p.navigated = path
				dispatched = true
			}
		case ActivateIntent:
			// Interim targets may be prefixes of the element name
			if !u.Final {
				pending = true
				continue
			}
			if p.e.ActivateByName(i.Target) {
				dispatched = true
			}
		}
	}

	// Consume
	if u.Final || (dispatched && !pending) {
		p.a.Consume(u.Results)
		p.reset()
	}
}
