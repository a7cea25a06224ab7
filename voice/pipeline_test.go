package voice

import (
	"context"
	"testing"

	"github.com/smiledesk/go-handsfree"
	"github.com/smiledesk/go-handsfree/surface"
	"github.com/stretchr/testify/assert"
)

type mockedSurface struct {
	activated []string
	es        []surface.Element
	ns        []surface.Notification
	paths     []string
}

func (s *mockedSurface) Activate(e surface.Element) error {
	s.activated = append(s.activated, e.Ref)
	return nil
}

func (s *mockedSurface) Highlight(e surface.Element, selected bool) error { return nil }

func (s *mockedSurface) ListActionable(excluded ...surface.Region) ([]surface.Element, error) {
	return s.es, nil
}

func (s *mockedSurface) Navigate(path string) error {
	s.paths = append(s.paths, path)
	return nil
}

func (s *mockedSurface) Notify(n surface.Notification) { s.ns = append(s.ns, n) }

func (s *mockedSurface) failures() (ms []string) {
	for _, n := range s.ns {
		if n.Kind == surface.FailureNotification {
			ms = append(ms, n.Message)
		}
	}
	return
}

func newMockedPipeline(role Role) (*Pipeline, *mockedRecognizer, *mockedSurface, *handsfree.State) {
	r := &mockedRecognizer{}
	sf := &mockedSurface{es: []surface.Element{
		{Kind: surface.ButtonKind, Ref: "1", Text: "Save"},
		{Kind: surface.ButtonKind, Label: "Cancel appointment", Ref: "2"},
	}}
	st := handsfree.NewState()
	return NewPipeline(PipelineOptions{
		Executor:   surface.NewExecutor(sf, sf, sf),
		Notifier:   sf,
		Recognizer: r,
		RoleSource: NewSessionRole(role),
		Routes:     DefaultRouteTable(),
		Scheduler:  handsfree.Immediate,
		State:      st,
	}), r, sf, st
}

func TestPipelineNavigate(t *testing.T) {
	p, r, sf, st := newMockedPipeline(UserRole)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Enable(context.Background()))
	assert.True(t, p.IsEnabled())
	assert.NoError(t, p.Enable(context.Background()))
	assert.Equal(t, 1, r.starts)

	r.say(0, true, "navigate to calendar")
	assert.Equal(t, []string{"/user/calendar"}, sf.paths)
	assert.Equal(t, "navigate to calendar", *st.Snapshot().LastCommand)

	assert.NoError(t, p.Disable())
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Disable())
	assert.Equal(t, 1, r.stops)
}

func TestPipelineInterimResults(t *testing.T) {
	p, r, sf, st := newMockedPipeline(DoctorRole)
	assert.NoError(t, p.Enable(context.Background()))

	// Growing interim transcript
	r.say(0, false, "go to")
	r.say(0, false, "go to sched")
	assert.Empty(t, sf.paths)
	assert.Empty(t, sf.ns)
	r.say(0, false, "go to schedule")
	assert.Equal(t, []string{"/doctor/schedule"}, sf.paths)

	// Final result of a dispatched transcript is not dispatched again
	r.say(0, true, "go to schedule")
	r.say(0, true, "go to schedule")
	assert.Equal(t, []string{"/doctor/schedule"}, sf.paths)
	assert.Equal(t, "go to schedule", *st.Snapshot().LastCommand)

	// Next utterance is parsed on its own
	r.say(1, false, "press sa")
	assert.Empty(t, sf.activated)
	r.say(1, true, "press save")
	assert.Equal(t, []string{"1"}, sf.activated)
	assert.Equal(t, "press save", *st.Snapshot().LastCommand)
}

func TestPipelineNoMatch(t *testing.T) {
	p, r, sf, st := newMockedPipeline(UserRole)
	assert.NoError(t, p.Enable(context.Background()))

	r.say(0, false, "go to reports")
	assert.Empty(t, sf.failures())
	r.say(0, true, "go to reports")
	assert.Equal(t, []string{"Could not find page: reports"}, sf.failures())
	assert.Empty(t, sf.paths)
	assert.Nil(t, st.Snapshot().LastError)

	r.say(1, true, "click delete")
	assert.Equal(t, []string{"Could not find page: reports", "Could not find element: delete"}, sf.failures())
	assert.Equal(t, "click delete", *st.Snapshot().LastCommand)
}

func TestPipelineBothIntents(t *testing.T) {
	p, r, sf, _ := newMockedPipeline(UserRole)
	assert.NoError(t, p.Enable(context.Background()))
	r.say(0, true, "go to appointments and click cancel")
	assert.Equal(t, []string{"/user/appointments"}, sf.paths)
	assert.Equal(t, []string{"2"}, sf.activated)
}

func TestPipelineInterimThenFinalActivation(t *testing.T) {
	p, r, sf, _ := newMockedPipeline(UserRole)
	assert.NoError(t, p.Enable(context.Background()))

	// Same text switching from interim to final
	r.say(0, false, "click save")
	assert.Empty(t, sf.activated)
	r.say(0, true, "click save")
	assert.Equal(t, []string{"1"}, sf.activated)

	// Repeated final is not dispatched again
	r.say(0, true, "click save")
	assert.Equal(t, []string{"1"}, sf.activated)

	// Same command said again in a new utterance
	r.say(1, true, "click save")
	assert.Equal(t, []string{"1", "1"}, sf.activated)
}

func TestPipelineBothIntentsInterimFirst(t *testing.T) {
	p, r, sf, _ := newMockedPipeline(UserRole)
	assert.NoError(t, p.Enable(context.Background()))

	// Navigation is dispatched right away but results are kept for the activation
	r.say(0, false, "go to billing and click save")
	assert.Equal(t, []string{"/user/billing"}, sf.paths)
	assert.Empty(t, sf.activated)

	// Final result activates without navigating twice
	r.say(0, true, "go to billing and click save")
	assert.Equal(t, []string{"/user/billing"}, sf.paths)
	assert.Equal(t, []string{"1"}, sf.activated)
	assert.Empty(t, sf.failures())
}
