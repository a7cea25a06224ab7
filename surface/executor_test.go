package surface

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type mockedProvider struct {
	activated   []string
	activateErr error
	es          []Element
}

func (p *mockedProvider) Activate(e Element) error {
	if p.activateErr != nil {
		return p.activateErr
	}
	p.activated = append(p.activated, e.Ref)
	return nil
}

func (p *mockedProvider) Highlight(e Element, selected bool) error { return nil }

func (p *mockedProvider) ListActionable(excluded ...Region) ([]Element, error) {
	return p.es, nil
}

type mockedRouter struct {
	err   error
	paths []string
}

func (r *mockedRouter) Navigate(path string) error {
	if r.err != nil {
		return r.err
	}
	r.paths = append(r.paths, path)
	return nil
}

type mockedNotifier struct{ ns []Notification }

func (n *mockedNotifier) Notify(o Notification) { n.ns = append(n.ns, o) }

func newMockedElements() []Element {
	return []Element{
		{Kind: ButtonKind, Position: 0, Ref: "1", Text: "Save"},
		{Kind: AnchorKind, Label: "Open notifications", Position: 1, Ref: "2"},
		{Kind: RoleButtonKind, Position: 2, Ref: "3", Text: "Save draft"},
	}
}

func TestElement(t *testing.T) {
	e := Element{Class: "btn-notification", ID: "bell", Label: "Alerts", Text: "Ring"}
	assert.True(t, e.Matches("ring"))
	assert.True(t, e.Matches("ALERT"))
	assert.False(t, e.Matches("bell"))
	assert.True(t, e.Describes("notification"))
	assert.True(t, e.Describes("BELL"))
	assert.False(t, e.Describes("ring"))
}

func TestExecutorActivateByName(t *testing.T) {
	p := &mockedProvider{es: newMockedElements()}
	n := &mockedNotifier{}
	e := NewExecutor(p, &mockedRouter{}, n)

	// First match in document order wins
	assert.True(t, e.ActivateByName("save"))
	assert.Equal(t, []string{"1"}, p.activated)

	// Label
	assert.True(t, e.ActivateByName("Notifications"))
	assert.Equal(t, []string{"1", "2"}, p.activated)

	// Position
	assert.True(t, e.ActivateByName("3"))
	assert.Equal(t, []string{"1", "2", "3"}, p.activated)

	// No match
	assert.False(t, e.ActivateByName("cancel"))
	assert.False(t, e.ActivateByName("4"))
	assert.False(t, e.ActivateByName("  "))
	assert.Equal(t, []string{"1", "2", "3"}, p.activated)
	assert.Equal(t, []Notification{
		{Kind: FailureNotification, Message: "Could not find element: cancel"},
		{Kind: FailureNotification, Message: "Could not find element: 4"},
	}, n.ns)

	// Activation failure
	n.ns = []Notification{}
	p.activateErr = errors.New("detached")
	assert.False(t, e.ActivateByName("save"))
	assert.Equal(t, []Notification{{Kind: FailureNotification, Message: "Could not activate element: Save"}}, n.ns)
}

func TestExecutorNavigateTo(t *testing.T) {
	r := &mockedRouter{}
	n := &mockedNotifier{}
	e := NewExecutor(&mockedProvider{}, r, n)
	assert.True(t, e.NavigateTo("/user/calendar"))
	assert.Equal(t, []string{"/user/calendar"}, r.paths)
	assert.Equal(t, []Notification{{Kind: SuccessNotification, Message: "Navigating to /user/calendar"}}, n.ns)

	r.err = errors.New("closed")
	n.ns = []Notification{}
	assert.False(t, e.NavigateTo("/user/profile"))
	assert.Equal(t, []Notification{{Kind: FailureNotification, Message: "Could not navigate to /user/profile"}}, n.ns)
}
