package surface

import (
	"strconv"
	"strings"

	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
)

// Executor performs the side effects decided by the interpreter on the live surface.
// Every outcome is reported to the notifier: nothing is returned to the host as an error.
type Executor struct {
	n Notifier
	p Provider
	r Router
}

// NewExecutor creates a new executor
func NewExecutor(p Provider, r Router, n Notifier) *Executor {
	return &Executor{
		n: n,
		p: p,
		r: r,
	}
}

// ActivateByName activates the first clickable element, in document order, whose visible
// text or accessible label contains the name (case-insensitive). When no element matches
// and the name is a number, the element at that 1-based position is activated instead.
func (e *Executor) ActivateByName(name string) bool {
	// Trim
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	// List
	es, err := e.p.ListActionable()
	if err != nil {
		astilog.Error(errors.Wrap(err, "surface: listing actionable elements failed"))
		e.fail("Could not find element: " + name)
		return false
	}

	// Match by text or label
	for _, el := range es {
		if el.Matches(name) {
			return e.activate(el)
		}
	}

	// Match by position
	if i, err := strconv.Atoi(name); err == nil && i > 0 && i <= len(es) {
		return e.activate(es[i-1])
	}

	// Not found
	e.fail("Could not find element: " + name)
	return false
}

func (e *Executor) activate(el Element) bool {
	astilog.Debugf("surface: activating element %s", el.Ref)
	if err := e.p.Activate(el); err != nil {
		astilog.Error(errors.Wrapf(err, "surface: activating element %s failed", el.Ref))
		e.fail("Could not activate element: " + e.name(el))
		return false
	}
	return true
}

func (e *Executor) name(el Element) string {
	if el.Text != "" {
		return el.Text
	}
	if el.Label != "" {
		return el.Label
	}
	return el.Ref
}

// NavigateTo performs a full navigation of the host application
func (e *Executor) NavigateTo(path string) bool {
	astilog.Debugf("surface: navigating to %s", path)
	if err := e.r.Navigate(path); err != nil {
		astilog.Error(errors.Wrapf(err, "surface: navigating to %s failed", path))
		e.fail("Could not navigate to " + path)
		return false
	}
	e.n.Notify(Notification{Kind: SuccessNotification, Message: "Navigating to " + path})
	return true
}

func (e *Executor) fail(msg string) {
	e.n.Notify(Notification{Kind: FailureNotification, Message: msg})
}
