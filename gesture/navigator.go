package gesture

import (
	"sync"

	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree/surface"
)

// Default selection keyword
const DefaultSelectionKeyword = "notification"

// Directions
const (
	LeftDirection  = -1
	RightDirection = 1
)

// NavigatorOptions represents navigator options
type NavigatorOptions struct {
	DefaultKeyword  string           `toml:"default_keyword"`
	ExcludedRegions []surface.Region `toml:"excluded_regions"`
}

// Navigator maintains a cyclic cursor over the actionable elements of the current page
type Navigator struct {
	es          []surface.Element
	highlighted int
	index       int
	m           sync.Mutex // Locks es, highlighted and index
	o           NavigatorOptions
	p           surface.Provider
}

// NewNavigator creates a new navigator
func NewNavigator(p surface.Provider, o NavigatorOptions) *Navigator {
	if o.DefaultKeyword == "" {
		o.DefaultKeyword = DefaultSelectionKeyword
	}
	return &Navigator{
		highlighted: -1,
		o:           o,
		p:           p,
	}
}

// Rebuild snapshots the actionable elements of the page and resets the selection to the
// element matching the default keyword, or to the first element
func (n *Navigator) Rebuild() (err error) {
	// List
	var es []surface.Element
	if es, err = n.p.ListActionable(n.o.ExcludedRegions...); err != nil {
		err = errors.Wrap(err, "gesture: listing actionable elements failed")
		return
	}

	// Lock
	n.m.Lock()
	defer n.m.Unlock()

	// Reset
	n.es = es
	n.highlighted = -1
	n.index = 0
	for idx, e := range es {
		if e.Describes(n.o.DefaultKeyword) {
			n.index = idx
			break
		}
	}
	astilog.Debugf("gesture: %d actionable elements, selection reset to %d", len(es), n.index)
	return
}

// Move moves the selection by one element in the provided direction, wrapping around
// both ends, and highlights the new selection exclusively
func (n *Navigator) Move(direction int) (err error) {
	// Lock
	n.m.Lock()
	defer n.m.Unlock()

	// Empty list
	if len(n.es) == 0 {
		return
	}

	// Move
	n.index = ((n.index+direction)%len(n.es) + len(n.es)) % len(n.es)

	// Unhighlight
	if n.highlighted >= 0 && n.highlighted < len(n.es) && n.highlighted != n.index {
		if err = n.p.Highlight(n.es[n.highlighted], false); err != nil {
			astilog.Error(errors.Wrapf(err, "gesture: unhighlighting element %s failed", n.es[n.highlighted].Ref))
		}
	}

	// Highlight
	n.highlighted = n.index
	if err = n.p.Highlight(n.es[n.index], true); err != nil {
		err = errors.Wrapf(err, "gesture: highlighting element %s failed", n.es[n.index].Ref)
		return
	}
	return
}

// ActivateSelected activates the selected element
func (n *Navigator) ActivateSelected() (err error) {
	// Lock
	n.m.Lock()
	defer n.m.Unlock()

	// Empty list
	if len(n.es) == 0 {
		return
	}

	// Activate
	if err = n.p.Activate(n.es[n.index]); err != nil {
		err = errors.Wrapf(err, "gesture: activating element %s failed", n.es[n.index].Ref)
		return
	}
	return
}

// Clear removes the highlight from every element and resets the selection to the first one
func (n *Navigator) Clear() (err error) {
	// Lock
	n.m.Lock()
	defer n.m.Unlock()

	// Unhighlight
	for _, e := range n.es {
		if errHighlight := n.p.Highlight(e, false); errHighlight != nil && err == nil {
			err = errors.Wrapf(errHighlight, "gesture: unhighlighting element %s failed", e.Ref)
		}
	}

	// Reset
	n.highlighted = -1
	n.index = 0
	return
}

// Apply performs the operation bound to a gesture. Up and Down have no operation.
func (n *Navigator) Apply(g Gesture) error {
	switch g {
	case Left:
		return n.Move(LeftDirection)
	case Right:
		return n.Move(RightDirection)
	case Submit:
		return n.ActivateSelected()
	case Clear:
		return n.Clear()
	}
	return nil
}

// Selection returns the selected element
func (n *Navigator) Selection() (e surface.Element, index int, ok bool) {
	n.m.Lock()
	defer n.m.Unlock()
	if len(n.es) == 0 {
		return
	}
	return n.es[n.index], n.index, true
}

// Len returns the number of elements in the snapshot
func (n *Navigator) Len() int {
	n.m.Lock()
	defer n.m.Unlock()
	return len(n.es)
}
