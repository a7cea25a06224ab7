package bridge

import (
	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree/surface"
)

// Surface returns the host's surface
func (b *Bridge) Surface() *Surface { return &Surface{b: b} }

// Surface drives the elements of the host's current route
type Surface struct {
	b *Bridge
}

// Activate implements the surface.Provider interface
func (s *Surface) Activate(e surface.Element) error {
	return s.b.send(EventNameElementActivate, ElementActivate{Ref: e.Ref})
}

// Highlight implements the surface.Provider interface
func (s *Surface) Highlight(e surface.Element, selected bool) error {
	return s.b.send(EventNameElementHighlight, ElementHighlight{
		Ref:      e.Ref,
		Selected: selected,
	})
}

// ListActionable implements the surface.Provider interface
func (s *Surface) ListActionable(excluded ...surface.Region) (es []surface.Element, err error) {
	// Lock
	s.b.m.Lock()
	defer s.b.m.Unlock()

	// No host
	if s.b.c == nil {
		return
	}

	// Loop through elements
	for _, e := range s.b.es {
		if !e.in(excluded) {
			es = append(es, e.Element)
		}
	}
	return
}

// Navigate implements the surface.Router interface
func (s *Surface) Navigate(path string) error {
	return s.b.send(EventNameNavigate, Navigate{Path: path})
}

// Notify implements the surface.Notifier interface
func (s *Surface) Notify(n surface.Notification) {
	astilog.Infof("bridge: %s notification: %s", n.Kind, n.Message)
	if err := s.b.send(EventNameNotification, n); err != nil {
		astilog.Error(errors.Wrap(err, "bridge: sending notification failed"))
	}
}
