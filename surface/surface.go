package surface

import "strings"

// Element kinds
const (
	AnchorKind     = "anchor"
	ButtonKind     = "button"
	RoleButtonKind = "role_button"
	RoleLinkKind   = "role_link"
)

// Notification kinds
const (
	FailureNotification = "failure"
	SuccessNotification = "success"
)

// Region is the name of a region of the host application whose elements can be
// excluded when listing actionable elements
type Region string

// Element is a reference to one interactive element rendered by the host application.
// Elements belong to the host: they are only ever referenced, never mutated.
type Element struct {
	Class    string `json:"class,omitempty"`
	ID       string `json:"id,omitempty"`
	Kind     string `json:"kind"`
	Label    string `json:"label,omitempty"`
	Position int    `json:"position"`
	Ref      string `json:"ref"`
	Text     string `json:"text,omitempty"`
}

// Matches checks whether the element's visible text or accessible label contains the name
func (e Element) Matches(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(strings.ToLower(e.Text), name) || strings.Contains(strings.ToLower(e.Label), name)
}

// Describes checks whether the element's label, class or id contains the keyword
func (e Element) Describes(keyword string) bool {
	keyword = strings.ToLower(keyword)
	for _, v := range []string{e.Label, e.Class, e.ID} {
		if strings.Contains(strings.ToLower(v), keyword) {
			return true
		}
	}
	return false
}

// Provider gives access to the live interactive surface of the host application
type Provider interface {
	// Activate invokes the element as if it had been clicked by the user
	Activate(e Element) error
	// Highlight marks or unmarks the element as selected
	Highlight(e Element, selected bool) error
	// ListActionable lists buttons, anchors and link/button role elements in document
	// order, excluding descendants of the provided regions
	ListActionable(excluded ...Region) ([]Element, error)
}

// Router performs full navigations of the host application
type Router interface {
	Navigate(path string) error
}

// Notification is a user visible outcome
type Notification struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Notifier displays notifications to the user
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc allows using a func as a Notifier
type NotifierFunc func(n Notification)

// Notify implements the Notifier interface
func (f NotifierFunc) Notify(n Notification) { f(n) }
