package voice

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Roles
const (
	AdminRole  Role = "ADMIN"
	DoctorRole Role = "DOCTOR"
	UserRole   Role = "USER"
)

//go:embed routes.yaml
var defaultRoutes []byte

// Role is the role of the active user
type Role string

// ParseRole parses a role as persisted in the session data of the host application
func ParseRole(i string) (r Role, err error) {
	switch strings.ToUpper(strings.TrimSpace(i)) {
	case "ADMIN":
		r = AdminRole
	case "DOCTOR":
		r = DoctorRole
	case "USER", "PATIENT":
		r = UserRole
	default:
		err = errors.Errorf("voice: unknown role %s", i)
	}
	return
}

// RoleSource provides the role of the active user
type RoleSource interface {
	Role() Role
}

// SessionRole is a RoleSource updated whenever the session of the host application changes
type SessionRole struct {
	m sync.Mutex // Locks r
	r Role
}

// NewSessionRole creates a new session role
func NewSessionRole(r Role) *SessionRole {
	return &SessionRole{r: r}
}

// Role implements the RoleSource interface
func (s *SessionRole) Role() Role {
	s.m.Lock()
	defer s.m.Unlock()
	return s.r
}

// Set sets the role
func (s *SessionRole) Set(r Role) {
	s.m.Lock()
	defer s.m.Unlock()
	s.r = r
}

// Route binds a keyword to a destination path
type Route struct {
	Keyword string
	Path    string
}

// RouteTable maps roles to their ordered routes. It is immutable once loaded.
type RouteTable map[Role][]Route

// DefaultRouteTable returns the built-in route table
func DefaultRouteTable() RouteTable {
	t, err := ParseRouteTable(defaultRoutes)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadRouteTable loads a route table from a YAML file
func LoadRouteTable(fs afero.Fs, path string) (t RouteTable, err error) {
	// Read
	var b []byte
	if b, err = afero.ReadFile(fs, path); err != nil {
		err = errors.Wrapf(err, "voice: reading %s failed", path)
		return
	}

	// Parse
	if t, err = ParseRouteTable(b); err != nil {
		err = errors.Wrapf(err, "voice: parsing %s failed", path)
		return
	}
	return
}

// ParseRouteTable parses a YAML route table. The document is decoded through nodes so
// that keyword order is preserved.
func ParseRouteTable(b []byte) (t RouteTable, err error) {
	// Unmarshal
	var n yaml.Node
	if err = yaml.Unmarshal(b, &n); err != nil {
		err = errors.Wrap(err, "voice: unmarshaling failed")
		return
	}

	// Check root
	t = make(RouteTable)
	if len(n.Content) == 0 {
		return
	}
	root := n.Content[0]
	if root.Kind != yaml.MappingNode {
		err = errors.Errorf("voice: line %d: routes should be a mapping", root.Line)
		return
	}

	// Loop through roles
	for i := 0; i+1 < len(root.Content); i += 2 {
		// Parse role
		var r Role
		if r, err = ParseRole(root.Content[i].Value); err != nil {
			err = errors.Wrapf(err, "voice: line %d", root.Content[i].Line)
			return
		}

		// Check routes
		v := root.Content[i+1]
		if v.Kind != yaml.MappingNode {
			err = errors.Errorf("voice: line %d: routes of role %s should be a mapping", v.Line, r)
			return
		}

		// Loop through routes
		for j := 0; j+1 < len(v.Content); j += 2 {
			k, p := v.Content[j], v.Content[j+1]
			if k.Value == "" || p.Kind != yaml.ScalarNode || p.Value == "" {
				err = errors.Errorf("voice: line %d: invalid route for role %s", k.Line, r)
				return
			}
			t[r] = append(t[r], Route{
				Keyword: strings.ToLower(k.Value),
				Path:    p.Value,
			})
		}
	}
	return
}

// Resolve returns the path of the first keyword of the role that is contained in the target
func (t RouteTable) Resolve(r Role, target string) (path string, ok bool) {
	target = strings.ToLower(target)
	for _, rt := range t[r] {
		if strings.Contains(target, rt.Keyword) {
			return rt.Path, true
		}
	}
	return
}
