package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/asticode/go-astilog"
	"github.com/asticode/go-astitools/http"
	"github.com/asticode/go-astiws"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree"
)

// Server prefixes
const (
	apiPrefix        = "/api"
	websocketsPrefix = "/websockets"
)

// ServerOptions are server options
type ServerOptions struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	PublicAddr string `toml:"public_addr"`
	// In seconds
	Timeout  int    `toml:"timeout"`
	Username string `toml:"username"`
}

// Handler returns the bridge's HTTP handler
func (b *Bridge) Handler() http.Handler {
	// Create router
	r := httprouter.New()

	// API
	r.GET(apiPrefix+"/ok", b.ok)
	r.GET(apiPrefix+"/references", b.references)
	r.GET(apiPrefix+"/state", b.state)
	r.GET(apiPrefix+"/surface", b.surface)
	for _, n := range []string{GestureToggle, VoiceToggle} {
		r.POST(apiPrefix+"/"+n+"/disable", b.toggle(n, false))
		r.POST(apiPrefix+"/"+n+"/enable", b.toggle(n, true))
	}

	// Websockets
	r.GET(websocketsPrefix+"/host", b.handleHostWebsocket)

	// Chain middlewares
	h := astihttp.ChainMiddlewares(r, astihttp.MiddlewareBasicAuth(b.o.Server.Username, b.o.Server.Password))
	if b.o.Server.Timeout > 0 {
		h = astihttp.ChainMiddlewaresWithPrefix(h, []string{apiPrefix + "/"}, astihttp.MiddlewareTimeout(time.Duration(b.o.Server.Timeout)*time.Second))
	}
	h = astihttp.ChainMiddlewaresWithPrefix(h, []string{apiPrefix + "/"}, astihttp.MiddlewareContentType("application/json"))
	return h
}

// Serve serves the bridge until the context is done
func (b *Bridge) Serve(ctx context.Context) (err error) {
	// Create server
	s := &http.Server{Addr: b.o.Server.Addr, Handler: b.Handler()}

	// Shut down when context is done
	go func() {
		<-ctx.Done()
		astilog.Debug("bridge: shutting down server")
		if err := s.Shutdown(context.Background()); err != nil {
			astilog.Error(errors.Wrap(err, "bridge: shutting down server failed"))
		}
	}()

	// Serve
	astilog.Infof("bridge: serving on %s", s.Addr)
	if err = s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		err = errors.Wrapf(err, "bridge: serving on %s failed", s.Addr)
		return
	}
	err = nil
	return
}

// APIError represents a failed API call
type APIError struct {
	Message string `json:"message"`
	Toggle  string `json:"toggle,omitempty"`
	// Unsupported indicates the capability will never be available in this environment
	Unsupported bool `json:"unsupported,omitempty"`
}

func writeAPIError(rw http.ResponseWriter, code int, toggle string, err error) {
	astilog.Error(err)
	rw.WriteHeader(code)
	if err := json.NewEncoder(rw).Encode(APIError{
		Message:     err.Error(),
		Toggle:      toggle,
		Unsupported: handsfree.IsUnsupported(err),
	}); err != nil {
		astilog.Error(errors.Wrap(err, "bridge: encoding api error failed"))
	}
}

func writeAPIData(rw http.ResponseWriter, data interface{}) {
	if err := json.NewEncoder(rw).Encode(data); err != nil {
		writeAPIError(rw, http.StatusInternalServerError, "", errors.Wrap(err, "bridge: encoding api data failed"))
		return
	}
}

func (b *Bridge) ok(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	rw.WriteHeader(http.StatusNoContent)
}

// APIReferences represents the references
type APIReferences struct {
	WsPingPeriod int    `json:"ws_ping_period"` // In seconds
	WsURL        string `json:"ws_url"`
}

func (b *Bridge) references(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	addr := b.o.Server.PublicAddr
	if addr == "" {
		addr = b.o.Server.Addr
	}
	writeAPIData(rw, APIReferences{
		WsPingPeriod: int(astiws.PingPeriod.Seconds()),
		WsURL:        "ws://" + addr + websocketsPrefix + "/host",
	})
}

func (b *Bridge) state(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	writeAPIData(rw, b.s.Snapshot())
}

// APISurface represents the surface of the host
type APISurface struct {
	Connected bool      `json:"connected"`
	Elements  []Element `json:"elements,omitempty"`
	Route     string    `json:"route,omitempty"`
}

func (b *Bridge) surface(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	b.m.Lock()
	s := APISurface{
		Connected: b.c != nil,
		Elements:  append([]Element{}, b.es...),
		Route:     b.route,
	}
	b.m.Unlock()
	writeAPIData(rw, s)
}

func (b *Bridge) toggle(name string, enable bool) httprouter.Handle {
	return func(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
		// Get toggle
		b.m.Lock()
		t, ok := b.ts[name]
		b.m.Unlock()
		if !ok {
			writeAPIError(rw, http.StatusNotFound, name, errors.Errorf("bridge: unknown toggle %s", name))
			return
		}

		// Toggle
		var err error
		if enable {
			err = t.Enable(b.ctx)
		} else {
			err = t.Disable()
		}
		if err != nil {
			code := http.StatusInternalServerError
			if handsfree.IsUnsupported(err) {
				code = http.StatusNotImplemented
			}
			writeAPIError(rw, code, name, errors.Wrapf(err, "bridge: toggling %s failed", name))
			return
		}

		// Write
		writeAPIData(rw, b.s.Snapshot())
	}
}
