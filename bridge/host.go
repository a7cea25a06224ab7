package bridge

import (
	"encoding/json"
	"net/http"

	"github.com/asticode/go-astilog"
	"github.com/asticode/go-astiws"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree/gesture"
	"github.com/smiledesk/go-handsfree/voice"
)

// handleHostWebsocket handles the host websocket
func (b *Bridge) handleHostWebsocket(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := b.ws.ServeHTTP(rw, r, b.adaptHost); err != nil {
		if v, ok := errors.Cause(err).(*websocket.CloseError); !ok || (v.Code != websocket.CloseNoStatusReceived && v.Code != websocket.CloseNormalClosure) {
			astilog.Error(errors.Wrap(err, "bridge: handling host websocket failed"))
		}
		return
	}
}

// adaptHost adapts a new host client
func (b *Bridge) adaptHost(c *astiws.Client) error {
	// Register client
	b.ws.AutoRegisterClient(c)

	// Add listeners
	c.AddListener(astiws.EventNameDisconnect, b.handleDisconnect)
	for n, l := range b.listeners() {
		c.AddListener(n, l)
	}

	// Replace the current host
	b.m.Lock()
	b.c = c
	b.m.Unlock()
	astilog.Infof("bridge: host %p has connected", c)
	return nil
}

// listeners returns the host event listeners
func (b *Bridge) listeners() map[string]astiws.ListenerFunc {
	return map[string]astiws.ListenerFunc{
		EventNameCaptureFailed:   b.handleResolvable,
		EventNameCaptureStarted:  b.handleResolvable,
		EventNameDetectorError:   b.handleDetectorError,
		EventNameGestureDisable:  b.handleToggle(GestureToggle, false),
		EventNameGestureEnable:   b.handleToggle(GestureToggle, true),
		EventNameHostHello:       b.handleHostHello,
		EventNameLandmarksFrame:  b.handleLandmarksFrame,
		EventNameSessionRole:     b.handleSessionRole,
		EventNameSpeechEnd:       b.handleSpeechEnd,
		EventNameSpeechError:     b.handleSpeechError,
		EventNameSpeechResult:    b.handleSpeechResult,
		EventNameSpeechStarted:   b.handleResolvable,
		EventNameSurfaceSnapshot: b.handleSurfaceSnapshot,
		EventNameVoiceDisable:    b.handleToggle(VoiceToggle, false),
		EventNameVoiceEnable:     b.handleToggle(VoiceToggle, true),
	}
}

// handleDisconnect handles the disconnect event
func (b *Bridge) handleDisconnect(c *astiws.Client, eventName string, payload json.RawMessage) error {
	// Unregister client
	b.ws.UnregisterClient(c)

	// Lock
	b.m.Lock()

	// Another host has connected in the meantime
	if b.c != c {
		b.m.Unlock()
		return nil
	}

	// Reset
	b.c = nil
	b.cs = Capabilities{}
	b.es = nil
	var ts []Toggle
	for _, t := range b.ts {
		ts = append(ts, t)
	}
	b.m.Unlock()
	astilog.Infof("bridge: host %p has disconnected", c)

	// The devices were owned by the host's tab
	go func() {
		for _, t := range ts {
			if err := t.Disable(); err != nil {
				astilog.Error(errors.Wrap(err, "bridge: disabling toggle failed"))
			}
		}
	}()
	return nil
}

// handleResolvable handles events that are only expected as a response
func (b *Bridge) handleResolvable(c *astiws.Client, eventName string, payload json.RawMessage) error {
	// Resolve
	if b.resolve(eventName, payload) {
		return nil
	}
	astilog.Debugf("bridge: unexpected %s event", eventName)

	// Nobody owns this capture anymore
	if eventName == EventNameCaptureStarted {
		var p CaptureStarted
		if err := json.Unmarshal(payload, &p); err != nil {
			astilog.Error(errors.Wrapf(err, "bridge: unmarshaling %s payload %s failed", eventName, payload))
			return nil
		}
		go func() {
			cp := &capture{b: b, ts: p.Tracks}
			for _, t := range cp.Tracks() {
				if err := t.Stop(); err != nil {
					astilog.Error(errors.Wrap(err, "bridge: stopping orphan track failed"))
				}
			}
			if err := cp.Detach(); err != nil {
				astilog.Error(errors.Wrap(err, "bridge: detaching orphan capture failed"))
			}
		}()
	}
	return nil
}

// handleHostHello handles the host hello event
func (b *Bridge) handleHostHello(c *astiws.Client, eventName string, payload json.RawMessage) error {
	// Unmarshal
	var h HostHello
	if err := json.Unmarshal(payload, &h); err != nil {
		astilog.Error(errors.Wrapf(err, "bridge: unmarshaling %s payload %s failed", eventName, payload))
		return nil
	}

	// Update capabilities
	b.m.Lock()
	b.cs = h.Capabilities
	b.m.Unlock()
	astilog.Debugf("bridge: host capabilities are %+v", h.Capabilities)

	// Update role
	b.setRole(h.Role)

	// Send state
	b.HandleStateChange(b.s.Snapshot())
	return nil
}

// handleSessionRole handles the session role event
func (b *Bridge) handleSessionRole(c *astiws.Client, eventName string, payload json.RawMessage) error {
	// Unmarshal
	var r SessionRole
	if err := json.Unmarshal(payload, &r); err != nil {
		astilog.Error(errors.Wrapf(err, "bridge: unmarshaling %s payload %s failed", eventName, payload))
		return nil
	}

	// Update role
	b.setRole(r.Role)
	return nil
}

func (b *Bridge) setRole(i string) {
	if i == "" {
		return
	}
	r, err := voice.ParseRole(i)
	if err != nil {
		astilog.Error(errors.Wrap(err, "bridge: parsing role failed"))
		return
	}
	b.role.Set(r)
	astilog.Debugf("bridge: role is now %s", r)
}

// handleSurfaceSnapshot handles the surface snapshot event
func (b *Bridge) handleSurfaceSnapshot(c *astiws.Client, eventName string, payload json.RawMessage) error {
	// Unmarshal
	var s SurfaceSnapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		astilog.Error(errors.Wrapf(err, "bridge: unmarshaling %s payload failed", eventName))
		return nil
	}

	// Update
	b.m.Lock()
	b.es = s.Elements
	b.route = s.Route
	fn := b.onSnapshot
	b.m.Unlock()
	astilog.Debugf("bridge: route %s has %d elements", s.Route, len(s.Elements))

	// Callback
	if fn != nil {
		fn()
	}
	return nil
}

// handleLandmarksFrame handles the landmarks frame event
func (b *Bridge) handleLandmarksFrame(c *astiws.Client, eventName string, payload json.RawMessage) error {
	// Get handlers
	b.m.Lock()
	h := b.dh
	b.m.Unlock()

	// Detector is not started
	if h == nil || h.OnFrame == nil {
		return nil
	}

	// Rate limit here in case the host is spamming
	if !b.b.Inc() {
		return nil
	}

	// Unmarshal
	var f LandmarksFrame
	if err := json.Unmarshal(payload, &f); err != nil {
		astilog.Error(errors.Wrapf(err, "bridge: unmarshaling %s payload failed", eventName))
		return nil
	}

	// No hand
	if len(f.Landmarks) == 0 {
		h.OnFrame(nil)
		return nil
	}

	// Convert
	fr, err := gesture.NewFrame(f.Landmarks)
	if err != nil {
		astilog.Error(errors.Wrap(err, "bridge: converting landmarks failed"))
		return nil
	}
	h.OnFrame(fr)
	return nil
}

// handleDetectorError handles the detector error event
func (b *Bridge) handleDetectorError(c *astiws.Client, eventName string, payload json.RawMessage) error {
	// Unmarshal
	var e DetectorError
	if err := json.Unmarshal(payload, &e); err != nil {
		astilog.Error(errors.Wrapf(err, "bridge: unmarshaling %s payload %s failed", eventName, payload))
		return nil
	}

	// Get handlers
	b.m.Lock()
	h := b.dh
	b.m.Unlock()

	// Forward
	if h != nil && h.OnError != nil {
		h.OnError(errors.New(e.Error))
	}
	return nil
}

// handleSpeechResult handles the speech result event
func (b *Bridge) handleSpeechResult(c *astiws.Client, eventName string, payload json.RawMessage) error {
	// Get handlers
	b.m.Lock()
	h := b.rh
	b.m.Unlock()

	// Recognizer is not started
	if h == nil || h.OnResult == nil {
		return nil
	}

	// Unmarshal
	var r SpeechResult
	if err := json.Unmarshal(payload, &r); err != nil {
		astilog.Error(errors.Wrapf(err, "bridge: unmarshaling %s payload %s failed", eventName, payload))
		return nil
	}
	h.OnResult(r)
	return nil
}

// handleSpeechError handles the speech error event
func (b *Bridge) handleSpeechError(c *astiws.Client, eventName string, payload json.RawMessage) error {
	// Recognizer is starting
	if b.resolve(eventName, payload) {
		return nil
	}

	// Unmarshal
	var e SpeechError
	if err := json.Unmarshal(payload, &e); err != nil {
		astilog.Error(errors.Wrapf(err, "bridge: unmarshaling %s payload %s failed", eventName, payload))
		return nil
	}

	// Get handlers
	b.m.Lock()
	h := b.rh
	b.m.Unlock()

	// Forward
	if h != nil && h.OnError != nil {
		h.OnError(e.Code)
	}
	return nil
}

// handleSpeechEnd handles the speech end event
func (b *Bridge) handleSpeechEnd(c *astiws.Client, eventName string, payload json.RawMessage) error {
	// Get handlers
	b.m.Lock()
	h := b.rh
	b.m.Unlock()

	// Forward
	if h != nil && h.OnEnd != nil {
		h.OnEnd()
	}
	return nil
}

// handleToggle handles the toggle events
func (b *Bridge) handleToggle(name string, enable bool) astiws.ListenerFunc {
	return func(c *astiws.Client, eventName string, payload json.RawMessage) error {
		// Get toggle
		b.m.Lock()
		t, ok := b.ts[name]
		b.m.Unlock()
		if !ok {
			astilog.Errorf("bridge: unknown toggle %s", name)
			return nil
		}

		// Toggling waits for the host to acknowledge, which can't happen on the reading goroutine
		go func() {
			var err error
			if enable {
				err = t.Enable(b.ctx)
			} else {
				err = t.Disable()
			}
			if err != nil {
				astilog.Error(errors.Wrapf(err, "bridge: handling %s failed", eventName))
			}
		}()
		return nil
	}
}
