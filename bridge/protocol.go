package bridge

import (
	"github.com/smiledesk/go-handsfree/gesture"
	"github.com/smiledesk/go-handsfree/surface"
	"github.com/smiledesk/go-handsfree/voice"
)

// Host event names
const (
	EventNameCaptureFailed   = "capture.failed"
	EventNameCaptureStarted  = "capture.started"
	EventNameDetectorError   = "detector.error"
	EventNameGestureDisable  = "gesture.disable"
	EventNameGestureEnable   = "gesture.enable"
	EventNameHostHello       = "host.hello"
	EventNameLandmarksFrame  = "landmarks.frame"
	EventNameSessionRole     = "session.role"
	EventNameSpeechEnd       = "speech.end"
	EventNameSpeechError     = "speech.error"
	EventNameSpeechResult    = "speech.result"
	EventNameSpeechStarted   = "speech.started"
	EventNameSurfaceSnapshot = "surface.snapshot"
	EventNameVoiceDisable    = "voice.disable"
	EventNameVoiceEnable     = "voice.enable"
)

// Bridge event names
const (
	EventNameCaptureDetach    = "capture.detach"
	EventNameCaptureStart     = "capture.start"
	EventNameCaptureTrackStop = "capture.track.stop"
	EventNameDetectorStart    = "detector.start"
	EventNameDetectorStop     = "detector.stop"
	EventNameElementActivate  = "element.activate"
	EventNameElementHighlight = "element.highlight"
	EventNameNavigate         = "navigate"
	EventNameNotification     = "notification"
	EventNameSpeechStart      = "speech.start"
	EventNameSpeechStop       = "speech.stop"
	EventNameStateUpdated     = "state.updated"
)

// Speech error codes meaning the microphone could not be acquired
var acquisitionSpeechErrorCodes = map[string]bool{
	"audio-capture":       true,
	"not-allowed":         true,
	"service-not-allowed": true,
}

// Speech error code meaning the host has no speech recognition capability
const unsupportedSpeechErrorCode = "unsupported"

// Capabilities are the capabilities of the host
type Capabilities struct {
	Camera bool `json:"camera"`
	Speech bool `json:"speech"`
}

// HostHello is sent by the host when it connects
type HostHello struct {
	Capabilities Capabilities `json:"capabilities"`
	Role         string       `json:"role"`
}

// SessionRole is sent by the host when its session changes
type SessionRole struct {
	Role string `json:"role"`
}

// Element is an actionable element as reported by the host
type Element struct {
	surface.Element
	// Regions are the names of the regions the element is a descendant of
	Regions []surface.Region `json:"regions,omitempty"`
}

func (e Element) in(rs []surface.Region) bool {
	for _, r := range rs {
		for _, er := range e.Regions {
			if r == er {
				return true
			}
		}
	}
	return false
}

// SurfaceSnapshot is sent by the host every time its route changes
type SurfaceSnapshot struct {
	Elements []Element `json:"elements"`
	Route    string    `json:"route"`
}

// CaptureStarted is sent by the host once the camera has been acquired
type CaptureStarted struct {
	Tracks []string `json:"tracks"`
}

// CaptureFailed is sent by the host when the camera could not be acquired
type CaptureFailed struct {
	Error       string `json:"error"`
	Unsupported bool   `json:"unsupported,omitempty"`
}

// LandmarksFrame is sent by the host once per processed video frame.
// Landmarks are empty when no hand has been detected.
type LandmarksFrame struct {
	Landmarks []gesture.Landmark `json:"landmarks"`
}

// DetectorError is sent by the host when its detector fails
type DetectorError struct {
	Error string `json:"error"`
}

// SpeechError is sent by the host when speech recognition fails
type SpeechError struct {
	Code string `json:"code"`
}

// SpeechResult is sent by the host every time speech recognition results change
type SpeechResult = voice.Event

// CaptureTrackStop asks the host to stop a track
type CaptureTrackStop struct {
	ID string `json:"id"`
}

// ElementActivate asks the host to activate an element
type ElementActivate struct {
	Ref string `json:"ref"`
}

// ElementHighlight asks the host to mark or unmark an element as selected
type ElementHighlight struct {
	Ref      string `json:"ref"`
	Selected bool   `json:"selected"`
}

// Navigate asks the host to navigate
type Navigate struct {
	Path string `json:"path"`
}
