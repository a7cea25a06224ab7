package handsfree

import (
	"sync"

	astiptr "github.com/asticode/go-astitools/ptr"
)

// Snapshot is a read-only copy of the session state
type Snapshot struct {
	GestureStatus    string  `json:"gesture_status"`
	GestureSupported bool    `json:"gesture_supported"`
	IsListening      bool    `json:"is_listening"`
	LastCommand      *string `json:"last_command,omitempty"`
	LastError        *string `json:"last_error,omitempty"`
	VoiceSupported   bool    `json:"voice_supported"`
}

// StateChangeFunc is executed every time the state changes
type StateChangeFunc func(s Snapshot)

// State holds the process-wide session flags displayed by the rest of the application.
// It is injected by reference into the adapters that write it; nothing reads it for control.
type State struct {
	fs []StateChangeFunc
	m  sync.Mutex // Locks fs and s
	s  Snapshot
}

// NewState creates a new state
func NewState() *State {
	return &State{s: Snapshot{
		GestureStatus:    UninitializedStatus,
		GestureSupported: true,
		VoiceSupported:   true,
	}}
}

// OnChange adds a callback executed every time the state changes
func (s *State) OnChange(fn StateChangeFunc) {
	s.m.Lock()
	defer s.m.Unlock()
	s.fs = append(s.fs, fn)
}

// Snapshot returns a copy of the current state
func (s *State) Snapshot() Snapshot {
	s.m.Lock()
	defer s.m.Unlock()
	return s.snapshotUnsafe()
}

func (s *State) snapshotUnsafe() (o Snapshot) {
	o = s.s
	if s.s.LastCommand != nil {
		o.LastCommand = astiptr.Str(*s.s.LastCommand)
	}
	if s.s.LastError != nil {
		o.LastError = astiptr.Str(*s.s.LastError)
	}
	return
}

// update applies fn under lock and notifies observers outside of it
func (s *State) update(fn func(o *Snapshot)) {
	// Update
	s.m.Lock()
	fn(&s.s)
	o := s.snapshotUnsafe()
	fs := append([]StateChangeFunc{}, s.fs...)
	s.m.Unlock()

	// Notify
	for _, f := range fs {
		f(o)
	}
}

// SetListening updates whether the speech pipeline is listening
func (s *State) SetListening(v bool) {
	s.update(func(o *Snapshot) { o.IsListening = v })
}

// SetLastCommand updates the last recognized command
func (s *State) SetLastCommand(v string) {
	s.update(func(o *Snapshot) { o.LastCommand = astiptr.Str(v) })
}

// SetLastError updates the last error
func (s *State) SetLastError(v string) {
	s.update(func(o *Snapshot) { o.LastError = astiptr.Str(v) })
}

// ClearLastError resets the last error
func (s *State) ClearLastError() {
	s.update(func(o *Snapshot) { o.LastError = nil })
}

// SetGestureStatus updates the gesture adapter status
func (s *State) SetGestureStatus(v string) {
	s.update(func(o *Snapshot) { o.GestureStatus = v })
}

// SetGestureSupported updates whether the gesture capability is available
func (s *State) SetGestureSupported(v bool) {
	s.update(func(o *Snapshot) { o.GestureSupported = v })
}

// SetVoiceSupported updates whether the voice capability is available
func (s *State) SetVoiceSupported(v bool) {
	s.update(func(o *Snapshot) { o.VoiceSupported = v })
}
