package bridge

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree"
	"github.com/smiledesk/go-handsfree/voice"
)

// Recognizer returns the host's speech recognizer
func (b *Bridge) Recognizer() voice.Recognizer { return &recognizer{b: b} }

type recognizer struct {
	b *Bridge
}

func (r *recognizer) setHandlers(h *voice.RecognitionHandlers) {
	r.b.m.Lock()
	r.b.rh = h
	r.b.m.Unlock()
}

// Start implements the voice.Recognizer interface
func (r *recognizer) Start(ctx context.Context, h voice.RecognitionHandlers) (err error) {
	// Check capabilities
	r.b.m.Lock()
	connected, cs := r.b.c != nil, r.b.cs
	r.b.m.Unlock()
	if !connected {
		err = errors.Wrap(handsfree.ErrAcquisition, "bridge: no host is connected")
		return
	} else if !cs.Speech {
		err = handsfree.ErrUnsupported
		return
	}

	// Results may be delivered right after the acknowledgement
	r.setHandlers(&h)

	// Send
	w := r.b.expect(EventNameSpeechStarted, EventNameSpeechError)
	if err = r.b.send(EventNameSpeechStart, nil); err != nil {
		r.b.cancel(w)
		r.setHandlers(nil)
		err = errors.Wrap(handsfree.ErrAcquisition, err.Error())
		return
	}

	// Wait
	var e event
	if e, err = r.b.wait(ctx, w); err != nil {
		r.setHandlers(nil)
		err = errors.Wrap(err, "bridge: waiting for speech recognition failed")
		return
	}

	// Started
	if e.name == EventNameSpeechStarted {
		return
	}

	// Unmarshal
	r.setHandlers(nil)
	var p SpeechError
	if err = json.Unmarshal(e.payload, &p); err != nil {
		err = errors.Wrapf(err, "bridge: unmarshaling %s payload failed", e.name)
		return
	}

	// Process error
	switch {
	case p.Code == unsupportedSpeechErrorCode:
		err = handsfree.ErrUnsupported
	case acquisitionSpeechErrorCodes[p.Code]:
		err = errors.Wrap(handsfree.ErrAcquisition, p.Code)
	default:
		err = errors.New(p.Code)
	}
	return
}

// Stop implements the voice.Recognizer interface
func (r *recognizer) Stop() error {
	r.setHandlers(nil)
	return r.b.send(EventNameSpeechStop, nil)
}
