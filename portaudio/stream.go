package portaudio

import (
	"github.com/asticode/go-astilog"
	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

// Default stream options
const (
	DefaultBitDepth     = 32
	DefaultBufferLength = 1024
	DefaultSampleRate   = 16000
)

// Stream is a microphone capture stream
type Stream struct {
	b []int32
	o StreamOptions
	s *portaudio.Stream
}

// StreamOptions represents stream options
type StreamOptions struct {
	BitDepth             int     `toml:"bit_depth"`
	BufferLength         int     `toml:"buffer_length"`
	MaxSilenceAudioLevel float64 `toml:"max_silence_audio_level"`
	NumInputChannels     int     `toml:"num_input_channels"`
	SampleRate           int     `toml:"sample_rate"`
}

func (o *StreamOptions) defaults() {
	if o.BitDepth == 0 {
		o.BitDepth = DefaultBitDepth
	}
	if o.BufferLength == 0 {
		o.BufferLength = DefaultBufferLength
	}
	if o.NumInputChannels == 0 {
		o.NumInputChannels = 1
	}
	if o.SampleRate == 0 {
		o.SampleRate = DefaultSampleRate
	}
}

// NewDefaultStream opens a capture stream on the default input device
func (p *PortAudio) NewDefaultStream(o StreamOptions) (s *Stream, err error) {
	// Create stream
	o.defaults()
	s = &Stream{
		b: make([]int32, o.BufferLength*o.NumInputChannels),
		o: o,
	}

	// Log
	astilog.Debugf("portaudio: opening default stream %p", s)

	// Open default stream
	if s.s, err = portaudio.OpenDefaultStream(s.o.NumInputChannels, 0, float64(s.o.SampleRate), s.o.BufferLength, s.b); err != nil {
		err = errors.Wrapf(err, "portaudio: opening default stream %p failed", s)
		return
	}
	return
}

// BitDepth returns the bit depth of the samples
func (s *Stream) BitDepth() int { return s.o.BitDepth }

// MaxSilenceAudioLevel returns the audio level under which samples are considered silent
func (s *Stream) MaxSilenceAudioLevel() float64 { return s.o.MaxSilenceAudioLevel }

// NumChannels returns the number of input channels
func (s *Stream) NumChannels() int { return s.o.NumInputChannels }

// SampleRate returns the sample rate
func (s *Stream) SampleRate() int { return s.o.SampleRate }

// Close implements the io.Closer interface
func (s *Stream) Close() (err error) {
	// Log
	astilog.Debugf("portaudio: closing stream %p", s)

	// Close
	if err = s.s.Close(); err != nil {
		err = errors.Wrapf(err, "portaudio: closing stream %p failed", s)
		return
	}
	return
}

// Start starts capturing
func (s *Stream) Start() (err error) {
	// Log
	astilog.Debugf("portaudio: starting stream %p", s)

	// Start
	if err = s.s.Start(); err != nil {
		err = errors.Wrapf(err, "portaudio: starting stream %p failed", s)
		return
	}
	return
}

// Stop stops capturing
func (s *Stream) Stop() (err error) {
	// Log
	astilog.Debugf("portaudio: stopping stream %p", s)

	// Stop
	if err = s.s.Stop(); err != nil {
		err = errors.Wrapf(err, "portaudio: stopping stream %p failed", s)
		return
	}
	return
}

// Read blocks until the buffer is full and returns a copy of it
func (s *Stream) Read() (rs []int, err error) {
	// Read
	if err = s.s.Read(); err != nil {
		err = errors.Wrapf(err, "portaudio: reading from stream %p failed", s)
		return
	}

	// Clone buffer
	rs = make([]int, len(s.b))
	for idx, v := range s.b {
		rs[idx] = int(v)
	}
	return
}
