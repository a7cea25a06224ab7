package local

import (
	"context"
	"strings"
	"sync"

	"github.com/asticode/go-astilog"
	astipcm "github.com/asticode/go-astitools/pcm"
	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree"
	"github.com/smiledesk/go-handsfree/voice"
	"github.com/spf13/afero"
)

// Error codes delivered through voice.RecognitionHandlers.OnError
const (
	AudioCaptureErrorCode = "audio-capture"
)

// Source is a microphone stream
type Source interface {
	BitDepth() int
	Close() error
	MaxSilenceAudioLevel() float64
	NumChannels() int
	Read() ([]int, error)
	SampleRate() int
	Start() error
	Stop() error
}

// Opener opens a new source every time a recognition session starts
type Opener interface {
	Open() (Source, error)
}

// OpenerFunc allows using a func as an Opener
type OpenerFunc func() (Source, error)

// Open implements the Opener interface
func (f OpenerFunc) Open() (Source, error) { return f() }

// Parser transcribes an utterance
type Parser interface {
	Parse(samples []int, bitDepth, numChannels, sampleRate int) (string, error)
}

// Segmenter splits a continuous stream of samples into utterances
type Segmenter interface {
	Add(samples []int) [][]int
	Reset()
}

// SegmenterFunc creates a segmenter for a source
type SegmenterFunc func(s Source) Segmenter

// NewSilenceSegmenter creates a segmenter that splits samples on silences
func NewSilenceSegmenter(s Source) Segmenter {
	return astipcm.NewSilenceDetector(astipcm.SilenceDetectorOptions{
		MaxSilenceAudioLevel: s.MaxSilenceAudioLevel(),
		SampleRate:           s.SampleRate(),
	})
}

// RecognizerOptions represents recognizer options
type RecognizerOptions struct {
	Fs            afero.Fs
	Opener        Opener
	Parser        Parser
	SegmenterFunc SegmenterFunc
	Storage       StorageOptions
}

// Recognizer is a voice.Recognizer transcribing the local microphone
type Recognizer struct {
	cancel context.CancelFunc
	m      sync.Mutex // Locks cancel
	o      RecognizerOptions
	st     *storage
	wg     *sync.WaitGroup
}

// NewRecognizer creates a new recognizer
func NewRecognizer(o RecognizerOptions) *Recognizer {
	if o.SegmenterFunc == nil {
		o.SegmenterFunc = NewSilenceSegmenter
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	return &Recognizer{
		o:  o,
		st: newStorage(o.Fs, o.Storage),
		wg: &sync.WaitGroup{},
	}
}

// Start implements the voice.Recognizer interface
func (r *Recognizer) Start(ctx context.Context, h voice.RecognitionHandlers) (err error) {
	// Lock
	r.m.Lock()
	defer r.m.Unlock()

	// Already started
	if r.cancel != nil {
		err = errors.New("local: recognizer is already started")
		return
	}

	// No microphone
	if r.o.Opener == nil || r.o.Parser == nil {
		err = handsfree.ErrUnsupported
		return
	}

	// Wait for the previous source to be released
	r.wg.Wait()

	// Open source
	var s Source
	if s, err = r.o.Opener.Open(); err != nil {
		err = errors.Wrapf(handsfree.ErrAcquisition, "local: opening source failed: %s", err)
		return
	}

	// Start source
	astilog.Debug("local: starting source")
	if err = s.Start(); err != nil {
		if errClose := s.Close(); errClose != nil {
			astilog.Error(errors.Wrap(errClose, "local: closing source failed"))
		}
		err = errors.Wrapf(handsfree.ErrAcquisition, "local: starting source failed: %s", err)
		return
	}

	// Read
	var rctx context.Context
	rctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.read(rctx, s, h)
	return
}

// Stop implements the voice.Recognizer interface. The source is released by the reading
// goroutine as soon as its current read returns.
func (r *Recognizer) Stop() error {
	// Lock
	r.m.Lock()
	defer r.m.Unlock()

	// Cancel
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	return nil
}

// Close stops the recognizer and waits for the source to be released
func (r *Recognizer) Close() error {
	r.Stop()
	r.wg.Wait()
	return nil
}

func (r *Recognizer) read(ctx context.Context, s Source, h voice.RecognitionHandlers) {
	// Release source
	defer r.wg.Done()
	defer r.release(s)

	// Create segmenter
	sg := r.o.SegmenterFunc(s)

	// Loop
	var idx int
	for {
		// Context has been cancelled
		if ctx.Err() != nil {
			return
		}

		// Read
		ss, err := s.Read()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			astilog.Error(errors.Wrap(err, "local: reading from source failed"))
			if h.OnError != nil {
				h.OnError(AudioCaptureErrorCode)
			}
			return
		}

		// Loop through utterances
		for _, us := range sg.Add(ss) {
			// Transcribe
			t, ok := r.transcribe(us, s)
			if !ok {
				continue
			}

			// Context has been cancelled
			if ctx.Err() != nil {
				return
			}

			// Deliver
			if h.OnResult != nil {
				h.OnResult(voice.Event{
					Index:   idx,
					Results: []voice.Result{{Alternatives: []string{t}, Final: true}},
				})
			}
			idx++
		}
	}
}

func (r *Recognizer) transcribe(ss []int, s Source) (t string, ok bool) {
	// Normalize
	ss = astipcm.Normalize(ss, s.BitDepth())

	// Parse
	var err error
	if t, err = r.o.Parser.Parse(ss, s.BitDepth(), s.NumChannels(), s.SampleRate()); err != nil {
		astilog.Error(errors.Wrap(err, "local: parsing utterance failed"))
		return
	}
	t = strings.TrimSpace(t)

	// Store
	if err = r.st.store(t, ss, s.BitDepth(), s.NumChannels(), s.SampleRate()); err != nil {
		astilog.Error(errors.Wrap(err, "local: storing utterance failed"))
	}
	ok = t != ""
	return
}

func (r *Recognizer) release(s Source) {
	astilog.Debug("local: releasing source")
	if err := s.Stop(); err != nil {
		astilog.Error(errors.Wrap(err, "local: stopping source failed"))
	}
	if err := s.Close(); err != nil {
		astilog.Error(errors.Wrap(err, "local: closing source failed"))
	}
}
