package whisper

import (
	"io"
	"strings"
	"sync"

	"github.com/asticode/go-astilog"
	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/audio"
	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree/voice/local"
)

// Whisper constants
const (
	whisperBitDepth   = 16
	whisperSampleRate = 16000
)

// Whisper transcribes utterances with a whisper.cpp model
type Whisper struct {
	m  whisper.Model
	mm sync.Mutex // Locks m
	o  Options
}

// Options represents whisper options
type Options struct {
	Language  string `toml:"language"`
	ModelPath string `toml:"model_path"`
}

// New loads the model
func New(o Options) (w *Whisper, err error) {
	// Create whisper
	w = &Whisper{o: o}
	if w.o.Language == "" {
		w.o.Language = "en"
	}

	// Load model
	astilog.Debugf("whisper: loading model %s", w.o.ModelPath)
	if w.m, err = whisper.New(w.o.ModelPath); err != nil {
		err = errors.Wrapf(err, "whisper: loading model %s failed", w.o.ModelPath)
		return
	}
	return
}

// Close closes the model
func (w *Whisper) Close() {
	// Lock
	w.mm.Lock()
	defer w.mm.Unlock()

	// Close the model
	if w.m != nil {
		astilog.Debug("whisper: closing model")
		if err := w.m.Close(); err != nil {
			astilog.Error(errors.Wrap(err, "whisper: closing model failed"))
		}
		w.m = nil
	}
}

// Parse implements the local.Parser interface
func (w *Whisper) Parse(samples []int, bitDepth, numChannels, sampleRate int) (t string, err error) {
	// Lock
	w.mm.Lock()
	defer w.mm.Unlock()

	// No model
	if w.m == nil {
		err = errors.New("whisper: model is closed")
		return
	}

	// Create processing context
	var c whisper.Context
	if c, err = w.m.NewContext(); err != nil {
		err = errors.Wrap(err, "whisper: creating context failed")
		return
	}

	// Set language
	if err = c.SetLanguage(w.o.Language); err != nil {
		err = errors.Wrapf(err, "whisper: setting language %s failed", w.o.Language)
		return
	}

	// Convert
	var cs []int
	if cs, err = local.Convert(samples, local.Format{
		BitDepth:    bitDepth,
		NumChannels: numChannels,
		SampleRate:  sampleRate,
	}, whisperBitDepth, whisperSampleRate); err != nil {
		err = errors.Wrap(err, "whisper: converting samples failed")
		return
	}
	b := &audio.IntBuffer{
		Data: cs,
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  whisperSampleRate,
		},
		SourceBitDepth: whisperBitDepth,
	}

	// Process
	if err = c.Process(b.AsFloat32Buffer().Data, nil); err != nil {
		err = errors.Wrap(err, "whisper: processing failed")
		return
	}

	// Loop through segments
	var ts []string
	for {
		s, errSegment := c.NextSegment()
		if errSegment == io.EOF {
			break
		} else if errSegment != nil {
			err = errors.Wrap(errSegment, "whisper: getting next segment failed")
			return
		}

		// Annotations such as "[BLANK_AUDIO]" or "(music)" are skipped
		text := strings.TrimSpace(s.Text)
		if text == "" || strings.HasPrefix(text, "[") || strings.HasPrefix(text, "(") {
			continue
		}
		ts = append(ts, text)
	}
	t = strings.Join(ts, " ")
	return
}
