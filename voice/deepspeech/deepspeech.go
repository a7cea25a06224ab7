package deepspeech

import (
	"os"
	"sync"

	"github.com/asticode/go-astideepspeech"
	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree/voice/local"
)

// Deepspeech constants
const (
	deepSpeechBitDepth   = 16
	deepSpeechSampleRate = 16000
)

// DeepSpeech transcribes utterances with a DeepSpeech model
type DeepSpeech struct {
	m  *astideepspeech.Model
	mm sync.Mutex // Locks m
	o  Options
}

// Options represents deepspeech options
type Options struct {
	BeamWidth            int     `toml:"beam_width"`
	LMPath               string  `toml:"lm_path"`
	LMWeight             float64 `toml:"lm_weight"`
	ModelPath            string  `toml:"model_path"`
	TriePath             string  `toml:"trie_path"`
	ValidWordCountWeight float64 `toml:"valid_word_count_weight"`
}

// New loads the model
func New(o Options) (d *DeepSpeech, err error) {
	// Create deepspeech
	d = &DeepSpeech{o: o}
	if d.o.BeamWidth == 0 {
		d.o.BeamWidth = 500
	}

	// Stat model
	if _, err = os.Stat(d.o.ModelPath); err != nil {
		err = errors.Wrapf(err, "deepspeech: stating %s failed", d.o.ModelPath)
		return
	}

	// Create model
	astilog.Debugf("deepspeech: loading model %s", d.o.ModelPath)
	d.m = astideepspeech.New(d.o.ModelPath, d.o.BeamWidth)

	// Enable LM
	if d.o.LMPath != "" {
		d.m.EnableDecoderWithLM(d.o.LMPath, d.o.TriePath, d.o.LMWeight, d.o.ValidWordCountWeight)
	}
	return
}

// Close closes the model
func (d *DeepSpeech) Close() {
	// Lock
	d.mm.Lock()
	defer d.mm.Unlock()

	// Close the model
	if d.m != nil {
		astilog.Debug("deepspeech: closing model")
		d.m.Close()
		d.m = nil
	}
}

// Parse implements the local.Parser interface
func (d *DeepSpeech) Parse(samples []int, bitDepth, numChannels, sampleRate int) (t string, err error) {
	// Lock
	d.mm.Lock()
	defer d.mm.Unlock()

	// No model
	if d.m == nil {
		err = errors.New("deepspeech: model is closed")
		return
	}

	// Convert
	var cs []int
	if cs, err = local.Convert(samples, local.Format{
		BitDepth:    bitDepth,
		NumChannels: numChannels,
		SampleRate:  sampleRate,
	}, deepSpeechBitDepth, deepSpeechSampleRate); err != nil {
		err = errors.Wrap(err, "deepspeech: converting samples failed")
		return
	}
	ss := make([]int16, len(cs))
	for idx, s := range cs {
		ss[idx] = int16(s)
	}

	// Parse
	t = d.m.SpeechToText(ss, uint(len(ss)))
	return
}
