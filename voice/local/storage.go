package local

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const audioFormatPCM = 1

// StorageOptions represents utterance storage options
type StorageOptions struct {
	DirPath string `toml:"dir_path"`
	Enabled bool   `toml:"enabled"`
}

// Utterance is a stored utterance
type Utterance struct {
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
}

type storage struct {
	fs afero.Fs
	m  sync.Mutex // Locks index writes
	o  StorageOptions
}

func newStorage(fs afero.Fs, o StorageOptions) *storage {
	return &storage{
		fs: fs,
		o:  o,
	}
}

func (s *storage) store(text string, ss []int, bitDepth, numChannels, sampleRate int) (err error) {
	// Disabled
	if !s.o.Enabled || s.o.DirPath == "" {
		return
	}

	// Lock
	s.m.Lock()
	defer s.m.Unlock()

	// Make sure directory exists
	if err = s.fs.MkdirAll(s.o.DirPath, 0755); err != nil {
		err = errors.Wrapf(err, "local: mkdirall %s failed", s.o.DirPath)
		return
	}

	// Store wav
	var u *Utterance
	if u, err = s.storeWav(ss, bitDepth, numChannels, sampleRate); err != nil {
		err = errors.Wrap(err, "local: storing wav failed")
		return
	}
	u.Text = text

	// Append to index
	if err = s.appendIndex(*u); err != nil {
		err = errors.Wrap(err, "local: appending to index failed")
		return
	}
	return
}

func (s *storage) storeWav(ss []int, bitDepth, numChannels, sampleRate int) (u *Utterance, err error) {
	// Create wav file
	var f afero.File
	if f, err = afero.TempFile(s.fs, s.o.DirPath, "*.wav"); err != nil {
		err = errors.Wrap(err, "local: creating wav file failed")
		return
	}
	defer f.Close()

	// Create utterance
	u = &Utterance{
		CreatedAt: time.Now(),
		Name:      strings.TrimSuffix(filepath.Base(f.Name()), ".wav"),
	}

	// Create encoder
	e := wav.NewEncoder(f, sampleRate, bitDepth, numChannels, audioFormatPCM)

	// Write
	if err = e.Write(&audio.IntBuffer{
		Data: ss,
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  sampleRate,
		},
		SourceBitDepth: bitDepth,
	}); err != nil {
		err = errors.Wrap(err, "local: writing wav samples failed")
		return
	}

	// Close encoder
	if err = e.Close(); err != nil {
		err = errors.Wrap(err, "local: closing wav encoder failed")
		return
	}
	return
}

func (s *storage) appendIndex(u Utterance) (err error) {
	// Open index
	p := filepath.Join(s.o.DirPath, "index.jsonl")
	var f afero.File
	if f, err = s.fs.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666); err != nil {
		err = errors.Wrapf(err, "local: opening %s failed", p)
		return
	}
	defer f.Close()

	// Marshal
	if err = json.NewEncoder(f).Encode(u); err != nil {
		err = errors.Wrap(err, "local: marshaling failed")
		return
	}
	return
}
