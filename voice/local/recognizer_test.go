package local

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree"
	"github.com/smiledesk/go-handsfree/voice"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockedSource struct {
	c       chan []int
	closed  bool
	m       sync.Mutex
	readErr error
	started bool
	stopped bool
}

func newMockedSource() *mockedSource {
	return &mockedSource{c: make(chan []int, 10)}
}

func (s *mockedSource) BitDepth() int                 { return 16 }
func (s *mockedSource) MaxSilenceAudioLevel() float64 { return 0 }
func (s *mockedSource) NumChannels() int              { return 1 }
func (s *mockedSource) SampleRate() int               { return 16000 }

func (s *mockedSource) Close() error {
	s.m.Lock()
	defer s.m.Unlock()
	s.closed = true
	return nil
}

func (s *mockedSource) Start() error {
	s.m.Lock()
	defer s.m.Unlock()
	s.started = true
	return nil
}

func (s *mockedSource) Stop() error {
	s.m.Lock()
	defer s.m.Unlock()
	s.stopped = true
	return nil
}

func (s *mockedSource) Read() ([]int, error) {
	s.m.Lock()
	err := s.readErr
	s.m.Unlock()
	if err != nil {
		return nil, err
	}
	select {
	case ss := <-s.c:
		return ss, nil
	case <-time.After(5 * time.Millisecond):
		return []int{}, nil
	}
}

func (s *mockedSource) released() bool {
	s.m.Lock()
	defer s.m.Unlock()
	return s.stopped && s.closed
}

// mockedSegmenter considers every non empty read as an utterance
type mockedSegmenter struct{}

func (mockedSegmenter) Add(ss []int) [][]int {
	if len(ss) == 0 {
		return nil
	}
	return [][]int{ss}
}

func (mockedSegmenter) Reset() {}

type mockedParser struct {
	err error
	m   sync.Mutex
	ts  []string
}

func (p *mockedParser) Parse(samples []int, bitDepth, numChannels, sampleRate int) (t string, err error) {
	p.m.Lock()
	defer p.m.Unlock()
	if p.err != nil {
		err = p.err
		return
	}
	if len(p.ts) > 0 {
		t = p.ts[0]
		p.ts = p.ts[1:]
	}
	return
}

type mockedHandlers struct {
	codes []string
	es    []voice.Event
	m     sync.Mutex
}

func (h *mockedHandlers) handlers() voice.RecognitionHandlers {
	return voice.RecognitionHandlers{
		OnError: func(code string) {
			h.m.Lock()
			defer h.m.Unlock()
			h.codes = append(h.codes, code)
		},
		OnResult: func(e voice.Event) {
			h.m.Lock()
			defer h.m.Unlock()
			h.es = append(h.es, e)
		},
	}
}

func (h *mockedHandlers) events() []voice.Event {
	h.m.Lock()
	defer h.m.Unlock()
	return append([]voice.Event{}, h.es...)
}

func (h *mockedHandlers) errorCodes() []string {
	h.m.Lock()
	defer h.m.Unlock()
	return append([]string{}, h.codes...)
}

func newMockedRecognizer(s *mockedSource, p Parser, fs afero.Fs) *Recognizer {
	return NewRecognizer(RecognizerOptions{
		Fs:            fs,
		Opener:        OpenerFunc(func() (Source, error) { return s, nil }),
		Parser:        p,
		SegmenterFunc: func(Source) Segmenter { return mockedSegmenter{} },
		Storage: StorageOptions{
			DirPath: "/utterances",
			Enabled: true,
		},
	})
}

func TestRecognizer(t *testing.T) {
	s := newMockedSource()
	fs := afero.NewMemMapFs()
	r := newMockedRecognizer(s, &mockedParser{ts: []string{" Go to calendar ", "", "click save"}}, fs)
	h := &mockedHandlers{}

	// Start
	require.NoError(t, r.Start(context.Background(), h.handlers()))
	assert.True(t, s.started)
	assert.Error(t, r.Start(context.Background(), h.handlers()))

	// Utterances
	s.c <- []int{1, 2, 3}
	s.c <- []int{4, 5, 6}
	s.c <- []int{7, 8, 9}
	assert.Eventually(t, func() bool { return len(h.events()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []voice.Event{
		{Index: 0, Results: []voice.Result{{Alternatives: []string{"Go to calendar"}, Final: true}}},
		{Index: 1, Results: []voice.Result{{Alternatives: []string{"click save"}, Final: true}}},
	}, h.events())

	// Close
	require.NoError(t, r.Close())
	assert.True(t, s.released())

	// Storage
	fis, err := afero.ReadDir(fs, "/utterances")
	require.NoError(t, err)
	var wavs int
	for _, fi := range fis {
		if strings.HasSuffix(fi.Name(), ".wav") {
			wavs++
			assert.NotZero(t, fi.Size())
		}
	}
	assert.Equal(t, 3, wavs)
	b, err := afero.ReadFile(fs, "/utterances/index.jsonl")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(b), "\n"))
	assert.Contains(t, string(b), `"text":"click save"`)

	// Restart after stop
	s2 := newMockedSource()
	r.o.Opener = OpenerFunc(func() (Source, error) { return s2, nil })
	require.NoError(t, r.Start(context.Background(), h.handlers()))
	require.NoError(t, r.Stop())
	assert.Eventually(t, s2.released, time.Second, 5*time.Millisecond)
}

func TestRecognizerParserFailure(t *testing.T) {
	s := newMockedSource()
	r := newMockedRecognizer(s, &mockedParser{err: errors.New("model failed")}, afero.NewMemMapFs())
	h := &mockedHandlers{}
	require.NoError(t, r.Start(context.Background(), h.handlers()))
	s.c <- []int{1, 2, 3}
	require.NoError(t, r.Close())
	assert.Empty(t, h.events())
	assert.Empty(t, h.errorCodes())
	assert.True(t, s.released())
}

func TestRecognizerReadFailure(t *testing.T) {
	s := newMockedSource()
	s.readErr = errors.New("device unplugged")
	r := newMockedRecognizer(s, &mockedParser{}, afero.NewMemMapFs())
	h := &mockedHandlers{}
	require.NoError(t, r.Start(context.Background(), h.handlers()))
	assert.Eventually(t, s.released, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{AudioCaptureErrorCode}, h.errorCodes())
}

func TestRecognizerStartFailures(t *testing.T) {
	// No microphone
	r := NewRecognizer(RecognizerOptions{Fs: afero.NewMemMapFs()})
	err := r.Start(context.Background(), voice.RecognitionHandlers{})
	assert.True(t, handsfree.IsUnsupported(err))

	// Open failure
	r = NewRecognizer(RecognizerOptions{
		Fs:     afero.NewMemMapFs(),
		Opener: OpenerFunc(func() (Source, error) { return nil, errors.New("busy") }),
		Parser: &mockedParser{},
	})
	err = r.Start(context.Background(), voice.RecognitionHandlers{})
	assert.Equal(t, handsfree.ErrAcquisition, errors.Cause(err))

	// Failure is not sticky
	s := newMockedSource()
	r.o.Opener = OpenerFunc(func() (Source, error) { return s, nil })
	require.NoError(t, r.Start(context.Background(), voice.RecognitionHandlers{}))
	require.NoError(t, r.Close())
}

func TestRecognizerWithAdapter(t *testing.T) {
	s := newMockedSource()
	r := newMockedRecognizer(s, &mockedParser{ts: []string{"Navigate to Calendar"}}, afero.NewMemMapFs())
	st := handsfree.NewState()
	var (
		m  sync.Mutex
		us []voice.Update
	)
	a := voice.NewAdapter(r, st, func(u voice.Update) {
		m.Lock()
		defer m.Unlock()
		us = append(us, u)
	})
	require.NoError(t, a.Start(context.Background()))
	assert.True(t, st.Snapshot().IsListening)
	s.c <- []int{1}
	assert.Eventually(t, func() bool {
		m.Lock()
		defer m.Unlock()
		return len(us) == 1
	}, time.Second, 5*time.Millisecond)
	m.Lock()
	assert.Equal(t, voice.Update{Final: true, Results: 1, Text: "navigate to calendar"}, us[0])
	m.Unlock()
	require.NoError(t, a.Stop())
	assert.False(t, st.Snapshot().IsListening)
	assert.Eventually(t, s.released, time.Second, 5*time.Millisecond)
}

// slowSource blocks every read and reports how many sources are open at once
type slowSource struct {
	*mockedSource
	o *countingOpener
}

func (s *slowSource) Read() ([]int, error) {
	time.Sleep(50 * time.Millisecond)
	return []int{}, nil
}

func (s *slowSource) Close() error {
	s.o.m.Lock()
	s.o.open--
	s.o.m.Unlock()
	return s.mockedSource.Close()
}

type countingOpener struct {
	m       sync.Mutex
	maxOpen int
	open    int
}

func (o *countingOpener) Open() (Source, error) {
	o.m.Lock()
	defer o.m.Unlock()
	o.open++
	if o.open > o.maxOpen {
		o.maxOpen = o.open
	}
	return &slowSource{mockedSource: newMockedSource(), o: o}, nil
}

func TestRecognizerRestartWaitsForRelease(t *testing.T) {
	o := &countingOpener{}
	r := NewRecognizer(RecognizerOptions{
		Fs:            afero.NewMemMapFs(),
		Opener:        o,
		Parser:        &mockedParser{},
		SegmenterFunc: func(Source) Segmenter { return mockedSegmenter{} },
	})

	// Restart while the previous source is still being read
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Start(context.Background(), voice.RecognitionHandlers{}))
		time.Sleep(5 * time.Millisecond)
		require.NoError(t, r.Stop())
	}
	require.NoError(t, r.Close())

	o.m.Lock()
	defer o.m.Unlock()
	assert.Equal(t, 1, o.maxOpen)
	assert.Equal(t, 0, o.open)
}
