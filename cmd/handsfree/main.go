package main

import (
	"flag"
	"io"

	"github.com/asticode/go-astilog"
	"github.com/asticode/go-astitools/config"
	"github.com/asticode/go-astitools/worker"
	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree"
	"github.com/smiledesk/go-handsfree/bridge"
	"github.com/smiledesk/go-handsfree/gesture"
	"github.com/smiledesk/go-handsfree/portaudio"
	"github.com/smiledesk/go-handsfree/surface"
	"github.com/smiledesk/go-handsfree/surface/browser"
	"github.com/smiledesk/go-handsfree/voice"
	"github.com/smiledesk/go-handsfree/voice/deepspeech"
	"github.com/smiledesk/go-handsfree/voice/local"
	"github.com/smiledesk/go-handsfree/voice/whisper"
	"github.com/spf13/afero"
)

// Backends
const (
	browserBackend = "browser"
	hostBackend    = "host"
	localBackend   = "local"
)

// Engines
const (
	deepSpeechEngine = "deepspeech"
	whisperEngine    = "whisper"
)

// Flags
var (
	addr       = flag.String("addr", "", "the server addr")
	config     = flag.String("c", "", "the config path")
	info       = flag.Bool("i", false, "prints portaudio devices and exits")
	role       = flag.String("r", "", "the session role (ADMIN, DOCTOR or USER)")
	routesPath = flag.String("routes", "", "the route table path")
)

func main() {
	// Parse flags
	flag.Parse()
	astilog.FlagInit()

	// Create configuration
	c := newConfiguration()

	// Print portaudio info
	if *info {
		printPortAudioInfo()
		return
	}

	// Create worker
	w := astiworker.NewWorker()
	w.HandleSignals()

	// Create role
	r, err := voice.ParseRole(c.Voice.Role)
	if err != nil {
		astilog.Fatal(errors.Wrap(err, "main: parsing role failed"))
	}
	sr := voice.NewSessionRole(r)

	// Load route table
	rt := voice.DefaultRouteTable()
	if c.Voice.RoutesPath != "" {
		if rt, err = voice.LoadRouteTable(afero.NewOsFs(), c.Voice.RoutesPath); err != nil {
			astilog.Fatal(errors.Wrap(err, "main: loading route table failed"))
		}
	}

	// Create state
	st := handsfree.NewState()

	// Start loop
	l := handsfree.NewLoop()
	t := w.NewTask()
	go func() {
		defer t.Done()
		l.Start(w.Context())
	}()

	// Create bridge
	b := bridge.New(st, sr, c.Bridge)
	defer b.Close()
	b.SetContext(w.Context())
	st.OnChange(b.HandleStateChange)

	// Create surface
	var n surface.Notifier = b.Surface()
	var p surface.Provider = b.Surface()
	var ro surface.Router = b.Surface()
	onNavigate := b.OnSnapshot
	if c.Surface.Backend == browserBackend {
		br := browser.New(c.Surface.Browser)
		if err = br.Start(w.Context()); err != nil {
			astilog.Fatal(errors.Wrap(err, "main: starting browser failed"))
		}
		defer br.Close()
		n, onNavigate, p, ro = br, br.OnNavigate, br, br
	}

	// Create gesture pipeline
	gp := gesture.NewPipeline(b.Camera(), b.Detector(), gesture.NewNavigator(p, c.Gesture), st, l)
	onNavigate(gp.Rebuild)
	b.AddToggle(bridge.GestureToggle, gp)

	// Create recognizer
	rc := b.Recognizer()
	if c.Voice.Backend == localBackend {
		lr, closers, err := newLocalRecognizer(c.Voice.Local)
		if err != nil {
			astilog.Fatal(errors.Wrap(err, "main: creating local recognizer failed"))
		}
		for _, cl := range closers {
			defer cl.Close()
		}
		defer lr.Close()
		rc = lr
	}

	// Create voice pipeline
	vp := voice.NewPipeline(voice.PipelineOptions{
		Executor:   surface.NewExecutor(p, ro, n),
		Notifier:   n,
		Recognizer: rc,
		RoleSource: sr,
		Routes:     rt,
		Scheduler:  l,
		State:      st,
	})
	b.AddToggle(bridge.VoiceToggle, vp)

	// Auto start
	for name, tg := range map[string]bridge.Toggle{
		bridge.GestureToggle: gp,
		bridge.VoiceToggle:   vp,
	} {
		if !c.AutoStart[name] {
			continue
		}
		go func(name string, tg bridge.Toggle) {
			if err := tg.Enable(w.Context()); err != nil {
				astilog.Error(errors.Wrapf(err, "main: enabling %s failed", name))
			}
		}(name, tg)
	}

	// Serve
	ts := w.NewTask()
	go func() {
		defer ts.Done()
		if err := b.Serve(w.Context()); err != nil {
			astilog.Error(errors.Wrap(err, "main: serving failed"))
			w.Stop()
		}
	}()

	// Release input sources once the worker is stopped
	td := w.NewTask()
	go func() {
		defer td.Done()
		<-w.Context().Done()
		disable(gp, vp)
	}()

	// Wait
	w.Wait()
}

func disable(ts ...bridge.Toggle) {
	for _, t := range ts {
		if err := t.Disable(); err != nil {
			astilog.Error(errors.Wrap(err, "main: disabling pipeline failed"))
		}
	}
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

func newLocalRecognizer(c LocalConfiguration) (r *local.Recognizer, cs []io.Closer, err error) {
	// Create parser
	var lp local.Parser
	switch c.Engine {
	case deepSpeechEngine:
		var d *deepspeech.DeepSpeech
		if d, err = deepspeech.New(c.DeepSpeech); err != nil {
			err = errors.Wrap(err, "main: creating deepspeech failed")
			return
		}
		cs = append(cs, closerFunc(d.Close))
		lp = d
	case whisperEngine:
		var wh *whisper.Whisper
		if wh, err = whisper.New(c.Whisper); err != nil {
			err = errors.Wrap(err, "main: creating whisper failed")
			return
		}
		cs = append(cs, closerFunc(wh.Close))
		lp = wh
	default:
		err = errors.Errorf("main: unknown engine %s", c.Engine)
		return
	}

	// Initialize portaudio
	pa := portaudio.New()
	if err = pa.Initialize(); err != nil {
		err = errors.Wrap(err, "main: initializing portaudio failed")
		return
	}
	cs = append(cs, pa)

	// Create recognizer
	r = local.NewRecognizer(local.RecognizerOptions{
		Fs: afero.NewOsFs(),
		Opener: local.OpenerFunc(func() (local.Source, error) {
			return pa.NewDefaultStream(c.Stream)
		}),
		Parser:  lp,
		Storage: c.Storage,
	})
	return
}

func printPortAudioInfo() {
	pa := portaudio.New()
	if err := pa.Initialize(); err != nil {
		astilog.Fatal(errors.Wrap(err, "main: initializing portaudio failed"))
	}
	defer pa.Close()
	astilog.Info(pa.Info())
}

// Configuration represents a configuration
type Configuration struct {
	// Pipelines enabled at startup, indexed by toggle name
	AutoStart map[string]bool          `toml:"auto_start"`
	Bridge    bridge.Options           `toml:"bridge"`
	Gesture   gesture.NavigatorOptions `toml:"gesture"`
	Surface   SurfaceConfiguration     `toml:"surface"`
	Voice     VoiceConfiguration       `toml:"voice"`
}

// SurfaceConfiguration represents the surface configuration
type SurfaceConfiguration struct {
	Backend string          `toml:"backend"`
	Browser browser.Options `toml:"browser"`
}

// VoiceConfiguration represents the voice configuration
type VoiceConfiguration struct {
	Backend    string             `toml:"backend"`
	Local      LocalConfiguration `toml:"local"`
	Role       string             `toml:"role"`
	RoutesPath string             `toml:"routes_path"`
}

// LocalConfiguration represents the local recognizer configuration
type LocalConfiguration struct {
	DeepSpeech deepspeech.Options      `toml:"deepspeech"`
	Engine     string                  `toml:"engine"`
	Storage    local.StorageOptions    `toml:"storage"`
	Stream     portaudio.StreamOptions `toml:"stream"`
	Whisper    whisper.Options         `toml:"whisper"`
}

// newConfiguration creates a new configuration
func newConfiguration() *Configuration {
	// Global config
	gc := &Configuration{
		Bridge: bridge.Options{
			Server: bridge.ServerOptions{
				Addr:       "127.0.0.1:4444",
				PublicAddr: "127.0.0.1:4444",
				Timeout:    5,
			},
		},
		Gesture: gesture.NavigatorOptions{
			DefaultKeyword:  gesture.DefaultSelectionKeyword,
			ExcludedRegions: []surface.Region{"chat"},
		},
		Surface: SurfaceConfiguration{
			Backend: hostBackend,
			Browser: browser.Options{URL: "http://127.0.0.1:3000"},
		},
		Voice: VoiceConfiguration{
			Backend: hostBackend,
			Local:   LocalConfiguration{Engine: whisperEngine},
			Role:    string(voice.UserRole),
		},
	}

	// Flag config
	fc := &Configuration{
		Bridge: bridge.Options{Server: bridge.ServerOptions{Addr: *addr}},
		Voice: VoiceConfiguration{
			Role:       *role,
			RoutesPath: *routesPath,
		},
	}

	// Build configuration
	c, err := asticonfig.New(gc, *config, fc)
	if err != nil {
		astilog.Fatal(errors.Wrap(err, "main: building configuration failed"))
	}
	return c.(*Configuration)
}
