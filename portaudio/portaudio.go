package portaudio

import (
	"fmt"

	"github.com/asticode/go-astilog"
	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

// PortAudio wraps the portaudio library lifecycle
type PortAudio struct{}

// New creates a new portaudio wrapper
func New() *PortAudio {
	return &PortAudio{}
}

// Initialize initializes portaudio. It must be called before opening any stream.
func (p *PortAudio) Initialize() (err error) {
	// Log
	astilog.Debug("portaudio: initializing portaudio")

	// Initialize
	if err = portaudio.Initialize(); err != nil {
		err = errors.Wrap(err, "portaudio: initializing portaudio failed")
		return
	}
	return
}

// Close implements the io.Closer interface
func (p *PortAudio) Close() (err error) {
	// Log
	astilog.Debug("portaudio: terminating portaudio")

	// Terminate
	if err = portaudio.Terminate(); err != nil {
		err = errors.Wrap(err, "portaudio: terminating portaudio failed")
		return
	}
	return
}

// Info describes the host apis and the devices portaudio can see
func (p *PortAudio) Info() (s string) {
	// Get host APIs
	as, err := portaudio.HostApis()
	if err != nil {
		return "getting portaudio host apis failed"
	}

	// Loop through APIs
	s = "\n+ Portaudio\n"
	for idxAPI, a := range as {
		s += fmt.Sprintf("|\n+--+ Host API #%d: %s - %s\n", idxAPI, a.Name, a.Type)
		if a.DefaultInputDevice != nil {
			s += fmt.Sprintf("|  |\n|  +--+ Default input device: %s\n", a.DefaultInputDevice.Name)
		}
		if len(a.Devices) > 0 {
			s += "|  |\n|  +--+ Devices:\n"
			for idxDevice, d := range a.Devices {
				if d.MaxInputChannels == 0 {
					continue
				}
				s += fmt.Sprintf("|     |\n|     +--+ Device #%d: %s (sample rate: %.0fHz - max input channels: %v)\n", idxDevice, d.Name, d.DefaultSampleRate, d.MaxInputChannels)
			}
		}
	}
	return
}
