package local

import (
	astipcm "github.com/asticode/go-astitools/pcm"
	"github.com/pkg/errors"
)

// Format describes interleaved PCM samples
type Format struct {
	BitDepth    int
	NumChannels int
	SampleRate  int
}

// Convert converts interleaved samples to mono samples with the requested bit depth and
// sample rate
func Convert(ss []int, from Format, toBitDepth, toSampleRate int) (o []int, err error) {
	// Create sample rate converter
	o = make([]int, 0, len(ss))
	sc := astipcm.NewSampleRateConverter(from.SampleRate, toSampleRate, 1, func(s int) (err error) {
		// Convert bit depth
		if s, err = astipcm.ConvertBitDepth(s, from.BitDepth, toBitDepth); err != nil {
			err = errors.Wrap(err, "local: converting bit depth failed")
			return
		}

		// Append sample
		o = append(o, s)
		return
	})

	// Create channels converter
	cc := astipcm.NewChannelsConverter(from.NumChannels, 1, func(s int) (err error) {
		if err = sc.Add(s); err != nil {
			err = errors.Wrap(err, "local: adding sample to sample rate converter failed")
			return
		}
		return
	})

	// Loop through samples
	for _, s := range ss {
		if err = cc.Add(s); err != nil {
			err = errors.Wrap(err, "local: adding sample to channels converter failed")
			return
		}
	}
	return
}
