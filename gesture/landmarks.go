package gesture

import (
	"math"

	"github.com/pkg/errors"
)

// Joint is the index of a hand joint in a frame
type Joint int

// Joints
const (
	Wrist Joint = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip
)

// NumJoints is the number of landmarks in a frame
const NumJoints = 21

// Landmark is a normalized 3D point. X grows to the right of the image, Y grows downwards.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Frame is the ordered set of landmarks of one detected hand
type Frame [NumJoints]Landmark

// NewFrame validates and converts a list of landmarks
func NewFrame(ls []Landmark) (f *Frame, err error) {
	// Check length
	if len(ls) != NumJoints {
		err = errors.Errorf("gesture: frame has %d landmarks instead of %d", len(ls), NumJoints)
		return
	}

	// Check values
	f = &Frame{}
	for i, l := range ls {
		for _, v := range []float64{l.X, l.Y, l.Z} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				err = errors.Errorf("gesture: landmark %d is not finite", i)
				f = nil
				return
			}
		}
		f[i] = l
	}
	return
}

// At returns the landmark of a joint
func (f Frame) At(j Joint) Landmark { return f[j] }
