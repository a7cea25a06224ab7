package gesture

import "math"

// Gesture is a discrete label attached to a frame
type Gesture string

// Gestures
const (
	Clear  Gesture = "clear"
	Down   Gesture = "down"
	Left   Gesture = "left"
	None   Gesture = "none"
	Right  Gesture = "right"
	Submit Gesture = "submit"
	Up     Gesture = "up"
)

// Thresholds, in normalized image units
const (
	upThreshold           = 0.10
	downThreshold         = 0.20
	horizontalThreshold   = 0.10
	raisedFingerThreshold = 0.07
	foldedFingerThreshold = 0.02
	outerSpreadThreshold  = 0.30
	innerSpreadThreshold  = 0.10
)

// Classify maps a frame to a gesture. Rules are evaluated in order and the first one
// that holds wins, so a frame satisfying several rules gets the earliest label.
func Classify(f Frame) Gesture {
	var (
		wrist  = f.At(Wrist)
		thumb  = f.At(ThumbTip)
		index  = f.At(IndexTip)
		middle = f.At(MiddleTip)
		ring   = f.At(RingTip)
		pinky  = f.At(PinkyTip)
	)

	// Pointing
	switch {
	case index.Y < wrist.Y-upThreshold:
		return Up
	case index.Y > wrist.Y+downThreshold:
		return Down
	case index.X < wrist.X-horizontalThreshold:
		return Left
	case index.X > wrist.X+horizontalThreshold:
		return Right
	}

	// Submit
	if wrist.Y-index.Y > raisedFingerThreshold ||
		wrist.Y-middle.Y > raisedFingerThreshold ||
		thumb.Y-wrist.Y > foldedFingerThreshold ||
		ring.Y-wrist.Y > foldedFingerThreshold ||
		pinky.Y-wrist.Y > foldedFingerThreshold {
		return Submit
	}

	// Open hand
	if math.Abs(index.X-pinky.X) > outerSpreadThreshold && math.Abs(middle.X-ring.X) > innerSpreadThreshold {
		return Clear
	}
	return None
}

// EdgeTrigger turns a stream of per-frame labels into discrete actions: a label is
// emitted once and suppressed until a different label, including None, has been observed.
type EdgeTrigger struct {
	last Gesture
}

// NewEdgeTrigger creates a new edge trigger
func NewEdgeTrigger() *EdgeTrigger {
	return &EdgeTrigger{last: None}
}

// Next observes a label and returns it if it must be acted upon
func (t *EdgeTrigger) Next(g Gesture) (Gesture, bool) {
	prev := t.last
	t.last = g
	if g == None || g == prev {
		return None, false
	}
	return g, true
}

// Reset forgets the last observed label
func (t *EdgeTrigger) Reset() {
	t.last = None
}
