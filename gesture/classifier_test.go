package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newMockedFrame(ls map[Joint]Landmark) (f Frame) {
	for idx := range f {
		f[idx] = Landmark{X: 0.5, Y: 0.5}
	}
	for j, l := range ls {
		f[j] = l
	}
	return
}

func TestNewFrame(t *testing.T) {
	_, err := NewFrame(make([]Landmark, 20))
	assert.Error(t, err)
	ls := make([]Landmark, NumJoints)
	ls[IndexTip] = Landmark{X: 0.1, Y: 0.2, Z: -0.05}
	f, err := NewFrame(ls)
	assert.NoError(t, err)
	assert.Equal(t, Landmark{X: 0.1, Y: 0.2, Z: -0.05}, f.At(IndexTip))
}

func TestClassify(t *testing.T) {
	for _, c := range []struct {
		e  Gesture
		ls map[Joint]Landmark
	}{
		{e: None},
		{e: Up, ls: map[Joint]Landmark{IndexTip: {X: 0.5, Y: 0.35}}},
		{e: Down, ls: map[Joint]Landmark{IndexTip: {X: 0.5, Y: 0.75}}},
		{e: Left, ls: map[Joint]Landmark{IndexTip: {X: 0.35, Y: 0.5}}},
		{e: Right, ls: map[Joint]Landmark{IndexTip: {X: 0.65, Y: 0.5}}},
		// Up wins over left
		{e: Up, ls: map[Joint]Landmark{IndexTip: {X: 0.35, Y: 0.35}}},
		// Down wins over right
		{e: Down, ls: map[Joint]Landmark{IndexTip: {X: 0.65, Y: 0.75}}},
		{e: Submit, ls: map[Joint]Landmark{IndexTip: {X: 0.5, Y: 0.42}}},
		{e: Submit, ls: map[Joint]Landmark{MiddleTip: {X: 0.5, Y: 0.42}}},
		{e: Submit, ls: map[Joint]Landmark{ThumbTip: {X: 0.5, Y: 0.53}}},
		{e: Submit, ls: map[Joint]Landmark{RingTip: {X: 0.5, Y: 0.53}}},
		{e: Submit, ls: map[Joint]Landmark{PinkyTip: {X: 0.5, Y: 0.53}}},
		{e: Clear, ls: map[Joint]Landmark{
			IndexTip:  {X: 0.58, Y: 0.5},
			MiddleTip: {X: 0.56, Y: 0.5},
			RingTip:   {X: 0.44, Y: 0.5},
			PinkyTip:  {X: 0.25, Y: 0.5},
		}},
		// Submit wins over clear
		{e: Submit, ls: map[Joint]Landmark{
			IndexTip:  {X: 0.58, Y: 0.5},
			MiddleTip: {X: 0.56, Y: 0.5},
			RingTip:   {X: 0.44, Y: 0.5},
			PinkyTip:  {X: 0.25, Y: 0.55},
		}},
		// Not spread enough
		{e: None, ls: map[Joint]Landmark{
			IndexTip:  {X: 0.58, Y: 0.5},
			MiddleTip: {X: 0.52, Y: 0.5},
			RingTip:   {X: 0.48, Y: 0.5},
			PinkyTip:  {X: 0.25, Y: 0.5},
		}},
	} {
		f := newMockedFrame(c.ls)
		assert.Equal(t, c.e, Classify(f), "%+v", c.ls)
		assert.Equal(t, Classify(f), Classify(f))
	}
}

func TestEdgeTrigger(t *testing.T) {
	tr := NewEdgeTrigger()
	var o []Gesture
	for _, g := range []Gesture{Right, Right, Right, None, Right, Left, Left, None, None, Submit, Submit, Clear} {
		if g, ok := tr.Next(g); ok {
			o = append(o, g)
		}
	}
	assert.Equal(t, []Gesture{Right, Right, Left, Submit, Clear}, o)

	tr.Reset()
	_, ok := tr.Next(Clear)
	assert.True(t, ok)
}
