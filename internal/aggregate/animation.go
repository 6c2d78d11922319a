package aggregate

import "time"

const (
	// DefaultStep is how far the progress cursor moves per frame, in points.
	DefaultStep = 0.015
	// BumpInterval is how often the live bump cursor moves one point.
	BumpInterval = 800 * time.Millisecond
	// FrameInterval is the time between two animation frames.
	FrameInterval = time.Second / 60
)

// Animation is the state of the progress cursor sweeping a series of Length
// points. It is a value: Advance returns the next state.
type Animation struct {
	Progress float64
	Step     float64
	Length   int
}

func NewAnimation(length int) Animation {
	return Animation{Step: DefaultStep, Length: length}
}

// Advance moves the cursor by frames steps. Past the last point it starts
// over from 0.
func (a Animation) Advance(frames float64) Animation {
	if a.Length <= 0 {
		a.Progress = 0
		return a
	}
	last := float64(a.Length - 1)
	next := a.Progress + a.Step*frames
	if next > last {
		next = 0
	}
	a.Progress = next
	return a
}

// Resize adapts the animation to a series of a different length.
func (a Animation) Resize(length int) Animation {
	a.Length = length
	if length <= 0 || a.Progress > float64(length-1) {
		a.Progress = 0
	}
	return a
}

// Frame replays n frames over a series of length points and returns the live
// bump tick reached after n*FrameInterval together with the cursor state.
func Frame(length, n int) (int, Animation) {
	a := NewAnimation(length)
	for range max(n, 0) {
		a = a.Advance(1)
	}
	tick := int(time.Duration(max(n, 0)) * FrameInterval / BumpInterval)
	return tick, a
}
