// Package audio holds the AudioSegment value type and the row mixer. A
// segment is interleaved stereo float32 at 44100 Hz, the same buffer shape
// the rest of the codebase renders into; all duration bookkeeping is done in
// whole frames so that the mixer's output length matches the timeline's
// cursor arithmetic exactly.
package audio

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// SampleRate is the fixed internal rate. Sources at other rates are resampled
// on load.
const SampleRate = 44100

const numChannels = 2

// Segment is an immutable-by-convention audio buffer: operations return new
// segments (possibly sharing underlying storage for pure truncations) and
// never modify their receiver in place, except Append which is documented to
// grow the receiver.
type Segment struct {
	data []float32 // interleaved L R, len = Frames()*2
}

// SilenceFrames returns a silent segment of exactly frames stereo frames.
func SilenceFrames(frames int) Segment {
	if frames < 0 {
		frames = 0
	}
	return Segment{data: make([]float32, frames*numChannels)}
}

// Silence returns a silent segment of the given duration in seconds.
func Silence(seconds float64) Segment {
	return SilenceFrames(int(math.Round(seconds * SampleRate)))
}

// FromFloats wraps an interleaved stereo buffer as a segment. An odd trailing
// sample is dropped.
func FromFloats(data []float32) Segment {
	return Segment{data: data[:len(data)/numChannels*numChannels]}
}

// Frames returns the segment length in stereo frames.
func (s Segment) Frames() int { return len(s.data) / numChannels }

// Seconds returns the segment duration.
func (s Segment) Seconds() float64 { return float64(s.Frames()) / SampleRate }

// Empty reports a zero-length segment.
func (s Segment) Empty() bool { return len(s.data) == 0 }

// Floats returns the raw interleaved buffer. Callers must not modify it.
func (s Segment) Floats() []float32 { return s.data }

// Head returns the first frames frames of the segment.
func (s Segment) Head(frames int) Segment {
	if frames < 0 {
		frames = 0
	}
	if frames > s.Frames() {
		frames = s.Frames()
	}
	return Segment{data: s.data[:frames*numChannels]}
}

// FitFrames normalizes the segment to exactly frames frames: longer input is
// truncated, shorter input is tiled (hard cuts, no crossfade) with the final
// repeat clipped to land exactly on the target, and empty input becomes
// silence.
func (s Segment) FitFrames(frames int) Segment {
	if frames < 0 {
		frames = 0
	}
	switch {
	case s.Frames() == frames:
		return s
	case s.Frames() > frames:
		return s.Head(frames)
	case s.Empty():
		return SilenceFrames(frames)
	}
	out := make([]float32, frames*numChannels)
	for off := 0; off < len(out); off += len(s.data) {
		copy(out[off:], s.data)
	}
	return Segment{data: out}
}

// Fit normalizes the segment to the duration in seconds; see FitFrames.
func (s Segment) Fit(seconds float64) Segment {
	return s.FitFrames(int(math.Round(seconds * SampleRate)))
}

// Overlay mixes the other segment additively on top of this one, tracker
// style: plain sample addition, no clipping normalization (gain staging is a
// plugin's job). The result has the length of the longer operand.
func (s Segment) Overlay(o Segment) Segment {
	long, short := s.data, o.data
	if len(short) > len(long) {
		long, short = short, long
	}
	out := make([]float32, len(long))
	copy(out, long)
	if len(short) > 0 {
		vek32.Add_Inplace(out[:len(short)], short)
	}
	return Segment{data: out}
}

// Append concatenates the other segment after this one with a hard cut.
func (s *Segment) Append(o Segment) {
	s.data = append(s.data, o.data...)
}

// Gain returns a copy scaled by the given linear factor.
func (s Segment) Gain(factor float32) Segment {
	out := make([]float32, len(s.data))
	copy(out, s.data)
	if len(out) > 0 {
		vek32.MulNumber_Inplace(out, factor)
	}
	return Segment{data: out}
}
