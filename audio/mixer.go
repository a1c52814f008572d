package audio

import (
	"log"

	"github.com/modpmv/modpmv"
)

// Processor is the audio plugin contract: it transforms a rendered segment
// and returns the result. Implementations live in the plugin package.
type Processor interface {
	Name() string
	Process(Segment) (Segment, error)
}

// Mixer renders a row timeline into one continuous segment. Loaded samples
// are cached by path, so a sample triggered on every row is decoded once per
// job.
type Mixer struct {
	Log   *log.Logger
	cache map[string]loaded
}

type loaded struct {
	seg Segment
	err error
}

// Mix walks the timeline in order. For every slice each resolved channel is
// loaded and normalized to exactly the slice's frame count (truncate, tile,
// or silence), all channels are overlay-mixed, the mix is re-clamped to the
// slice length, and the result is appended with a hard cut. Rests, resolution
// misses and load failures all degrade to silence for that channel; the mixer
// never aborts because of one bad sample. The output frame count equals the
// timeline's total duration rounded to frames, matching the slice cursor
// arithmetic exactly.
func (mx *Mixer) Mix(timeline modpmv.Timeline) Segment {
	out := SilenceFrames(0)
	for _, slice := range timeline {
		start, end := slice.FrameRange(SampleRate)
		frames := end - start
		mixed := SilenceFrames(frames)
		for ch, r := range slice.Channels {
			if r.Rest() {
				continue
			}
			if !r.Resolved() {
				// expected: placeholder samples and typos degrade to silence
				continue
			}
			seg, err := mx.load(r.Path)
			if err != nil {
				mx.logf("channel %d: %v; substituting silence", ch, err)
				continue
			}
			mixed = mixed.Overlay(seg.FitFrames(frames))
		}
		// rounding guard: force the slice mix back to its exact length
		mixed = mixed.FitFrames(frames)
		out.Append(mixed)
	}
	return out
}

func (mx *Mixer) load(path string) (Segment, error) {
	if mx.cache == nil {
		mx.cache = map[string]loaded{}
	}
	if l, ok := mx.cache[path]; ok {
		return l.seg, l.err
	}
	seg, err := Load(path)
	mx.cache[path] = loaded{seg: seg, err: err}
	return seg, err
}

func (mx *Mixer) logf(format string, args ...any) {
	if mx.Log != nil {
		mx.Log.Printf(format, args...)
	}
}

// ApplyProcessors runs the plugin chain in order. A failing processor is
// logged and skipped; the chain continues with the previous value. One bad
// plugin never aborts the job.
func ApplyProcessors(s Segment, chain []Processor, logger *log.Logger) Segment {
	for _, p := range chain {
		next, err := p.Process(s)
		if err != nil {
			if logger != nil {
				logger.Printf("audio plugin %s failed: %v; skipping", p.Name(), err)
			}
			continue
		}
		s = next
	}
	return s
}
