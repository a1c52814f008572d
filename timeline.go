package modpmv

import "math"

type (
	// AssetKind selects which asset family a sample name resolves against.
	AssetKind int

	// Resolver maps a sample name to a concrete asset file of the wanted
	// kind. The explicit path from the module's sample table is passed along
	// so that implementations can honor it before any folder search. A miss
	// (ok == false) is not an error; the caller substitutes filler content.
	Resolver interface {
		Resolve(name, explicit string, kind AssetKind) (path string, ok bool)
	}

	// Resolution is the outcome of resolving one channel of one row. The zero
	// value means rest. Sample without Path means the sample could not be
	// resolved and the channel degrades to filler.
	Resolution struct {
		Sample string
		Path   string
	}

	// RowSlice is the core synchronization unit: one row's worth of wall
	// clock time, with the per-channel resolutions of that row. The audio
	// mixer and the video compositor both consume RowSlices produced by the
	// same arithmetic, which is what keeps the two tracks frame-accurate to
	// each other.
	RowSlice struct {
		Start        float64
		Duration     float64
		PatternIndex int
		RowIndex     int
		Channels     []Resolution
	}

	// Timeline is an ordered, contiguous sequence of row slices.
	Timeline []RowSlice
)

const (
	AssetAudio AssetKind = iota
	AssetVideo
	AssetImage
)

// Rest reports whether the channel held no event on this row.
func (r Resolution) Rest() bool { return r.Sample == "" }

// Resolved reports whether the channel's sample was mapped to an asset file.
func (r Resolution) Resolved() bool { return r.Path != "" }

// End returns the absolute end time of the slice.
func (s RowSlice) End() float64 { return s.Start + s.Duration }

// FrameRange converts the slice boundaries to discrete frame (or sample)
// indices at the given rate. Both renderers must size their slices as
// end - start of this range: rounding the absolute boundaries, instead of the
// duration, guarantees that the per-slice counts sum exactly to the rounded
// total and that no drift accumulates over long timelines.
func (s RowSlice) FrameRange(rate float64) (start, end int) {
	return int(math.Round(s.Start * rate)), int(math.Round(s.End() * rate))
}

// BuildTimeline walks the module's play order and converts the discrete row
// grid into an aligned sequence of fixed-duration slices. rowSeconds is the
// wall clock duration of one row. When limit > 0 the walk stops once the
// cursor reaches it and the final slice is clipped so the total duration
// matches the limit exactly; otherwise the walk covers the whole order.
// Out-of-range order entries are skipped silently. Every channel of every
// emitted slice carries its Resolution; resolution misses degrade to filler
// and never fail the walk.
func BuildTimeline(m *Module, rowSeconds, limit float64, kind AssetKind, res Resolver) Timeline {
	var tl Timeline
	cursor := 0.0
	bounded := limit > 0
	for _, patternIndex := range m.EffectiveOrder() {
		if patternIndex < 0 || patternIndex >= len(m.Patterns) {
			continue
		}
		for rowIndex, row := range m.Patterns[patternIndex] {
			if bounded && cursor >= limit {
				return tl
			}
			duration := rowSeconds
			if bounded && cursor+duration > limit {
				duration = limit - cursor
			}
			channels := make([]Resolution, m.Channels)
			for ch := 0; ch < m.Channels; ch++ {
				token := row.Get(ch)
				if !token.IsSample() {
					continue
				}
				name := token.SampleName()
				channels[ch] = Resolution{Sample: name}
				if res == nil {
					continue
				}
				if path, ok := res.Resolve(name, m.Samples[name].File, kind); ok {
					channels[ch].Path = path
				}
			}
			tl = append(tl, RowSlice{
				Start:        cursor,
				Duration:     duration,
				PatternIndex: patternIndex,
				RowIndex:     rowIndex,
				Channels:     channels,
			})
			cursor += duration
		}
	}
	return tl
}

// TotalDuration returns the end time of the last slice, which by the
// contiguity invariant equals the sum of all slice durations.
func (tl Timeline) TotalDuration() float64 {
	if len(tl) == 0 {
		return 0
	}
	return tl[len(tl)-1].End()
}

// UsedFiles returns the asset paths referenced by the timeline, deduplicated,
// in first-use order.
func (tl Timeline) UsedFiles() []string {
	seen := make(map[string]bool)
	var files []string
	for _, slice := range tl {
		for _, r := range slice.Channels {
			if r.Resolved() && !seen[r.Path] {
				seen[r.Path] = true
				files = append(files, r.Path)
			}
		}
	}
	return files
}
