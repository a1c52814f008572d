// Package video renders the visual half of a row timeline: one layer per
// channel on a fixed grid, composited per slice, stitched into a single clip
// and muxed against the already-rendered audio. All slice boundary math comes
// from the same RowSlice values the audio mixer consumed, which is the
// invariant that keeps the two tracks in sync.
package video

import (
	"image"
	"image/color"
	stddraw "image/draw"
	"log"
)

// Composite is one slice's worth of composited frames.
type Composite struct {
	Frames []*image.RGBA
	Size   image.Point
	FPS    int
}

// Duration returns the composite length in seconds.
func (c *Composite) Duration() float64 {
	if c.FPS == 0 {
		return 0
	}
	return float64(len(c.Frames)) / float64(c.FPS)
}

// Effect is a visual plugin. Concrete plugins implement exactly one of the
// two sub-contracts: a Transformer mutates the composited slice in place, a
// Generator replaces it with a fully rendered clip.
type Effect interface {
	Name() string
}

// Transformer is an effect-style visual plugin.
type Transformer interface {
	Effect
	Apply(*Composite) error
}

// Generator is a generator-style visual plugin.
type Generator interface {
	Effect
	Render(audioPath string, duration float64, size image.Point) (*Composite, error)
}

// ApplyEffects runs the visual plugin chain in list order. Failures are
// logged and skipped; the chain continues with the prior composite. A
// generator's output is clamped to the slice's frame count so a misbehaving
// plugin cannot desynchronize the timeline.
func ApplyEffects(c *Composite, chain []Effect, audioPath string, logger *log.Logger) *Composite {
	for _, e := range chain {
		switch p := e.(type) {
		case Transformer:
			if err := p.Apply(c); err != nil {
				logf(logger, "visual plugin %s failed: %v; skipping", e.Name(), err)
			}
		case Generator:
			out, err := p.Render(audioPath, c.Duration(), c.Size)
			if err != nil || out == nil {
				logf(logger, "visual plugin %s failed: %v; skipping", e.Name(), err)
				continue
			}
			out.Size = c.Size
			out.FPS = c.FPS
			out.Frames = fitFrames(out.Frames, len(c.Frames), c.Size)
			c = out
		default:
			logf(logger, "visual plugin %s implements neither Apply nor Render; skipping", e.Name())
		}
	}
	return c
}

func logf(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}

// fitFrames normalizes a frame sequence to exactly n frames: truncate when
// too long, tile when too short, black when empty. Mirrors the audio mixer's
// FitFrames semantics.
func fitFrames(frames []*image.RGBA, n int, size image.Point) []*image.RGBA {
	if n <= 0 {
		return nil
	}
	if len(frames) == 0 {
		out := make([]*image.RGBA, n)
		for i := range out {
			out[i] = solidFrame(size, blackRGBA)
		}
		return out
	}
	if len(frames) >= n {
		return frames[:n]
	}
	out := make([]*image.RGBA, 0, n)
	for len(out) < n {
		remaining := n - len(out)
		if remaining >= len(frames) {
			out = append(out, frames...)
		} else {
			out = append(out, frames[:remaining]...)
		}
	}
	return out
}

// gridWidth is the number of layout columns; channel ch lands in column
// ch mod gridWidth, row ch div gridWidth, independent of how the channel
// resolved. Keeping layout a pure function of the channel index makes the
// canvas reproducible across runs.
const gridWidth = 8

// layerOffset returns the top-left position of channel ch's layer.
func layerOffset(ch int, size image.Point) image.Point {
	return image.Point{
		X: int(float64(ch%gridWidth) * float64(size.X) * 0.11),
		Y: int(float64(ch/gridWidth) * float64(size.Y) * 0.12),
	}
}

// indicatorRect returns the bounds of channel ch's activity indicator bar,
// relative to the layer.
func indicatorRect(ch int, size image.Point) image.Rectangle {
	x := int(float64(ch%gridWidth) * float64(size.X) * 0.02)
	y := int(float64(ch/gridWidth) * float64(size.Y) * 0.06)
	return image.Rect(x, y, x+int(float64(size.X)*0.15), y+int(float64(size.Y)*0.07))
}

// channelTint is the fixed, reproducible color assigned to a channel index,
// so channel activity stays visually distinguishable even when every layer is
// filler.
func channelTint(ch int) color.RGBA {
	return color.RGBA{
		R: uint8(ch * 37 % 255),
		G: uint8(ch * 59 % 255),
		B: uint8(ch * 83 % 255),
		A: 255,
	}
}

// channelOpacity fades higher channels slightly so lower channels stay
// readable where the grid overlaps.
func channelOpacity(ch int) float64 {
	o := 0.9 - float64(ch)*0.01
	if o < 0.3 {
		o = 0.3
	}
	return o
}

var (
	blackRGBA  = color.RGBA{A: 255}
	fillerRGBA = color.RGBA{R: 24, G: 24, B: 32, A: 255}
)

func solidFrame(size image.Point, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	stddraw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, stddraw.Src)
	return img
}

// drawLayer paints src onto dst at the given offset with the given opacity,
// clipped to the canvas.
func drawLayer(dst *image.RGBA, src *image.RGBA, offset image.Point, opacity float64) {
	alpha := uint8(opacity * 255)
	rect := src.Bounds().Add(offset)
	stddraw.DrawMask(dst, rect, src, src.Bounds().Min,
		&image.Uniform{C: color.Alpha{A: alpha}}, image.Point{}, stddraw.Over)
}
