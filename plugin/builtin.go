package plugin

import (
	"image"
	"math"

	"github.com/modpmv/modpmv/audio"
	"github.com/modpmv/modpmv/video"
)

// Gain is the built-in audio processor that scales the whole mix.
type Gain struct {
	Factor float32
}

func (Gain) Name() string { return "gain" }

func (g Gain) Process(s audio.Segment) (audio.Segment, error) {
	return s.Gain(g.Factor), nil
}

// FadeOut ramps the tail of the mix to silence over the configured span.
type FadeOut struct {
	Seconds float64
}

func (FadeOut) Name() string { return "fadeout" }

func (f FadeOut) Process(s audio.Segment) (audio.Segment, error) {
	span := int(f.Seconds * audio.SampleRate)
	if span <= 0 || s.Frames() == 0 {
		return s, nil
	}
	if span > s.Frames() {
		span = s.Frames()
	}
	data := append([]float32(nil), s.Floats()...)
	start := s.Frames() - span
	for frame := start; frame < s.Frames(); frame++ {
		g := float32(s.Frames()-frame) / float32(span)
		data[frame*2] *= g
		data[frame*2+1] *= g
	}
	return audio.FromFloats(data), nil
}

// Pulse is the built-in visual transformer: a sinusoidal brightness pulse
// over the slice, one full cycle per Period seconds.
type Pulse struct {
	Period float64 // seconds per cycle
	Depth  float64 // 0..1, how far brightness dips
}

func (Pulse) Name() string { return "pulse" }

func (p Pulse) Apply(c *video.Composite) error {
	if c.FPS == 0 || len(c.Frames) == 0 {
		return nil
	}
	period := p.Period
	if period <= 0 {
		period = 0.5
	}
	depth := p.Depth
	if depth < 0 {
		depth = 0
	}
	if depth > 1 {
		depth = 1
	}
	for i, frame := range c.Frames {
		t := float64(i) / float64(c.FPS)
		phase := (1 + math.Sin(2*math.Pi*t/period)) / 2
		scale := 1 - depth*phase
		for off := 0; off < len(frame.Pix); off += 4 {
			frame.Pix[off] = uint8(float64(frame.Pix[off]) * scale)
			frame.Pix[off+1] = uint8(float64(frame.Pix[off+1]) * scale)
			frame.Pix[off+2] = uint8(float64(frame.Pix[off+2]) * scale)
		}
	}
	return nil
}

// Waveform is the built-in visual generator: it draws the rendered audio's
// waveform as a scrolling white trace on black, one column per pixel.
type Waveform struct{}

func (Waveform) Name() string { return "waveform" }

func (Waveform) Render(audioPath string, duration float64, size image.Point) (*video.Composite, error) {
	seg, err := audio.Load(audioPath)
	if err != nil {
		return nil, err
	}
	const fps = 24
	n := int(math.Round(duration * fps))
	if n <= 0 {
		n = 1
	}
	c := &video.Composite{Size: size, FPS: fps}
	window := audio.SampleRate / fps
	for i := 0; i < n; i++ {
		c.Frames = append(c.Frames, waveformFrame(seg, i*window, size))
	}
	return c, nil
}

// waveformFrame plots one window of samples, left channel only, centered
// vertically. Out-of-range windows plot flat lines.
func waveformFrame(seg audio.Segment, startFrame int, size image.Point) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	mid := size.Y / 2
	floats := seg.Floats()
	window := audio.SampleRate / 24
	for x := 0; x < size.X; x++ {
		frame := startFrame + x*window/size.X
		var v float32
		if idx := frame * 2; idx >= 0 && idx < len(floats) {
			v = floats[idx]
		}
		y := mid - int(v*float32(size.Y)/2)
		if y < 0 {
			y = 0
		}
		if y >= size.Y {
			y = size.Y - 1
		}
		off := img.PixOffset(x, y)
		img.Pix[off] = 255
		img.Pix[off+1] = 255
		img.Pix[off+2] = 255
	}
	return img
}
