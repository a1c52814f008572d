package video

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestLayerOffsetGrid(t *testing.T) {
	size := image.Point{X: 1000, Y: 500}
	tests := []struct {
		ch   int
		want image.Point
	}{
		{0, image.Point{X: 0, Y: 0}},
		{1, image.Point{X: 110, Y: 0}},
		{7, image.Point{X: 770, Y: 0}},
		{8, image.Point{X: 0, Y: 60}},   // wraps to the second grid row
		{9, image.Point{X: 110, Y: 60}},
		{17, image.Point{X: 110, Y: 120}},
	}
	for _, test := range tests {
		if got := layerOffset(test.ch, size); got != test.want {
			t.Errorf("layerOffset(%d) = %v, want %v", test.ch, got, test.want)
		}
	}
}

func TestChannelTintIsStable(t *testing.T) {
	want := color.RGBA{R: 37, G: 59, B: 83, A: 255}
	if got := channelTint(1); got != want {
		t.Errorf("channelTint(1) = %v, want %v", got, want)
	}
	if got := channelTint(1); got != channelTint(1) {
		t.Errorf("channelTint is not deterministic: %v", got)
	}
	// the multipliers wrap mod 255, never overflow a byte
	for ch := 0; ch < 64; ch++ {
		c := channelTint(ch)
		if c.A != 255 {
			t.Fatalf("channelTint(%d).A = %d, want opaque", ch, c.A)
		}
	}
}

func TestChannelOpacityFloors(t *testing.T) {
	if got := channelOpacity(0); got != 0.9 {
		t.Errorf("channelOpacity(0) = %v, want 0.9", got)
	}
	if got := channelOpacity(10); got != 0.8 {
		t.Errorf("channelOpacity(10) = %v, want 0.8", got)
	}
	if got := channelOpacity(100); got != 0.3 {
		t.Errorf("channelOpacity(100) = %v, want floor 0.3", got)
	}
}

func numberedFrames(n int, size image.Point) []*image.RGBA {
	frames := make([]*image.RGBA, n)
	for i := range frames {
		frames[i] = solidFrame(size, color.RGBA{R: uint8(i + 1), A: 255})
	}
	return frames
}

func TestFitFrames(t *testing.T) {
	size := image.Point{X: 4, Y: 4}
	src := numberedFrames(3, size)

	if got := fitFrames(src, 2, size); len(got) != 2 || got[1].Pix[0] != 2 {
		t.Fatalf("truncate: got %d frames, first channel of frame 1 = %d", len(got), got[1].Pix[0])
	}

	got := fitFrames(src, 8, size)
	if len(got) != 8 {
		t.Fatalf("tile: got %d frames, want 8", len(got))
	}
	wantSeq := []uint8{1, 2, 3, 1, 2, 3, 1, 2}
	for i, f := range got {
		if f.Pix[0] != wantSeq[i] {
			t.Fatalf("tile: frame %d starts with %d, want %d", i, f.Pix[0], wantSeq[i])
		}
	}

	black := fitFrames(nil, 3, size)
	if len(black) != 3 {
		t.Fatalf("empty: got %d frames, want 3", len(black))
	}
	for _, f := range black {
		if f.Pix[0] != 0 || f.Pix[3] != 255 {
			t.Fatalf("empty input must yield opaque black frames, got %v", f.Pix[:4])
		}
	}

	if got := fitFrames(src, 0, size); got != nil {
		t.Fatalf("zero target must yield nil, got %d frames", len(got))
	}
}

type invertTransformer struct{}

func (invertTransformer) Name() string { return "invert" }
func (invertTransformer) Apply(c *Composite) error {
	for _, f := range c.Frames {
		for i := 0; i < len(f.Pix); i += 4 {
			f.Pix[i] = 255 - f.Pix[i]
		}
	}
	return nil
}

type failingEffect struct{}

func (failingEffect) Name() string               { return "boom" }
func (failingEffect) Apply(c *Composite) error   { return errors.New("boom") }

type shortGenerator struct{}

func (shortGenerator) Name() string { return "short" }
func (shortGenerator) Render(audioPath string, duration float64, size image.Point) (*Composite, error) {
	return &Composite{Frames: numberedFrames(1, size), Size: size}, nil
}

func TestApplyEffectsChain(t *testing.T) {
	size := image.Point{X: 4, Y: 4}
	c := &Composite{Frames: numberedFrames(4, size), Size: size, FPS: 24}
	out := ApplyEffects(c, []Effect{failingEffect{}, invertTransformer{}}, "", nil)
	if out.Frames[0].Pix[0] != 254 {
		t.Fatalf("chain output = %d, want 254 (failing effect skipped, invert applied)", out.Frames[0].Pix[0])
	}
}

func TestApplyEffectsGeneratorClampedToSliceLength(t *testing.T) {
	size := image.Point{X: 4, Y: 4}
	c := &Composite{Frames: numberedFrames(5, size), Size: size, FPS: 24}
	out := ApplyEffects(c, []Effect{shortGenerator{}}, "", nil)
	if len(out.Frames) != 5 {
		t.Fatalf("generator output not normalized: %d frames, want 5", len(out.Frames))
	}
	if out.FPS != 24 {
		t.Fatalf("generator output lost frame rate: %d", out.FPS)
	}
}

func TestDrawLayerClipsToCanvas(t *testing.T) {
	size := image.Point{X: 8, Y: 8}
	dst := solidFrame(size, blackRGBA)
	src := solidFrame(image.Point{X: 8, Y: 8}, color.RGBA{R: 200, A: 255})
	drawLayer(dst, src, image.Point{X: 6, Y: 6}, 1.0)
	// inside the overlap the source shows, outside the canvas nothing panicked
	if got := dst.RGBAAt(7, 7).R; got != 200 {
		t.Fatalf("overlap pixel = %d, want 200", got)
	}
	if got := dst.RGBAAt(0, 0).R; got != 0 {
		t.Fatalf("pixel outside the layer changed: %d", got)
	}
}

func TestCompositeDuration(t *testing.T) {
	size := image.Point{X: 2, Y: 2}
	c := &Composite{Frames: numberedFrames(48, size), Size: size, FPS: 24}
	if got := c.Duration(); got != 2.0 {
		t.Fatalf("Duration = %v, want 2.0", got)
	}
	if got := (&Composite{}).Duration(); got != 0 {
		t.Fatalf("zero composite Duration = %v, want 0", got)
	}
}
