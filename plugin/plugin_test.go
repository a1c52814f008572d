package plugin_test

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/modpmv/modpmv/audio"
	"github.com/modpmv/modpmv/plugin"
	"github.com/modpmv/modpmv/video"
)

func constant(frames int, v float32) audio.Segment {
	data := make([]float32, frames*2)
	for i := range data {
		data[i] = v
	}
	return audio.FromFloats(data)
}

func TestRegistryBuiltins(t *testing.T) {
	r := plugin.NewRegistry(nil)
	if chain := r.AudioChain([]string{"gain", "fadeout"}); len(chain) != 2 {
		t.Fatalf("builtin audio chain length = %d, want 2", len(chain))
	}
	if chain := r.VisualChain([]string{"pulse", "waveform"}); len(chain) != 2 {
		t.Fatalf("builtin visual chain length = %d, want 2", len(chain))
	}
}

func TestChainSkipsUnknownNames(t *testing.T) {
	r := plugin.NewRegistry(nil)
	chain := r.AudioChain([]string{"nope", "gain", "alsonope"})
	if len(chain) != 1 || chain[0].Name() != "gain" {
		t.Fatalf("chain = %v, want only gain", chain)
	}
}

func TestFadeOut(t *testing.T) {
	s := constant(audio.SampleRate, 1.0) // 1 s of full scale
	out, err := plugin.FadeOut{Seconds: 0.5}.Process(s)
	if err != nil {
		t.Fatal(err)
	}
	floats := out.Floats()
	if floats[0] != 1.0 {
		t.Fatalf("head sample = %v, want untouched 1.0", floats[0])
	}
	last := floats[len(floats)-2]
	if last > 0.001 {
		t.Fatalf("tail sample = %v, want ~0", last)
	}
	mid := floats[(audio.SampleRate/4)*2]
	if mid != 1.0 {
		t.Fatalf("sample before the fade span = %v, want 1.0", mid)
	}
}

func TestPulsePreservesShape(t *testing.T) {
	size := image.Point{X: 4, Y: 4}
	c := &video.Composite{Size: size, FPS: 24}
	for i := 0; i < 24; i++ {
		f := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
		for j := range f.Pix {
			f.Pix[j] = 200
		}
		c.Frames = append(c.Frames, f)
	}
	if err := (plugin.Pulse{Period: 0.5, Depth: 0.5}).Apply(c); err != nil {
		t.Fatal(err)
	}
	if len(c.Frames) != 24 {
		t.Fatalf("pulse changed frame count to %d", len(c.Frames))
	}
	// frame 0 has sin(0)=0, so brightness dips to 1-depth/2
	if got := c.Frames[0].Pix[0]; got != 150 {
		t.Fatalf("frame 0 brightness = %d, want 150", got)
	}
}

func TestLoadFolderAudioScript(t *testing.T) {
	dir := t.TempDir()
	script := `
function process(samples, rate)
  for i = 1, #samples do
    samples[i] = samples[i] * 2
  end
  return samples
end
`
	if err := os.WriteFile(filepath.Join(dir, "double.lua"), []byte(script), 0644); err != nil {
		t.Fatal(err)
	}
	r := plugin.NewRegistry(nil)
	if err := r.LoadFolder(dir); err != nil {
		t.Fatal(err)
	}
	chain := r.AudioChain([]string{"double"})
	if len(chain) != 1 {
		t.Fatalf("script did not register: chain = %v", chain)
	}
	out, err := chain[0].Process(constant(8, 0.25))
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Floats()[0]; math.Abs(float64(got)-0.5) > 1e-6 {
		t.Fatalf("processed sample = %v, want 0.5", got)
	}
}

func TestLoadFolderTintScript(t *testing.T) {
	dir := t.TempDir()
	script := `
function tint(i, n)
  return 0.5, 1.0, 1.0
end
`
	if err := os.WriteFile(filepath.Join(dir, "halfred.lua"), []byte(script), 0644); err != nil {
		t.Fatal(err)
	}
	r := plugin.NewRegistry(nil)
	if err := r.LoadFolder(dir); err != nil {
		t.Fatal(err)
	}
	chain := r.VisualChain([]string{"halfred"})
	if len(chain) != 1 {
		t.Fatalf("script did not register: chain = %v", chain)
	}
	tr, ok := chain[0].(video.Transformer)
	if !ok {
		t.Fatalf("tint script registered as %T, want Transformer", chain[0])
	}
	size := image.Point{X: 2, Y: 2}
	f := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	for i := range f.Pix {
		f.Pix[i] = 200
	}
	c := &video.Composite{Frames: []*image.RGBA{f}, Size: size, FPS: 24}
	if err := tr.Apply(c); err != nil {
		t.Fatal(err)
	}
	got := c.Frames[0].RGBAAt(0, 0)
	want := color.RGBA{R: 100, G: 200, B: 200, A: 200}
	if got != want {
		t.Fatalf("tinted pixel = %v, want %v", got, want)
	}
}

func TestLoadFolderSkipsBrokenScripts(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.lua"), []byte("this is not lua ("), 0644); err != nil {
		t.Fatal(err)
	}
	r := plugin.NewRegistry(nil)
	if err := r.LoadFolder(dir); err != nil {
		t.Fatalf("broken script must degrade, got %v", err)
	}
	if chain := r.AudioChain([]string{"broken"}); len(chain) != 0 {
		t.Fatalf("broken script registered anyway")
	}
}

func TestLoadFolderMissingDirIsNotAnError(t *testing.T) {
	r := plugin.NewRegistry(nil)
	if err := r.LoadFolder(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Fatalf("missing plugin folder: %v", err)
	}
}

func TestListReportsKinds(t *testing.T) {
	r := plugin.NewRegistry(nil)
	kinds := map[string]string{}
	for _, info := range r.List() {
		kinds[info.Name] = info.Kind
	}
	want := map[string]string{
		"gain":     "audio",
		"fadeout":  "audio",
		"pulse":    "transformer",
		"waveform": "generator",
	}
	for name, kind := range want {
		if kinds[name] != kind {
			t.Errorf("plugin %s listed as %q, want %q", name, kinds[name], kind)
		}
	}
}
