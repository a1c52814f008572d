package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	stddraw "image/draw"

	"github.com/modpmv/modpmv"
	"github.com/modpmv/modpmv/asset"
	"github.com/modpmv/modpmv/ffmpeg"
)

// Options configures a Renderer. The zero value gets 1280x720 at 24 fps.
type Options struct {
	Size         image.Point
	FPS          int
	ImageFolders []string // filler backgrounds for unresolved channels
	Effects      []Effect // visual plugin chain, applied per slice
	Seed         int64    // filler background selection seed
	Log          *log.Logger
}

// SliceInfo is the per-slice provenance the exporter writes into the
// manifest: the slice boundaries, where the row came from, and which video
// assets actually ended up on screen.
type SliceInfo struct {
	Start        float64
	Duration     float64
	PatternIndex int
	RowIndex     int
	Used         []string
}

// Result is the outcome of a video render.
type Result struct {
	Path   string
	Used   []string // deduplicated, first-use order
	Slices []SliceInfo
}

// Renderer composites a row timeline into a video. Decoded clips and scaled
// filler images are cached by path for the lifetime of the renderer, i.e. one
// render job.
type Renderer struct {
	opts   Options
	images []string
	imgs   map[string]*image.RGBA
	clips  map[string]clipEntry
}

type clipEntry struct {
	frames []*image.RGBA
	err    error
}

// NewRenderer builds a renderer over the given options.
func NewRenderer(opts Options) *Renderer {
	if opts.Size.X <= 0 || opts.Size.Y <= 0 {
		opts.Size = image.Point{X: 1280, Y: 720}
	}
	if opts.FPS <= 0 {
		opts.FPS = 24
	}
	r := &Renderer{
		opts:  opts,
		imgs:  map[string]*image.RGBA{},
		clips: map[string]clipEntry{},
	}
	for _, folder := range opts.ImageFolders {
		r.images = append(r.images, asset.List(folder, modpmv.AssetImage)...)
	}
	return r
}

// Render composites the timeline, encodes it and muxes audioPath in, writing
// the result to outPath. total is the target duration in seconds, used to
// synthesize a blank full-length clip when the timeline is empty. The
// preferred one-pass stream encoder is tried first; if it fails the render is
// redone through the per-slice concat fallback. Only when every strategy
// fails does Render return an error, and then one that says what was tried.
// Cancellation is honored at slice boundaries only, so a cancelled job never
// leaves a torn slice.
func (r *Renderer) Render(ctx context.Context, tl modpmv.Timeline, audioPath string, total float64, outPath string) (*Result, error) {
	if !ffmpeg.Available() {
		return nil, fmt.Errorf("cannot render video to %s: %w; install ffmpeg on PATH (both the stream and concat encode paths need it)",
			outPath, ffmpeg.ErrUnavailable)
	}
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	if len(tl) == 0 {
		// no rows at all: one black filler slice spanning the whole target
		tl = modpmv.Timeline{{Start: 0, Duration: total}}
	}

	strategies := []func() (encodeStrategy, error){
		func() (encodeStrategy, error) {
			return newStreamStrategy(outPath, audioPath, r.opts.Size, r.opts.FPS)
		},
		func() (encodeStrategy, error) {
			return newConcatStrategy(outPath, audioPath, r.opts.Size, r.opts.FPS)
		},
	}
	var lastErr error
	for _, mk := range strategies {
		strat, err := mk()
		if err != nil {
			lastErr = err
			continue
		}
		res, err := r.renderWith(ctx, strat, tl, audioPath)
		if err == nil {
			res.Path = outPath
			return res, nil
		}
		strat.abort()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		r.logf("encode strategy %s failed: %v; trying fallback", strat.name(), err)
		lastErr = err
	}
	return nil, fmt.Errorf("all video encode strategies failed (ffmpeg stream, ffmpeg concat): %w", lastErr)
}

func (r *Renderer) renderWith(ctx context.Context, strat encodeStrategy, tl modpmv.Timeline, audioPath string) (*Result, error) {
	// reseeded per attempt so the fallback renders the same filler choices
	rng := rand.New(rand.NewSource(r.opts.Seed))
	res := &Result{}
	seen := map[string]bool{}
	for _, slice := range tl {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		startF, endF := slice.FrameRange(float64(r.opts.FPS))
		info := SliceInfo{
			Start:        slice.Start,
			Duration:     slice.Duration,
			PatternIndex: slice.PatternIndex,
			RowIndex:     slice.RowIndex,
		}
		comp, used := r.compositeSlice(slice, endF-startF, rng)
		comp = ApplyEffects(comp, r.opts.Effects, audioPath, r.opts.Log)
		strat.beginSlice()
		for _, frame := range comp.Frames {
			if err := strat.writeFrame(frame); err != nil {
				return nil, err
			}
		}
		if err := strat.endSlice(); err != nil {
			return nil, err
		}
		info.Used = used
		res.Slices = append(res.Slices, info)
		for _, u := range used {
			if !seen[u] {
				seen[u] = true
				res.Used = append(res.Used, u)
			}
		}
	}
	if err := strat.finish(); err != nil {
		return nil, err
	}
	return res, nil
}

// compositeSlice builds the n frames of one slice: every channel contributes
// one layer on the fixed grid, video-resolved channels show their clip
// normalized to the slice length, everything else shows filler with the
// channel's tint indicator. Layers paint in channel-index order, so higher
// channels draw on top.
func (r *Renderer) compositeSlice(slice modpmv.RowSlice, n int, rng *rand.Rand) (*Composite, []string) {
	comp := &Composite{Size: r.opts.Size, FPS: r.opts.FPS}
	if n <= 0 {
		return comp, nil
	}

	type layer struct {
		frames  []*image.RGBA // per-frame content, or
		static  *image.RGBA   // one image for the whole slice
		offset  image.Point
		opacity float64
	}
	var layers []layer
	var used []string
	for ch, resolution := range slice.Channels {
		l := layer{offset: layerOffset(ch, r.opts.Size), opacity: channelOpacity(ch)}
		if resolution.Resolved() {
			frames, err := r.clip(resolution.Path)
			if err == nil {
				l.frames = fitFrames(frames, n, r.opts.Size)
				layers = append(layers, l)
				used = append(used, resolution.Path)
				continue
			}
			r.logf("channel %d: %v; substituting filler", ch, err)
		}
		l.static = r.filler(ch, rng)
		layers = append(layers, l)
	}

	for i := 0; i < n; i++ {
		frame := solidFrame(r.opts.Size, blackRGBA)
		for _, l := range layers {
			src := l.static
			if src == nil {
				src = l.frames[i]
			}
			drawLayer(frame, src, l.offset, l.opacity)
		}
		comp.Frames = append(comp.Frames, frame)
	}
	return comp, used
}

// filler builds the placeholder layer for a channel that has nothing to
// show: a random background image when any is configured, otherwise a flat
// dark block, with the channel's tint bar so the channel stays identifiable.
func (r *Renderer) filler(ch int, rng *rand.Rand) *image.RGBA {
	var base *image.RGBA
	if len(r.images) > 0 {
		path := r.images[rng.Intn(len(r.images))]
		if img, err := r.image(path); err == nil {
			base = cloneFrame(img)
		} else {
			r.logf("filler image %s: %v; using color block", path, err)
		}
	}
	if base == nil {
		base = solidFrame(r.opts.Size, fillerRGBA)
	}
	bar := indicatorRect(ch, r.opts.Size)
	stddraw.Draw(base, bar, &image.Uniform{C: channelTint(ch)}, image.Point{}, stddraw.Src)
	return base
}

func (r *Renderer) clip(path string) ([]*image.RGBA, error) {
	if e, ok := r.clips[path]; ok {
		return e.frames, e.err
	}
	frames, err := decodeClip(path, r.opts.Size, r.opts.FPS)
	r.clips[path] = clipEntry{frames: frames, err: err}
	return frames, err
}

func (r *Renderer) image(path string) (*image.RGBA, error) {
	if img, ok := r.imgs[path]; ok {
		return img, nil
	}
	img, err := loadImage(path, r.opts.Size)
	if err != nil {
		return nil, err
	}
	r.imgs[path] = img
	return img, nil
}

func (r *Renderer) logf(format string, args ...any) {
	if r.opts.Log != nil {
		r.opts.Log.Printf(format, args...)
	}
}

func cloneFrame(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
