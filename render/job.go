package render

import (
	"context"
	"fmt"
	"image"
	"log"
	"path/filepath"
	"strings"

	"github.com/modpmv/modpmv"
	"github.com/modpmv/modpmv/asset"
	"github.com/modpmv/modpmv/audio"
	"github.com/modpmv/modpmv/export"
	"github.com/modpmv/modpmv/modfile"
	"github.com/modpmv/modpmv/plugin"
	"github.com/modpmv/modpmv/video"
)

// Job runs one full render: module parse, audio mix, video composite, export.
type Job struct {
	Config   Config
	Registry *plugin.Registry // nil means built-ins plus Config.PluginFolder
	Log      *log.Logger
}

// Output collects everything a finished job produced.
type Output struct {
	Module       *modpmv.Module
	Timeline     modpmv.Timeline
	AudioPath    string
	VideoPath    string
	ManifestPath string
	Used         []string
}

// Run executes the job. Audio always renders; a video failure aborts the job
// after the audio file is already on disk, so a partial run still leaves the
// track behind. Cancellation is observed between phases and, inside the video
// render, at slice boundaries.
func (j *Job) Run(ctx context.Context) (*Output, error) {
	cfg := j.Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m, err := modfile.Read(cfg.ModulePath)
	if err != nil {
		return nil, fmt.Errorf("load module: %w", err)
	}

	registry := j.Registry
	if registry == nil {
		registry = plugin.NewRegistry(j.Log)
	}
	if cfg.PluginFolder != "" {
		if err := registry.LoadFolder(cfg.PluginFolder); err != nil {
			return nil, err
		}
	}

	resolver := asset.NewResolver(cfg.AudioFolders, cfg.VideoFolders, cfg.ImageFolders)
	audioTL := modpmv.BuildTimeline(m, cfg.RowSeconds, cfg.MaxSeconds, modpmv.AssetAudio, resolver)
	videoTL := modpmv.BuildTimeline(m, cfg.RowSeconds, cfg.MaxSeconds, modpmv.AssetVideo, resolver)

	total := audioTL.TotalDuration()
	if total == 0 {
		// a module with no rows still yields one row's worth of output
		total = cfg.RowSeconds
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mixer := audio.Mixer{Log: j.Log}
	mix := mixer.Mix(audioTL)
	if mix.Empty() {
		mix = audio.Silence(total)
	}
	mix = audio.ApplyProcessors(mix, registry.AudioChain(cfg.AudioPlugins), j.Log)

	base := outputBase(m, cfg.ModulePath)
	audioPath := filepath.Join(cfg.OutputDir, base+".mp3")
	if err := audio.Export(mix, audioPath, cfg.AudioBitrate); err != nil {
		return nil, fmt.Errorf("export audio: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	renderer := video.NewRenderer(video.Options{
		Size:         image.Point{X: cfg.Width, Y: cfg.Height},
		FPS:          cfg.FPS,
		ImageFolders: cfg.ImageFolders,
		Effects:      registry.VisualChain(cfg.VideoPlugins),
		Seed:         cfg.Seed,
		Log:          j.Log,
	})
	videoPath := filepath.Join(cfg.OutputDir, base+".mp4")
	vres, err := renderer.Render(ctx, videoTL, audioPath, total, videoPath)
	if err != nil {
		return nil, fmt.Errorf("render video: %w", err)
	}

	slices := make([]export.Slice, len(vres.Slices))
	for i, s := range vres.Slices {
		slices[i] = export.Slice{
			Start:        s.Start,
			Duration:     s.Duration,
			PatternIndex: s.PatternIndex,
			RowIndex:     s.RowIndex,
			Used:         s.Used,
		}
	}
	manifestPath, err := export.Package(export.Request{
		Dir:       filepath.Join(cfg.OutputDir, base+"_export"),
		Title:     m.Title,
		AudioPath: audioPath,
		VideoPath: videoPath,
		Order:     m.EffectiveOrder(),
		Patterns:  len(m.Patterns),
		Slices:    slices,
		Log:       j.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("package export: %w", err)
	}

	return &Output{
		Module:       m,
		Timeline:     videoTL,
		AudioPath:    audioPath,
		VideoPath:    videoPath,
		ManifestPath: manifestPath,
		Used:         vres.Used,
	}, nil
}

// RenderAudio runs only the audio half of the job: parse, mix, plugin chain.
// The preview player uses it to avoid the video pipeline entirely.
func (j *Job) RenderAudio(maxSeconds float64) (audio.Segment, *modpmv.Module, error) {
	cfg := j.Config
	cfg.ApplyDefaults()
	if maxSeconds > 0 && (cfg.MaxSeconds == 0 || maxSeconds < cfg.MaxSeconds) {
		cfg.MaxSeconds = maxSeconds
	}
	if err := cfg.Validate(); err != nil {
		return audio.Segment{}, nil, err
	}
	m, err := modfile.Read(cfg.ModulePath)
	if err != nil {
		return audio.Segment{}, nil, fmt.Errorf("load module: %w", err)
	}
	registry := j.Registry
	if registry == nil {
		registry = plugin.NewRegistry(j.Log)
	}
	if cfg.PluginFolder != "" {
		if err := registry.LoadFolder(cfg.PluginFolder); err != nil {
			return audio.Segment{}, nil, err
		}
	}
	resolver := asset.NewResolver(cfg.AudioFolders, cfg.VideoFolders, cfg.ImageFolders)
	tl := modpmv.BuildTimeline(m, cfg.RowSeconds, cfg.MaxSeconds, modpmv.AssetAudio, resolver)
	mixer := audio.Mixer{Log: j.Log}
	mix := mixer.Mix(tl)
	if mix.Empty() {
		mix = audio.Silence(cfg.RowSeconds)
	}
	mix = audio.ApplyProcessors(mix, registry.AudioChain(cfg.AudioPlugins), j.Log)
	return mix, m, nil
}

// outputBase derives the output file stem from the module title, falling back
// to the module file name. Path-hostile characters are replaced.
func outputBase(m *modpmv.Module, modulePath string) string {
	base := strings.TrimSpace(m.Title)
	if base == "" {
		name := filepath.Base(modulePath)
		base = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if base == "" {
		base = "output"
	}
	mapper := func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r == ' ' {
			return '_'
		}
		return r
	}
	return strings.Map(mapper, base)
}
