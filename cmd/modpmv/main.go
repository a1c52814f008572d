package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/modpmv/modpmv/plugin"
	"github.com/modpmv/modpmv/render"
	"github.com/modpmv/modpmv/version"
)

func main() {
	configPath := flag.String("c", "", "Read the job configuration from this YAML file. Other flags override its values.")
	audioDirs := flag.String("a", "", "Comma separated folders searched for audio samples.")
	videoDirs := flag.String("m", "", "Comma separated folders searched for video clips.")
	imageDirs := flag.String("i", "", "Comma separated folders searched for filler background images.")
	pluginDir := flag.String("p", "", "Folder of .lua plugin scripts.")
	rowSeconds := flag.Float64("row", 0, "Seconds per pattern row. Default 0.25.")
	maxSeconds := flag.Float64("max", 0, "Stop rendering after this many seconds. 0 renders the whole module.")
	width := flag.Int("width", 0, "Canvas width in pixels. Default 1280.")
	height := flag.Int("height", 0, "Canvas height in pixels. Default 720.")
	fps := flag.Int("fps", 0, "Frames per second. Default 24.")
	outDir := flag.String("o", "", "Directory where to write the rendered audio, video and export package. Default out.")
	bitrate := flag.String("b", "", "Audio bitrate passed to the encoder. Default 192k.")
	audioFx := flag.String("fx", "", "Comma separated audio plugin chain, applied to the mix in order.")
	videoFx := flag.String("vfx", "", "Comma separated visual plugin chain, applied per slice in order.")
	seed := flag.Int64("seed", 0, "Seed for filler background selection.")
	listPlugins := flag.Bool("l", false, "List the available plugins and exit.")
	queueDir := flag.String("queue", "", "Work through the pending jobs in this queue directory instead of rendering the arguments.")
	enqueue := flag.Bool("enqueue", false, "Add the jobs to the -queue directory instead of rendering now.")
	cacheDir := flag.String("cache", "", "Reuse finished renders from this cache directory.")
	versionFlag := flag.Bool("v", false, "Print version.")
	help := flag.Bool("h", false, "Show help.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	logger := log.New(os.Stderr, "modpmv: ", 0)
	if *listPlugins {
		registry := plugin.NewRegistry(logger)
		if *pluginDir != "" {
			if err := registry.LoadFolder(*pluginDir); err != nil {
				logger.Fatal(err)
			}
		}
		for _, info := range registry.List() {
			fmt.Printf("%-12s %s\n", info.Kind, info.Name)
		}
		os.Exit(0)
	}
	if (flag.NArg() == 0 && *queueDir == "") || *help {
		flag.Usage()
		os.Exit(0)
	}

	baseConfig := render.Config{}
	if *configPath != "" {
		var err error
		baseConfig, err = render.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal(err)
		}
	}
	override := func(cfg *render.Config) {
		if *audioDirs != "" {
			cfg.AudioFolders = splitList(*audioDirs)
		}
		if *videoDirs != "" {
			cfg.VideoFolders = splitList(*videoDirs)
		}
		if *imageDirs != "" {
			cfg.ImageFolders = splitList(*imageDirs)
		}
		if *pluginDir != "" {
			cfg.PluginFolder = *pluginDir
		}
		if *rowSeconds > 0 {
			cfg.RowSeconds = *rowSeconds
		}
		if *maxSeconds > 0 {
			cfg.MaxSeconds = *maxSeconds
		}
		if *width > 0 {
			cfg.Width = *width
		}
		if *height > 0 {
			cfg.Height = *height
		}
		if *fps > 0 {
			cfg.FPS = *fps
		}
		if *outDir != "" {
			cfg.OutputDir = *outDir
		}
		if *bitrate != "" {
			cfg.AudioBitrate = *bitrate
		}
		if *audioFx != "" {
			cfg.AudioPlugins = splitList(*audioFx)
		}
		if *videoFx != "" {
			cfg.VideoPlugins = splitList(*videoFx)
		}
		if *seed != 0 {
			cfg.Seed = *seed
		}
		cfg.ApplyDefaults()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	run := func(cfg render.Config) error {
		if *cacheDir != "" {
			return runCached(ctx, cfg, render.Cache{Dir: *cacheDir}, logger)
		}
		return runJob(ctx, cfg, logger)
	}

	if *queueDir != "" && !*enqueue {
		q := render.Queue{Dir: *queueDir}
		for {
			job, ok, err := q.Claim()
			if err != nil {
				logger.Fatal(err)
			}
			if !ok {
				return
			}
			logger.Printf("job %s: %s", job.ID, job.Config.ModulePath)
			runErr := run(job.Config)
			if err := q.Finish(job.ID, runErr); err != nil {
				logger.Fatal(err)
			}
			if runErr != nil {
				logger.Printf("job %s failed: %v", job.ID, runErr)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}

	exitCode := 0
	for _, modulePath := range flag.Args() {
		cfg := baseConfig
		cfg.ModulePath = modulePath
		override(&cfg)
		if *enqueue {
			if *queueDir == "" {
				logger.Fatal("-enqueue requires -queue")
			}
			id, err := render.Queue{Dir: *queueDir}.Enqueue(cfg)
			if err != nil {
				logger.Fatal(err)
			}
			fmt.Println(id)
			continue
		}
		if err := run(cfg); err != nil {
			logger.Printf("%s: %v", modulePath, err)
			exitCode = 1
		}
		if ctx.Err() != nil {
			break
		}
	}
	os.Exit(exitCode)
}

func runJob(ctx context.Context, cfg render.Config, logger *log.Logger) error {
	job := render.Job{Config: cfg, Log: logger}
	out, err := job.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Println(out.AudioPath)
	fmt.Println(out.VideoPath)
	fmt.Println(out.ManifestPath)
	return nil
}

// runCached renders into the cache entry for this config and reuses it when
// the identical job already completed.
func runCached(ctx context.Context, cfg render.Config, cache render.Cache, logger *log.Logger) error {
	key, err := render.Key(cfg)
	if err != nil {
		return err
	}
	if dir, ok := cache.Lookup(key); ok {
		logger.Printf("cache hit %s", key[:12])
		fmt.Println(dir)
		return nil
	}
	dir, err := cache.Begin(key)
	if err != nil {
		return err
	}
	cfg.OutputDir = dir
	if err := runJob(ctx, cfg, logger); err != nil {
		cache.Evict(key)
		return err
	}
	return cache.Commit(key)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Render tracker modules into synchronized audio and video.\nUsage: %s [flags] modulefile1 [modulefile2 ...]\n", os.Args[0])
	flag.PrintDefaults()
}
