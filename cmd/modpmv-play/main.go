// Command modpmv-play renders a short audio preview of a module and plays it
// through the default output device. It skips the whole video pipeline, so it
// is the quick way to audition a module while arranging patterns.
package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/modpmv/modpmv/audio"
	"github.com/modpmv/modpmv/render"
	"github.com/modpmv/modpmv/version"
)

func main() {
	audioDirs := flag.String("a", "", "Comma separated folders searched for audio samples.")
	pluginDir := flag.String("p", "", "Folder of .lua plugin scripts.")
	audioFx := flag.String("fx", "", "Comma separated audio plugin chain.")
	rowSeconds := flag.Float64("row", 0, "Seconds per pattern row. Default 0.25.")
	seconds := flag.Float64("t", 10, "Preview length in seconds. 0 renders the whole module.")
	wavOut := flag.String("w", "", "Write the preview to this .wav file instead of playing it.")
	versionFlag := flag.Bool("v", false, "Print version.")
	help := flag.Bool("h", false, "Show help.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() != 1 || *help {
		flag.Usage()
		os.Exit(0)
	}
	logger := log.New(os.Stderr, "modpmv-play: ", 0)

	job := render.Job{Config: render.Config{
		ModulePath:   flag.Arg(0),
		AudioFolders: splitList(*audioDirs),
		PluginFolder: *pluginDir,
		AudioPlugins: splitList(*audioFx),
		RowSeconds:   *rowSeconds,
	}, Log: logger}
	mix, m, err := job.RenderAudio(*seconds)
	if err != nil {
		logger.Fatal(err)
	}
	title := m.Title
	if title == "" {
		title = flag.Arg(0)
	}
	logger.Printf("%s: %.2f s", title, mix.Seconds())

	if *wavOut != "" {
		data, err := audio.Wav(mix, true)
		if err != nil {
			logger.Fatal(err)
		}
		if err := os.WriteFile(*wavOut, data, 0644); err != nil {
			logger.Fatal(err)
		}
		return
	}
	if err := play(mix); err != nil {
		logger.Fatal(err)
	}
}

func play(s audio.Segment) error {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   audio.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return fmt.Errorf("could not acquire oto context: %w", err)
	}
	<-ready

	floats := s.Floats()
	raw := make([]byte, len(floats)*4)
	for i, v := range floats {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	player := ctx.NewPlayer(bytes.NewReader(raw))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(50 * time.Millisecond)
	}
	return player.Close()
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
	fmt.Fprintf(os.Stderr, "Play an audio preview of a tracker module.\nUsage: %s [flags] modulefile\n", os.Args[0])
	flag.PrintDefaults()
}
